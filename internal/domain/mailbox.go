package domain

import (
	"strings"
	"time"
)

// Mailbox 表示一个真实存在的收件地址。address（local@domain）是
// 自然主键；Domain 列是从地址冗余拆出的连接键，方便邮件服务器
// 按域查询。api_token 全局唯一，由存储层的 UNIQUE 约束保证。
type Mailbox struct {
	Address      string    `json:"address"`
	Domain       string    `json:"domain"`
	PasswordHash string    `json:"-"`
	APIToken     string    `json:"-"`
	Active       bool      `json:"active"`
	Owner        string    `json:"owner"`
	Provisioned  bool      `json:"provisioned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SplitAddress 把 local@domain 拆分为两部分。
// 地址不含 @ 或者任一部分为空时返回 false。
func SplitAddress(address string) (localPart, domainName string, ok bool) {
	localPart, domainName, ok = strings.Cut(address, "@")
	if !ok || localPart == "" || domainName == "" || strings.Contains(domainName, "@") {
		return "", "", false
	}
	return localPart, domainName, true
}
