package domain

import (
	"time"
)

// Alias 表示一个转发别名。owner 既可以是用户名也可以是邮箱地址：
// 当 owner 是邮箱时，该邮箱的所属用户间接拥有此别名（两步解析，
// 见 auth.ResolveOwningUser）。target 引用一个邮箱地址。
type Alias struct {
	Address     string    `json:"address"`
	Domain      string    `json:"domain"`
	Target      string    `json:"target"`
	Comment     string    `json:"comment"`
	NumRecv     int64     `json:"nRecv"`
	NumSent     int64     `json:"nSent"`
	Active      bool      `json:"active"`
	Owner       string    `json:"owner"`
	Provisioned bool      `json:"provisioned"`
	CreatedAt   time.Time `json:"createdAt"`
}
