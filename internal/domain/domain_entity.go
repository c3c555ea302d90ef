package domain

import (
	"time"
)

// Domain 表示一个可投递域名。owner 引用 users.username；
// catch_all 引用一个邮箱地址，为空表示未设置（软约束，
// 不做外键校验，由授权层在写入时检查）。
type Domain struct {
	Domain      string    `json:"domain"`
	CatchAll    string    `json:"catchAll"`
	Public      bool      `json:"public"`
	Active      bool      `json:"active"`
	Owner       string    `json:"owner"`
	Provisioned bool      `json:"provisioned"`
	CreatedAt   time.Time `json:"createdAt"`
}
