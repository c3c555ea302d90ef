package domain

import (
	"time"
)

// User 表示一个登录账户。用户名是自然主键，不允许包含 @，
// 以便与邮箱地址（local@domain）在同一个登录入口下区分。
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Admin        bool      `json:"admin"`
	Active       bool      `json:"active"`
	Provisioned  bool      `json:"provisioned"`
	CreatedAt    time.Time `json:"createdAt"`
}
