package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"idmail/backend/internal/auth"
	"idmail/backend/internal/config"
	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage/sqlite"
)

// create-admin 直接往数据库里写一个管理员账户，
// 用于首次部署或所有管理员都失联时的紧急恢复。
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <username> <password>")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 验证用户名
	if err := domain.ValidateUsername(username); err != nil {
		fmt.Printf("Invalid username: %v\n", err)
		os.Exit(1)
	}

	// 验证密码
	if err := domain.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	// 哈希密码
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	// 打开数据库
	store, err := sqlite.NewStore(sqlite.Options{
		Path:         cfg.Database.Path,
		BusyTimeout:  cfg.Database.BusyTimeout,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user := &domain.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Admin:        true,
		Active:       true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		fmt.Printf("Failed to create admin user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin user %q created\n", username)
}
