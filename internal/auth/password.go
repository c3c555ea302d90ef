package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"idmail/backend/internal/domain"
)

// HashPassword 校验并哈希明文密码。
func HashPassword(password string) (string, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 比对明文密码和哈希。
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateAPIToken 生成 24 字节随机 API token（hex 编码，48 字符）。
func GenerateAPIToken() (string, error) {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate api token: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// GeneratePassword 生成 18 字节随机密码（hex 编码，36 字符）。
// 引导守卫合成管理员时使用。
func GeneratePassword() (string, error) {
	var buf [18]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}
