package domain

import (
	"errors"
	"fmt"
)

// 统一的错误分类。各层用 errors.Is 判别，HTTP 层据此映射状态码。
var (
	// ErrValidation 输入不合法（格式、长度、引用不存在等）。
	ErrValidation = errors.New("validation failed")

	// ErrConflict 键或唯一约束冲突。
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized 身份或能力检查未通过。
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound 目标实体不存在。
	ErrNotFound = errors.New("not found")

	// ErrStore 存储层故障（超时、锁、IO），对调用方不可重试语义未知。
	ErrStore = errors.New("storage failure")

	// ErrSecretResolution 密文文件间接引用解析失败。
	ErrSecretResolution = errors.New("secret resolution failed")
)

// Validationf 构造一个带上下文的校验错误。
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Conflictf 构造一个带上下文的冲突错误。
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// Unauthorizedf 构造一个带上下文的授权错误。
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnauthorized}, args...)...)
}
