package domain

import (
	"regexp"
	"strings"
)

// 保留的本地部分。非域名所有者、非管理员不得在别人的域下
// 创建这些地址，即使域是 public 的。
var reservedLocalParts = map[string]struct{}{
	"abuse":      {},
	"admin":      {},
	"hostmaster": {},
	"info":       {},
	"no-reply":   {},
	"postmaster": {},
	"root":       {},
	"security":   {},
	"support":    {},
	"webmaster":  {},
}

var (
	localPartPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._+-]*$`)
	domainPattern    = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)
)

// IsReservedLocalPart 判断本地部分是否属于保留名。
func IsReservedLocalPart(localPart string) bool {
	_, ok := reservedLocalParts[strings.ToLower(localPart)]
	return ok
}

// ValidateLocalPart 校验地址的本地部分格式。
func ValidateLocalPart(localPart string) error {
	if localPart == "" {
		return Validationf("local part must not be empty")
	}
	if len(localPart) > 64 {
		return Validationf("local part must be at most 64 characters")
	}
	if !localPartPattern.MatchString(localPart) {
		return Validationf("local part %q contains invalid characters", localPart)
	}
	return nil
}

// ValidateDomainName 校验域名格式。
func ValidateDomainName(domainName string) error {
	if domainName == "" {
		return Validationf("domain must not be empty")
	}
	if len(domainName) > 253 || !domainPattern.MatchString(domainName) {
		return Validationf("invalid domain name %q", domainName)
	}
	return nil
}

// ValidateAddress 校验完整地址并在需要时拒绝保留名。
// allowReserved 只有当操作者是域所有者或管理员时才为 true。
// 返回规范化（小写）后的地址。
func ValidateAddress(localPart, domainName string, allowReserved bool) (string, error) {
	localPart = strings.ToLower(strings.TrimSpace(localPart))
	domainName = strings.ToLower(strings.TrimSpace(domainName))

	if err := ValidateLocalPart(localPart); err != nil {
		return "", err
	}
	if err := ValidateDomainName(domainName); err != nil {
		return "", err
	}
	if !allowReserved && IsReservedLocalPart(localPart) {
		return "", Validationf("local part %q is reserved for the domain owner", localPart)
	}
	return localPart + "@" + domainName, nil
}

// ValidateUsername 校验用户名：非空且不含 @。
func ValidateUsername(username string) error {
	if username == "" {
		return Validationf("username must not be empty")
	}
	if strings.Contains(username, "@") {
		return Validationf("username must not contain '@'")
	}
	return nil
}

// ValidatePassword 校验明文密码长度。
// 上限受 bcrypt 输入长度限制。
func ValidatePassword(password string) error {
	if len(password) < 12 || len(password) > 72 {
		return Validationf("password must be between 12 and 72 characters")
	}
	return nil
}

// MinAPITokenLength API token 的最小长度，过短的 token 直接视为无效。
const MinAPITokenLength = 16

// ValidateAPIToken 校验 API token 长度。
func ValidateAPIToken(token string) error {
	if len(token) < MinAPITokenLength {
		return Validationf("API tokens must be at least %d characters long", MinAPITokenLength)
	}
	return nil
}
