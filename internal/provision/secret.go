package provision

import (
	"fmt"
	"os"
	"strings"

	"idmail/backend/internal/domain"
)

// ResolveSecret 解析可能带文件间接引用的密文字段。
// 形如 %{file:<path>}% 的值替换为文件内容（去掉首尾空白），
// 其余值原样返回。文件不可读对启动是致命的。
//
// 每次调和运行都会重新解析，密钥文件轮换后下次运行即生效。
func ResolveSecret(value string) (string, error) {
	rest, ok := strings.CutPrefix(value, "%{file:")
	if !ok {
		return value, nil
	}
	path, ok := strings.CutSuffix(rest, "}%")
	if !ok {
		return value, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %q: %v", domain.ErrSecretResolution, path, err)
	}
	return strings.TrimSpace(string(content)), nil
}
