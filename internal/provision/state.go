package provision

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"idmail/backend/internal/domain"
)

// 期望状态文件的结构：四张顶层表，各自以实体的自然键为映射键。
// 布尔字段的缺省值：admin=false、public=false、active=true。

// UserState 期望状态里的一个用户。
type UserState struct {
	PasswordHash string `toml:"password_hash"`
	Admin        bool   `toml:"admin"`
	Active       *bool  `toml:"active"`
}

// DomainState 期望状态里的一个域名。
type DomainState struct {
	CatchAll string `toml:"catch_all"`
	Public   bool   `toml:"public"`
	Active   *bool  `toml:"active"`
	Owner    string `toml:"owner"`
}

// MailboxState 期望状态里的一个邮箱。
type MailboxState struct {
	PasswordHash string `toml:"password_hash"`
	APIToken     string `toml:"api_token"`
	Active       *bool  `toml:"active"`
	Owner        string `toml:"owner"`
}

// AliasState 期望状态里的一个别名。
type AliasState struct {
	Target  string `toml:"target"`
	Comment string `toml:"comment"`
	Active  *bool  `toml:"active"`
	Owner   string `toml:"owner"`
}

// State 完整的期望状态。
type State struct {
	Users     map[string]UserState    `toml:"users"`
	Domains   map[string]DomainState  `toml:"domains"`
	Mailboxes map[string]MailboxState `toml:"mailboxes"`
	Aliases   map[string]AliasState   `toml:"aliases"`
}

// LoadState 读取并解析期望状态文件，随后做交叉校验。
func LoadState(path string) (*State, error) {
	var state State
	if _, err := toml.DecodeFile(path, &state); err != nil {
		return nil, fmt.Errorf("failed to parse provision state %q: %w", path, err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// active 应用 active 的默认值 true。
func active(v *bool) bool {
	return v == nil || *v
}

// Validate 做写入前的全部交叉校验。引用只在期望状态内部检查：
// 被调和的实体只允许依赖同样被调和的实体。
func (s *State) Validate() error {
	for name, u := range s.Users {
		if err := domain.ValidateUsername(name); err != nil {
			return fmt.Errorf("failed to provision user %q: %w", name, err)
		}
		if u.PasswordHash == "" {
			return domain.Validationf("failed to provision user %q: password_hash is required", name)
		}
	}

	for name, d := range s.Domains {
		if err := domain.ValidateDomainName(name); err != nil {
			return fmt.Errorf("failed to provision domain %q: %w", name, err)
		}
		if _, ok := s.Users[d.Owner]; !ok {
			return domain.Validationf("failed to provision domain %q: owner %q must be a provisioned user", name, d.Owner)
		}
	}

	for name, mb := range s.Mailboxes {
		_, domainName, ok := domain.SplitAddress(name)
		if !ok {
			return domain.Validationf("failed to provision mailbox %q: invalid address", name)
		}
		if _, found := s.Domains[domainName]; !found {
			return domain.Validationf("failed to provision mailbox %q: domain %q must be a provisioned domain", name, domainName)
		}
		if _, found := s.Users[mb.Owner]; !found {
			return domain.Validationf("failed to provision mailbox %q: owner %q must be a provisioned user", name, mb.Owner)
		}
		if mb.PasswordHash == "" {
			return domain.Validationf("failed to provision mailbox %q: password_hash is required", name)
		}
	}

	for name, a := range s.Aliases {
		_, domainName, ok := domain.SplitAddress(name)
		if !ok {
			return domain.Validationf("failed to provision alias %q: invalid address", name)
		}
		if _, found := s.Domains[domainName]; !found {
			return domain.Validationf("failed to provision alias %q: domain %q must be a provisioned domain", name, domainName)
		}
		if a.Target == "" {
			return domain.Validationf("failed to provision alias %q: target is required", name)
		}
		_, userOK := s.Users[a.Owner]
		_, mailboxOK := s.Mailboxes[a.Owner]
		if !userOK && !mailboxOK {
			return domain.Validationf("failed to provision alias %q: owner %q must be a provisioned user or mailbox", name, a.Owner)
		}
	}

	return nil
}
