// Package memory 提供内存存储实现，主要用于测试与开发模式。
// 与 SQLite 实现保持相同的键唯一性语义（地址、api_token）。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// Store 内存存储实现。
type Store struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	domains   map[string]domain.Domain
	mailboxes map[string]domain.Mailbox
	aliases   map[string]domain.Alias
}

// NewStore 创建空的内存存储。
func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		domains:   make(map[string]domain.Domain),
		mailboxes: make(map[string]domain.Mailbox),
		aliases:   make(map[string]domain.Alias),
	}
}

// InTx 内存实现没有真正的事务，直接执行 fn。
// 测试场景下单线程使用，语义足够。
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return fn(s)
}

// Close 实现 storage.Store。
func (s *Store) Close() error { return nil }

// Health 实现 storage.Store。
func (s *Store) Health(ctx context.Context) error { return nil }

// ---------- users ----------

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return domain.Conflictf("user %q", user.Username)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[user.Username]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.CreatedAt = old.CreatedAt
	s.users[user.Username] = *user
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return storage.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) CountAdmins(ctx context.Context, activeOnly bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, u := range s.users {
		if u.Admin && (!activeOnly || u.Active) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var admins []domain.User
	for _, u := range s.users {
		if u.Admin {
			admins = append(admins, u)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Username < admins[j].Username })
	return admins, nil
}

func (s *Store) ProvisionedUsernames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for name, u := range s.users {
		if u.Provisioned {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) UpsertProvisionedUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	u.Provisioned = true
	if old, ok := s.users[u.Username]; ok {
		u.CreatedAt = old.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.Username] = u
	return nil
}

// ---------- domains ----------

func (s *Store) CreateDomain(ctx context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.domains[d.Domain]; ok {
		return domain.Conflictf("domain %q", d.Domain)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.domains[d.Domain] = *d
	return nil
}

func (s *Store) GetDomain(ctx context.Context, name string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[name]
	if !ok {
		return nil, storage.ErrDomainNotFound
	}
	return &d, nil
}

func (s *Store) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.domains[d.Domain]
	if !ok {
		return storage.ErrDomainNotFound
	}
	d.CreatedAt = old.CreatedAt
	s.domains[d.Domain] = *d
	return nil
}

func (s *Store) DeleteDomain(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.domains[name]; !ok {
		return storage.ErrDomainNotFound
	}
	delete(s.domains, name)
	return nil
}

func (s *Store) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	domains := make([]domain.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Domain < domains[j].Domain })
	return domains, nil
}

func (s *Store) ProvisionedDomains(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for name, d := range s.domains {
		if d.Provisioned {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) UpsertProvisionedDomain(ctx context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd := *d
	dd.Provisioned = true
	if old, ok := s.domains[dd.Domain]; ok {
		dd.CreatedAt = old.CreatedAt
	} else if dd.CreatedAt.IsZero() {
		dd.CreatedAt = time.Now().UTC()
	}
	s.domains[dd.Domain] = dd
	return nil
}

// ---------- mailboxes ----------

func (s *Store) CreateMailbox(ctx context.Context, mb *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mailboxes[mb.Address]; ok {
		return domain.Conflictf("mailbox %q", mb.Address)
	}
	if err := s.checkTokenUniqueLocked(mb.APIToken, mb.Address); err != nil {
		return err
	}
	if mb.CreatedAt.IsZero() {
		mb.CreatedAt = time.Now().UTC()
	}
	s.mailboxes[mb.Address] = *mb
	return nil
}

func (s *Store) GetMailbox(ctx context.Context, address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mb, ok := s.mailboxes[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	return &mb, nil
}

func (s *Store) GetMailboxByAPIToken(ctx context.Context, token string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mb := range s.mailboxes {
		if mb.APIToken != "" && mb.APIToken == token {
			mb := mb
			return &mb, nil
		}
	}
	return nil, storage.ErrMailboxNotFound
}

func (s *Store) UpdateMailbox(ctx context.Context, mb *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.mailboxes[mb.Address]
	if !ok {
		return storage.ErrMailboxNotFound
	}
	if err := s.checkTokenUniqueLocked(mb.APIToken, mb.Address); err != nil {
		return err
	}
	mb.CreatedAt = old.CreatedAt
	s.mailboxes[mb.Address] = *mb
	return nil
}

func (s *Store) DeleteMailbox(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mailboxes[address]; !ok {
		return storage.ErrMailboxNotFound
	}
	delete(s.mailboxes, address)
	return nil
}

func (s *Store) ListMailboxes(ctx context.Context) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mailboxes := make([]domain.Mailbox, 0, len(s.mailboxes))
	for _, mb := range s.mailboxes {
		mailboxes = append(mailboxes, mb)
	}
	sort.Slice(mailboxes, func(i, j int) bool { return mailboxes[i].Address < mailboxes[j].Address })
	return mailboxes, nil
}

func (s *Store) ListMailboxesByOwner(ctx context.Context, owner string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var mailboxes []domain.Mailbox
	for _, mb := range s.mailboxes {
		if mb.Owner == owner {
			mailboxes = append(mailboxes, mb)
		}
	}
	sort.Slice(mailboxes, func(i, j int) bool { return mailboxes[i].Address < mailboxes[j].Address })
	return mailboxes, nil
}

func (s *Store) ProvisionedMailboxes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for addr, mb := range s.mailboxes {
		if mb.Provisioned {
			keys = append(keys, addr)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) UpsertProvisionedMailbox(ctx context.Context, mb *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTokenUniqueLocked(mb.APIToken, mb.Address); err != nil {
		return err
	}
	m := *mb
	m.Provisioned = true
	if old, ok := s.mailboxes[m.Address]; ok {
		m.CreatedAt = old.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.mailboxes[m.Address] = m
	return nil
}

// checkTokenUniqueLocked 模拟 api_token 的 UNIQUE 约束。
func (s *Store) checkTokenUniqueLocked(token, selfAddress string) error {
	if token == "" {
		return nil
	}
	for addr, mb := range s.mailboxes {
		if addr != selfAddress && mb.APIToken == token {
			return domain.Conflictf("api token already in use")
		}
	}
	return nil
}

// ---------- aliases ----------

func (s *Store) CreateAlias(ctx context.Context, a *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[a.Address]; ok {
		return domain.Conflictf("alias %q", a.Address)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.aliases[a.Address] = *a
	return nil
}

func (s *Store) GetAlias(ctx context.Context, address string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.aliases[address]
	if !ok {
		return nil, storage.ErrAliasNotFound
	}
	return &a, nil
}

func (s *Store) UpdateAlias(ctx context.Context, a *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.aliases[a.Address]
	if !ok {
		return storage.ErrAliasNotFound
	}
	a.CreatedAt = old.CreatedAt
	a.NumRecv = old.NumRecv
	a.NumSent = old.NumSent
	s.aliases[a.Address] = *a
	return nil
}

func (s *Store) DeleteAlias(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[address]; !ok {
		return storage.ErrAliasNotFound
	}
	delete(s.aliases, address)
	return nil
}

func (s *Store) ListAliases(ctx context.Context) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aliases := make([]domain.Alias, 0, len(s.aliases))
	for _, a := range s.aliases {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Address < aliases[j].Address })
	return aliases, nil
}

func (s *Store) ListAliasesByOwners(ctx context.Context, owners []string) ([]domain.Alias, error) {
	ownerSet := make(map[string]struct{}, len(owners))
	for _, o := range owners {
		ownerSet[o] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var aliases []domain.Alias
	for _, a := range s.aliases {
		if _, ok := ownerSet[a.Owner]; ok {
			aliases = append(aliases, a)
		}
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Address < aliases[j].Address })
	return aliases, nil
}

func (s *Store) ProvisionedAliases(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for addr, a := range s.aliases {
		if a.Provisioned {
			keys = append(keys, addr)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) UpsertProvisionedAlias(ctx context.Context, a *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	aa := *a
	aa.Provisioned = true
	if old, ok := s.aliases[aa.Address]; ok {
		aa.CreatedAt = old.CreatedAt
		aa.NumRecv = old.NumRecv
		aa.NumSent = old.NumSent
	} else if aa.CreatedAt.IsZero() {
		aa.CreatedAt = time.Now().UTC()
	}
	s.aliases[aa.Address] = aa
	return nil
}
