package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"idmail/backend/internal/domain"
	"idmail/backend/internal/storage"
)

// Reconciler 把存储的实际状态向期望状态收敛。
//
// 每个实体种类一个事务内的 pass，顺序 users → domains →
// mailboxes → aliases（引用依赖自上而下）。每个 pass：
// 读取 provisioned=TRUE 的键集，删除不再出现在期望状态里的行，
// 然后逐条 upsert 期望条目并强制 provisioned=TRUE。
// provisioned=FALSE 的行（交互创建）永远不动。
// 整个过程幂等：相同输入连续运行两次，第二次零写入差异。
type Reconciler struct {
	store storage.Store
	log   *zap.Logger
}

// NewReconciler 创建调和器。
func NewReconciler(store storage.Store, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, log: log}
}

// RunFromFile 加载期望状态文件并应用。任何失败中止剩余 pass。
func (r *Reconciler) RunFromFile(ctx context.Context, path string) error {
	state, err := LoadState(path)
	if err != nil {
		return err
	}
	return r.Apply(ctx, state)
}

// Apply 按固定顺序执行四个 pass。
func (r *Reconciler) Apply(ctx context.Context, state *State) error {
	if err := r.provisionUsers(ctx, state); err != nil {
		return err
	}
	if err := r.provisionDomains(ctx, state); err != nil {
		return err
	}
	if err := r.provisionMailboxes(ctx, state); err != nil {
		return err
	}
	return r.provisionAliases(ctx, state)
}

func (r *Reconciler) provisionUsers(ctx context.Context, state *State) error {
	return r.store.InTx(ctx, func(tx storage.Store) error {
		known, err := tx.ProvisionedUsernames(ctx)
		if err != nil {
			return fmt.Errorf("failed to list provisioned users: %w", err)
		}
		orphans := orphanKeys(known, func(k string) bool { _, ok := state.Users[k]; return ok })
		r.logPass("users", len(state.Users), len(known), len(orphans))

		for _, name := range orphans {
			if err := tx.DeleteUser(ctx, name); err != nil {
				return fmt.Errorf("failed to delete orphaned user %q: %w", name, err)
			}
		}

		for name, u := range state.Users {
			passwordHash, err := ResolveSecret(u.PasswordHash)
			if err != nil {
				return fmt.Errorf("failed to provision user %q: %w", name, err)
			}
			err = tx.UpsertProvisionedUser(ctx, &domain.User{
				Username:     name,
				PasswordHash: passwordHash,
				Admin:        u.Admin,
				Active:       active(u.Active),
			})
			if err != nil {
				return fmt.Errorf("failed to provision user %q: %w", name, err)
			}
		}
		return nil
	})
}

func (r *Reconciler) provisionDomains(ctx context.Context, state *State) error {
	return r.store.InTx(ctx, func(tx storage.Store) error {
		known, err := tx.ProvisionedDomains(ctx)
		if err != nil {
			return fmt.Errorf("failed to list provisioned domains: %w", err)
		}
		orphans := orphanKeys(known, func(k string) bool { _, ok := state.Domains[k]; return ok })
		r.logPass("domains", len(state.Domains), len(known), len(orphans))

		for _, name := range orphans {
			if err := tx.DeleteDomain(ctx, name); err != nil {
				return fmt.Errorf("failed to delete orphaned domain %q: %w", name, err)
			}
		}

		for name, d := range state.Domains {
			err := tx.UpsertProvisionedDomain(ctx, &domain.Domain{
				Domain:   name,
				CatchAll: d.CatchAll,
				Public:   d.Public,
				Active:   active(d.Active),
				Owner:    d.Owner,
			})
			if err != nil {
				return fmt.Errorf("failed to provision domain %q: %w", name, err)
			}
		}
		return nil
	})
}

func (r *Reconciler) provisionMailboxes(ctx context.Context, state *State) error {
	return r.store.InTx(ctx, func(tx storage.Store) error {
		known, err := tx.ProvisionedMailboxes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list provisioned mailboxes: %w", err)
		}
		orphans := orphanKeys(known, func(k string) bool { _, ok := state.Mailboxes[k]; return ok })
		r.logPass("mailboxes", len(state.Mailboxes), len(known), len(orphans))

		for _, address := range orphans {
			if err := tx.DeleteMailbox(ctx, address); err != nil {
				return fmt.Errorf("failed to delete orphaned mailbox %q: %w", address, err)
			}
		}

		for name, mb := range state.Mailboxes {
			_, domainName, _ := domain.SplitAddress(name)

			passwordHash, err := ResolveSecret(mb.PasswordHash)
			if err != nil {
				return fmt.Errorf("failed to provision mailbox %q: %w", name, err)
			}
			apiToken := ""
			if mb.APIToken != "" {
				apiToken, err = ResolveSecret(mb.APIToken)
				if err != nil {
					return fmt.Errorf("failed to provision mailbox %q: %w", name, err)
				}
				// token 长度在每次更新时重新校验
				if err := domain.ValidateAPIToken(apiToken); err != nil {
					return fmt.Errorf("failed to provision mailbox %q: %w", name, err)
				}
			}

			err = tx.UpsertProvisionedMailbox(ctx, &domain.Mailbox{
				Address:      name,
				Domain:       domainName,
				PasswordHash: passwordHash,
				APIToken:     apiToken,
				Active:       active(mb.Active),
				Owner:        mb.Owner,
			})
			if err != nil {
				return fmt.Errorf("failed to provision mailbox %q: %w", name, err)
			}
		}
		return nil
	})
}

func (r *Reconciler) provisionAliases(ctx context.Context, state *State) error {
	return r.store.InTx(ctx, func(tx storage.Store) error {
		known, err := tx.ProvisionedAliases(ctx)
		if err != nil {
			return fmt.Errorf("failed to list provisioned aliases: %w", err)
		}
		orphans := orphanKeys(known, func(k string) bool { _, ok := state.Aliases[k]; return ok })
		r.logPass("aliases", len(state.Aliases), len(known), len(orphans))

		for _, address := range orphans {
			if err := tx.DeleteAlias(ctx, address); err != nil {
				return fmt.Errorf("failed to delete orphaned alias %q: %w", address, err)
			}
		}

		for name, a := range state.Aliases {
			_, domainName, _ := domain.SplitAddress(name)
			err := tx.UpsertProvisionedAlias(ctx, &domain.Alias{
				Address: name,
				Domain:  domainName,
				Target:  a.Target,
				Comment: a.Comment,
				Active:  active(a.Active),
				Owner:   a.Owner,
			})
			if err != nil {
				return fmt.Errorf("failed to provision alias %q: %w", name, err)
			}
		}
		return nil
	})
}

// orphanKeys 返回 known 中不被期望状态覆盖的键，即将被删除。
func orphanKeys(known []string, inDesired func(string) bool) []string {
	var orphans []string
	for _, k := range known {
		if !inDesired(k) {
			orphans = append(orphans, k)
		}
	}
	return orphans
}

// logPass 以 -删除数/+新增数 的形式记录一个 pass 的差异。
func (r *Reconciler) logPass(kind string, desired, known, orphans int) {
	r.log.Info("provisioning "+kind,
		zap.Int("desired", desired),
		zap.Int("removed", orphans),
		zap.Int("added", desired-known+orphans),
	)
}
