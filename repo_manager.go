package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repo is the single entry point the service layer talks to. It joins
// the persistent user store with the cache-backed revocation and rate
// limiting state so callers never coordinate the two by hand.
type Repo interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Users() Users
	Revocations() *RevocationStore
	RateLimiter() *RateLimiter

	// Ban persists active=false and writes the ban lookup key so live
	// access tokens stop authorizing before they expire.
	Ban(ctx context.Context, id uuid.UUID) error
	Unban(ctx context.Context, id uuid.UUID) error
	Kick(ctx context.Context, id uuid.UUID) error
	Unkick(ctx context.Context, id uuid.UUID) error

	ActivateMassLogout(ctx context.Context) error
	DeactivateMassLogout(ctx context.Context) error
	MassLogoutTS(ctx context.Context) (*time.Time, error)

	UseToken(ctx context.Context, token string, ttl time.Duration) error
	RateLimitReached(ctx context.Context, action, subject string, limit int64, window, timeout time.Duration) (bool, error)
	RateLimitReset(ctx context.Context, action, subject string) error
}

type repo struct {
	db          *bun.DB
	users       Users
	revocations *RevocationStore
	limiter     *RateLimiter
}

var _ Repo = (*repo)(nil)

// NewRepo wires the bun-backed user store and the cache-backed
// revocation state behind one façade. Session TTLs come from cfg so
// the revocation keys expire exactly when the tokens they guard do.
func NewRepo(db *bun.DB, cache CacheClient, cfg TokenConfig) Repo {
	return &repo{
		db:          db,
		users:       NewUsersRepository(db),
		revocations: NewRevocationStore(cache, cfg.AccessTTL, cfg.RefreshTTL),
		limiter:     NewRateLimiter(cache),
	}
}

func (m *repo) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.revocations == nil {
		return errors.New("revocation store should be initialized")
	}

	if m.limiter == nil {
		return errors.New("rate limiter should be initialized")
	}

	return nil
}

func (m *repo) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *repo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *repo) Users() Users {
	return m.users
}

func (m *repo) Revocations() *RevocationStore {
	return m.revocations
}

func (m *repo) RateLimiter() *RateLimiter {
	return m.limiter
}

func (m *repo) Ban(ctx context.Context, id uuid.UUID) error {
	if err := m.users.ApplyUpdate(ctx, id, UserUpdate{Active: ptr(false)}); err != nil {
		return err
	}
	return m.revocations.SetBanned(ctx, id)
}

func (m *repo) Unban(ctx context.Context, id uuid.UUID) error {
	if err := m.users.ApplyUpdate(ctx, id, UserUpdate{Active: ptr(true)}); err != nil {
		return err
	}
	return m.revocations.ClearBanned(ctx, id)
}

func (m *repo) Kick(ctx context.Context, id uuid.UUID) error {
	return m.revocations.Kick(ctx, id)
}

func (m *repo) Unkick(ctx context.Context, id uuid.UUID) error {
	return m.revocations.Unkick(ctx, id)
}

func (m *repo) ActivateMassLogout(ctx context.Context) error {
	return m.revocations.ActivateMassLogout(ctx)
}

func (m *repo) DeactivateMassLogout(ctx context.Context) error {
	return m.revocations.DeactivateMassLogout(ctx)
}

func (m *repo) MassLogoutTS(ctx context.Context) (*time.Time, error) {
	return m.revocations.MassLogoutTS(ctx)
}

func (m *repo) UseToken(ctx context.Context, token string, ttl time.Duration) error {
	return m.revocations.UseToken(ctx, token, ttl)
}

func (m *repo) RateLimitReached(ctx context.Context, action, subject string, limit int64, window, timeout time.Duration) (bool, error) {
	return m.limiter.Reached(ctx, action, subject, limit, window, timeout)
}

func (m *repo) RateLimitReset(ctx context.Context, action, subject string) error {
	return m.limiter.Reset(ctx, action, subject)
}
