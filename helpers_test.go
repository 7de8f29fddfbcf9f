package auth

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testCache adapts a go-redis client to CacheClient for tests against
// miniredis. Mirrors the cache package, which cannot be imported here.
type testCache struct {
	client *redis.Client
}

func (c *testCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *testCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *testCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *testCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *testCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, CacheClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, &testCache{client: client}
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*User)(nil)).Exec(context.Background())
	require.NoError(t, err)

	return db
}

func newTestTokenConfig() TokenConfig {
	cfg := DefaultTokenConfig([]byte("test-signing-key"))
	cfg.Issuer = "authkit-test"
	return cfg
}

func newTestRepo(t *testing.T) (Repo, *miniredis.Miniredis) {
	t.Helper()

	mr, cacheClient := newTestRedis(t)
	db := newTestDB(t)

	return NewRepo(db, cacheClient, newTestTokenConfig()), mr
}

type fakeEmailSender struct {
	mu            sync.Mutex
	verifications map[string]string
	resets        map[string]string
	oldEmails     map[string]string
	newEmails     map[string]string
	unlinks       map[string]string
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{
		verifications: map[string]string{},
		resets:        map[string]string{},
		oldEmails:     map[string]string{},
		newEmails:     map[string]string{},
		unlinks:       map[string]string{},
	}
}

func (f *fakeEmailSender) RequestVerification(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications[email] = token
	return nil
}

func (f *fakeEmailSender) RequestPasswordReset(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[email] = token
	return nil
}

func (f *fakeEmailSender) CheckOldEmail(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldEmails[email] = token
	return nil
}

func (f *fakeEmailSender) CheckNewEmail(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newEmails[email] = token
	return nil
}

func (f *fakeEmailSender) RequestOAuthUnlink(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlinks[email] = token
	return nil
}

func (f *fakeEmailSender) verificationToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifications[email]
}

func (f *fakeEmailSender) resetToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[email]
}

func (f *fakeEmailSender) oldEmailToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.oldEmails[email]
}

func (f *fakeEmailSender) newEmailToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newEmails[email]
}

type fakeCaptcha struct {
	valid string
}

func (f *fakeCaptcha) ValidateCaptcha(_ context.Context, token string) (bool, error) {
	return token == f.valid, nil
}

func newTestService(t *testing.T) (*Service, *fakeEmailSender, *miniredis.Miniredis) {
	t.Helper()

	repo, mr := newTestRepo(t)
	tokens := NewTokenService(newTestTokenConfig(), NopLogger{})
	email := newFakeEmailSender()

	svc := NewService(repo, tokens).
		WithLogger(NopLogger{}).
		WithPasswordHasher(BcryptHasher{Cost: 4}).
		WithEmailSender(email)

	return svc, email, mr
}

func registerTestUser(t *testing.T, svc *Service, email, username, password string) *User {
	t.Helper()

	user, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Username:  username,
		Password1: password,
		Password2: password,
	})
	require.NoError(t, err)
	return user
}
