package social

import (
	"context"
	"database/sql"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/pegov/authkit"
	"github.com/pegov/authkit/cache"
)

func newTestRepo(t *testing.T) auth.Repo {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*auth.User)(nil)).Exec(context.Background())
	require.NoError(t, err)

	cfg := auth.DefaultTokenConfig([]byte("test-signing-key"))
	cfg.Issuer = "authkit-test"

	return auth.NewRepo(db, cache.NewRedisClient(client), cfg)
}

func newTestTokens() *auth.TokenService {
	cfg := auth.DefaultTokenConfig([]byte("test-signing-key"))
	cfg.Issuer = "authkit-test"
	return auth.NewTokenService(cfg, auth.NopLogger{})
}

func newTestConfig() Config {
	return Config{
		StateEncryptionKey: []byte("0123456789abcdef0123456789abcdef"),
		StateHMACKey:       []byte("fedcba9876543210fedcba9876543210"),
		StateTTL:           10 * time.Minute,
	}
}

// fakeProvider answers every code exchange with a fixed identity.
type fakeProvider struct {
	name      string
	loginOnly bool
	identity  *Identity
	err       error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthorizationURI(redirectURI, state string) string {
	q := url.Values{}
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://provider.test/authorize?" + q.Encode()
}

func (p *fakeProvider) ResolveUser(_ context.Context, _, _ string) (*Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

func (p *fakeProvider) LoginOnly() bool { return p.loginOnly }

var _ Provider = (*fakeProvider)(nil)

// stateFromURI pulls the state parameter back out of an authorization
// URI built by a provider.
func stateFromURI(t *testing.T, uri string) string {
	t.Helper()

	parsed, err := url.Parse(uri)
	require.NoError(t, err)

	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

type fakeUnlinkSender struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeUnlinkSender() *fakeUnlinkSender {
	return &fakeUnlinkSender{tokens: map[string]string{}}
}

func (f *fakeUnlinkSender) RequestVerification(_ context.Context, _, _ string) error { return nil }
func (f *fakeUnlinkSender) RequestPasswordReset(_ context.Context, _, _ string) error {
	return nil
}
func (f *fakeUnlinkSender) CheckOldEmail(_ context.Context, _, _ string) error { return nil }
func (f *fakeUnlinkSender) CheckNewEmail(_ context.Context, _, _ string) error { return nil }

func (f *fakeUnlinkSender) RequestOAuthUnlink(_ context.Context, email, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[email] = token
	return nil
}

func (f *fakeUnlinkSender) unlinkToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[email]
}

var _ auth.EmailSender = (*fakeUnlinkSender)(nil)
