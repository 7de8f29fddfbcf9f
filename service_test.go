package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRegister(t *testing.T) {
	svc, email, _ := newTestService(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []string{RoleUser}, user.Roles)
	assert.True(t, user.Active)
	assert.False(t, user.Verified)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	claims, err := svc.TokenService().Decode(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, claims.Kind)
	assert.Equal(t, user.ID.String(), claims.Subject)

	// A verification email goes out in the background.
	require.Eventually(t, func() bool {
		return email.verificationToken("alice@example.com") != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServiceRegisterConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")

	_, _, err := svc.Register(ctx, RegisterRequest{
		Email:     "alice@example.com",
		Username:  "somebody",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, _, err = svc.Register(ctx, RegisterRequest{
		Email:     "other@example.com",
		Username:  "alice",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
	})
	assert.ErrorIs(t, err, ErrUsernameAlreadyExists)
}

func TestServiceRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bad := []RegisterRequest{
		{Email: "not-an-email", Username: "alice", Password1: "sup3rsecret", Password2: "sup3rsecret"},
		{Email: "alice@example.com", Username: "al", Password1: "sup3rsecret", Password2: "sup3rsecret"},
		{Email: "alice@example.com", Username: "1234", Password1: "sup3rsecret", Password2: "sup3rsecret"},
		{Email: "alice@example.com", Username: "alice", Password1: "short", Password2: "short"},
		{Email: "alice@example.com", Username: "alice", Password1: "sup3rsecret", Password2: "different1"},
	}

	for _, req := range bad {
		_, _, err := svc.Register(ctx, req)
		assert.Error(t, err, "request %+v", req)
	}
}

func TestServiceRegisterCaptcha(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.WithCaptchaVerifier(&fakeCaptcha{valid: "good"})
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
		Captcha:   "bad",
	})
	assert.ErrorIs(t, err, ErrInvalidCaptcha)

	_, _, err = svc.Register(ctx, RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password1: "sup3rsecret",
		Password2: "sup3rsecret",
		Captcha:   "good",
	})
	assert.NoError(t, err)
}

func TestServiceLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")

	t.Run("by email", func(t *testing.T) {
		user, pair, err := svc.Login(ctx, LoginRequest{
			Login:    "alice@example.com",
			Password: "sup3rsecret",
		}, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
	})

	t.Run("by username", func(t *testing.T) {
		_, _, err := svc.Login(ctx, LoginRequest{
			Login:    "alice",
			Password: "sup3rsecret",
		}, "10.0.0.1")
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, LoginRequest{
			Login:    "alice",
			Password: "wrongwrong",
		}, "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("unknown login", func(t *testing.T) {
		_, _, err := svc.Login(ctx, LoginRequest{
			Login:    "nobody",
			Password: "sup3rsecret",
		}, "10.0.0.1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestServiceLoginInactiveUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")
	require.NoError(t, svc.Repo().Users().ApplyUpdate(ctx, user.ID, UserUpdate{
		Active: ptr(false),
	}))

	_, _, err := svc.Login(ctx, LoginRequest{
		Login:    "alice",
		Password: "sup3rsecret",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrUserNotActive)
}

func TestServiceLoginWithoutPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Social-only account: no password hash on record.
	_, err := svc.Repo().Users().Register(ctx, &User{
		Email:          "social@example.com",
		Username:       "social",
		Active:         true,
		Verified:       true,
		OAuthProvider:  "github",
		OAuthSubjectID: "42",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, LoginRequest{
		Login:    "social",
		Password: "whatever123",
	}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrPasswordNotSet)
}

func TestServiceLoginRateLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.WithLimits(LimitConfig{
		Login: RateLimit{Limit: 2, Window: time.Minute, Timeout: time.Minute},
	})
	ctx := context.Background()

	registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")

	bad := LoginRequest{Login: "alice", Password: "wrongwrong"}
	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, bad, "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, _, err := svc.Login(ctx, bad, "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Even correct credentials are refused during the cooldown.
	_, _, err = svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Another client IP is unaffected.
	_, _, err = svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.2")
	assert.NoError(t, err)
}

func TestServiceLoginResetsRateLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.WithLimits(LimitConfig{
		Login: RateLimit{Limit: 3, Window: time.Minute, Timeout: time.Minute},
	})
	ctx := context.Background()

	registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")

	// Two failures, then a success clears the counter, so two more
	// failures stay under the limit.
	bad := LoginRequest{Login: "alice", Password: "wrongwrong"}
	good := LoginRequest{Login: "alice", Password: "sup3rsecret"}

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, bad, "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, _, err := svc.Login(ctx, good, "10.0.0.1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, err := svc.Login(ctx, bad, "10.0.0.1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}
}

func TestServiceRefreshAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")
	_, pair, err := svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.1")
	require.NoError(t, err)

	access, err := svc.RefreshAccessToken(ctx, pair.Refresh)
	require.NoError(t, err)

	claims, err := svc.TokenService().Decode(access)
	require.NoError(t, err)
	assert.Equal(t, TokenAccess, claims.Kind)
	assert.Equal(t, user.ID.String(), claims.Subject)

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := svc.RefreshAccessToken(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		require.NoError(t, svc.Repo().Users().ApplyUpdate(ctx, user.ID, UserUpdate{
			Active: ptr(false),
		}))
		_, err := svc.RefreshAccessToken(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrUserNotActive)
	})
}

func TestServiceAuthorize(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")
	_, pair, err := svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.1")
	require.NoError(t, err)

	account, err := svc.Authorize(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, []string{RoleUser}, account.Roles)

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.Authorize(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Authorize(ctx, "garbage")
		assert.ErrorIs(t, err, ErrTokenDecoding)
	})

	t.Run("banned user is refused", func(t *testing.T) {
		require.NoError(t, svc.Repo().Ban(ctx, user.ID))
		_, err := svc.Authorize(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestServiceLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")
	_, pair, err := svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.1")
	require.NoError(t, err)

	assert.NoError(t, svc.Logout(ctx, pair.Access))
	assert.ErrorIs(t, svc.Logout(ctx, pair.Refresh), ErrWrongTokenType)
	assert.ErrorIs(t, svc.Logout(ctx, "garbage"), ErrTokenDecoding)
}

func TestServiceGetUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")

	got, err := svc.GetUser(ctx, &Account{ID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestServiceAuthorizeRefresh(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := registerTestUser(t, svc, "alice@example.com", "alice", "sup3rsecret")
	_, pair, err := svc.Login(ctx, LoginRequest{Login: "alice", Password: "sup3rsecret"}, "10.0.0.1")
	require.NoError(t, err)

	got, err := svc.AuthorizeRefresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := svc.AuthorizeRefresh(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("deactivated account without a ban key", func(t *testing.T) {
		// The record is flipped directly, so no ban lookup key exists;
		// only the re-fetch can catch it.
		require.NoError(t, svc.Repo().Users().ApplyUpdate(ctx, user.ID, UserUpdate{
			Active: ptr(false),
		}))

		_, err := svc.AuthorizeRefresh(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrUserNotActive)

		_, err = svc.RefreshAccessToken(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrUserNotActive)
	})
}
