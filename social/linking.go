package social

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"

	auth "github.com/pegov/authkit"
)

const numericSuffixAttempts = 10

// Resolution is the outcome of resolving a provider identity.
type Resolution struct {
	User    *auth.User
	Created bool
}

// LinkingStrategy maps a provider identity to a local account.
type LinkingStrategy interface {
	Resolve(ctx context.Context, identity *Identity, loginOnly bool) (*Resolution, error)
}

// DefaultLinkingStrategy either returns the account already linked to
// the identity or provisions a new one. Accounts created here are
// verified and have no password; the provider is their only way in
// until one is set.
type DefaultLinkingStrategy struct {
	users  auth.Users
	logger auth.Logger
}

// NewLinkingStrategy builds the default strategy over the user store.
func NewLinkingStrategy(users auth.Users, logger auth.Logger) *DefaultLinkingStrategy {
	if logger == nil {
		logger = auth.NopLogger{}
	}
	return &DefaultLinkingStrategy{users: users, logger: logger}
}

var _ LinkingStrategy = (*DefaultLinkingStrategy)(nil)

// Resolve implements LinkingStrategy.
func (s *DefaultLinkingStrategy) Resolve(ctx context.Context, identity *Identity, loginOnly bool) (*Resolution, error) {
	if identity == nil {
		return nil, ErrUserInfoFailed
	}

	if identity.Email == "" {
		return nil, ErrMissingEmail
	}

	existing, err := s.users.GetByOAuth(ctx, identity.Provider, identity.SubjectID)
	if err == nil {
		if !existing.Active {
			return nil, auth.ErrUserNotActive
		}
		return &Resolution{User: existing}, nil
	}
	if !auth.IsUserNotFound(err) {
		return nil, err
	}

	if loginOnly {
		return nil, auth.ErrOAuthLoginOnly
	}

	if _, err := s.users.GetByEmailAddress(ctx, identity.Email); err == nil {
		return nil, auth.ErrEmailAlreadyExists
	} else if !auth.IsUserNotFound(err) {
		return nil, err
	}

	username, err := s.resolveUsername(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Register(ctx, &auth.User{
		Email:          identity.Email,
		Username:       username,
		Roles:          []string{auth.RoleUser},
		Active:         true,
		Verified:       true,
		OAuthProvider:  identity.Provider,
		OAuthSubjectID: identity.SubjectID,
	})
	if err != nil {
		return nil, err
	}

	return &Resolution{User: created, Created: true}, nil
}

// resolveUsername derives a unique username from the email local-part:
// the bare candidate, then numeric suffixes, then one random suffix.
// Exhausting all of them means the namespace itself is pathological.
func (s *DefaultLinkingStrategy) resolveUsername(ctx context.Context, email string) (string, error) {
	base := strings.Split(email, "@")[0]

	candidates := make([]string, 0, numericSuffixAttempts+2)
	candidates = append(candidates, base)
	for i := 0; i < numericSuffixAttempts; i++ {
		candidates = append(candidates, base+strconv.Itoa(i))
	}
	candidates = append(candidates, base+randomSuffix())

	for _, candidate := range candidates {
		_, err := s.users.GetByUsername(ctx, candidate)
		if auth.IsUserNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}

	s.logger.Error("username namespace exhausted", "base", base)
	return "", ErrUsernameSpaceExhausted
}

func randomSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
