package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates what a token may be used for. It is stamped
// into the "type" claim at issuance and checked on every redemption.
type TokenKind string

const (
	// TokenAccess authorizes ordinary requests.
	TokenAccess TokenKind = "access"
	// TokenRefresh mints new access tokens.
	TokenRefresh TokenKind = "refresh"
	// TokenResetPassword is the single-use password reset kind.
	TokenResetPassword TokenKind = "reset_password"
	// TokenVerifyEmail is the single-use email ownership kind.
	TokenVerifyEmail TokenKind = "verify_email"
	// TokenChangeEmailOld confirms the change from the current address.
	TokenChangeEmailOld TokenKind = "change_email_old"
	// TokenChangeEmailNew confirms the change from the new address.
	TokenChangeEmailNew TokenKind = "change_email_new"
	// TokenAddOAuthAccount gates attaching an OAuth identity.
	TokenAddOAuthAccount TokenKind = "add_oauth_account"
	// TokenRemoveOAuthAccount gates detaching an OAuth identity.
	TokenRemoveOAuthAccount TokenKind = "remove_oauth_account"
)

// IsSession reports whether the kind is a session token (access/refresh)
// as opposed to a single-use action token.
func (k TokenKind) IsSession() bool {
	return k == TokenAccess || k == TokenRefresh
}

// Claims is the payload carried by every token. Subject always holds the
// user id. Username and Roles are a denormalized snapshot present only on
// session tokens; action tokens carry the minimal payload for their kind.
type Claims struct {
	jwt.RegisteredClaims
	Kind     TokenKind `json:"type"`
	Username string    `json:"username,omitempty"`
	Roles    []string  `json:"roles,omitempty"`
	Email    string    `json:"email,omitempty"`
	Provider string    `json:"provider,omitempty"`
}

// UserID returns the subject parsed as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// IssuedTime returns the iat claim, zero when absent.
func (c *Claims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ExpiresTime returns the exp claim, zero when absent.
func (c *Claims) ExpiresTime() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// HasRole reports membership in the snapshot role set.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func jwtSubject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}

// ActionClaims builds the minimal claim set for provider-scoped action
// tokens (oauth link and unlink).
func ActionClaims(id uuid.UUID, provider string) *Claims {
	return &Claims{
		RegisteredClaims: jwtSubject(id.String()),
		Provider:         provider,
	}
}
