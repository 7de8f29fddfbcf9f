package auth

import (
	"github.com/google/uuid"
)

// Account is the authenticated view of a user reconstructed from access
// token claims. It is a snapshot taken at issuance time and may lag the
// persisted record until the next refresh.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Roles    []string  `json:"roles"`
}

// AccountFromClaims builds an Account out of decoded session claims.
func AccountFromClaims(claims *Claims) (*Account, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenDecoding
	}

	return &Account{
		ID:       id,
		Username: claims.Username,
		Roles:    append([]string(nil), claims.Roles...),
	}, nil
}

// HasRole reports membership in the snapshot role set.
func (a *Account) HasRole(role string) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the admin role is present in the snapshot.
func (a *Account) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}
