package auth

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// RoleUser is the default role granted at registration.
	RoleUser = "user"
	// RoleAdmin grants administrative operations (ban, kick, mass logout).
	RoleAdmin = "admin"
)

// User is the persistent identity record. Email and username are each
// globally unique. A user without a password hash must carry an OAuth
// identity, otherwise it has no way to authenticate.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Username     string    `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash string    `bun:"password_hash,nullzero" json:"-"`
	Roles        []string  `bun:"roles" json:"roles,omitempty"`

	OAuthProvider  string `bun:"oauth_provider,nullzero" json:"oauth_provider,omitempty"`
	OAuthSubjectID string `bun:"oauth_sid,nullzero" json:"oauth_sid,omitempty"`

	Active   bool `bun:"active,notnull,default:true" json:"active"`
	Verified bool `bun:"verified,notnull,default:false" json:"verified"`

	LastLogin *time.Time `bun:"last_login,nullzero" json:"last_login,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// HasOAuth reports whether an OAuth identity is attached.
func (u *User) HasOAuth() bool {
	return u != nil && u.OAuthProvider != "" && u.OAuthSubjectID != ""
}

// HasRole reports membership in the role set.
func (u *User) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

// IsAdmin reports whether the admin role is present.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// UserUpdate is a partial update applied through Repo.Update. Nil fields
// are left untouched.
type UserUpdate struct {
	Email        *string
	Username     *string
	PasswordHash *string
	Roles        []string
	Active       *bool
	Verified     *bool
	LastLogin    *time.Time

	// Pointers to empty strings clear the column; used when detaching an
	// OAuth identity.
	OAuthProvider  *string
	OAuthSubjectID *string
}

func ptr[T any](v T) *T { return &v }
