package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the persistent user store consumed by the repository façade.
// Lookup misses surface as ErrUserNotFound and unique-constraint hits as
// the matching conflict sentinel, not as raw driver errors.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmailAddress(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetByLogin tries email lookup first when the string contains an
	// "@", falling back to username. Login-field ergonomics, not a
	// security boundary.
	GetByLogin(ctx context.Context, login string) (*User, error)
	GetByOAuth(ctx context.Context, provider, sid string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, update UserUpdate) error
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error
	Remove(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the bun-backed Users store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.getByColumn(ctx, "id", id.String())
}

func (a *users) GetByEmailAddress(ctx context.Context, email string) (*User, error) {
	return a.getByColumn(ctx, "email", email)
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.getByColumn(ctx, "username", username)
}

func (a *users) GetByLogin(ctx context.Context, login string) (*User, error) {
	if strings.Contains(login, "@") {
		user, err := a.GetByEmailAddress(ctx, login)
		if err == nil {
			return user, nil
		}
		if !IsUserNotFound(err) {
			return nil, err
		}
	}

	return a.GetByUsername(ctx, login)
}

func (a *users) GetByOAuth(ctx context.Context, provider, sid string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.oauth_provider = ?", provider).
		Where("?TableAlias.oauth_sid = ?", sid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)
	created, err := a.Repository.Create(ctx, user)
	if err != nil {
		return nil, asConflict(err)
	}
	return created, nil
}

func (a *users) ApplyUpdate(ctx context.Context, id uuid.UUID, update UserUpdate) error {
	record := &User{ID: id}
	columns := make([]string, 0, 8)

	if update.Email != nil {
		record.Email = *update.Email
		columns = append(columns, "email")
	}
	if update.Username != nil {
		record.Username = *update.Username
		columns = append(columns, "username")
	}
	if update.PasswordHash != nil {
		record.PasswordHash = *update.PasswordHash
		columns = append(columns, "password_hash")
	}
	if update.Roles != nil {
		record.Roles = update.Roles
		columns = append(columns, "roles")
	}
	if update.Active != nil {
		record.Active = *update.Active
		columns = append(columns, "active")
	}
	if update.Verified != nil {
		record.Verified = *update.Verified
		columns = append(columns, "verified")
	}
	if update.LastLogin != nil {
		record.LastLogin = update.LastLogin
		columns = append(columns, "last_login")
	}
	if update.OAuthProvider != nil {
		record.OAuthProvider = *update.OAuthProvider
		columns = append(columns, "oauth_provider")
	}
	if update.OAuthSubjectID != nil {
		record.OAuthSubjectID = *update.OAuthSubjectID
		columns = append(columns, "oauth_sid")
	}

	if len(columns) == 0 {
		return nil
	}

	now := time.Now()
	record.UpdatedAt = &now
	columns = append(columns, "updated_at")

	res, err := a.db.NewUpdate().
		Model(record).
		Column(columns...).
		WherePK().
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return asConflict(err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return a.ApplyUpdate(ctx, id, UserUpdate{LastLogin: &now})
}

func (a *users) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (a *users) getByColumn(ctx context.Context, column, value string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return record, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if len(record.Roles) == 0 {
		record.Roles = []string{RoleUser}
	}

	if record.ID == uuid.Nil {
		// Deterministic IDs keep re-registration attempts idempotent at
		// the storage layer; the unique index still rejects duplicates.
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
}

// asConflict maps unique-constraint violations onto the conflict
// sentinels, so a lost race between the existence precheck and the
// insert reports the same error the precheck would have.
func asConflict(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") &&
		!strings.Contains(msg, "duplicate key value") {
		return err
	}

	switch {
	// The primary key derives from the email, so an id collision is an
	// email collision.
	case strings.Contains(msg, "email"), strings.Contains(msg, ".id"):
		return ErrEmailAlreadyExists
	case strings.Contains(msg, "username"):
		return ErrUsernameAlreadyExists
	case strings.Contains(msg, "oauth"):
		return ErrOAuthAccountAlreadyExists
	}

	return err
}

// IsUserNotFound reports whether err is the not-found outcome, whichever
// layer produced it.
func IsUserNotFound(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) {
		return true
	}
	return errors.Is(err, ErrUserNotFound)
}
