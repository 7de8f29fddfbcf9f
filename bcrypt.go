package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords with bcrypt. A zero Cost falls back
// to the build's default cost.
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// HashPassword will generate a password hash.
func (h BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("password should not be empty", goerrors.CategoryBadInput)
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(out), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password.
func (h BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}
