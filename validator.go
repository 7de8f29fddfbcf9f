package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

var (
	usernameCharsRe  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	usernameLetterRe = regexp.MustCompile(`[A-Za-z]`)
)

// RegisterRequest is the payload for the registration flow. Phone is
// optional and validated in E.164 form when present.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
	Phone     string `json:"phone,omitempty"`
	Captcha   string `json:"captcha,omitempty"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(4, 20),
			validation.Match(usernameCharsRe),
			validation.By(validateContainsLetter),
		),
		validation.Field(&r.Password1, validation.Required, validation.Length(6, 32)),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
		validation.Field(&r.Phone, validation.By(validateOptionalPhone)),
	)
}

// LoginRequest carries either an email or a username in Login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Captcha  string `json:"captcha,omitempty"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Login, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

// PasswordSetRequest sets a first password on an account created
// through a social provider.
type PasswordSetRequest struct {
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

func (r PasswordSetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password1, validation.Required, validation.Length(6, 32)),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
	)
}

// PasswordChangeRequest rotates an existing password.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
}

func (r PasswordChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.Password1, validation.Required, validation.Length(6, 32)),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
	)
}

// PasswordResetRequest finalizes a reset started by email.
type PasswordResetRequest struct {
	Token     string `json:"token"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password1, validation.Required, validation.Length(6, 32)),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
	)
}

// EmailChangeRequest starts the two-step email change flow.
type EmailChangeRequest struct {
	Email string `json:"email"`
}

func (r EmailChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

// UsernameChangeRequest renames an account.
type UsernameChangeRequest struct {
	Username string `json:"username"`
}

func (r UsernameChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(4, 20),
			validation.Match(usernameCharsRe),
			validation.By(validateContainsLetter),
		),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func validateContainsLetter(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !usernameLetterRe.MatchString(s) {
		return errors.New("must contain at least one letter")
	}
	return nil
}

func validateOptionalPhone(value interface{}) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}
