package auth

import "github.com/goliatone/go-errors"

const (
	TextCodeTokenDecoding    = "auth_token_decoding"
	TextCodeWrongTokenType   = "auth_wrong_token_type"
	TextCodeTokenAlreadyUsed = "auth_token_already_used"
	TextCodeNotAuthorized    = "auth_not_authorized"
	TextCodeUserNotActive    = "auth_user_not_active"
	TextCodeUserNotFound     = "auth_user_not_found"
	TextCodeEmailExists      = "auth_email_exists"
	TextCodeUsernameExists   = "auth_username_exists"
	TextCodeSameEmail        = "auth_same_email"
	TextCodeSameUsername     = "auth_same_username"
	TextCodeEmailMismatch    = "auth_email_mismatch"
	TextCodeEmailVerified    = "auth_email_already_verified"
	TextCodePasswordNotSet   = "auth_password_not_set"
	TextCodePasswordExists   = "auth_password_already_set"
	TextCodeInvalidPassword  = "auth_invalid_password"
	TextCodeInvalidCaptcha   = "auth_invalid_captcha"
	TextCodeRateLimited      = "auth_rate_limited"
	TextCodeOAuthLoginOnly   = "auth_oauth_login_only"
	TextCodeOAuthExists      = "auth_oauth_account_exists"
	TextCodeOAuthNotSet      = "auth_oauth_account_not_set"
)

// ErrTokenDecoding is returned for any token that cannot be decoded,
// whether the signature, the expiry, or the payload shape is at fault.
// Callers never learn which, to avoid oracle leakage.
var ErrTokenDecoding = errors.New("unable to decode token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenDecoding).
	WithCode(errors.CodeUnauthorized)

// ErrWrongTokenType is returned when a token decodes but its type claim
// does not match the operation attempted.
var ErrWrongTokenType = errors.New("wrong token type", errors.CategoryAuth).
	WithTextCode(TextCodeWrongTokenType).
	WithCode(errors.CodeUnauthorized)

// ErrTokenAlreadyUsed is returned on the second consumption of a
// single-use action token.
var ErrTokenAlreadyUsed = errors.New("token already used", errors.CategoryAuth).
	WithTextCode(TextCodeTokenAlreadyUsed).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthorized is returned when revocation state (ban, kick, mass
// logout) invalidates an otherwise valid token.
var ErrNotAuthorized = errors.New("not authorized", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotActive is returned when the persisted account is banned.
var ErrUserNotActive = errors.New("user is not active", errors.CategoryAuth).
	WithTextCode(TextCodeUserNotActive).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailAlreadyExists is returned when the email is taken.
var ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrUsernameAlreadyExists is returned when the username is taken.
var ErrUsernameAlreadyExists = errors.New("username already exists", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameExists).
	WithCode(errors.CodeConflict)

// ErrSameEmail is returned when an email change targets the current email.
var ErrSameEmail = errors.New("email is the same", errors.CategoryValidation).
	WithTextCode(TextCodeSameEmail).
	WithCode(errors.CodeBadRequest)

// ErrSameUsername is returned when a username change targets the current
// username.
var ErrSameUsername = errors.New("username is the same", errors.CategoryValidation).
	WithTextCode(TextCodeSameUsername).
	WithCode(errors.CodeBadRequest)

// ErrEmailMismatch is returned when an action token carries an email that
// no longer matches the account.
var ErrEmailMismatch = errors.New("email mismatch", errors.CategoryValidation).
	WithTextCode(TextCodeEmailMismatch).
	WithCode(errors.CodeBadRequest)

// ErrEmailAlreadyVerified is returned when verification is requested for
// an already verified email.
var ErrEmailAlreadyVerified = errors.New("email already verified", errors.CategoryValidation).
	WithTextCode(TextCodeEmailVerified).
	WithCode(errors.CodeBadRequest)

// ErrPasswordNotSet is returned when a password operation targets a pure
// OAuth account that has no hash.
var ErrPasswordNotSet = errors.New("password not set", errors.CategoryValidation).
	WithTextCode(TextCodePasswordNotSet).
	WithCode(errors.CodeBadRequest)

// ErrPasswordAlreadySet is returned when SetPassword targets an account
// that already has a hash.
var ErrPasswordAlreadySet = errors.New("password already set", errors.CategoryValidation).
	WithTextCode(TextCodePasswordExists).
	WithCode(errors.CodeBadRequest)

// ErrInvalidPassword is returned when the supplied password does not
// verify against the stored hash.
var ErrInvalidPassword = errors.New("invalid password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCaptcha is returned when the CAPTCHA verifier rejects the
// supplied token.
var ErrInvalidCaptcha = errors.New("invalid captcha", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCaptcha).
	WithCode(errors.CodeBadRequest)

// ErrRateLimited is returned when a guarded action is in cooldown.
var ErrRateLimited = errors.New("too many requests", errors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited)

// ErrOAuthLoginOnly is returned when a login-only provider would have to
// create a new account.
var ErrOAuthLoginOnly = errors.New("provider cannot create accounts", errors.CategoryAuth).
	WithTextCode(TextCodeOAuthLoginOnly).
	WithCode(errors.CodeForbidden)

// ErrOAuthAccountAlreadyExists is returned when linking is requested for
// an account that already has an OAuth identity attached.
var ErrOAuthAccountAlreadyExists = errors.New("oauth account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeOAuthExists).
	WithCode(errors.CodeConflict)

// ErrOAuthAccountNotSet is returned when unlinking is requested for an
// account without an OAuth identity.
var ErrOAuthAccountNotSet = errors.New("oauth account not set", errors.CategoryValidation).
	WithTextCode(TextCodeOAuthNotSet).
	WithCode(errors.CodeBadRequest)
