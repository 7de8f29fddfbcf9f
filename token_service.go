package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenConfig holds the signing key and the per-kind lifetimes.
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   []string

	// Leeway is the clock-skew tolerance applied to session tokens only.
	Leeway time.Duration

	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	ResetPasswordTTL     time.Duration
	VerifyEmailTTL       time.Duration
	ChangeEmailTTL       time.Duration
	AddOAuthAccountTTL   time.Duration
	RemoveOAuthAccountTTL time.Duration
}

// DefaultTokenConfig returns the stock lifetimes: short access tokens,
// month-long refresh and verification windows, minutes for the OAuth
// linking handshake.
func DefaultTokenConfig(signingKey []byte) TokenConfig {
	return TokenConfig{
		SigningKey:            signingKey,
		Leeway:                10 * time.Second,
		AccessTTL:             6 * time.Hour,
		RefreshTTL:            30 * 24 * time.Hour,
		ResetPasswordTTL:      time.Hour,
		VerifyEmailTTL:        30 * 24 * time.Hour,
		ChangeEmailTTL:        20 * time.Minute,
		AddOAuthAccountTTL:    2 * time.Minute,
		RemoveOAuthAccountTTL: 20 * time.Minute,
	}
}

// TTL returns the configured lifetime for a token kind.
func (c TokenConfig) TTL(kind TokenKind) time.Duration {
	switch kind {
	case TokenAccess:
		return c.AccessTTL
	case TokenRefresh:
		return c.RefreshTTL
	case TokenResetPassword:
		return c.ResetPasswordTTL
	case TokenVerifyEmail:
		return c.VerifyEmailTTL
	case TokenChangeEmailOld, TokenChangeEmailNew:
		return c.ChangeEmailTTL
	case TokenAddOAuthAccount:
		return c.AddOAuthAccountTTL
	case TokenRemoveOAuthAccount:
		return c.RemoveOAuthAccountTTL
	default:
		return 0
	}
}

// TokenCodec turns claims into signed expiring tokens and back.
type TokenCodec interface {
	Issue(kind TokenKind, claims *Claims, ttl time.Duration) (string, error)
	Decode(token string) (*Claims, error)
}

// TokenService is the HS256 implementation of TokenCodec.
type TokenService struct {
	config TokenConfig
	logger Logger
}

var _ TokenCodec = (*TokenService)(nil)

// NewTokenService creates a TokenService with the given configuration.
func NewTokenService(config TokenConfig, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		config: config,
		logger: logger,
	}
}

// Config exposes the token configuration for collaborators that need the
// per-kind lifetimes (used-token markers share the token's own TTL).
func (ts *TokenService) Config() TokenConfig {
	return ts.config
}

// Issue stamps iat/exp/type onto the claims and signs them. A zero ttl
// uses the configured lifetime for the kind.
func (ts *TokenService) Issue(kind TokenKind, claims *Claims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	if ttl == 0 {
		ttl = ts.config.TTL(kind)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive", errors.CategoryInternal)
	}

	now := time.Now()
	claims.Kind = kind
	claims.RegisteredClaims.Issuer = ts.config.Issuer
	claims.RegisteredClaims.Audience = append(jwt.ClaimStrings(nil), ts.config.Audience...)
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// IssueSessionPair issues the access/refresh pair for a user, snapshotting
// username and roles into both tokens.
func (ts *TokenService) IssueSessionPair(user *User) (access string, refresh string, err error) {
	access, err = ts.Issue(TokenAccess, sessionClaims(user), 0)
	if err != nil {
		return "", "", err
	}

	refresh, err = ts.Issue(TokenRefresh, sessionClaims(user), 0)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// Decode verifies signature and expiry and returns the claims. Every
// failure mode collapses into ErrTokenDecoding; session tokens tolerate
// the configured clock-skew leeway, action tokens do not.
func (ts *TokenService) Decode(tokenString string) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithIssuedAt(),
	}
	if ts.config.Leeway > 0 {
		parserOptions = append(parserOptions, jwt.WithLeeway(ts.config.Leeway))
	}
	if ts.config.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token decode encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.config.SigningKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, ErrTokenDecoding
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenDecoding
	}

	// The parser leeway covers session tokens; action tokens get strict
	// expiry so the single-use window never stretches.
	if !claims.Kind.IsSession() && time.Now().After(claims.ExpiresTime()) {
		return nil, ErrTokenDecoding
	}

	return claims, nil
}

func sessionClaims(user *User) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		Username: user.Username,
		Roles:    append([]string(nil), user.Roles...),
	}
}
