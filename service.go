package auth

import (
	"context"
	"time"
)

// RateLimit is one action's counter policy: at most Limit hits per
// Window, then locked out for Timeout.
type RateLimit struct {
	Limit   int64
	Window  time.Duration
	Timeout time.Duration
}

// LimitConfig carries the per-action rate limits.
type LimitConfig struct {
	Login         RateLimit
	PasswordReset RateLimit
	VerifyEmail   RateLimit
	ChangeEmail   RateLimit
	AddOAuth      RateLimit
	RemoveOAuth   RateLimit
}

// DefaultLimitConfig returns the stock limits.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{
		Login:         RateLimit{Limit: 30, Window: time.Minute, Timeout: time.Minute},
		PasswordReset: RateLimit{Limit: 2, Window: time.Hour, Timeout: time.Hour},
		VerifyEmail:   RateLimit{Limit: 2, Window: time.Hour, Timeout: 30 * time.Minute},
		ChangeEmail:   RateLimit{Limit: 2, Window: 30 * time.Minute, Timeout: time.Hour},
		AddOAuth:      RateLimit{Limit: 8, Window: 30 * time.Minute, Timeout: 30 * time.Minute},
		RemoveOAuth:   RateLimit{Limit: 2, Window: 30 * time.Minute, Timeout: 30 * time.Minute},
	}
}

// SessionTokens is the access/refresh pair handed out on login,
// registration and social login.
type SessionTokens struct {
	Access  string `json:"access_token"`
	Refresh string `json:"refresh_token"`
}

// Service is the account and session engine. Construct with NewService
// and chain the With* builders for optional collaborators.
type Service struct {
	repo     Repo
	tokens   *TokenService
	authz    *Authorizer
	hasher   PasswordHasher
	captcha  CaptchaVerifier
	email    EmailSender
	activity ActivitySink
	logger   Logger
	limits   LimitConfig
}

// NewService wires a Service around the repository façade and token
// codec. Captcha and email are off until configured.
func NewService(repo Repo, tokens *TokenService) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		authz:    NewAuthorizer(repo.Revocations()),
		hasher:   BcryptHasher{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		limits:   DefaultLimitConfig(),
	}
}

func (s *Service) WithLogger(logger Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *Service) WithPasswordHasher(hasher PasswordHasher) *Service {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *Service) WithCaptchaVerifier(verifier CaptchaVerifier) *Service {
	s.captcha = verifier
	return s
}

func (s *Service) WithEmailSender(sender EmailSender) *Service {
	s.email = sender
	return s
}

func (s *Service) WithLimits(limits LimitConfig) *Service {
	s.limits = limits
	return s
}

// TokenService exposes the codec for transports that set cookies.
func (s *Service) TokenService() *TokenService {
	return s.tokens
}

// Repo exposes the repository façade, mostly for admin surfaces.
func (s *Service) Repo() Repo {
	return s.repo
}

// Register creates an account with the "user" role, fires the
// verification email in the background and opens a session.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, SessionTokens, error) {
	if err := s.verifyCaptcha(ctx, req.Captcha); err != nil {
		return nil, SessionTokens{}, err
	}

	if err := req.Validate(); err != nil {
		return nil, SessionTokens{}, err
	}

	if _, err := s.repo.Users().GetByEmailAddress(ctx, req.Email); err == nil {
		return nil, SessionTokens{}, ErrEmailAlreadyExists
	} else if !IsUserNotFound(err) {
		return nil, SessionTokens{}, err
	}

	if _, err := s.repo.Users().GetByUsername(ctx, req.Username); err == nil {
		return nil, SessionTokens{}, ErrUsernameAlreadyExists
	} else if !IsUserNotFound(err) {
		return nil, SessionTokens{}, err
	}

	hash, err := s.hasher.HashPassword(req.Password1)
	if err != nil {
		return nil, SessionTokens{}, err
	}

	user, err := s.repo.Users().Register(ctx, &User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Roles:        []string{RoleUser},
		Active:       true,
	})
	if err != nil {
		return nil, SessionTokens{}, err
	}

	s.requestVerificationAsync(ctx, user)

	pair, err := s.openSession(user)
	if err != nil {
		return nil, SessionTokens{}, err
	}

	s.emitEvent(ctx, ActivityEventRegister, actorUser(user), user.ID.String(), nil)
	return user, pair, nil
}

// Login authenticates by email or username. clientIP feeds the rate
// limiter; pass the remote address the transport saw.
func (s *Service) Login(ctx context.Context, req LoginRequest, clientIP string) (*User, SessionTokens, error) {
	if err := s.verifyCaptcha(ctx, req.Captcha); err != nil {
		return nil, SessionTokens{}, err
	}

	if err := req.Validate(); err != nil {
		return nil, SessionTokens{}, err
	}

	reached, err := s.repo.RateLimitReached(ctx, "login", clientIP,
		s.limits.Login.Limit, s.limits.Login.Window, s.limits.Login.Timeout)
	if err != nil {
		return nil, SessionTokens{}, err
	}
	if reached {
		return nil, SessionTokens{}, ErrRateLimited
	}

	user, err := s.repo.Users().GetByLogin(ctx, req.Login)
	if err != nil {
		s.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"login": req.Login,
		})
		if IsUserNotFound(err) {
			return nil, SessionTokens{}, ErrUserNotFound
		}
		return nil, SessionTokens{}, err
	}

	if !user.HasPassword() {
		return nil, SessionTokens{}, ErrPasswordNotSet
	}

	if err := s.hasher.ComparePasswordAndHash(req.Password, user.PasswordHash); err != nil {
		s.emitEvent(ctx, ActivityEventLoginFailure, actorUser(user), user.ID.String(), map[string]any{
			"login": req.Login,
		})
		return nil, SessionTokens{}, err
	}

	if !user.Active {
		return nil, SessionTokens{}, ErrUserNotActive
	}

	s.trackLoginAsync(ctx, user)

	if err := s.repo.RateLimitReset(ctx, "login", clientIP); err != nil {
		s.logger.Error("login rate limit reset failed", "error", err)
	}

	pair, err := s.openSession(user)
	if err != nil {
		return nil, SessionTokens{}, err
	}

	s.emitEvent(ctx, ActivityEventLoginSuccess, actorUser(user), user.ID.String(), nil)
	return user, pair, nil
}

// Logout records the event. Session tokens stay valid until expiry;
// transports clear their cookies, admins revoke with Kick.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		return err
	}

	if err := s.authz.Authorize(ctx, claims, TokenAccess); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventLogout, actorClaims(claims), claims.Subject, nil)
	return nil
}

// AuthorizeRefresh verifies a refresh token against every revocation
// fact and re-reads the user record, so deactivations that outlived the
// ban lookup key still block the holder.
func (s *Service) AuthorizeRefresh(ctx context.Context, refreshToken string) (*User, error) {
	claims, err := s.Verify(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenDecoding
	}

	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.Active {
		return nil, ErrUserNotActive
	}

	return user, nil
}

// RefreshAccessToken redeems a refresh token for a fresh access token.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.AuthorizeRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	access, err := s.tokens.Issue(TokenAccess, sessionClaims(user), 0)
	if err != nil {
		return "", err
	}

	s.emitEvent(ctx, ActivityEventTokenRefresh, actorUser(user), user.ID.String(), nil)
	return access, nil
}

// Authorize verifies an access token against every revocation fact and
// returns the caller's account snapshot.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*Account, error) {
	claims, err := s.Verify(ctx, accessToken, TokenAccess)
	if err != nil {
		return nil, err
	}
	return AccountFromClaims(claims)
}

// Verify decodes a token, checks its type claim and runs the
// revocation checks. It is the lower-level sibling of Authorize for
// callers that need the raw claims.
func (s *Service) Verify(ctx context.Context, token string, expected TokenKind) (*Claims, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	if err := s.authz.Authorize(ctx, claims, expected); err != nil {
		return nil, err
	}

	return claims, nil
}

// GetUser loads the caller's own record.
func (s *Service) GetUser(ctx context.Context, account *Account) (*User, error) {
	if account == nil {
		return nil, ErrNotAuthorized
	}
	return s.repo.Users().GetByID(ctx, account.ID)
}

func (s *Service) openSession(user *User) (SessionTokens, error) {
	access, refresh, err := s.tokens.IssueSessionPair(user)
	if err != nil {
		return SessionTokens{}, err
	}
	return SessionTokens{Access: access, Refresh: refresh}, nil
}

func (s *Service) verifyCaptcha(ctx context.Context, captcha string) error {
	if s.captcha == nil {
		return nil
	}
	ok, err := s.captcha.ValidateCaptcha(ctx, captcha)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCaptcha
	}
	return nil
}

// trackLoginAsync updates last_login off the request path.
func (s *Service) trackLoginAsync(ctx context.Context, user *User) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.repo.Users().TrackSuccessfulLogin(bg, user.ID); err != nil {
			s.logger.Error("failed to track login", "user", user.ID.String(), "error", err)
		}
	}()
}

// requestVerificationAsync issues the verify-email token and hands it to
// the email sender off the request path.
func (s *Service) requestVerificationAsync(ctx context.Context, user *User) {
	if s.email == nil {
		return
	}

	token, err := s.tokens.Issue(TokenVerifyEmail, verificationClaims(user), 0)
	if err != nil {
		s.logger.Error("failed to issue verification token", "user", user.ID.String(), "error", err)
		return
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.email.RequestVerification(bg, user.Email, token); err != nil {
			s.logger.Error("failed to send verification email", "user", user.ID.String(), "error", err)
		}
	}()
}

func (s *Service) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("activity sink record failed", "event", string(eventType), "error", err)
	}
}

func actorUser(user *User) ActorRef {
	actorType := "user"
	if user.IsAdmin() {
		actorType = "admin"
	}
	return ActorRef{ID: user.ID.String(), Type: actorType}
}

func actorClaims(claims *Claims) ActorRef {
	actorType := "user"
	if claims.HasRole(RoleAdmin) {
		actorType = "admin"
	}
	return ActorRef{ID: claims.Subject, Type: actorType}
}

func verificationClaims(user *User) *Claims {
	return &Claims{
		RegisteredClaims: jwtSubject(user.ID.String()),
		Email:            user.Email,
	}
}
