package social

import (
	"context"
	"time"

	auth "github.com/pegov/authkit"
)

// Authenticator orchestrates the social login flow and the token-gated
// link/unlink flows on top of the core engine.
type Authenticator struct {
	registry *Registry
	states   StateManager
	linking  LinkingStrategy
	repo     auth.Repo
	tokens   *auth.TokenService
	email    auth.EmailSender
	activity auth.ActivitySink
	logger   auth.Logger
	limits   auth.LimitConfig
}

// Config configures the social authenticator.
type Config struct {
	StateEncryptionKey []byte
	StateHMACKey       []byte
	StateTTL           time.Duration
}

// Option configures the social authenticator.
type Option func(*Authenticator)

// NewAuthenticator creates a social authenticator over the core engine.
func NewAuthenticator(
	repo auth.Repo,
	tokens *auth.TokenService,
	config Config,
	opts ...Option,
) *Authenticator {
	sa := &Authenticator{
		registry: NewRegistry(),
		repo:     repo,
		tokens:   tokens,
		activity: auth.ActivitySinkFunc(nil),
		logger:   auth.NopLogger{},
		limits:   auth.DefaultLimitConfig(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	if sa.states == nil {
		sa.states = NewEncryptedStateManager(
			config.StateEncryptionKey,
			config.StateHMACKey,
			config.StateTTL,
		)
	}

	if sa.linking == nil {
		sa.linking = NewLinkingStrategy(repo.Users(), sa.logger)
	}

	return sa
}

// WithProvider registers a social provider.
func WithProvider(provider Provider) Option {
	return func(sa *Authenticator) {
		if provider != nil {
			sa.registry.providers[provider.Name()] = provider
		}
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) Option {
	return func(sa *Authenticator) {
		sa.states = sm
	}
}

// WithLinkingStrategy sets a custom account resolution strategy.
func WithLinkingStrategy(ls LinkingStrategy) Option {
	return func(sa *Authenticator) {
		sa.linking = ls
	}
}

// WithEmailSender sets the sender used for unlink confirmations.
func WithEmailSender(sender auth.EmailSender) Option {
	return func(sa *Authenticator) {
		sa.email = sender
	}
}

// WithActivitySink sets the audit sink.
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(sa *Authenticator) {
		if sink != nil {
			sa.activity = sink
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) Option {
	return func(sa *Authenticator) {
		if logger != nil {
			sa.logger = logger
		}
	}
}

// WithLimits overrides the rate limit policy.
func WithLimits(limits auth.LimitConfig) Option {
	return func(sa *Authenticator) {
		sa.limits = limits
	}
}

// Begin starts a social login: returns the provider authorization URI
// with an encrypted anti-CSRF state bound to the callback.
func (sa *Authenticator) Begin(ctx context.Context, providerName, redirectURI string) (string, error) {
	provider, err := sa.registry.Get(providerName)
	if err != nil {
		return "", err
	}

	state, err := sa.states.Encode(&OAuthState{
		Provider:    providerName,
		Action:      ActionLogin,
		RedirectURI: redirectURI,
	})
	if err != nil {
		return "", err
	}

	return provider.AuthorizationURI(redirectURI, state), nil
}

// CompleteLogin finishes the callback leg: verifies state, resolves the
// provider identity to a local account (creating one unless the
// provider is login-only) and opens a session.
func (sa *Authenticator) CompleteLogin(ctx context.Context, providerName, redirectURI, code, stateToken string) (*auth.User, auth.SessionTokens, error) {
	provider, err := sa.registry.Get(providerName)
	if err != nil {
		return nil, auth.SessionTokens{}, err
	}

	state, err := sa.states.Decode(stateToken)
	if err != nil {
		return nil, auth.SessionTokens{}, err
	}
	if state.Provider != providerName || state.Action != ActionLogin {
		return nil, auth.SessionTokens{}, ErrInvalidState
	}

	identity, err := provider.ResolveUser(ctx, redirectURI, code)
	if err != nil {
		return nil, auth.SessionTokens{}, err
	}

	resolution, err := sa.linking.Resolve(ctx, identity, provider.LoginOnly())
	if err != nil {
		return nil, auth.SessionTokens{}, err
	}

	access, refresh, err := sa.tokens.IssueSessionPair(resolution.User)
	if err != nil {
		return nil, auth.SessionTokens{}, err
	}

	sa.record(ctx, auth.ActivityEventSocialLogin, resolution.User.ID.String(), map[string]any{
		"provider": providerName,
		"created":  resolution.Created,
	})

	return resolution.User, auth.SessionTokens{Access: access, Refresh: refresh}, nil
}

// BeginLink starts attaching a provider identity to the authenticated
// account. The returned URI embeds a short-lived single-use token that
// CompleteLink will demand back.
func (sa *Authenticator) BeginLink(ctx context.Context, account *auth.Account, providerName, redirectURI string) (string, error) {
	if account == nil {
		return "", auth.ErrNotAuthorized
	}

	provider, err := sa.registry.Get(providerName)
	if err != nil {
		return "", err
	}

	reached, err := sa.repo.RateLimitReached(ctx, string(auth.TokenAddOAuthAccount), account.ID.String(),
		sa.limits.AddOAuth.Limit, sa.limits.AddOAuth.Window, sa.limits.AddOAuth.Timeout)
	if err != nil {
		return "", err
	}
	if reached {
		return "", auth.ErrRateLimited
	}

	user, err := sa.repo.Users().GetByID(ctx, account.ID)
	if err != nil {
		return "", err
	}

	if user.HasOAuth() {
		return "", auth.ErrOAuthAccountAlreadyExists
	}

	actionToken, err := sa.tokens.Issue(auth.TokenAddOAuthAccount, auth.ActionClaims(user.ID, providerName), 0)
	if err != nil {
		return "", err
	}

	state, err := sa.states.Encode(&OAuthState{
		Provider:    providerName,
		Action:      ActionLink,
		ActionToken: actionToken,
		RedirectURI: redirectURI,
	})
	if err != nil {
		return "", err
	}

	return provider.AuthorizationURI(redirectURI, state), nil
}

// CompleteLink finishes the link flow: redeems the single-use token
// from the state, resolves the provider identity and attaches it.
func (sa *Authenticator) CompleteLink(ctx context.Context, providerName, redirectURI, code, stateToken string) error {
	provider, err := sa.registry.Get(providerName)
	if err != nil {
		return err
	}

	state, err := sa.states.Decode(stateToken)
	if err != nil {
		return err
	}
	if state.Provider != providerName || state.Action != ActionLink || state.ActionToken == "" {
		return ErrInvalidState
	}

	claims, err := sa.tokens.Decode(state.ActionToken)
	if err != nil {
		return err
	}
	if claims.Kind != auth.TokenAddOAuthAccount {
		return auth.ErrWrongTokenType
	}
	if claims.Provider != providerName {
		return ErrInvalidState
	}

	id, err := claims.UserID()
	if err != nil {
		return auth.ErrTokenDecoding
	}

	if err := sa.repo.UseToken(ctx, state.ActionToken, sa.tokens.Config().TTL(auth.TokenAddOAuthAccount)); err != nil {
		return err
	}

	user, err := sa.repo.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.HasOAuth() {
		return auth.ErrOAuthAccountAlreadyExists
	}

	identity, err := provider.ResolveUser(ctx, redirectURI, code)
	if err != nil {
		return err
	}

	if _, err := sa.repo.Users().GetByOAuth(ctx, identity.Provider, identity.SubjectID); err == nil {
		return auth.ErrOAuthAccountAlreadyExists
	} else if !auth.IsUserNotFound(err) {
		return err
	}

	if err := sa.repo.Users().ApplyUpdate(ctx, user.ID, auth.UserUpdate{
		OAuthProvider:  &identity.Provider,
		OAuthSubjectID: &identity.SubjectID,
	}); err != nil {
		return err
	}

	sa.record(ctx, auth.ActivityEventSocialLink, user.ID.String(), map[string]any{
		"provider": providerName,
	})
	return nil
}

// BeginUnlink emails the account a single-use removal token. The
// account must keep a password, otherwise it would be locked out.
func (sa *Authenticator) BeginUnlink(ctx context.Context, account *auth.Account) error {
	if account == nil {
		return auth.ErrNotAuthorized
	}

	user, err := sa.repo.Users().GetByID(ctx, account.ID)
	if err != nil {
		return err
	}

	if !user.HasOAuth() {
		return auth.ErrOAuthAccountNotSet
	}

	if !user.HasPassword() {
		return auth.ErrPasswordNotSet
	}

	reached, err := sa.repo.RateLimitReached(ctx, string(auth.TokenRemoveOAuthAccount), account.ID.String(),
		sa.limits.RemoveOAuth.Limit, sa.limits.RemoveOAuth.Window, sa.limits.RemoveOAuth.Timeout)
	if err != nil {
		return err
	}
	if reached {
		return auth.ErrRateLimited
	}

	token, err := sa.tokens.Issue(auth.TokenRemoveOAuthAccount, auth.ActionClaims(user.ID, user.OAuthProvider), 0)
	if err != nil {
		return err
	}

	if sa.email == nil {
		return nil
	}

	return sa.email.RequestOAuthUnlink(ctx, user.Email, token)
}

// CompleteUnlink redeems the removal token and detaches the identity.
func (sa *Authenticator) CompleteUnlink(ctx context.Context, token string) error {
	claims, err := sa.tokens.Decode(token)
	if err != nil {
		return err
	}
	if claims.Kind != auth.TokenRemoveOAuthAccount {
		return auth.ErrWrongTokenType
	}

	id, err := claims.UserID()
	if err != nil {
		return auth.ErrTokenDecoding
	}

	if err := sa.repo.UseToken(ctx, token, sa.tokens.Config().TTL(auth.TokenRemoveOAuthAccount)); err != nil {
		return err
	}

	empty := ""
	if err := sa.repo.Users().ApplyUpdate(ctx, id, auth.UserUpdate{
		OAuthProvider:  &empty,
		OAuthSubjectID: &empty,
	}); err != nil {
		return err
	}

	sa.record(ctx, auth.ActivityEventSocialUnlink, id.String(), nil)
	return nil
}

func (sa *Authenticator) record(ctx context.Context, eventType auth.ActivityEventType, userID string, metadata map[string]any) {
	event := auth.ActivityEvent{
		EventType:  eventType,
		Actor:      auth.ActorRef{ID: userID, Type: "user"},
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := sa.activity.Record(ctx, event); err != nil {
		sa.logger.Error("activity sink record failed", "event", string(eventType), "error", err)
	}
}
