package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pegov/authkit/social"
)

const (
	defaultAuthURL   = "https://github.com/login/oauth/authorize"
	defaultTokenURL  = "https://github.com/login/oauth/access_token"
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config holds GitHub OAuth configuration. LoginOnly disables account
// creation through this provider.
type Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	LoginOnly    bool

	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default GitHub scopes.
func DefaultScopes() []string {
	return []string{"user:email", "read:user"}
}

// Provider implements social.Provider for GitHub.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a new GitHub provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

var _ social.Provider = (*Provider)(nil)

// Name implements social.Provider.
func (p *Provider) Name() string {
	return "github"
}

// LoginOnly implements social.Provider.
func (p *Provider) LoginOnly() bool {
	return p.config.LoginOnly
}

// AuthorizationURI implements social.Provider.
func (p *Provider) AuthorizationURI(redirectURI, state string) string {
	params := url.Values{
		"client_id":    {p.config.ClientID},
		"redirect_uri": {redirectURI},
		"scope":        {strings.Join(p.config.Scopes, " ")},
		"state":        {state},
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// ResolveUser implements social.Provider. GitHub hides the email when
// the user marks it private, so the emails endpoint backfills it.
func (p *Provider) ResolveUser(ctx context.Context, redirectURI, code string) (*social.Identity, error) {
	accessToken, err := p.exchange(ctx, redirectURI, code)
	if err != nil {
		return nil, err
	}

	user, err := p.fetchUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		email, err = p.fetchPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
	}

	return mapIdentity(user, email), nil
}

func (p *Provider) exchange(ctx context.Context, redirectURI, code string) (string, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var tokenResp githubTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", social.ErrTokenExchangeFailed
	}

	if resp.StatusCode != http.StatusOK || tokenResp.Error != "" || tokenResp.AccessToken == "" {
		return "", social.ErrTokenExchangeFailed
	}

	return tokenResp.AccessToken, nil
}

func (p *Provider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	body, status, err := p.apiGet(ctx, p.config.UserURL, accessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, social.ErrUserInfoFailed
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, social.ErrUserInfoFailed
	}

	return &user, nil
}

func (p *Provider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	body, status, err := p.apiGet(ctx, p.config.EmailsURL, accessToken)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", social.ErrUserInfoFailed
	}

	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", social.ErrUserInfoFailed
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}

	return "", nil
}

func (p *Provider) apiGet(ctx context.Context, endpoint, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}
