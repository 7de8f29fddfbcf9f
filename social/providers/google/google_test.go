package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegov/authkit/social"
)

func TestAuthorizationURI(t *testing.T) {
	p := New(Config{ClientID: "client-id"})

	uri := p.AuthorizationURI("https://app.test/callback", "the-state")
	parsed, err := url.Parse(uri)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://app.test/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "the-state", q.Get("state"))
	assert.Equal(t, strings.Join(DefaultScopes(), " "), q.Get("scope"))
}

func TestResolveUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "the-access-token",
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer the-access-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":   "110248495921238986420",
			"email": "alice@example.com",
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})

	identity, err := p.ResolveUser(context.Background(), "https://app.test/callback", "the-code")
	require.NoError(t, err)
	assert.Equal(t, &social.Identity{
		Provider:  "google",
		SubjectID: "110248495921238986420",
		Email:     "alice@example.com",
	}, identity)
}

func TestResolveUserExchangeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL + "/token"})

	_, err := p.ResolveUser(context.Background(), "https://app.test/callback", "stale-code")
	assert.ErrorIs(t, err, social.ErrTokenExchangeFailed)
}

func TestResolveUserInfoFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "t"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(Config{
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
	})

	_, err := p.ResolveUser(context.Background(), "https://app.test/callback", "the-code")
	assert.ErrorIs(t, err, social.ErrUserInfoFailed)
}
