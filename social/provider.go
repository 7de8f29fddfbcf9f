package social

import (
	"context"
)

// Identity is the normalized result of a provider callback: the stable
// subject id in the provider's namespace plus the email it vouches for.
type Identity struct {
	Provider  string
	SubjectID string
	Email     string
}

// Provider is one configured OAuth provider. Implementations live under
// providers/ and talk the provider's wire protocol; the rest of the
// package only sees this surface.
type Provider interface {
	// Name returns the provider identifier (e.g., "github", "google").
	Name() string

	// AuthorizationURI builds the redirect URI the user is sent to,
	// carrying the callback and the anti-CSRF state string.
	AuthorizationURI(redirectURI, state string) string

	// ResolveUser trades the callback code for the provider identity.
	ResolveUser(ctx context.Context, redirectURI, code string) (*Identity, error)

	// LoginOnly providers may authenticate existing links but never
	// create accounts.
	LoginOnly() bool
}

// Registry holds the configured providers keyed by name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, ErrProviderNotFound
}

// Names lists the configured provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
