package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
)

// Profile is the identity returned by a provider after a successful
// authorization code exchange.
type Profile struct {
	Provider      string
	ID            string
	Login         string
	Name          string
	Email         string
	EmailVerified bool
}

// ExternalID namespaces the provider account id so several providers can
// share the users.external_id column.
func (p *Profile) ExternalID() string {
	return p.Provider + ":" + p.ID
}

// Provider defines the interface for OAuth2 sign-in providers
type Provider interface {
	// Name returns the provider identifier (e.g., "github")
	Name() string

	// AuthCodeURL builds the consent page URL carrying the given state
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the signed-in user's profile
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Registry manages registered OAuth2 providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return p, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateState creates a random state value for CSRF protection of the
// authorization redirect.
func GenerateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
