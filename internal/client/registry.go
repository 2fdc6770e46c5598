package client

import (
	"crypto/subtle"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Registry holds registered client apps and provides lookup/validation.
type Registry struct {
	byID     map[string]*domain.ClientApp
	byAPIKey map[string]*domain.ClientApp
}

// NewRegistry creates a client registry from the given client app list.
func NewRegistry(clients []domain.ClientApp) (*Registry, error) {
	r := &Registry{
		byID:     make(map[string]*domain.ClientApp, len(clients)),
		byAPIKey: make(map[string]*domain.ClientApp, len(clients)),
	}
	for i := range clients {
		c := &clients[i]
		if _, exists := r.byID[c.ID]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateClientID, c.ID)
		}
		if c.APIKey == "" {
			return nil, fmt.Errorf("%w: client %s has no API key", domain.ErrConfiguration, c.ID)
		}
		r.byID[c.ID] = c
		r.byAPIKey[c.APIKey] = c
	}
	return r, nil
}

// Get returns a client app by its ID.
func (r *Registry) Get(clientID string) (*domain.ClientApp, error) {
	c, ok := r.byID[clientID]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return c, nil
}

// IDs returns the registered client IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetByAPIKey returns a client app by its API key using constant-time comparison.
func (r *Registry) GetByAPIKey(apiKey string) (*domain.ClientApp, error) {
	var found *domain.ClientApp
	for key, c := range r.byAPIKey {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			found = c
		}
	}
	if found == nil {
		return nil, domain.ErrInvalidAPIKey
	}
	return found, nil
}

// ValidateCallback checks if the given callback URI is allowed for the client.
// A registered callback without a query string also admits the same URI with
// query parameters appended, so clients can carry their own return paths.
func (r *Registry) ValidateCallback(clientID, callbackURI string) error {
	c, err := r.Get(clientID)
	if err != nil {
		return err
	}
	for _, allowed := range c.AllowedCallbacks {
		if allowed == callbackURI || sameEndpoint(allowed, callbackURI) {
			return nil
		}
	}
	return domain.ErrCallbackNotAllowed
}

func sameEndpoint(allowed, candidate string) bool {
	a, err := url.Parse(allowed)
	if err != nil || a.RawQuery != "" || a.Fragment != "" || !a.IsAbs() {
		return false
	}
	b, err := url.Parse(candidate)
	if err != nil || b.Fragment != "" || b.User != nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Host, b.Host) &&
		a.EscapedPath() == b.EscapedPath()
}
