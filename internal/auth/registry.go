package auth

import (
	"fmt"
	"sort"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// Registry maps scheme names to their implementations.
type Registry struct {
	schemes map[string]Scheme
}

// NewRegistry creates an empty scheme registry.
func NewRegistry() *Registry {
	return &Registry{
		schemes: make(map[string]Scheme),
	}
}

// Register adds a scheme to the registry. Names and callback paths must both
// be unique.
func (r *Registry) Register(s Scheme) error {
	name := s.Name()
	if _, exists := r.schemes[name]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateScheme, name)
	}
	for _, other := range r.schemes {
		if other.CallbackPath() == s.CallbackPath() {
			return fmt.Errorf("%w: %s shares callback path %s with %s",
				domain.ErrDuplicateScheme, name, s.CallbackPath(), other.Name())
		}
	}
	r.schemes[name] = s
	return nil
}

// Get returns a scheme by name.
func (r *Registry) Get(name string) (Scheme, error) {
	s, ok := r.schemes[name]
	if !ok {
		return nil, domain.ErrSchemeNotFound
	}
	return s, nil
}

// All returns the registered schemes sorted by name.
func (r *Registry) All() []Scheme {
	out := make([]Scheme, 0, len(r.schemes))
	for _, s := range r.schemes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
