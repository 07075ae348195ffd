package repositories

import (
	"fmt"

	domainRepos "github.com/thoth-station/kebechet/internal/domain/repositories"
)

// ProviderFactory is a constructor function that creates a ProviderRepository
// for one hosting service, configured per repository entry.
type ProviderFactory func(token, serviceURL string, verifyTLS bool) domainRepos.ProviderRepository

// ProviderRegistry manages all registered Git hosting service implementations.
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates an empty provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register adds a provider factory under the given service type (e.g. "github").
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Get returns a configured provider instance for the given service type.
func (r *ProviderRegistry) Get(
	name, token, serviceURL string, verifyTLS bool,
) (domainRepos.ProviderRepository, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown service type: %q", name)
	}
	return factory(token, serviceURL, verifyTLS), nil
}

// Names returns the list of registered service types.
func (r *ProviderRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
