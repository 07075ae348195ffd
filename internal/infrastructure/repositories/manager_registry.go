package repositories

import (
	domainRepos "github.com/thoth-station/kebechet/internal/domain/repositories"
)

// ManagerRegistry manages all registered automation managers.
type ManagerRegistry struct {
	managers map[string]domainRepos.ManagerRepository
}

// NewManagerRegistry creates an empty manager registry.
func NewManagerRegistry() *ManagerRegistry {
	return &ManagerRegistry{
		managers: make(map[string]domainRepos.ManagerRepository),
	}
}

// Register adds a manager under its name.
func (r *ManagerRegistry) Register(m domainRepos.ManagerRepository) {
	r.managers[m.Name()] = m
}

// Get returns the manager with the given name, or nil if not registered.
func (r *ManagerRegistry) Get(name string) domainRepos.ManagerRepository {
	return r.managers[name]
}

// All returns every registered manager.
func (r *ManagerRegistry) All() []domainRepos.ManagerRepository {
	result := make([]domainRepos.ManagerRepository, 0, len(r.managers))
	for _, m := range r.managers {
		result = append(result, m)
	}
	return result
}

// Names returns the list of registered manager names.
func (r *ManagerRegistry) Names() []string {
	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	return names
}
