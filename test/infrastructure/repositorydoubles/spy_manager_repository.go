//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// ManagerRunCall records a single Run invocation.
type ManagerRunCall struct {
	Project entities.Project
	Opts    entities.UpdateOptions
}

// SpyManagerRepository implements repositories.ManagerRepository as a
// configurable spy.
type SpyManagerRepository struct {
	ManagerName string
	Result      map[string]entities.UpdateResult
	RunErr      error
	RunCalls    []ManagerRunCall
}

var _ repositories.ManagerRepository = (*SpyManagerRepository)(nil)

func (m *SpyManagerRepository) Name() string {
	if m.ManagerName == "" {
		return "spy"
	}
	return m.ManagerName
}

func (m *SpyManagerRepository) Run(
	_ context.Context,
	_ repositories.ProviderRepository,
	project entities.Project,
	opts entities.UpdateOptions,
) (map[string]entities.UpdateResult, error) {
	m.RunCalls = append(m.RunCalls, ManagerRunCall{Project: project, Opts: opts})
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	if m.Result == nil {
		return map[string]entities.UpdateResult{}, nil
	}
	return m.Result, nil
}
