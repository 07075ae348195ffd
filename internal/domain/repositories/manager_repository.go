package repositories

import (
	"context"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// ManagerRepository is one automation routine that can run against a managed
// repository (dependency updates, info reports). Run returns the per-package
// results of reconciled updates; managers with nothing to report return an
// empty map.
type ManagerRepository interface {
	Name() string
	Run(
		ctx context.Context,
		provider ProviderRepository,
		project entities.Project,
		opts entities.UpdateOptions,
	) (map[string]entities.UpdateResult, error)
}

// WorktreeFactory clones the project into dir and returns the worktree handle.
type WorktreeFactory func(
	ctx context.Context, cloneURL, defaultBranch, dir string,
) (WorktreeRepository, error)
