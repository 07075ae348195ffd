package repositories

import (
	"go.uber.org/dig"

	domainRepos "github.com/thoth-station/kebechet/internal/domain/repositories"
	ghRepo "github.com/thoth-station/kebechet/internal/infrastructure/repositories/github"
	glRepo "github.com/thoth-station/kebechet/internal/infrastructure/repositories/gitlab"
	"github.com/thoth-station/kebechet/internal/infrastructure/repositories/gitrepo"
	infoRepo "github.com/thoth-station/kebechet/internal/infrastructure/repositories/info"
	"github.com/thoth-station/kebechet/internal/infrastructure/repositories/pipenv"
	updateRepo "github.com/thoth-station/kebechet/internal/infrastructure/repositories/update"
	versionRepo "github.com/thoth-station/kebechet/internal/infrastructure/repositories/version"
)

// RegisterProviders registers all repository implementations with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register provider registry with all hosting service factories
	if err := container.Provide(func() *ProviderRegistry {
		reg := NewProviderRegistry()
		reg.Register("github", ghRepo.NewGitHubProviderRepository)
		reg.Register("gitlab", glRepo.NewGitLabProviderRepository)
		return reg
	}); err != nil {
		return err
	}

	// Factories for the clone-scoped collaborators of the managers
	if err := container.Provide(func() domainRepos.WorktreeFactory {
		return gitrepo.NewGitWorktreeRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(func() domainRepos.ResolverFactory {
		return pipenv.NewPipenvResolverRepository
	}); err != nil {
		return err
	}

	// Register manager registry with all manager implementations
	if err := container.Provide(func(
		worktrees domainRepos.WorktreeFactory,
		resolvers domainRepos.ResolverFactory,
	) *ManagerRegistry {
		reg := NewManagerRegistry()
		reg.Register(updateRepo.NewUpdateManagerRepository(worktrees, resolvers))
		reg.Register(infoRepo.NewInfoManagerRepository(worktrees, resolvers))
		reg.Register(versionRepo.NewVersionManagerRepository(worktrees))
		return reg
	}); err != nil {
		return err
	}

	return nil
}
