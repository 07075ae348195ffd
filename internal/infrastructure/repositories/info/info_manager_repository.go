// Package info implements the info manager: when somebody opens an issue
// titled "Kebechet info", the next run answers it with an environment report
// for the repository and closes it.
package info

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

const managerName = "info"

type InfoManagerRepository struct {
	worktrees repositories.WorktreeFactory
	resolvers repositories.ResolverFactory
}

func NewInfoManagerRepository(
	worktrees repositories.WorktreeFactory,
	resolvers repositories.ResolverFactory,
) *InfoManagerRepository {
	return &InfoManagerRepository{worktrees: worktrees, resolvers: resolvers}
}

func (m *InfoManagerRepository) Name() string {
	return managerName
}

// Run looks for an open info request and, when one exists, closes it with a
// report built from a fresh clone. Repositories without a request are left
// untouched.
func (m *InfoManagerRepository) Run(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	_ entities.UpdateOptions,
) (map[string]entities.UpdateResult, error) {
	issues, err := provider.ListOpenIssues(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list open issues of %s: %w", project.Slug, err)
	}
	var request *entities.IssueRef
	for _, issue := range issues {
		if issue.Title == entities.IssueTitleInfo {
			request = &issue
			break
		}
	}
	if request == nil {
		logger.Debugf("[info] No info request found in %s", project.Slug)
		return map[string]entities.UpdateResult{}, nil
	}
	logger.Infof("[info] Answering info request #%d in %s", request.Number, project.Slug)

	dir, err := os.MkdirTemp("", "kebechet-info-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	worktree, err := m.worktrees(ctx, provider.CloneURL(project), project.DefaultBranch, dir)
	if err != nil {
		return nil, &entities.TransportError{Op: "clone " + project.Slug, Err: err}
	}
	sha, err := worktree.HeadSHA()
	if err != nil {
		return nil, fmt.Errorf("failed to read head of %s: %w", project.Slug, err)
	}

	environment, dependencyGraph := m.describeEnvironment(ctx, dir)
	report := entities.RenderInfoReport(sha, project.Slug, environment, dependencyGraph)
	if err := provider.CloseIssue(ctx, project, request.Number, report); err != nil {
		return nil, fmt.Errorf("failed to close issue #%d: %w", request.Number, err)
	}
	logger.Infof("[info] Closed info request #%d in %s", request.Number, project.Slug)
	return map[string]entities.UpdateResult{}, nil
}

// describeEnvironment gathers the report sections best-effort: a repository
// with a broken or absent environment still gets an answer, just a thinner
// one.
func (m *InfoManagerRepository) describeEnvironment(
	ctx context.Context, dir string,
) (environment, dependencyGraph string) {
	resolver := m.resolvers(dir)

	// Populate the environment first so the graph reflects the locked state.
	if _, err := os.Stat(filepath.Join(dir, "Pipfile.lock")); err == nil {
		if err := resolver.SyncExact(ctx); err != nil {
			logger.Debugf("[info] Failed to reproduce the locked environment: %v", err)
		}
	} else if _, err := os.Stat(filepath.Join(dir, "requirements.txt")); err == nil {
		if err := resolver.InstallFromManifest(ctx, "requirements.txt"); err != nil {
			logger.Debugf("[info] Failed to install pinned requirements: %v", err)
		}
	}

	environment, err := resolver.Version(ctx)
	if err != nil {
		logger.Debugf("[info] Failed to describe the resolver environment: %v", err)
	}
	dependencyGraph, err = resolver.Graph(ctx)
	if err != nil {
		logger.Debugf("[info] Failed to render the dependency graph: %v", err)
	}
	return environment, dependencyGraph
}
