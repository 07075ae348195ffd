// Package version implements the release manager: an open issue titled
// "<version> release" asks the bot to bump the version identifier in the
// sources and propose the release as a change closing that issue.
package version

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

const managerName = "version"

const versionAssignmentPrefix = "__version__ = "

// versionFileNames are the only files scanned for a version identifier.
var versionFileNames = map[string]bool{
	"setup.py":    true,
	"__init__.py": true,
}

type VersionManagerRepository struct {
	worktrees repositories.WorktreeFactory
}

func NewVersionManagerRepository(
	worktrees repositories.WorktreeFactory,
) *VersionManagerRepository {
	return &VersionManagerRepository{worktrees: worktrees}
}

func (m *VersionManagerRepository) Name() string {
	return managerName
}

// Run scans open issues for release requests and proposes one change per
// request. Exactly one version identifier must exist in the sources; zero or
// several make the release ambiguous and are reported as issues instead.
// Earlier failure reports are closed once they stop applying.
func (m *VersionManagerRepository) Run(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	opts entities.UpdateOptions,
) (map[string]entities.UpdateResult, error) {
	issues, err := provider.ListOpenIssues(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list open issues of %s: %w", project.Slug, err)
	}

	var reported []entities.IssueRef
	for _, issue := range issues {
		title := strings.TrimSpace(issue.Title)
		if strings.HasPrefix(title, entities.IssueTitleNoVersionPrefix) ||
			strings.HasPrefix(title, entities.IssueTitleManyVersionsPrefix) {
			reported = append(reported, issue)
		}
	}

	for _, issue := range issues {
		requested, ok := entities.ParseReleaseRequest(issue.Title)
		if !ok {
			continue
		}
		logger.Infof("[version] Issue #%d requests release of version %s in %s",
			issue.Number, requested, project.Slug)

		released, releaseErr := m.release(ctx, provider, project, opts, issue, requested, issues)
		if releaseErr != nil {
			return nil, releaseErr
		}
		if !released {
			logger.Errorf("[version] Giving up with the automated release of %s in %s",
				requested, project.Slug)
			return map[string]entities.UpdateResult{}, nil
		}
	}

	for _, issue := range reported {
		if closeErr := provider.CloseIssue(
			ctx, project, issue.Number, entities.RenderIrrelevantComment()); closeErr != nil {
			return nil, fmt.Errorf("failed to close issue #%d: %w", issue.Number, closeErr)
		}
		logger.Infof("[version] Closed stale release report #%d in %s",
			issue.Number, project.Slug)
	}

	return map[string]entities.UpdateResult{}, nil
}

// release adjusts the version identifier in a fresh clone and proposes the
// result. It reports false without an error when the sources do not carry
// exactly one identifier.
func (m *VersionManagerRepository) release(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	opts entities.UpdateOptions,
	request entities.IssueRef,
	requested string,
	issues []entities.IssueRef,
) (bool, error) {
	dir, err := os.MkdirTemp("", "kebechet-version-*")
	if err != nil {
		return false, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	worktree, err := m.worktrees(ctx, provider.CloneURL(project), project.DefaultBranch, dir)
	if err != nil {
		return false, &entities.TransportError{Op: "clone " + project.Slug, Err: err}
	}

	changed, err := adjustVersionInSources(dir, requested)
	if err != nil {
		return false, err
	}
	if len(changed) != 1 {
		title := entities.IssueTitleNoVersionPrefix + requested
		if len(changed) > 1 {
			title = entities.IssueTitleManyVersionsPrefix + requested
		}
		logger.Warnf("[version] %s", title)
		if reportErr := openIssueIfAbsent(ctx, provider, project, issues, title,
			entities.RenderReleaseFailureBody(request.Number), opts.Labels); reportErr != nil {
			return false, reportErr
		}
		return false, nil
	}

	branch := entities.ReleaseBranchName(requested)
	if err := worktree.CreateBranch(branch); err != nil {
		return false, fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	title := entities.ReleaseTitle(requested)
	if err := worktree.CommitPaths(changed, title); err != nil {
		return false, fmt.Errorf("failed to commit %s: %w", strings.Join(changed, ", "), err)
	}
	if err := worktree.PushBranch(ctx, branch); err != nil {
		return false, err
	}

	number, err := provider.CreateChange(ctx, project, entities.ChangeInput{
		Title:        title,
		SourceBranch: branch,
		TargetBranch: project.DefaultBranch,
		Body:         entities.RenderReleaseBody(request.Number),
		Labels:       opts.Labels,
	})
	if err != nil {
		return false, err
	}
	logger.Infof("[version] Opened change #%d for new release of %s in version %s",
		number, project.Slug, requested)
	return true, nil
}

// adjustVersionInSources rewrites the version identifier in every setup.py
// and __init__.py below dir and returns the relative paths of the files that
// changed.
func adjustVersionInSources(dir, requested string) ([]string, error) {
	var changed []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !versionFileNames[d.Name()] {
			return nil
		}
		adjusted, adjustErr := adjustVersionFile(path, requested)
		if adjustErr != nil {
			return adjustErr
		}
		if adjusted {
			relative, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			changed = append(changed, relative)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust version in sources: %w", err)
	}
	return changed, nil
}

// adjustVersionFile rewrites a single `__version__ = ...` assignment and
// reports whether the file changed.
func adjustVersionFile(path, requested string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	changed := false
	for i, line := range lines {
		if !strings.HasPrefix(line, versionAssignmentPrefix) {
			continue
		}
		logger.Infof("[version] Old version found in sources: %s",
			strings.TrimPrefix(line, versionAssignmentPrefix))
		lines[i] = fmt.Sprintf("%s%q", versionAssignmentPrefix, requested)
		changed = true
	}
	if !changed {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func openIssueIfAbsent(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	issues []entities.IssueRef,
	title, body string,
	labels []string,
) error {
	for _, issue := range issues {
		if strings.TrimSpace(issue.Title) == title {
			return nil
		}
	}
	if _, err := provider.OpenIssue(ctx, project, title, body, labels); err != nil {
		return fmt.Errorf("failed to open issue %q: %w", title, err)
	}
	return nil
}
