//go:build unit

package version_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
	"github.com/thoth-station/kebechet/internal/infrastructure/repositories/version"
	doubles "github.com/thoth-station/kebechet/test/infrastructure/repositorydoubles"
)

// newVersionManager wires the manager to a stub worktree whose factory writes
// the given files into whatever directory the manager clones into.
func newVersionManager(
	files map[string]string,
) (*version.VersionManagerRepository, *doubles.StubWorktreeRepository) {
	worktree := &doubles.StubWorktreeRepository{SHA: "abc123"}
	worktrees := func(
		_ context.Context, _, _, dir string,
	) (repositories.WorktreeRepository, error) {
		for name, content := range files {
			path := filepath.Join(dir, name)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}
		}
		worktree.Directory = dir
		return worktree, nil
	}
	return version.NewVersionManagerRepository(worktrees), worktree
}

func TestVersionManagerRun(t *testing.T) {
	t.Parallel()

	project, err := entities.NewProject("thoth-station/example", "github", "", "master")
	require.NoError(t, err)

	t.Run("should propose a release change for a release request", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{{Number: 1, Title: "1.2.0 release"}},
		}
		manager, worktree := newVersionManager(map[string]string{
			"app/__init__.py": "__version__ = \"1.1.0\"\n\nname = \"app\"\n",
			"README.md":       "# example\n",
		})

		// when
		result, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{Labels: []string{"bot"}})

		// then
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Equal(t, []string{"v1.2.0"}, worktree.CreatedBranches)
		assert.Equal(t, []string{"v1.2.0"}, worktree.PushedBranches)

		require.Len(t, worktree.Commits, 1)
		assert.Equal(t, []string{"app/__init__.py"}, worktree.Commits[0].Paths)
		assert.Equal(t, "Release of version 1.2.0", worktree.Commits[0].Message)
		assert.Equal(t, "__version__ = \"1.2.0\"\n\nname = \"app\"\n",
			worktree.CommittedContent["app/__init__.py"])

		require.Len(t, provider.CreatedChanges, 1)
		change := provider.CreatedChanges[0]
		assert.Equal(t, "Release of version 1.2.0", change.Title)
		assert.Equal(t, "v1.2.0", change.SourceBranch)
		assert.Equal(t, "master", change.TargetBranch)
		assert.Equal(t, "Fixes: #1", change.Body)
		assert.Equal(t, []string{"bot"}, change.Labels)
	})

	t.Run("should report when no version identifier exists", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{{Number: 1, Title: "2.0.0 release"}},
		}
		manager, worktree := newVersionManager(map[string]string{
			"setup.py": "from setuptools import setup\n",
		})

		// when
		result, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Empty(t, provider.CreatedChanges)
		assert.Empty(t, worktree.PushedBranches)

		require.Len(t, provider.OpenedIssues, 1)
		report := provider.OpenedIssues[0]
		assert.Equal(t, entities.IssueTitleNoVersionPrefix+"2.0.0", report.Title)
		assert.Contains(t, report.Body, "Related: #1")
	})

	t.Run("should report when multiple version identifiers exist", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{{Number: 1, Title: "2.0.0 release"}},
		}
		manager, _ := newVersionManager(map[string]string{
			"setup.py":        "__version__ = \"1.0.0\"\n",
			"pkg/__init__.py": "__version__ = \"1.0.0\"\n",
		})

		// when
		_, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, provider.CreatedChanges)
		require.Len(t, provider.OpenedIssues, 1)
		assert.Equal(t, entities.IssueTitleManyVersionsPrefix+"2.0.0",
			provider.OpenedIssues[0].Title)
	})

	t.Run("should not duplicate an already reported failure", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{
				{Number: 1, Title: "2.0.0 release"},
				{Number: 2, Title: entities.IssueTitleNoVersionPrefix + "2.0.0"},
			},
		}
		manager, _ := newVersionManager(map[string]string{
			"setup.py": "from setuptools import setup\n",
		})

		// when
		_, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, provider.OpenedIssues)
		// The earlier report stays open while the failure persists.
		assert.Empty(t, provider.ClosedIssues)
	})

	t.Run("should close stale failure reports", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{
				{Number: 5, Title: entities.IssueTitleNoVersionPrefix + "1.2.0"},
				{Number: 6, Title: entities.IssueTitleManyVersionsPrefix + "1.3.0"},
			},
		}
		manager, worktree := newVersionManager(nil)

		// when
		_, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{})

		// then
		require.NoError(t, err)
		assert.Contains(t, provider.ClosedIssues, 5)
		assert.Contains(t, provider.ClosedIssues, 6)
		assert.Contains(t, provider.ClosedIssues[5], "no longer relevant")
		// Without a release request, no clone should have been taken.
		assert.Empty(t, worktree.Directory)
	})

	t.Run("should ignore unrelated issues", func(t *testing.T) {
		t.Parallel()

		// given
		provider := &doubles.SpyProviderRepository{
			Issues: []entities.IssueRef{
				{Number: 1, Title: "Some bug report"},
				{Number: 2, Title: "Please release version 1.2.0"},
			},
		}
		manager, worktree := newVersionManager(nil)

		// when
		result, err := manager.Run(context.Background(), provider, project,
			entities.UpdateOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Empty(t, provider.CreatedChanges)
		assert.Empty(t, worktree.Directory)
	})
}
