package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

const (
	committerName  = "kebechet[bot]"
	committerEmail = "kebechet[bot]@users.noreply.github.com"
)

// GitWorktreeRepository implements repositories.WorktreeRepository on top of
// a go-git shallow clone. All operations share one working tree and must stay
// sequential.
type GitWorktreeRepository struct {
	dir           string
	defaultBranch string
	headSHA       string
	repo          *git.Repository
	worktree      *git.Worktree
}

// NewGitWorktreeRepository clones the default branch of cloneURL into dir
// (shallow, single branch) and records the head commit every change of this
// run will be based on. Credentials travel embedded in the clone URL.
func NewGitWorktreeRepository(
	ctx context.Context,
	cloneURL, defaultBranch, dir string,
) (repositories.WorktreeRepository, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           cloneURL,
		ReferenceName: plumbing.NewBranchReferenceName(defaultBranch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	return &GitWorktreeRepository{
		dir:           dir,
		defaultBranch: defaultBranch,
		headSHA:       head.Hash().String(),
		repo:          repo,
		worktree:      worktree,
	}, nil
}

func (r *GitWorktreeRepository) Dir() string {
	return r.dir
}

// HeadSHA returns the default-branch commit captured at clone time. It stays
// stable across branch switches within the run.
func (r *GitWorktreeRepository) HeadSHA() (string, error) {
	return r.headSHA, nil
}

// CreateBranch creates name at the current HEAD and switches to it. Local
// modifications (the freshly written lock file) are kept.
func (r *GitWorktreeRepository) CreateBranch(name string) error {
	err := r.worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %q: %w", name, err)
	}
	return nil
}

// CommitPaths stages exactly the given paths and commits them.
func (r *GitWorktreeRepository) CommitPaths(paths []string, message string) error {
	for _, path := range paths {
		if _, err := r.worktree.Add(path); err != nil {
			return fmt.Errorf("failed to stage %q: %w", path, err)
		}
	}

	_, err := r.worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// PushBranch force-pushes the branch so reruns overwrite stale remote state
// instead of failing.
func (r *GitWorktreeRepository) PushBranch(ctx context.Context, name string) error {
	refSpec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", name, name))

	err := r.repo.PushContext(ctx, &git.PushOptions{
		RefSpecs: []config.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push branch %q: %w", name, err)
	}
	return nil
}

// CheckoutDefault switches back to the default branch, dropping whatever the
// last reconciliation attempt left behind.
func (r *GitWorktreeRepository) CheckoutDefault() error {
	err := r.worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(r.defaultBranch),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to checkout %q: %w", r.defaultBranch, err)
	}
	return nil
}

// ResetHard discards index and working-tree changes on the current branch.
func (r *GitWorktreeRepository) ResetHard() error {
	if err := r.worktree.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
		return fmt.Errorf("failed to reset worktree: %w", err)
	}
	return nil
}
