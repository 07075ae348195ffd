//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"os"
	"path/filepath"

	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// CommitCall records a single CommitPaths invocation.
type CommitCall struct {
	Paths   []string
	Message string
}

// StubWorktreeRepository implements repositories.WorktreeRepository against a
// plain directory: no git objects, just call recording. Tests place fixture
// files into Directory and inspect what the engine staged and pushed.
type StubWorktreeRepository struct {
	Directory string
	SHA       string
	HeadErr   error

	CreatedBranches []string
	CreateBranchErr error

	Commits   []CommitCall
	CommitErr error

	PushedBranches []string
	PushErr        error

	CheckoutCalls int
	CheckoutErr   error
	ResetCalls    int
	ResetErr      error

	// CommittedContent snapshots the content of each committed path, keyed by
	// relative path. The engine removes its working directory after a run, so
	// assertions on written files go through this map instead.
	CommittedContent map[string]string
}

var _ repositories.WorktreeRepository = (*StubWorktreeRepository)(nil)

func (w *StubWorktreeRepository) Dir() string {
	return w.Directory
}

func (w *StubWorktreeRepository) HeadSHA() (string, error) {
	if w.HeadErr != nil {
		return "", w.HeadErr
	}
	return w.SHA, nil
}

func (w *StubWorktreeRepository) CreateBranch(name string) error {
	if w.CreateBranchErr != nil {
		return w.CreateBranchErr
	}
	w.CreatedBranches = append(w.CreatedBranches, name)
	return nil
}

func (w *StubWorktreeRepository) CommitPaths(paths []string, message string) error {
	if w.CommitErr != nil {
		return w.CommitErr
	}
	w.Commits = append(w.Commits, CommitCall{Paths: paths, Message: message})
	if w.CommittedContent == nil {
		w.CommittedContent = make(map[string]string)
	}
	for _, path := range paths {
		if content, err := os.ReadFile(filepath.Join(w.Directory, path)); err == nil {
			w.CommittedContent[path] = string(content)
		}
	}
	return nil
}

func (w *StubWorktreeRepository) PushBranch(_ context.Context, name string) error {
	if w.PushErr != nil {
		return w.PushErr
	}
	w.PushedBranches = append(w.PushedBranches, name)
	return nil
}

func (w *StubWorktreeRepository) CheckoutDefault() error {
	w.CheckoutCalls++
	return w.CheckoutErr
}

func (w *StubWorktreeRepository) ResetHard() error {
	w.ResetCalls++
	return w.ResetErr
}
