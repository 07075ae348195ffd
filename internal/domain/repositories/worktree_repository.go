package repositories

import "context"

// WorktreeRepository is a local clone of the managed repository. One instance
// exists per run; every method mutates the same working tree, so calls must
// stay sequential.
type WorktreeRepository interface {
	// Dir returns the filesystem path of the working tree.
	Dir() string

	// HeadSHA returns the commit the default branch pointed at when the
	// clone was taken. Every change proposed this run is based on it.
	HeadSHA() (string, error)

	// CreateBranch creates name at the current HEAD and switches to it,
	// keeping uncommitted changes in the working tree.
	CreateBranch(name string) error

	// CommitPaths stages exactly the given paths and commits them.
	CommitPaths(paths []string, message string) error

	// PushBranch force-pushes the branch to the remote.
	PushBranch(ctx context.Context, name string) error

	// CheckoutDefault switches back to the default branch, discarding local
	// modifications.
	CheckoutDefault() error

	// ResetHard discards index and working-tree changes on the current branch.
	ResetHard() error
}
