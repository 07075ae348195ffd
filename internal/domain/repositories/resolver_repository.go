package repositories

import "context"

// ResolverRepository wraps the external dependency resolver. Every call is a
// fresh invocation against the current working tree; the adapter keeps no
// state of its own. Failed invocations return *entities.ResolverError carrying
// the raw diagnostic output.
type ResolverRepository interface {
	// InstallFromManifest builds an environment from a constraints manifest
	// (requirements.in), resolving every package to its latest allowed
	// version.
	InstallFromManifest(ctx context.Context, manifest string) error

	// UpdateAll moves every dependency to its latest version and writes a
	// fresh lock.
	UpdateAll(ctx context.Context) error

	// Relock re-resolves the lock from the manifest as it stands.
	Relock(ctx context.Context) error

	// SyncExact reproduces the locked environment exactly, dev packages
	// included.
	SyncExact(ctx context.Context) error

	// InstallKeepOutdated updates a single package to the given version while
	// leaving every other pinned version untouched, then re-locks with the
	// same keep-outdated semantics.
	InstallKeepOutdated(ctx context.Context, name, version string, dev bool) error

	// ExportPinned renders the locked environment as flat "name==version"
	// lines suitable for a fully pinned requirements file.
	ExportPinned(ctx context.Context) (string, error)

	// Version reports the resolver's own version, for failure reports.
	Version(ctx context.Context) (string, error)

	// Graph renders the resolved dependency graph, for failure reports.
	Graph(ctx context.Context) (string, error)
}

// ResolverFactory builds a resolver bound to a working tree directory.
type ResolverFactory func(dir string) ResolverRepository
