//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"

	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// StubResolverRepository implements repositories.ResolverRepository without
// touching pipenv. Every invocation is appended to Calls; the optional Func
// hooks receive the working-tree directory so a test can mutate fixture files
// the way a real resolver run would.
type StubResolverRepository struct {
	Directory string
	Calls     []string

	InstallManifestErr  error
	InstallManifestFunc func(dir, manifest string) error

	UpdateAllErr  error
	UpdateAllFunc func(dir string) error

	RelockErr  error
	RelockFunc func(dir string) error

	SyncExactErr error

	InstallKeepOutdatedErr  error
	InstallKeepOutdatedFunc func(dir, name, version string, dev bool) error

	ExportedPins string
	ExportErr    error

	VersionOut string
	GraphOut   string
}

var _ repositories.ResolverRepository = (*StubResolverRepository)(nil)

func (r *StubResolverRepository) InstallFromManifest(_ context.Context, manifest string) error {
	r.Calls = append(r.Calls, "install -r "+manifest)
	if r.InstallManifestFunc != nil {
		return r.InstallManifestFunc(r.Directory, manifest)
	}
	return r.InstallManifestErr
}

func (r *StubResolverRepository) UpdateAll(_ context.Context) error {
	r.Calls = append(r.Calls, "update")
	if r.UpdateAllFunc != nil {
		return r.UpdateAllFunc(r.Directory)
	}
	return r.UpdateAllErr
}

func (r *StubResolverRepository) Relock(_ context.Context) error {
	r.Calls = append(r.Calls, "lock")
	if r.RelockFunc != nil {
		return r.RelockFunc(r.Directory)
	}
	return r.RelockErr
}

func (r *StubResolverRepository) SyncExact(_ context.Context) error {
	r.Calls = append(r.Calls, "sync")
	return r.SyncExactErr
}

func (r *StubResolverRepository) InstallKeepOutdated(
	_ context.Context, name, version string, dev bool,
) error {
	r.Calls = append(r.Calls, fmt.Sprintf("install %s==%s dev=%t", name, version, dev))
	if r.InstallKeepOutdatedFunc != nil {
		return r.InstallKeepOutdatedFunc(r.Directory, name, version, dev)
	}
	return r.InstallKeepOutdatedErr
}

func (r *StubResolverRepository) ExportPinned(_ context.Context) (string, error) {
	r.Calls = append(r.Calls, "requirements")
	if r.ExportErr != nil {
		return "", r.ExportErr
	}
	return r.ExportedPins, nil
}

func (r *StubResolverRepository) Version(_ context.Context) (string, error) {
	return r.VersionOut, nil
}

func (r *StubResolverRepository) Graph(_ context.Context) (string, error) {
	return r.GraphOut, nil
}

// CallCount returns how many recorded calls start with prefix.
func (r *StubResolverRepository) CallCount(prefix string) int {
	count := 0
	for _, call := range r.Calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			count++
		}
	}
	return count
}
