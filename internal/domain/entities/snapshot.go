package entities

import (
	"sort"
	"strings"
)

// PackageVersion is one locked package entry inside a snapshot.
type PackageVersion struct {
	Version string // Locked version, without any equality operator prefix
	Dev     bool   // True when the package belongs to the dev group
}

// DependencySnapshot maps a normalized (lower-cased) package name to its
// locked version. Two flavors exist: direct (manifest-declared packages only)
// and full (every locked package, including transitive ones). A snapshot is
// captured fresh on every run and never mutated afterwards.
type DependencySnapshot map[string]PackageVersion

// DependencyDelta records one package whose locked version changed between
// two snapshots. Dev is carried over from the old snapshot: a package does
// not switch between the dev and default groups during an update.
type DependencyDelta struct {
	Name       string
	OldVersion string
	NewVersion string // Empty when the package vanished from the new snapshot
	Dev        bool
}

// NormalizePackageName lower-cases a package name so snapshot keys compare
// case-insensitively.
func NormalizePackageName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Diff computes the deltas between an old and a new snapshot, ordered by
// package name. A package is included when its version changed, or when it is
// present in old but missing from new (NewVersion stays empty so the caller
// can surface the inconsistency instead of dropping it). Packages that only
// appear in new are not deltas: transitive additions reach the pinned file
// through the full re-export, not through per-package changes.
func Diff(old, newSnapshot DependencySnapshot) []DependencyDelta {
	names := make([]string, 0, len(old))
	for name := range old {
		names = append(names, name)
	}
	sort.Strings(names)

	deltas := make([]DependencyDelta, 0, len(names))
	for _, name := range names {
		oldPkg := old[name]
		newPkg, ok := newSnapshot[name]
		if ok && newPkg.Version == oldPkg.Version {
			continue
		}

		delta := DependencyDelta{
			Name:       name,
			OldVersion: oldPkg.Version,
			Dev:        oldPkg.Dev,
		}
		if ok {
			delta.NewVersion = newPkg.Version
		}
		deltas = append(deltas, delta)
	}
	return deltas
}
