package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// Files recognized as dependency management.
const (
	pipfileName         = "Pipfile"
	pipfileLockName     = "Pipfile.lock"
	requirementsInName  = "requirements.in"
	requirementsTxtName = "requirements.txt"
)

// dependencyFlavor identifies which manifest family drives a repository. A
// Pipfile wins over requirements files when both are present.
type dependencyFlavor int

const (
	flavorNone dependencyFlavor = iota
	flavorPipenv
	flavorRequirements
)

func detectFlavor(dir string) dependencyFlavor {
	if fileExists(filepath.Join(dir, pipfileName)) {
		return flavorPipenv
	}
	if fileExists(filepath.Join(dir, requirementsInName)) {
		return flavorRequirements
	}
	return flavorNone
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type pipfileManifest struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

type pipfileLock struct {
	Default map[string]pipfileLockEntry `json:"default"`
	Develop map[string]pipfileLockEntry `json:"develop"`
}

type pipfileLockEntry struct {
	Version string `json:"version"`
}

// readPipfileDeclared returns the manifest-declared package names mapped to
// their dev flag. Entry values are ignored: a declared package may carry a
// version specifier string or an option table, both irrelevant here.
func readPipfileDeclared(dir string) (map[string]bool, error) {
	raw, err := os.ReadFile(filepath.Join(dir, pipfileName))
	if err != nil {
		return nil, &entities.ManifestParseError{File: pipfileName, Reason: err.Error()}
	}

	var manifest pipfileManifest
	if err := toml.Unmarshal(raw, &manifest); err != nil {
		return nil, &entities.ManifestParseError{File: pipfileName, Reason: err.Error()}
	}

	declared := make(map[string]bool, len(manifest.Packages)+len(manifest.DevPackages))
	for name := range manifest.Packages {
		declared[entities.NormalizePackageName(name)] = false
	}
	for name := range manifest.DevPackages {
		declared[entities.NormalizePackageName(name)] = true
	}
	return declared, nil
}

// readFullSnapshot lists every locked package, transitive ones included, with
// the dev flag taken from the lock section the package sits in.
func readFullSnapshot(dir string) (entities.DependencySnapshot, error) {
	raw, err := os.ReadFile(filepath.Join(dir, pipfileLockName))
	if err != nil {
		return nil, &entities.ManifestParseError{File: pipfileLockName, Reason: err.Error()}
	}

	var lock pipfileLock
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, &entities.ManifestParseError{File: pipfileLockName, Reason: err.Error()}
	}

	snapshot := make(entities.DependencySnapshot, len(lock.Default)+len(lock.Develop))
	for name, entry := range lock.Default {
		snapshot[entities.NormalizePackageName(name)] = entities.PackageVersion{
			Version: strings.TrimPrefix(entry.Version, "=="),
		}
	}
	for name, entry := range lock.Develop {
		snapshot[entities.NormalizePackageName(name)] = entities.PackageVersion{
			Version: strings.TrimPrefix(entry.Version, "=="),
			Dev:     true,
		}
	}
	return snapshot, nil
}

// readDirectSnapshot resolves every Pipfile-declared package to its locked
// version. The dev flag comes from the declaring Pipfile table. A declared
// package missing from the lock means manifest and lock drifted apart, which
// only an external edit can cause.
func readDirectSnapshot(dir string) (entities.DependencySnapshot, error) {
	declared, err := readPipfileDeclared(dir)
	if err != nil {
		return nil, err
	}
	full, err := readFullSnapshot(dir)
	if err != nil {
		return nil, err
	}

	snapshot := make(entities.DependencySnapshot, len(declared))
	for name, dev := range declared {
		locked, ok := full[name]
		if !ok {
			return nil, &entities.InternalError{Reason: fmt.Sprintf(
				"package %q declared in %s is missing from %s", name, pipfileName, pipfileLockName)}
		}
		snapshot[name] = entities.PackageVersion{Version: locked.Version, Dev: dev}
	}
	return snapshot, nil
}

// parsePinnedLines parses flat name==version content, one package per line.
// Comment and option lines are skipped; any remaining line without a pin is
// malformed, since the file is expected to be the output of a full export.
func parsePinnedLines(content, file string) (entities.DependencySnapshot, error) {
	snapshot := entities.DependencySnapshot{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		name, rest, found := strings.Cut(line, "==")
		if !found {
			return nil, &entities.ManifestParseError{
				File:   file,
				Reason: fmt.Sprintf("line %q carries no pinned version", line),
			}
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return nil, &entities.ManifestParseError{
				File:   file,
				Reason: fmt.Sprintf("line %q carries no pinned version", line),
			}
		}

		// Extras and environment markers do not contribute to identity.
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		version := strings.TrimSuffix(fields[0], ";")
		snapshot[entities.NormalizePackageName(name)] = entities.PackageVersion{Version: version}
	}
	return snapshot, nil
}

// readPinnedSnapshot reads the committed requirements.txt pins.
func readPinnedSnapshot(dir string) (entities.DependencySnapshot, error) {
	raw, err := os.ReadFile(filepath.Join(dir, requirementsTxtName))
	if err != nil {
		return nil, &entities.ManifestParseError{File: requirementsTxtName, Reason: err.Error()}
	}
	return parsePinnedLines(string(raw), requirementsTxtName)
}

// requirementSeparators are the specifier operators and the extras bracket
// that may terminate a bare package name on a requirements.in line.
var requirementSeparators = []string{"===", "==", "<=", ">=", "~=", "!=", "<", ">", "["}

// readManifestNames lists the package names declared in requirements.in,
// stripped of any version constraint.
func readManifestNames(dir string) (map[string]bool, error) {
	raw, err := os.ReadFile(filepath.Join(dir, requirementsInName))
	if err != nil {
		return nil, &entities.ManifestParseError{File: requirementsInName, Reason: err.Error()}
	}

	names := map[string]bool{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cut := len(line)
		for _, sep := range requirementSeparators {
			if i := strings.Index(line, sep); i >= 0 && i < cut {
				cut = i
			}
		}
		name := strings.TrimSpace(line[:cut])
		if name == "" {
			continue
		}
		names[entities.NormalizePackageName(name)] = true
	}
	return names, nil
}

// readRequirementsDirect reads the pinned versions of the packages declared
// in requirements.in. Declared packages that were never pinned are left out;
// they reach the pin file through the full re-export of the next update.
func readRequirementsDirect(dir string) (entities.DependencySnapshot, error) {
	names, err := readManifestNames(dir)
	if err != nil {
		return nil, err
	}
	pins, err := readPinnedSnapshot(dir)
	if err != nil {
		return nil, err
	}
	return restrictToNames(pins, names), nil
}

func restrictToNames(
	snapshot entities.DependencySnapshot, names map[string]bool,
) entities.DependencySnapshot {
	restricted := make(entities.DependencySnapshot, len(names))
	for name := range names {
		if pkg, ok := snapshot[name]; ok {
			restricted[name] = pkg
		}
	}
	return restricted
}
