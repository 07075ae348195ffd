// Package pipenv shells out to the pipenv binary. Pipenv cannot be embedded:
// it keeps the virtual-environment path in process-global state, so every
// operation is a fresh subprocess against the working tree.
package pipenv

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// PipenvResolverRepository implements repositories.ResolverRepository by
// invoking pipenv inside a cloned working tree.
type PipenvResolverRepository struct {
	dir string
}

// NewPipenvResolverRepository creates a resolver bound to the given working
// tree directory.
func NewPipenvResolverRepository(dir string) repositories.ResolverRepository {
	return &PipenvResolverRepository{dir: dir}
}

// InstallFromManifest resolves the constraints manifest into a fresh Pipfile
// and Pipfile.lock, picking the latest allowed version of every package.
func (r *PipenvResolverRepository) InstallFromManifest(ctx context.Context, manifest string) error {
	_, err := r.run(ctx, "install", "-r", manifest)
	return err
}

// UpdateAll moves every dependency to its latest version and re-locks.
func (r *PipenvResolverRepository) UpdateAll(ctx context.Context) error {
	if _, err := r.run(ctx, "update", "--dev"); err != nil {
		return err
	}
	_, err := r.run(ctx, "lock")
	return err
}

// Relock re-resolves the lock from the manifest as it stands.
func (r *PipenvResolverRepository) Relock(ctx context.Context) error {
	_, err := r.run(ctx, "lock")
	return err
}

// SyncExact installs exactly the locked versions, dev packages included.
func (r *PipenvResolverRepository) SyncExact(ctx context.Context) error {
	_, err := r.run(ctx, "sync", "--dev")
	return err
}

// InstallKeepOutdated updates one package while pinning everything else at
// its current version, then re-locks with the same semantics.
func (r *PipenvResolverRepository) InstallKeepOutdated(
	ctx context.Context, name, version string, dev bool,
) error {
	args := []string{"install", name + "==" + version, "--keep-outdated"}
	if dev {
		args = append(args, "--dev")
	}
	if _, err := r.run(ctx, args...); err != nil {
		return err
	}
	_, err := r.run(ctx, "lock", "--keep-outdated")
	return err
}

// ExportPinned renders the locked environment as flat name==version lines.
func (r *PipenvResolverRepository) ExportPinned(ctx context.Context) (string, error) {
	return r.run(ctx, "requirements")
}

// Version reports the pipenv version, used in failure reports.
func (r *PipenvResolverRepository) Version(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "--version")
	return strings.TrimSpace(out), err
}

// Graph renders the resolved dependency graph, used in failure reports.
func (r *PipenvResolverRepository) Graph(ctx context.Context) (string, error) {
	return r.run(ctx, "graph")
}

// run executes one pipenv command, returning stdout. Failures carry the full
// diagnostic output so recovery flows can embed it into issue bodies.
func (r *PipenvResolverRepository) run(ctx context.Context, args ...string) (string, error) {
	command := "pipenv " + strings.Join(args, " ")
	logger.Debugf("Running %q in %s", command, r.dir)

	cmd := exec.CommandContext(ctx, "pipenv", args...)
	cmd.Dir = r.dir
	// The virtualenv lives inside the clone so parallel runs cannot collide.
	cmd.Env = append(os.Environ(),
		"PIPENV_VENV_IN_PROJECT=1",
		"PIPENV_IGNORE_VIRTUALENVS=1",
		"PIPENV_NOSPIN=1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &entities.ResolverError{
			Command: command,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.String(), nil
}
