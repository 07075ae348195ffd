// Package update implements the dependency-update manager. Each run diffs
// the repository's committed dependency state against the latest resolvable
// versions and maintains one proposed change per outdated package, plus the
// sentinel issues and branch cleanup around that loop.
package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

const managerName = "update"

// UpdateManagerRepository reconciles outdated dependencies into proposed
// changes. It holds only factories; all per-repository state lives in the
// updateRun created for each invocation.
type UpdateManagerRepository struct {
	worktrees repositories.WorktreeFactory
	resolvers repositories.ResolverFactory
}

func NewUpdateManagerRepository(
	worktrees repositories.WorktreeFactory,
	resolvers repositories.ResolverFactory,
) *UpdateManagerRepository {
	return &UpdateManagerRepository{worktrees: worktrees, resolvers: resolvers}
}

func (m *UpdateManagerRepository) Name() string {
	return managerName
}

// Run reconciles one repository: clone, snapshot, resolve latest, then one
// create/rebase/skip decision per outdated package. The returned map carries
// the version transition and change number of every change created or rebased
// this run; skipped packages are not part of it.
func (m *UpdateManagerRepository) Run(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	opts entities.UpdateOptions,
) (map[string]entities.UpdateResult, error) {
	dir, err := os.MkdirTemp("", "kebechet-update-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	worktree, err := m.worktrees(ctx, provider.CloneURL(project), project.DefaultBranch, dir)
	if err != nil {
		return nil, &entities.TransportError{Op: "clone " + project.Slug, Err: err}
	}
	sha, err := worktree.HeadSHA()
	if err != nil {
		return nil, fmt.Errorf("failed to read head of %s: %w", project.Slug, err)
	}
	logger.Infof("[update] Updating %s, head of %s is %s", project.Slug, project.DefaultBranch, sha)

	run := &updateRun{
		provider: provider,
		project:  project,
		worktree: worktree,
		resolver: m.resolvers(dir),
		headSHA:  sha,
		labels:   opts.Labels,
	}
	return run.execute(ctx)
}

// updateRun carries the state of one reconciliation pass over one repository.
type updateRun struct {
	provider repositories.ProviderRepository
	project  entities.Project
	worktree repositories.WorktreeRepository
	resolver repositories.ResolverRepository
	flavor   dependencyFlavor
	headSHA  string
	labels   []string
}

// environmentReplicationError wraps a resolver failure hit while reproducing
// the committed environment, before the single-package update was attempted.
// It aborts the whole delta loop in favor of a full relock.
type environmentReplicationError struct {
	cause *entities.ResolverError
}

func (e *environmentReplicationError) Error() string {
	return "failed to replicate the locked environment: " + e.cause.Error()
}

func (e *environmentReplicationError) Unwrap() error {
	return e.cause
}

func (r *updateRun) execute(ctx context.Context) (map[string]entities.UpdateResult, error) {
	r.flavor = detectFlavor(r.worktree.Dir())
	if r.flavor == flavorNone {
		logger.Warnf("[update] No dependency management found in %s", r.project.Slug)
		if _, err := openIssueIfAbsent(ctx, r.provider, r.project,
			entities.IssueTitleNoManagement, entities.RenderNoManagementBody(), r.labels); err != nil {
			return nil, err
		}
		return map[string]entities.UpdateResult{}, nil
	}
	r.closeResolvedSentinel(ctx, entities.IssueTitleNoManagement)

	if !r.hasLock() {
		if err := r.createInitialLock(ctx); err != nil {
			return nil, err
		}
		return map[string]entities.UpdateResult{}, nil
	}
	r.closeResolvedSentinel(ctx, entities.IssueTitleInitialLock)

	return r.reconcile(ctx)
}

// reconcile runs the delta loop against an already locked repository.
func (r *updateRun) reconcile(ctx context.Context) (map[string]entities.UpdateResult, error) {
	oldDirect, err := r.readDirect()
	if err != nil {
		return nil, err
	}

	newDirect, err := r.resolveLatest(ctx)
	if err != nil {
		return r.reportUpdateAllFailure(ctx, err)
	}

	// Restore the pre-update state so every delta is applied against what the
	// repository actually pins, not against the fully updated resolution.
	if err := r.worktree.ResetHard(); err != nil {
		return nil, fmt.Errorf("failed to reset worktree of %s: %w", r.project.Slug, err)
	}

	deltas := entities.Diff(oldDirect, newDirect)
	logger.Infof("[update] %d outdated direct dependencies in %s", len(deltas), r.project.Slug)

	result := map[string]entities.UpdateResult{}
	processed := map[string]bool{}
	for _, delta := range deltas {
		if delta.NewVersion == "" {
			vanished := &entities.InternalError{Reason: fmt.Sprintf(
				"package %q vanished from the re-resolved dependencies", delta.Name)}
			logger.Errorf("[update] %v", vanished)
			continue
		}

		branch := delta.BranchName()
		processed[branch] = true

		state, existing, err := r.changeState(ctx, branch)
		if err != nil {
			var internalErr *entities.InternalError
			if errors.As(err, &internalErr) {
				return nil, err
			}
			logger.Errorf("[update] Failed to inspect open changes for branch %s: %v", branch, err)
			continue
		}
		if state == entities.ChangeStateUpToDate {
			logger.Infof("[update] Change #%d updating %s to %s is already based on %s, skipping",
				existing.Number, delta.Name, delta.NewVersion, r.headSHA)
			continue
		}

		number, err := r.proposeUpdate(ctx, delta, state, existing)
		if err != nil {
			var replicationErr *environmentReplicationError
			if errors.As(err, &replicationErr) {
				logger.Errorf("[update] %v", replicationErr)
				if err := r.relockAll(ctx, replicationErr.cause); err != nil {
					return nil, err
				}
				return map[string]entities.UpdateResult{}, nil
			}
			logger.Errorf("[update] Failed to update %s to %s in %s: %v",
				delta.Name, delta.NewVersion, r.project.Slug, err)
			continue
		}

		result[delta.Name] = entities.UpdateResult{
			OldVersion:   delta.OldVersion,
			NewVersion:   delta.NewVersion,
			ChangeNumber: number,
		}
	}

	r.closeResolvedSentinel(ctx, entities.IssueTitleUpdateAll)
	r.closeResolvedSentinel(ctx, entities.IssueTitleReplicateEnv)
	r.reapBranches(ctx, processed)
	return result, nil
}

// readDirect captures the committed direct-dependency snapshot.
func (r *updateRun) readDirect() (entities.DependencySnapshot, error) {
	if r.flavor == flavorRequirements {
		return readRequirementsDirect(r.worktree.Dir())
	}
	return readDirectSnapshot(r.worktree.Dir())
}

// resolveLatest moves the working tree's resolution to the latest versions
// and captures the resulting direct-dependency snapshot.
func (r *updateRun) resolveLatest(ctx context.Context) (entities.DependencySnapshot, error) {
	if r.flavor == flavorRequirements {
		if err := r.installFlat(ctx, requirementsInName); err != nil {
			return nil, err
		}
		exported, err := r.resolver.ExportPinned(ctx)
		if err != nil {
			return nil, err
		}
		pins, err := parsePinnedLines(exported, requirementsTxtName)
		if err != nil {
			return nil, err
		}
		names, err := readManifestNames(r.worktree.Dir())
		if err != nil {
			return nil, err
		}
		return restrictToNames(pins, names), nil
	}

	if err := r.resolver.UpdateAll(ctx); err != nil {
		return nil, err
	}
	return readDirectSnapshot(r.worktree.Dir())
}

// reportUpdateAllFailure opens or refreshes the update-failure sentinel and
// ends the run without touching any change. The failure is recoverable: once
// the manifest resolves again, the next run closes the issue.
func (r *updateRun) reportUpdateAllFailure(
	ctx context.Context, runErr error,
) (map[string]entities.UpdateResult, error) {
	var resolverErr *entities.ResolverError
	if !errors.As(runErr, &resolverErr) {
		return nil, runErr
	}
	logger.Errorf("[update] Failed to update dependencies of %s: %v", r.project.Slug, runErr)

	report := entities.NewResolverFailureReport(r.headSHA, r.project.Slug, resolverErr)
	report.Environment, _ = r.resolver.Version(ctx)
	report.DependencyGraph, _ = r.resolver.Graph(ctx)

	if _, err := openOrRefreshIssue(ctx, r.provider, r.project,
		entities.IssueTitleUpdateAll, r.headSHA,
		entities.RenderUpdateAllFailure(report), entities.RenderRefreshComment(report),
		r.labels); err != nil {
		return nil, err
	}
	return map[string]entities.UpdateResult{}, nil
}

// proposeUpdate carries one delta through branch, resolve, commit, push and
// change creation or rebase. The worktree is returned to a clean default
// branch whatever the outcome.
func (r *updateRun) proposeUpdate(
	ctx context.Context,
	delta entities.DependencyDelta,
	state entities.ChangeState,
	existing *entities.ChangeRef,
) (int, error) {
	defer r.restoreWorktree()

	branch := delta.BranchName()
	if err := r.worktree.CreateBranch(branch); err != nil {
		return 0, fmt.Errorf("failed to create branch %s: %w", branch, err)
	}

	if err := r.replicateEnvironment(ctx); err != nil {
		var resolverErr *entities.ResolverError
		if errors.As(err, &resolverErr) {
			return 0, &environmentReplicationError{cause: resolverErr}
		}
		return 0, err
	}

	if err := r.resolver.InstallKeepOutdated(ctx, delta.Name, delta.NewVersion, delta.Dev); err != nil {
		return 0, fmt.Errorf("failed to install %s==%s: %w", delta.Name, delta.NewVersion, err)
	}

	files, err := r.writeUpdatedPins(ctx)
	if err != nil {
		return 0, err
	}

	message := entities.CommitMessageUpdate(delta.Name, delta.OldVersion, delta.NewVersion)
	if err := r.worktree.CommitPaths(files, message); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", strings.Join(files, ", "), err)
	}
	if err := r.worktree.PushBranch(ctx, branch); err != nil {
		return 0, err
	}

	if state == entities.ChangeStateStale {
		if err := r.provider.AddChangeComment(
			ctx, r.project, existing.Number, entities.RenderRebaseComment(r.headSHA)); err != nil {
			return 0, err
		}
		logger.Infof("[update] Rebased change #%d updating %s to %s onto %s",
			existing.Number, delta.Name, delta.NewVersion, r.headSHA)
		return existing.Number, nil
	}

	number, err := r.provider.CreateChange(ctx, r.project, entities.ChangeInput{
		Title:        message,
		SourceBranch: branch,
		TargetBranch: r.project.DefaultBranch,
		Body:         entities.RenderUpdateBody(delta.Name, delta.OldVersion, delta.NewVersion),
		Labels:       r.labels,
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("[update] Opened change #%d updating %s from %s to %s",
		number, delta.Name, delta.OldVersion, delta.NewVersion)
	return number, nil
}

// replicateEnvironment reinstates the committed dependency state inside the
// working tree so the keep-outdated install starts from exactly what the
// repository pins today.
func (r *updateRun) replicateEnvironment(ctx context.Context) error {
	if r.flavor == flavorRequirements {
		return r.installFlat(ctx, requirementsTxtName)
	}
	return r.resolver.SyncExact(ctx)
}

// installFlat builds the environment from a flat requirements file. Pipfiles
// generated by earlier resolver calls are removed first: the resolver would
// merge into them instead of starting from the requirements alone.
func (r *updateRun) installFlat(ctx context.Context, source string) error {
	_ = os.Remove(filepath.Join(r.worktree.Dir(), pipfileName))
	_ = os.Remove(filepath.Join(r.worktree.Dir(), pipfileLockName))
	return r.resolver.InstallFromManifest(ctx, source)
}

// writeUpdatedPins materializes the current resolution into the files that
// get committed: the lock for the Pipfile flavor, the fully re-exported pin
// file for the flat flavor, transitive movements included.
func (r *updateRun) writeUpdatedPins(ctx context.Context) ([]string, error) {
	if r.flavor == flavorPipenv {
		return []string{pipfileLockName}, nil
	}

	exported, err := r.resolver.ExportPinned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export pinned requirements: %w", err)
	}
	path := filepath.Join(r.worktree.Dir(), requirementsTxtName)
	if err := os.WriteFile(path, []byte(exported), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", requirementsTxtName, err)
	}
	return []string{requirementsTxtName}, nil
}

// createInitialLock produces the repository's first lock and proposes it on
// the fixed initial-lock branch. The run ends here either way: with a fresh
// lock there are no deltas to reconcile yet.
func (r *updateRun) createInitialLock(ctx context.Context) error {
	logger.Infof("[update] No lock found in %s, performing initial lock", r.project.Slug)

	state, existing, err := r.changeState(ctx, entities.InitialLockBranch)
	if err != nil {
		return err
	}
	if state == entities.ChangeStateUpToDate {
		logger.Infof("[update] Initial lock change #%d is already based on %s, skipping",
			existing.Number, r.headSHA)
		return nil
	}

	defer r.restoreWorktree()
	if err := r.worktree.CreateBranch(entities.InitialLockBranch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", entities.InitialLockBranch, err)
	}

	files, err := r.lockFromScratch(ctx)
	if err != nil {
		return r.reportInitialLockFailure(ctx, err)
	}

	if err := r.worktree.CommitPaths(files, entities.CommitMessageInitialLock); err != nil {
		return fmt.Errorf("failed to commit %s: %w", strings.Join(files, ", "), err)
	}
	if err := r.worktree.PushBranch(ctx, entities.InitialLockBranch); err != nil {
		return err
	}

	if state == entities.ChangeStateStale {
		if err := r.provider.AddChangeComment(
			ctx, r.project, existing.Number, entities.RenderRebaseComment(r.headSHA)); err != nil {
			return err
		}
		logger.Infof("[update] Rebased initial lock change #%d onto %s", existing.Number, r.headSHA)
		return nil
	}

	number, err := r.provider.CreateChange(ctx, r.project, entities.ChangeInput{
		Title:        entities.CommitMessageInitialLock,
		SourceBranch: entities.InitialLockBranch,
		TargetBranch: r.project.DefaultBranch,
		Labels:       r.labels,
	})
	if err != nil {
		return err
	}
	logger.Infof("[update] Opened initial lock change #%d for %s", number, r.project.Slug)
	return nil
}

// lockFromScratch resolves the first lock of a so far unlocked repository.
func (r *updateRun) lockFromScratch(ctx context.Context) ([]string, error) {
	if r.flavor == flavorPipenv {
		if err := r.resolver.Relock(ctx); err != nil {
			return nil, err
		}
		return []string{pipfileLockName}, nil
	}

	if err := r.installFlat(ctx, requirementsInName); err != nil {
		return nil, err
	}
	return r.writeUpdatedPins(ctx)
}

// reportInitialLockFailure opens or refreshes the initial-lock sentinel. The
// original locking error is returned: without a lock the repository run
// cannot continue.
func (r *updateRun) reportInitialLockFailure(ctx context.Context, lockErr error) error {
	var resolverErr *entities.ResolverError
	if !errors.As(lockErr, &resolverErr) {
		return lockErr
	}
	logger.Errorf("[update] Failed to perform the initial lock of %s: %v", r.project.Slug, lockErr)

	report := entities.NewResolverFailureReport(r.headSHA, r.project.Slug, resolverErr)
	report.File = r.manifestName()
	report.Environment, _ = r.resolver.Version(ctx)

	if _, err := openOrRefreshIssue(ctx, r.provider, r.project,
		entities.IssueTitleInitialLock, r.headSHA,
		entities.RenderInitialLockFailure(report), entities.RenderRefreshComment(report),
		r.labels); err != nil {
		return err
	}
	return lockErr
}

// relockAll opens the replicate-environment sentinel and proposes one full
// re-lock on the fixed relock branch, linking the change to the sentinel.
// The caller abandons the remaining deltas: each would fail on the same
// non-replicable environment.
func (r *updateRun) relockAll(ctx context.Context, cause *entities.ResolverError) error {
	report := entities.NewResolverFailureReport(r.headSHA, r.project.Slug, cause)
	report.Environment, _ = r.resolver.Version(ctx)

	issueNumber, err := openOrRefreshIssue(ctx, r.provider, r.project,
		entities.IssueTitleReplicateEnv, r.headSHA,
		entities.RenderReplicateEnvFailure(report), entities.RenderRefreshComment(report),
		r.labels)
	if err != nil {
		return err
	}

	state, existing, err := r.changeState(ctx, entities.RelockBranch)
	if err != nil {
		return err
	}
	if state == entities.ChangeStateUpToDate {
		logger.Infof("[update] Relock change #%d is already based on %s, skipping",
			existing.Number, r.headSHA)
		return nil
	}

	defer r.restoreWorktree()
	if err := r.worktree.CreateBranch(entities.RelockBranch); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", entities.RelockBranch, err)
	}

	var files []string
	if r.flavor == flavorPipenv {
		if err := r.resolver.UpdateAll(ctx); err != nil {
			return fmt.Errorf("failed to re-lock dependencies of %s: %w", r.project.Slug, err)
		}
		files = []string{pipfileLockName}
	} else {
		if err := r.installFlat(ctx, requirementsInName); err != nil {
			return fmt.Errorf("failed to re-lock dependencies of %s: %w", r.project.Slug, err)
		}
		files, err = r.writeUpdatedPins(ctx)
		if err != nil {
			return err
		}
	}

	if err := r.worktree.CommitPaths(files, entities.CommitMessageRelock); err != nil {
		return fmt.Errorf("failed to commit %s: %w", strings.Join(files, ", "), err)
	}
	if err := r.worktree.PushBranch(ctx, entities.RelockBranch); err != nil {
		return err
	}

	if state == entities.ChangeStateStale {
		if err := r.provider.AddChangeComment(
			ctx, r.project, existing.Number, entities.RenderRebaseComment(r.headSHA)); err != nil {
			return err
		}
		logger.Infof("[update] Rebased relock change #%d onto %s", existing.Number, r.headSHA)
		return nil
	}

	number, err := r.provider.CreateChange(ctx, r.project, entities.ChangeInput{
		Title:        entities.CommitMessageRelock,
		SourceBranch: entities.RelockBranch,
		TargetBranch: r.project.DefaultBranch,
		Body:         entities.RenderRelockBody(issueNumber),
		Labels:       r.labels,
	})
	if err != nil {
		return err
	}
	logger.Infof("[update] Opened relock change #%d for %s", number, r.project.Slug)
	return nil
}

// changeState classifies the open change for a source branch against the
// current head. More than one open change on a single branch violates the
// engine's ownership of its branch namespace and is never silently resolved.
func (r *updateRun) changeState(
	ctx context.Context, branch string,
) (entities.ChangeState, *entities.ChangeRef, error) {
	changes, err := r.provider.ListOpenChanges(ctx, r.project, branch)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list open changes for %s: %w", branch, err)
	}

	switch len(changes) {
	case 0:
		return entities.ChangeStateMissing, nil, nil
	case 1:
		change := changes[0]
		if change.BaseSHA == r.headSHA {
			return entities.ChangeStateUpToDate, &change, nil
		}
		return entities.ChangeStateStale, &change, nil
	default:
		return "", nil, &entities.InternalError{Reason: fmt.Sprintf(
			"%d open changes share source branch %q", len(changes), branch)}
	}
}

// reapBranches removes engine-owned branches that no delta of this run
// claimed: leftovers of updates that merged or became obsolete. Failures are
// logged and skipped so one missing branch never aborts the cleanup.
func (r *updateRun) reapBranches(ctx context.Context, keep map[string]bool) {
	branches, err := r.provider.ListBranches(ctx, r.project)
	if err != nil {
		logger.Warnf("[update] Failed to list branches of %s: %v", r.project.Slug, err)
		return
	}

	for _, branch := range branches {
		if !strings.HasPrefix(branch, entities.BranchPrefix()) || keep[branch] {
			continue
		}
		if err := r.provider.DeleteBranch(ctx, r.project, branch); err != nil {
			logger.Warnf("[update] Failed to delete branch %s of %s: %v", branch, r.project.Slug, err)
			continue
		}
		logger.Infof("[update] Deleted stale branch %s of %s", branch, r.project.Slug)
	}
}

// closeResolvedSentinel closes the sentinel issue best-effort: the run does
// not fail over a leftover issue that the next run can still close.
func (r *updateRun) closeResolvedSentinel(ctx context.Context, title string) {
	if err := closeIssueIfExists(ctx, r.provider, r.project, title, r.headSHA); err != nil {
		logger.Warnf("[update] Failed to close issue %q of %s: %v", title, r.project.Slug, err)
	}
}

// restoreWorktree returns the clone to a clean default branch between
// attempts so no resolver or branch state leaks into the next one.
func (r *updateRun) restoreWorktree() {
	if err := r.worktree.CheckoutDefault(); err != nil {
		logger.Warnf("[update] Failed to check out %s: %v", r.project.DefaultBranch, err)
	}
	if err := r.worktree.ResetHard(); err != nil {
		logger.Warnf("[update] Failed to reset the worktree: %v", err)
	}
}

// hasLock reports whether the flavor's pinned file is committed.
func (r *updateRun) hasLock() bool {
	if r.flavor == flavorRequirements {
		return fileExists(filepath.Join(r.worktree.Dir(), requirementsTxtName))
	}
	return fileExists(filepath.Join(r.worktree.Dir(), pipfileLockName))
}

// manifestName returns the manifest file the flavor locks from.
func (r *updateRun) manifestName() string {
	if r.flavor == flavorRequirements {
		return requirementsInName
	}
	return pipfileName
}
