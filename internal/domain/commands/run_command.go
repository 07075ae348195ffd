package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
	infraRepos "github.com/thoth-station/kebechet/internal/infrastructure/repositories"
)

// Run is the interface for the run command (batch mode).
type Run interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RunOptions) error
}

// RunOptions holds runtime options for a batch run.
type RunOptions struct {
	Verbose     bool
	ManagerName string // If set, only run this manager (CLI override)
}

// RunCommand orchestrates the full reconciliation flow: for every configured
// repository, run its configured managers against the hosting service.
type RunCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
	managerRegistry  *infraRepos.ManagerRegistry
}

// NewRunCommand creates a new RunCommand with the given registries.
func NewRunCommand(
	providerRegistry *infraRepos.ProviderRegistry,
	managerRegistry *infraRepos.ManagerRegistry,
) *RunCommand {
	return &RunCommand{
		providerRegistry: providerRegistry,
		managerRegistry:  managerRegistry,
	}
}

// Execute runs every configured repository once. Per-repository failures are
// logged and counted, never propagated: one broken repository must not stall
// the rest of the batch.
func (it *RunCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	runOpts RunOptions,
) error {
	if runOpts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	totalRepos := 0
	totalChanges := 0
	totalErrors := 0

	for _, repoCfg := range settings.Repositories {
		project, err := entities.NewProject(
			repoCfg.Slug, repoCfg.ServiceType, repoCfg.ServiceURL, repoCfg.Branch)
		if err != nil {
			logger.Errorf("Skipping misconfigured repository: %v", err)
			totalErrors++
			continue
		}

		provider, err := it.providerRegistry.Get(
			repoCfg.ServiceType, repoCfg.Token, repoCfg.ServiceURL, repoCfg.VerifyTLS())
		if err != nil {
			logger.Errorf("Failed to initialize service %q for %s: %v",
				repoCfg.ServiceType, project.Slug, err)
			totalErrors++
			continue
		}

		logger.Infof("Processing repository: %s (%s)", project.Slug, provider.Name())
		totalRepos++

		changes, errs := it.processRepository(ctx, provider, project, repoCfg.Managers, runOpts)
		totalChanges += changes
		totalErrors += errs
	}

	logger.Infof(
		"Run complete: %d repositories processed, %d changes reconciled, %d errors",
		totalRepos, totalChanges, totalErrors,
	)
	return nil
}

// processRepository runs the configured managers on a single repository.
func (it *RunCommand) processRepository(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	managers []entities.ManagerEntry,
	runOpts RunOptions,
) (int, int) {
	changeCount := 0
	errorCount := 0

	for _, managerCfg := range managers {
		// Skip if CLI filter is set and doesn't match
		if runOpts.ManagerName != "" && managerCfg.Name != runOpts.ManagerName {
			continue
		}

		manager := it.managerRegistry.Get(managerCfg.Name)
		if manager == nil {
			logger.Warnf("Unknown manager %q configured for %s, skipping", managerCfg.Name, project.Slug)
			continue
		}

		logger.Infof("[%s] Running on %s", manager.Name(), project.Slug)

		result, err := manager.Run(ctx, provider, project, entities.UpdateOptions{
			Labels: managerCfg.Labels,
		})
		if err != nil {
			logger.Errorf("[%s] Failed on %s: %v", manager.Name(), project.Slug, err)
			errorCount++
			continue
		}

		for name, update := range result {
			logger.Infof("[%s]   %s: %s -> %s (change #%d)",
				manager.Name(), name, update.OldVersion, update.NewVersion, update.ChangeNumber)
		}
		changeCount += len(result)
	}

	return changeCount, errorCount
}
