package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thoth-station/kebechet/internal/domain/commands"
	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// RunController handles the "run" subcommand (batch mode).
type RunController struct {
	command commands.Run
}

// NewRunController creates a new RunController.
func NewRunController(command commands.Run) *RunController {
	return &RunController{command: command}
}

// GetBind returns the Cobra command metadata for the run controller.
func (it *RunController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "run",
		Short: "Run the configured managers on every repository",
		Long: `Run the configured managers on every repository.

This is the main command intended to be used in a cronjob.
It reads the configuration file and, for each configured
repository, runs its managers: dependency updates are kept
reconciled as one pull request per outdated package, and
recovery issues track anything that cannot be updated.`,
	}
}

// Execute runs the batch mode.
func (it *RunController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	managerFilter, _ := cmd.Flags().GetString("manager")

	// Load configuration
	cfgPath := configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = entities.FindConfigFile()
		if err != nil {
			logger.Errorf(
				"no config file found: %v\nSpecify one with --config or create kebechet.yaml",
				err,
			)
			return
		}
	}

	logger.Infof("Using config file: %s", cfgPath)

	settings, err := entities.NewSettings(cfgPath)
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	logger.Info("Starting kebechet run...")

	if runErr := it.command.Execute(ctx, settings, commands.RunOptions{
		Verbose:     verbose,
		ManagerName: managerFilter,
	}); runErr != nil {
		logger.Errorf("Run failed: %v", runErr)
	}
}

// AddFlags adds the run-specific flags to the given Cobra command.
func (it *RunController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("manager", "", "Only run this manager (update, info, version)")
}
