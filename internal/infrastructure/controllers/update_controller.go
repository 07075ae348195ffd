package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thoth-station/kebechet/internal/domain/commands"
	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// UpdateController handles the "update" subcommand (single repository mode).
type UpdateController struct {
	command commands.Update
}

// NewUpdateController creates a new UpdateController.
func NewUpdateController(command commands.Update) *UpdateController {
	return &UpdateController{command: command}
}

// GetBind returns the Cobra command metadata for the update controller.
func (it *UpdateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "update",
		Short: "Run one manager against a single repository",
		Long: `Run one manager against a single repository, configured from flags
instead of a configuration file. Defaults to the update manager.`,
	}
}

// Execute runs the single-repository mode.
func (it *UpdateController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	slug, _ := cmd.Flags().GetString("slug")
	serviceType, _ := cmd.Flags().GetString("service")
	serviceURL, _ := cmd.Flags().GetString("service-url")
	branch, _ := cmd.Flags().GetString("branch")
	labels, _ := cmd.Flags().GetStringArray("label")
	managerName, _ := cmd.Flags().GetString("manager")
	token, _ := cmd.Flags().GetString("token")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if err := it.command.Execute(ctx, commands.UpdateOptions{
		Slug:        slug,
		ServiceType: serviceType,
		ServiceURL:  serviceURL,
		Token:       token,
		Branch:      branch,
		Labels:      labels,
		ManagerName: managerName,
		Verbose:     verbose,
	}); err != nil {
		logger.Errorf("Update failed: %v", err)
	}
}

// AddFlags adds the update-specific flags to the given Cobra command.
func (it *UpdateController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("slug", "", "Repository to process, as \"owner/name\" (required)")
	cmd.Flags().String("service", "github", "Hosting service type (github, gitlab)")
	cmd.Flags().String("service-url", "", "Base URL of a self-hosted instance")
	cmd.Flags().String("branch", "", "Default branch to reconcile against (default \"master\")")
	cmd.Flags().StringArray("label", nil, "Label applied to opened changes and issues (repeatable)")
	cmd.Flags().String("manager", "update", "Manager to run (update, info, version)")
	_ = cmd.MarkFlagRequired("slug")
}
