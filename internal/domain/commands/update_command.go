package commands

import (
	"context"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	infraRepos "github.com/thoth-station/kebechet/internal/infrastructure/repositories"
)

const (
	serviceGitHub = "github"
	serviceGitLab = "gitlab"
)

// Update is the interface for the update command (single repository mode).
type Update interface {
	Execute(ctx context.Context, opts UpdateOptions) error
}

// UpdateOptions holds runtime options for a single-repository run.
type UpdateOptions struct {
	Slug        string
	ServiceType string
	ServiceURL  string
	Token       string
	Branch      string
	Labels      []string
	ManagerName string
	Verbose     bool
}

// UpdateCommand runs one manager against one repository, configured entirely
// from flags. Useful for one-off runs and for debugging a single repository
// out of a larger configuration.
type UpdateCommand struct {
	providerRegistry *infraRepos.ProviderRegistry
	managerRegistry  *infraRepos.ManagerRegistry
}

// NewUpdateCommand creates a new UpdateCommand with the given registries.
func NewUpdateCommand(
	providerRegistry *infraRepos.ProviderRegistry,
	managerRegistry *infraRepos.ManagerRegistry,
) *UpdateCommand {
	return &UpdateCommand{
		providerRegistry: providerRegistry,
		managerRegistry:  managerRegistry,
	}
}

// Execute is the entry point for the single-repository mode.
func (it *UpdateCommand) Execute(ctx context.Context, opts UpdateOptions) error {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	serviceType := opts.ServiceType
	if serviceType == "" {
		serviceType = serviceGitHub
	}

	project, err := entities.NewProject(opts.Slug, serviceType, opts.ServiceURL, opts.Branch)
	if err != nil {
		return err
	}

	token := opts.Token
	if token == "" {
		token = resolveTokenFromEnv(serviceType)
	}
	if token == "" {
		return fmt.Errorf(
			"no auth token found for %s; set --token or the appropriate env var (%s)",
			serviceType, tokenEnvHint(serviceType),
		)
	}

	provider, err := it.providerRegistry.Get(serviceType, token, opts.ServiceURL, true)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	managerName := opts.ManagerName
	if managerName == "" {
		managerName = "update"
	}
	manager := it.managerRegistry.Get(managerName)
	if manager == nil {
		return fmt.Errorf(
			"unknown manager %q (available: %v)", managerName, it.managerRegistry.Names())
	}

	logger.Infof("[%s] Running on %s", manager.Name(), project.Slug)

	result, err := manager.Run(ctx, provider, project, entities.UpdateOptions{
		Labels: opts.Labels,
	})
	if err != nil {
		return fmt.Errorf("failed to run manager %q on %s: %w", manager.Name(), project.Slug, err)
	}

	for name, update := range result {
		logger.Infof("[%s]   %s: %s -> %s (change #%d)",
			manager.Name(), name, update.OldVersion, update.NewVersion, update.ChangeNumber)
	}
	logger.Infof("[%s] Done: %d changes reconciled in %s", manager.Name(), len(result), project.Slug)
	return nil
}

func resolveTokenFromEnv(serviceType string) string {
	switch serviceType {
	case serviceGitHub:
		if t := os.Getenv("GITHUB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GH_TOKEN")
	case serviceGitLab:
		if t := os.Getenv("GITLAB_TOKEN"); t != "" {
			return t
		}
		return os.Getenv("GL_TOKEN")
	default:
		return ""
	}
}

func tokenEnvHint(serviceType string) string {
	switch serviceType {
	case serviceGitHub:
		return "GITHUB_TOKEN or GH_TOKEN"
	case serviceGitLab:
		return "GITLAB_TOKEN or GL_TOKEN"
	default:
		return "<unknown service>"
	}
}
