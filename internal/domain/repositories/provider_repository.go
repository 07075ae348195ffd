package repositories

import (
	"context"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// ProviderRepository is the closed capability contract every supported Git
// hosting service implements. The engine drives proposed changes, sentinel
// issues, and branch cleanup exclusively through this surface; anything a
// service cannot express does not exist for the engine.
type ProviderRepository interface {
	Name() string

	// CloneURL returns the HTTPS clone URL for the project, with credentials
	// embedded so the worktree layer can push.
	CloneURL(project entities.Project) string

	// ListOpenChanges returns every open proposed change whose source branch
	// equals sourceBranch, scoped to the project.
	ListOpenChanges(
		ctx context.Context, project entities.Project, sourceBranch string,
	) ([]entities.ChangeRef, error)

	// CreateChange opens a proposed change and returns its number.
	CreateChange(
		ctx context.Context, project entities.Project, input entities.ChangeInput,
	) (int, error)

	// AddChangeComment appends a comment to an open proposed change.
	AddChangeComment(
		ctx context.Context, project entities.Project, number int, text string,
	) error

	ListOpenIssues(ctx context.Context, project entities.Project) ([]entities.IssueRef, error)
	OpenIssue(
		ctx context.Context, project entities.Project, title, body string, labels []string,
	) (int, error)
	ListIssueComments(
		ctx context.Context, project entities.Project, number int,
	) ([]string, error)
	AddIssueComment(
		ctx context.Context, project entities.Project, number int, text string,
	) error
	CloseIssue(
		ctx context.Context, project entities.Project, number int, closingComment string,
	) error

	ListBranches(ctx context.Context, project entities.Project) ([]string, error)
	DeleteBranch(ctx context.Context, project entities.Project, name string) error
}
