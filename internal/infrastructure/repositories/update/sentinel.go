package update

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// Sentinel issues are keyed by their exact title: one open issue per failure
// category per repository, opened when the category first occurs and closed
// once it stops applying.

// findOpenIssue returns the first open issue carrying the exact title, or nil.
func findOpenIssue(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	title string,
) (*entities.IssueRef, error) {
	issues, err := provider.ListOpenIssues(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list open issues of %s: %w", project.Slug, err)
	}
	for _, issue := range issues {
		if issue.Title == title {
			return &issue, nil
		}
	}
	return nil, nil
}

// openIssueIfAbsent opens the issue unless one with the same title is already
// open. Used by sentinels whose body does not change between runs.
func openIssueIfAbsent(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	title, body string,
	labels []string,
) (int, error) {
	issue, err := findOpenIssue(ctx, provider, project, title)
	if err != nil {
		return 0, err
	}
	if issue != nil {
		return issue.Number, nil
	}

	number, err := provider.OpenIssue(ctx, project, title, body, labels)
	if err != nil {
		return 0, fmt.Errorf("failed to open issue %q: %w", title, err)
	}
	logger.Infof("[update] Opened issue #%d %q for %s", number, title, project.Slug)
	return number, nil
}

// openOrRefreshIssue keeps exactly one open sentinel issue per title. When
// the issue is absent it is opened with body; when it exists and neither its
// body nor any comment mentions sha, refresh is appended so the issue always
// reflects the newest failing head.
func openOrRefreshIssue(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	title, sha, body, refresh string,
	labels []string,
) (int, error) {
	issue, err := findOpenIssue(ctx, provider, project, title)
	if err != nil {
		return 0, err
	}
	if issue == nil {
		number, err := provider.OpenIssue(ctx, project, title, body, labels)
		if err != nil {
			return 0, fmt.Errorf("failed to open issue %q: %w", title, err)
		}
		logger.Infof("[update] Opened issue #%d %q for %s", number, title, project.Slug)
		return number, nil
	}

	if strings.Contains(issue.Body, sha) {
		return issue.Number, nil
	}
	comments, err := provider.ListIssueComments(ctx, project, issue.Number)
	if err != nil {
		return issue.Number, fmt.Errorf("failed to list comments of issue #%d: %w", issue.Number, err)
	}
	for _, comment := range comments {
		if strings.Contains(comment, sha) {
			return issue.Number, nil
		}
	}

	if err := provider.AddIssueComment(ctx, project, issue.Number, refresh); err != nil {
		return issue.Number, fmt.Errorf("failed to comment on issue #%d: %w", issue.Number, err)
	}
	logger.Infof("[update] Refreshed issue #%d %q for %s", issue.Number, title, project.Slug)
	return issue.Number, nil
}

// closeIssueIfExists closes the open issue carrying the title, leaving the
// standard closing comment. A missing issue is not an error.
func closeIssueIfExists(
	ctx context.Context,
	provider repositories.ProviderRepository,
	project entities.Project,
	title, sha string,
) error {
	issue, err := findOpenIssue(ctx, provider, project, title)
	if err != nil {
		return err
	}
	if issue == nil {
		return nil
	}

	if err := provider.CloseIssue(ctx, project, issue.Number, entities.RenderCloseComment(sha)); err != nil {
		return fmt.Errorf("failed to close issue #%d: %w", issue.Number, err)
	}
	logger.Infof("[update] Closed issue #%d %q for %s", issue.Number, title, project.Slug)
	return nil
}
