package github

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

const (
	providerName = "github"
	perPage      = 100
)

var errClientNotInitialized = errors.New("github client not initialized")

// GitHubProviderRepository implements repositories.ProviderRepository for
// GitHub and GitHub Enterprise.
type GitHubProviderRepository struct {
	token   string
	baseURL string
	client  *gh.Client
}

// NewGitHubProviderRepository creates a new GitHub provider. baseURL is empty
// for github.com or the root URL of an enterprise instance.
func NewGitHubProviderRepository(token, baseURL string, verifyTLS bool) repositories.ProviderRepository {
	client := gh.NewClient(newHTTPClient(verifyTLS)).WithAuthToken(token)

	if baseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			// Return a provider that will fail on use rather than panicking at construction
			return &GitHubProviderRepository{token: token, baseURL: baseURL, client: nil}
		}
		client = enterprise
	}

	return &GitHubProviderRepository{
		token:   token,
		baseURL: baseURL,
		client:  client,
	}
}

func newHTTPClient(verifyTLS bool) *http.Client {
	if verifyTLS {
		return nil // go-github falls back to http.DefaultClient
	}
	//nolint:gosec // Disabled explicitly through the tls_verify config knob
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

func (p *GitHubProviderRepository) Name() string { return providerName }

// CloneURL embeds the token so pushes authenticate without extra credential
// wiring.
func (p *GitHubProviderRepository) CloneURL(project entities.Project) string {
	base := "https://github.com"
	if p.baseURL != "" {
		base = strings.TrimSuffix(p.baseURL, "/")
	}
	return strings.Replace(
		fmt.Sprintf("%s/%s.git", base, project.Slug),
		"https://",
		"https://x-access-token:"+p.token+"@",
		1,
	)
}

// ListOpenChanges returns open pull requests whose head equals sourceBranch.
func (p *GitHubProviderRepository) ListOpenChanges(
	ctx context.Context,
	project entities.Project,
	sourceBranch string,
) ([]entities.ChangeRef, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	prs, _, err := p.client.PullRequests.List(
		ctx, project.Owner, project.Name,
		&gh.PullRequestListOptions{
			Head:  project.Owner + ":" + sourceBranch,
			State: "open",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	refs := make([]entities.ChangeRef, 0, len(prs))
	for _, pr := range prs {
		refs = append(refs, entities.ChangeRef{
			Number:     pr.GetNumber(),
			BranchName: pr.GetHead().GetRef(),
			BaseSHA:    pr.GetBase().GetSHA(),
		})
	}
	return refs, nil
}

// CreateChange opens a pull request and applies the configured labels.
func (p *GitHubProviderRepository) CreateChange(
	ctx context.Context,
	project entities.Project,
	input entities.ChangeInput,
) (int, error) {
	if p.client == nil {
		return 0, errClientNotInitialized
	}

	targetBranch := input.TargetBranch
	if targetBranch == "" {
		targetBranch = project.DefaultBranch
	}

	maintainerCanModify := true
	pr, _, err := p.client.PullRequests.Create(
		ctx, project.Owner, project.Name,
		&gh.NewPullRequest{
			Title:               &input.Title,
			Head:                &input.SourceBranch,
			Base:                &targetBranch,
			Body:                &input.Body,
			MaintainerCanModify: &maintainerCanModify,
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create pull request: %w", err)
	}

	if len(input.Labels) > 0 {
		// Pull requests are issues as far as labels are concerned.
		_, _, labelErr := p.client.Issues.AddLabelsToIssue(
			ctx, project.Owner, project.Name, pr.GetNumber(), input.Labels,
		)
		if labelErr != nil {
			return pr.GetNumber(), fmt.Errorf("failed to add labels: %w", labelErr)
		}
	}

	return pr.GetNumber(), nil
}

// AddChangeComment comments on a pull request through the issues API.
func (p *GitHubProviderRepository) AddChangeComment(
	ctx context.Context,
	project entities.Project,
	number int,
	text string,
) error {
	return p.createComment(ctx, project, number, text)
}

// ListOpenIssues returns every open issue, excluding pull requests.
func (p *GitHubProviderRepository) ListOpenIssues(
	ctx context.Context,
	project entities.Project,
) ([]entities.IssueRef, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	var refs []entities.IssueRef
	opts := &gh.IssueListByRepoOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		issues, resp, err := p.client.Issues.ListByRepo(ctx, project.Owner, project.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			refs = append(refs, entities.IssueRef{
				Number: issue.GetNumber(),
				Title:  issue.GetTitle(),
				Body:   issue.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return refs, nil
}

// OpenIssue creates an issue and returns its number.
func (p *GitHubProviderRepository) OpenIssue(
	ctx context.Context,
	project entities.Project,
	title, body string,
	labels []string,
) (int, error) {
	if p.client == nil {
		return 0, errClientNotInitialized
	}

	request := &gh.IssueRequest{
		Title: &title,
		Body:  &body,
	}
	if len(labels) > 0 {
		request.Labels = &labels
	}

	issue, _, err := p.client.Issues.Create(ctx, project.Owner, project.Name, request)
	if err != nil {
		return 0, fmt.Errorf("failed to create issue: %w", err)
	}
	return issue.GetNumber(), nil
}

// ListIssueComments returns the comment bodies of an issue, oldest first.
func (p *GitHubProviderRepository) ListIssueComments(
	ctx context.Context,
	project entities.Project,
	number int,
) ([]string, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	var bodies []string
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		comments, resp, err := p.client.Issues.ListComments(
			ctx, project.Owner, project.Name, number, opts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list issue comments: %w", err)
		}

		for _, comment := range comments {
			bodies = append(bodies, comment.GetBody())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return bodies, nil
}

// AddIssueComment appends a comment to an issue.
func (p *GitHubProviderRepository) AddIssueComment(
	ctx context.Context,
	project entities.Project,
	number int,
	text string,
) error {
	return p.createComment(ctx, project, number, text)
}

// CloseIssue leaves the closing comment and closes the issue.
func (p *GitHubProviderRepository) CloseIssue(
	ctx context.Context,
	project entities.Project,
	number int,
	closingComment string,
) error {
	if p.client == nil {
		return errClientNotInitialized
	}

	if closingComment != "" {
		if err := p.createComment(ctx, project, number, closingComment); err != nil {
			return err
		}
	}

	closed := "closed"
	_, _, err := p.client.Issues.Edit(
		ctx, project.Owner, project.Name, number,
		&gh.IssueRequest{State: &closed},
	)
	if err != nil {
		return fmt.Errorf("failed to close issue #%d: %w", number, err)
	}
	return nil
}

// ListBranches returns the names of every remote branch.
func (p *GitHubProviderRepository) ListBranches(
	ctx context.Context,
	project entities.Project,
) ([]string, error) {
	if p.client == nil {
		return nil, errClientNotInitialized
	}

	var names []string
	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		branches, resp, err := p.client.Repositories.ListBranches(
			ctx, project.Owner, project.Name, opts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}

		for _, branch := range branches {
			names = append(names, branch.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// DeleteBranch removes a remote branch.
func (p *GitHubProviderRepository) DeleteBranch(
	ctx context.Context,
	project entities.Project,
	name string,
) error {
	if p.client == nil {
		return errClientNotInitialized
	}

	_, err := p.client.Git.DeleteRef(ctx, project.Owner, project.Name, "heads/"+name)
	if err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", name, err)
	}
	return nil
}

func (p *GitHubProviderRepository) createComment(
	ctx context.Context,
	project entities.Project,
	number int,
	text string,
) error {
	if p.client == nil {
		return errClientNotInitialized
	}

	_, _, err := p.client.Issues.CreateComment(
		ctx, project.Owner, project.Name, number,
		&gh.IssueComment{Body: &text},
	)
	if err != nil {
		return fmt.Errorf("failed to comment on #%d: %w", number, err)
	}
	return nil
}
