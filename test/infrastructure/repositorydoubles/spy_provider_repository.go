//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. These are hand-crafted implementations — no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"fmt"

	"github.com/thoth-station/kebechet/internal/domain/entities"
	"github.com/thoth-station/kebechet/internal/domain/repositories"
)

// OpenedIssue records a single OpenIssue invocation.
type OpenedIssue struct {
	Title  string
	Body   string
	Labels []string
}

// SpyProviderRepository implements repositories.ProviderRepository as a
// stateful spy: opened issues and (optionally) created changes feed back into
// the listing calls, so a test can drive the engine across a full run, or two.
type SpyProviderRepository struct {
	// --- identity ---
	ProviderName string
	Clone        string

	// --- changes ---
	OpenChanges      map[string][]entities.ChangeRef // source branch -> open changes
	ListChangesErr   error
	CreateChangeErr  error
	CreatedChanges   []entities.ChangeInput
	ChangeComments   map[int][]string
	AddCommentErr    error
	NextNumber       int    // number of the next created change or issue, 1 when unset
	NewChangeBaseSHA string // when set, created changes re-appear in OpenChanges with this base

	// --- issues ---
	Issues          []entities.IssueRef
	ListIssuesErr   error
	OpenIssueErr    error
	OpenedIssues    []OpenedIssue
	IssueComments   map[int][]string
	IssueCommentErr error
	ClosedIssues    map[int]string // issue number -> closing comment
	CloseIssueErr   error

	// --- branches ---
	Branches         []string
	ListBranchesErr  error
	DeleteBranchErrs map[string]error // per-branch failures
	DeletedBranches  []string
}

var _ repositories.ProviderRepository = (*SpyProviderRepository)(nil)

func (p *SpyProviderRepository) Name() string {
	if p.ProviderName == "" {
		return "spy"
	}
	return p.ProviderName
}

func (p *SpyProviderRepository) CloneURL(project entities.Project) string {
	if p.Clone != "" {
		return p.Clone
	}
	return fmt.Sprintf("https://example.com/%s.git", project.Slug)
}

func (p *SpyProviderRepository) ListOpenChanges(
	_ context.Context, _ entities.Project, sourceBranch string,
) ([]entities.ChangeRef, error) {
	if p.ListChangesErr != nil {
		return nil, p.ListChangesErr
	}
	return p.OpenChanges[sourceBranch], nil
}

func (p *SpyProviderRepository) CreateChange(
	_ context.Context, _ entities.Project, input entities.ChangeInput,
) (int, error) {
	if p.CreateChangeErr != nil {
		return 0, p.CreateChangeErr
	}
	number := p.nextNumber()
	p.CreatedChanges = append(p.CreatedChanges, input)

	if p.NewChangeBaseSHA != "" {
		if p.OpenChanges == nil {
			p.OpenChanges = map[string][]entities.ChangeRef{}
		}
		p.OpenChanges[input.SourceBranch] = append(p.OpenChanges[input.SourceBranch],
			entities.ChangeRef{
				Number:     number,
				BranchName: input.SourceBranch,
				BaseSHA:    p.NewChangeBaseSHA,
			})
	}
	return number, nil
}

func (p *SpyProviderRepository) AddChangeComment(
	_ context.Context, _ entities.Project, number int, text string,
) error {
	if p.AddCommentErr != nil {
		return p.AddCommentErr
	}
	if p.ChangeComments == nil {
		p.ChangeComments = map[int][]string{}
	}
	p.ChangeComments[number] = append(p.ChangeComments[number], text)
	return nil
}

func (p *SpyProviderRepository) ListOpenIssues(
	_ context.Context, _ entities.Project,
) ([]entities.IssueRef, error) {
	if p.ListIssuesErr != nil {
		return nil, p.ListIssuesErr
	}
	return p.Issues, nil
}

func (p *SpyProviderRepository) OpenIssue(
	_ context.Context, _ entities.Project, title, body string, labels []string,
) (int, error) {
	if p.OpenIssueErr != nil {
		return 0, p.OpenIssueErr
	}
	number := p.nextNumber()
	p.OpenedIssues = append(p.OpenedIssues, OpenedIssue{Title: title, Body: body, Labels: labels})
	p.Issues = append(p.Issues, entities.IssueRef{Number: number, Title: title, Body: body})
	return number, nil
}

func (p *SpyProviderRepository) ListIssueComments(
	_ context.Context, _ entities.Project, number int,
) ([]string, error) {
	return p.IssueComments[number], nil
}

func (p *SpyProviderRepository) AddIssueComment(
	_ context.Context, _ entities.Project, number int, text string,
) error {
	if p.IssueCommentErr != nil {
		return p.IssueCommentErr
	}
	if p.IssueComments == nil {
		p.IssueComments = map[int][]string{}
	}
	p.IssueComments[number] = append(p.IssueComments[number], text)
	return nil
}

func (p *SpyProviderRepository) CloseIssue(
	_ context.Context, _ entities.Project, number int, closingComment string,
) error {
	if p.CloseIssueErr != nil {
		return p.CloseIssueErr
	}
	if p.ClosedIssues == nil {
		p.ClosedIssues = map[int]string{}
	}
	p.ClosedIssues[number] = closingComment

	remaining := p.Issues[:0]
	for _, issue := range p.Issues {
		if issue.Number != number {
			remaining = append(remaining, issue)
		}
	}
	p.Issues = remaining
	return nil
}

func (p *SpyProviderRepository) ListBranches(
	_ context.Context, _ entities.Project,
) ([]string, error) {
	if p.ListBranchesErr != nil {
		return nil, p.ListBranchesErr
	}
	return p.Branches, nil
}

func (p *SpyProviderRepository) DeleteBranch(
	_ context.Context, _ entities.Project, name string,
) error {
	if err := p.DeleteBranchErrs[name]; err != nil {
		return err
	}
	p.DeletedBranches = append(p.DeletedBranches, name)
	return nil
}

// OpenIssueByTitle returns the currently open issue carrying the title, or nil.
func (p *SpyProviderRepository) OpenIssueByTitle(title string) *entities.IssueRef {
	for i := range p.Issues {
		if p.Issues[i].Title == title {
			return &p.Issues[i]
		}
	}
	return nil
}

func (p *SpyProviderRepository) nextNumber() int {
	if p.NextNumber == 0 {
		p.NextNumber = 1
	}
	number := p.NextNumber
	p.NextNumber++
	return number
}
