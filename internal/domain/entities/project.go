package entities

import (
	"fmt"
	"strings"
)

const slugParts = 2

// Project is the immutable run context for one managed repository: its
// identity on the hosting service plus the default branch every change is
// proposed against. It is passed explicitly to every component call; there is
// no process-wide repository state.
type Project struct {
	Slug          string // "owner/name"
	Owner         string
	Name          string
	ServiceType   string // "github" or "gitlab"
	ServiceURL    string // Empty for the public instance
	DefaultBranch string
}

// NewProject builds a Project from an "owner/name" slug.
func NewProject(slug, serviceType, serviceURL, defaultBranch string) (Project, error) {
	parts := strings.SplitN(slug, "/", slugParts)
	if len(parts) != slugParts || parts[0] == "" || parts[1] == "" {
		return Project{}, fmt.Errorf("invalid repository slug %q, expected \"owner/name\"", slug)
	}

	if defaultBranch == "" {
		defaultBranch = "master"
	}

	return Project{
		Slug:          slug,
		Owner:         parts[0],
		Name:          parts[1],
		ServiceType:   serviceType,
		ServiceURL:    serviceURL,
		DefaultBranch: defaultBranch,
	}, nil
}
