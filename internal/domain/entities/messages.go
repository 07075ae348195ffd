package entities

import (
	"fmt"
	"strings"
)

// Titles keying the sentinel issues. At most one open issue per title exists
// per repository; the engine opens them on failure and closes them once the
// corresponding failure category stops recurring.
const (
	IssueTitleUpdateAll    = "Failed to update dependencies to their latest version"
	IssueTitleInitialLock  = "Failed to perform initial lock of software stack"
	IssueTitleReplicateEnv = "Failed to replicate environment for updates"
	IssueTitleNoManagement = "No dependency management found"
	IssueTitleInfo         = "Kebechet info"
)

// Issue-title prefixes used by the version manager when an automated release
// cannot be performed. The requested version is appended to form the full
// title.
const (
	IssueTitleNoVersionPrefix    = "No version identifier found in sources to release "
	IssueTitleManyVersionsPrefix = "Multiple version identifiers found in sources to release "
)

// Commit messages used by the proposing flows.
const (
	CommitMessageInitialLock = "Initial dependency lock"
	CommitMessageRelock      = "Automatic dependency re-locking"
)

// ParseReleaseRequest extracts the requested version from an issue title of
// the form "<version> release". Any other title is not a release request.
func ParseReleaseRequest(title string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(title))
	if len(parts) != 2 || parts[1] != "release" {
		return "", false
	}
	return parts[0], true
}

// ResolverFailureReport is the typed payload rendered into sentinel issue
// bodies and refresh comments. Keeping it a plain struct keeps the templates
// decoupled from error internals.
type ResolverFailureReport struct {
	SHA             string
	Slug            string
	File            string // Manifest involved, used by the initial-lock body
	Command         string
	Stdout          string
	Stderr          string
	Environment     string
	DependencyGraph string
}

// NewResolverFailureReport seeds a report from a resolver error; callers fill
// in the environment and dependency-graph sections afterwards.
func NewResolverFailureReport(sha, slug string, resolverErr *ResolverError) ResolverFailureReport {
	return ResolverFailureReport{
		SHA:     sha,
		Slug:    slug,
		Command: resolverErr.Command,
		Stdout:  resolverErr.Stdout,
		Stderr:  resolverErr.Stderr,
	}
}

func renderDiagnostics(r ResolverFailureReport) string {
	var sb strings.Builder

	sb.WriteString("##### Command\n\n```\n  $ ")
	sb.WriteString(r.Command)
	sb.WriteString("\n```\n\n")

	writeDetails(&sb, "Standard output", r.Stdout)
	writeDetails(&sb, "Standard error", r.Stderr)
	writeDetails(&sb, "Environment details", r.Environment)
	if r.DependencyGraph != "" {
		writeDetails(&sb, "Dependency graph", r.DependencyGraph)
	}

	return sb.String()
}

func writeDetails(sb *strings.Builder, summary, body string) {
	sb.WriteString("<details>\n  <summary>")
	sb.WriteString(summary)
	sb.WriteString("</summary>\n\n```\n")
	sb.WriteString(body)
	sb.WriteString("\n```\n\n</details>\n\n")
}

// RenderUpdateAllFailure builds the body of the update-all sentinel issue.
func RenderUpdateAllFailure(r ResolverFailureReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"Automatic dependency update failed for the current master with SHA %s.\n\n"+
			"The automatic dependency management cannot continue. Please fix errors reported bellow.\n\n",
		r.SHA)
	sb.WriteString(renderDiagnostics(r))
	fmt.Fprintf(&sb,
		"##### Notes\n\n"+
			"For more information, see [Pipfile](/%s/blob/%s/Pipfile) and [Pipfile.lock](/%s/blob/%s/Pipfile.lock).\n\n"+
			"Once this issue is resolved, the issue will be automatically closed by bot.\n",
		r.Slug, r.SHA, r.Slug, r.SHA)
	return sb.String()
}

// RenderRefreshComment builds the comment posted on an already open sentinel
// issue when the default branch moved but the failure persists.
func RenderRefreshComment(r ResolverFailureReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"Automatic dependency update still failing for the current master with SHA %s.\n\n", r.SHA)
	sb.WriteString(renderDiagnostics(r))
	return sb.String()
}

// RenderInitialLockFailure builds the body of the initial-lock sentinel issue.
func RenderInitialLockFailure(r ResolverFailureReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"Failed to perform the initial lock of the software stack from %s "+
			"for the current master with SHA %s.\n\n",
		r.File, r.SHA)
	sb.WriteString(renderDiagnostics(r))
	sb.WriteString("Once this issue is resolved, the issue will be automatically closed by bot.\n")
	return sb.String()
}

// RenderReplicateEnvFailure builds the body of the relock sentinel issue,
// opened when the previously locked environment cannot be reproduced.
func RenderReplicateEnvFailure(r ResolverFailureReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb,
		"Failed to replicate the locked environment for the current master with SHA %s. "+
			"A re-lock of all dependencies will be proposed instead of separate updates.\n\n",
		r.SHA)
	sb.WriteString(renderDiagnostics(r))
	return sb.String()
}

// RenderNoManagementBody is the static body of the no-dependency-management
// sentinel issue.
func RenderNoManagementBody() string {
	return "No dependency management found in this repository. " +
		"Please add a Pipfile or a requirements.in file so dependencies can be managed, " +
		"or disable the update manager for this repository.\n"
}

// RenderInfoReport builds the report used to close a "Kebechet info" issue.
func RenderInfoReport(sha, slug, environment, dependencyGraph string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Report for [%s](/%s) at SHA %s.\n\n", slug, slug, sha)
	writeDetails(&sb, "Environment details", environment)
	writeDetails(&sb, "Dependency graph", dependencyGraph)
	return sb.String()
}

// RenderCloseComment builds the fixed comment left when a sentinel issue is
// closed because its failure category no longer applies.
func RenderCloseComment(sha string) string {
	return fmt.Sprintf(
		"Closing this issue as it is no longer relevant for the current master with SHA %s.", sha)
}

// RenderRebaseComment is appended to an existing change after its branch was
// recreated on top of a moved default branch.
func RenderRebaseComment(sha string) string {
	return fmt.Sprintf("Pull request has been rebased on top of the current master with SHA %s", sha)
}

// RenderUpdateBody builds the body of a single-dependency update change.
func RenderUpdateBody(name, oldVersion, newVersion string) string {
	return fmt.Sprintf(
		"Dependency %s was used in version %s, but the current latest version is %s.",
		name, oldVersion, newVersion)
}

// RenderRelockBody builds the body of the full-relock change, linking it to
// the sentinel issue that triggered it.
func RenderRelockBody(issueNumber int) string {
	return fmt.Sprintf("Fixes: #%d", issueNumber)
}

// ReleaseTitle is both the title of a release change and its commit message.
func ReleaseTitle(version string) string {
	return fmt.Sprintf("Release of version %s", version)
}

// RenderReleaseBody links a release change back to the issue requesting it.
func RenderReleaseBody(issueNumber int) string {
	return fmt.Sprintf("Fixes: #%d", issueNumber)
}

// RenderReleaseFailureBody builds the body of the release-failure issues.
func RenderReleaseFailureBody(issueNumber int) string {
	return fmt.Sprintf(
		"Automated version release cannot be performed.\nRelated: #%d", issueNumber)
}

// RenderIrrelevantComment is the closing comment for failure issues made
// obsolete by a later successful release.
func RenderIrrelevantComment() string {
	return "Closing as this issue is no longer relevant."
}

// CommitMessageUpdate builds the commit message for a single-dependency
// update.
func CommitMessageUpdate(name, oldVersion, newVersion string) string {
	return fmt.Sprintf("Automatic update of dependency %s from %s to %s", name, oldVersion, newVersion)
}
