package entities

import "fmt"

const branchPrefix = "kebechet"

// Fixed branch names used by the recovery flows.
const (
	InitialLockBranch = branchPrefix + "-initial-lock"
	RelockBranch      = branchPrefix + "-dependency-relock"
)

// ChangeRef points at an open proposed change (pull/merge request) whose
// source branch follows the deterministic naming scheme. The engine reads and
// updates these through the hosting provider but never owns their storage.
type ChangeRef struct {
	Number     int
	BranchName string
	BaseSHA    string // Default-branch commit the change was based on
}

// ChangeInput carries everything needed to open a proposed change.
type ChangeInput struct {
	Title        string
	SourceBranch string
	TargetBranch string
	Body         string
	Labels       []string
}

// IssueRef is an open issue as seen through the hosting provider.
type IssueRef struct {
	Number int
	Title  string
	Body   string
}

// ChangeState classifies an existing proposed change against the current
// default-branch head.
type ChangeState string

const (
	// ChangeStateMissing means no open change exists for the branch.
	ChangeStateMissing ChangeState = "missing"
	// ChangeStateUpToDate means one open change exists, based on the current head.
	ChangeStateUpToDate ChangeState = "up-to-date"
	// ChangeStateStale means one open change exists, based on an older head.
	ChangeStateStale ChangeState = "stale"
)

// OutcomeKind is the terminal classification of one reconciliation attempt.
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeRebased OutcomeKind = "rebased"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// ReconciliationOutcome records what happened to a single delta.
type ReconciliationOutcome struct {
	Kind         OutcomeKind
	ChangeNumber int
	Err          error
}

// BranchPrefix returns the prefix (including the trailing dash) shared by
// every branch this engine pushes. Branch reaping only ever touches branches
// carrying this prefix.
func BranchPrefix() string {
	return branchPrefix + "-"
}

// UpdateBranchName derives the branch name for a single-dependency update.
// It is a pure function of its inputs: the same package and target version
// always map to the same branch, which is the sole identity key used to
// detect an already proposed update.
func UpdateBranchName(name, newVersion string) string {
	return fmt.Sprintf("%s-%s-%s", branchPrefix, name, newVersion)
}

// ReleaseBranchName derives the branch for a version release. Release
// branches carry no engine prefix, so the branch reaper never touches them.
func ReleaseBranchName(version string) string {
	return "v" + version
}

// BranchName returns the deterministic branch name for this delta.
func (d DependencyDelta) BranchName() string {
	return UpdateBranchName(d.Name, d.NewVersion)
}
