package github

import (
	"fmt"
	"strings"
)

// SyncBranch is the branch every sync pull request is opened from. Keeping
// it fixed makes re-runs land on the already open pull request.
const SyncBranch = "reposync/sync-files"

const defaultServerURL = "https://github.com"

// FailurePolicy decides what happens to the remaining sync groups after one fails
type FailurePolicy string

const (
	// FailurePolicyContinue stops the failing group and moves on to the next one
	FailurePolicyContinue FailurePolicy = "continue"

	// FailurePolicyFailFast aborts the whole run at the first failure
	FailurePolicyFailFast FailurePolicy = "fail-fast"
)

// ParseFailurePolicy parses a failure policy name. Empty selects continue.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailurePolicyContinue:
		return FailurePolicyContinue, nil
	case FailurePolicyFailFast:
		return FailurePolicyFailFast, nil
	default:
		return "", fmt.Errorf("invalid failure policy %q: must be one of: continue, fail-fast", s)
	}
}

// RunContext carries everything a sync run knows about its trigger
type RunContext struct {
	Source        RepoRef
	SHA           string
	RunID         string
	ServerURL     string
	ConfigFile    string
	DryRun        bool
	FailurePolicy FailurePolicy
}

// Validate checks that the run context identifies a source repository
func (rc RunContext) Validate() error {
	if rc.Source.Owner == "" || rc.Source.Repo == "" {
		return fmt.Errorf("%w: source repository must be owner/repo, got %q", ErrInvalidRepoReference, rc.Source.String())
	}
	if _, err := ParseFailurePolicy(string(rc.FailurePolicy)); err != nil {
		return err
	}
	return nil
}

func (rc RunContext) serverURL() string {
	if rc.ServerURL == "" {
		return defaultServerURL
	}
	return strings.TrimSuffix(rc.ServerURL, "/")
}

func (rc RunContext) configFile() string {
	if rc.ConfigFile == "" {
		return DefaultConfigFile
	}
	return rc.ConfigFile
}

// SourceURL links to the source repository
func (rc RunContext) SourceURL() string {
	return fmt.Sprintf("%s/%s", rc.serverURL(), rc.Source)
}

// CommitMessage is the message of every sync commit
func (rc RunContext) CommitMessage() string {
	return fmt.Sprintf("chore: sync files from %s", rc.Source)
}

// PullRequestTitle is the title of every sync pull request
func (rc RunContext) PullRequestTitle() string {
	return fmt.Sprintf("Sync files from %s", rc.Source)
}

// PullRequestBody links the pull request back to the source repository and the triggering run
func (rc RunContext) PullRequestBody() string {
	var b strings.Builder
	fmt.Fprintf(&b, "This pull request was opened by reposync to keep files in sync with [%s](%s).\n", rc.Source, rc.SourceURL())

	if rc.SHA != "" {
		fmt.Fprintf(&b, "\nSource commit: %s/commit/%s", rc.SourceURL(), rc.SHA)
	}
	if rc.RunID != "" {
		fmt.Fprintf(&b, "\nTriggered by: %s/actions/runs/%s", rc.SourceURL(), rc.RunID)
	}

	return b.String()
}
