package github

import (
	"context"
	"fmt"
)

// APIClient defines the GitHub operations a sync run depends on
type APIClient interface {
	// Content operations
	GetContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error)

	// Repository operations
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)

	// CreatePullRequest commits the change set to opts.Branch and opens a pull
	// request for it. A nil result with a nil error means there was nothing to
	// commit.
	CreatePullRequest(ctx context.Context, opts PullRequestOptions) (*PullRequest, error)
}

// OutcomeKind represents how a destination was resolved during a sync
type OutcomeKind string

const (
	OutcomeCreated       OutcomeKind = "created"
	OutcomeNoChanges     OutcomeKind = "no_changes"
	OutcomeAlreadyExists OutcomeKind = "already_exists"
	OutcomeDryRun        OutcomeKind = "dry_run"
)

// PullRequestOutcome is the result of dispatching a change set to one destination
type PullRequestOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	Number int         `json:"number,omitempty"`
	URL    string      `json:"url,omitempty"`
}

// String returns a short human readable form of the outcome
func (o PullRequestOutcome) String() string {
	if o.Kind == OutcomeCreated {
		return fmt.Sprintf("created #%d", o.Number)
	}
	return string(o.Kind)
}

// DestinationResult pairs a destination with its outcome
type DestinationResult struct {
	Group       int                `json:"group"`
	Destination RepoRef            `json:"destination"`
	Outcome     PullRequestOutcome `json:"outcome"`
}

// SyncSummary provides aggregate statistics for a sync run
type SyncSummary struct {
	Groups        int `json:"groups"`
	Destinations  int `json:"destinations"`
	Created       int `json:"created"`
	NoChanges     int `json:"no_changes"`
	AlreadyExists int `json:"already_exists"`
	DryRun        int `json:"dry_run"`
	FailedGroups  int `json:"failed_groups"`
}

// SyncResult contains the outcome of every destination reached during a run
type SyncResult struct {
	Results []DestinationResult `json:"results"`
	Summary SyncSummary         `json:"summary"`
}

func (r *SyncResult) record(group int, dest RepoRef, outcome PullRequestOutcome) {
	r.Results = append(r.Results, DestinationResult{Group: group, Destination: dest, Outcome: outcome})
	r.Summary.Destinations++

	switch outcome.Kind {
	case OutcomeCreated:
		r.Summary.Created++
	case OutcomeNoChanges:
		r.Summary.NoChanges++
	case OutcomeAlreadyExists:
		r.Summary.AlreadyExists++
	case OutcomeDryRun:
		r.Summary.DryRun++
	}
}
