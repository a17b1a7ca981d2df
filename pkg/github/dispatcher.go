package github

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher opens sync pull requests on destination repositories
type Dispatcher struct {
	client APIClient
	run    RunContext
	logger *slog.Logger
}

// NewDispatcher creates a new dispatcher for a run
func NewDispatcher(client APIClient, run RunContext, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client: client,
		run:    run,
		logger: logger,
	}
}

// Dispatch submits changes to dest as a pull request from SyncBranch.
// An existing sync branch and an empty diff are reported as outcomes, every
// other provider failure is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, dest RepoRef, changes ChangeSet) (PullRequestOutcome, error) {
	log := d.logger.With("destination", dest.String(), "branch", SyncBranch, "files", len(changes.Files))

	if d.run.DryRun {
		log.InfoContext(ctx, "dry run, skipping pull request")
		return PullRequestOutcome{Kind: OutcomeDryRun}, nil
	}

	pr, err := d.client.CreatePullRequest(ctx, PullRequestOptions{
		Repo:    dest,
		Branch:  SyncBranch,
		Title:   d.run.PullRequestTitle(),
		Body:    d.run.PullRequestBody(),
		Changes: changes,
	})
	if err != nil {
		if IsAlreadyExists(err) {
			log.InfoContext(ctx, "sync branch already exists, pull request is already open")
			return PullRequestOutcome{Kind: OutcomeAlreadyExists}, nil
		}
		log.ErrorContext(ctx, "failed to create pull request", "error", err)
		return PullRequestOutcome{}, fmt.Errorf("failed to create pull request for %s: %w", dest, err)
	}

	if pr == nil {
		log.InfoContext(ctx, "no changes to sync")
		return PullRequestOutcome{Kind: OutcomeNoChanges}, nil
	}

	log.InfoContext(ctx, "pull request created", "number", pr.Number, "url", pr.URL)
	return PullRequestOutcome{Kind: OutcomeCreated, Number: pr.Number, URL: pr.URL}, nil
}
