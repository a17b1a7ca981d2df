package github

import (
	"context"
	"fmt"
	"log/slog"
)

// Syncer drives one sync run from the configuration to every destination
type Syncer interface {
	// Run loads the sync configuration and opens pull requests for every
	// sync group. The returned result is non-nil whenever the configuration
	// was loaded, even if the run failed.
	Run(ctx context.Context) (*SyncResult, error)
}

// syncer implements the Syncer interface
type syncer struct {
	run        RunContext
	loader     *ConfigLoader
	fetcher    *FileFetcher
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewSyncer creates a new syncer for the given run
func NewSyncer(client APIClient, run RunContext, logger *slog.Logger) Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source", run.Source.String())

	return &syncer{
		run:        run,
		loader:     NewConfigLoader(client, run.Source, run.SHA, logger),
		fetcher:    NewFileFetcher(client, logger),
		dispatcher: NewDispatcher(client, run, logger),
		logger:     logger,
	}
}

// Run executes the sync. Groups and destinations are processed sequentially
// in configuration order.
func (s *syncer) Run(ctx context.Context) (*SyncResult, error) {
	if err := s.run.Validate(); err != nil {
		return nil, err
	}

	config, err := s.loader.Load(ctx, s.run.configFile())
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Results: make([]DestinationResult, 0),
		Summary: SyncSummary{Groups: len(config.Syncs)},
	}

	syncErr := &SyncError{}
	for i, group := range config.Syncs {
		groupNum := i + 1

		dest, err := s.syncGroup(ctx, groupNum, group, result)
		if err == nil {
			syncErr.Succeeded = append(syncErr.Succeeded, groupNum)
			continue
		}

		result.Summary.FailedGroups++
		s.logger.ErrorContext(ctx, "sync group failed", "group", groupNum, "error", err)

		if s.run.FailurePolicy == FailurePolicyFailFast {
			return result, fmt.Errorf("sync group %d: %w", groupNum, err)
		}

		syncErr.Failed = append(syncErr.Failed, GroupFailure{Group: groupNum, Destination: dest, Err: err})
	}

	if len(syncErr.Failed) > 0 {
		return result, syncErr
	}

	return result, nil
}

// syncGroup fetches a group's files once and dispatches them to each destination.
// On failure it returns the destination that was being processed, if any.
func (s *syncer) syncGroup(ctx context.Context, groupNum int, group SyncGroup, result *SyncResult) (RepoRef, error) {
	log := s.logger.With("group", groupNum)
	log.InfoContext(ctx, "processing sync group", "files", len(group.Files), "repos", len(group.Repos))

	files, err := s.fetcher.FetchAll(ctx, s.run.Source, s.run.SHA, group.Files)
	if err != nil {
		return RepoRef{}, err
	}

	changes := BuildChangeSet(s.run.CommitMessage(), files)
	if changes.IsEmpty() {
		log.WarnContext(ctx, "no source files could be fetched for sync group")
	}

	for _, repo := range group.Repos {
		if err := ctx.Err(); err != nil {
			return RepoRef{}, err
		}

		dest, err := ParseRepoRef(repo, s.run.Source.Owner)
		if err != nil {
			return RepoRef{}, err
		}

		outcome, err := s.dispatcher.Dispatch(ctx, dest, changes)
		if err != nil {
			return dest, err
		}

		result.record(groupNum, dest, outcome)
	}

	return RepoRef{}, nil
}
