package github

import (
	"context"
	"fmt"
	"log/slog"
)

// DestinationCheck is the validation outcome for one destination repository
type DestinationCheck struct {
	Group       int         `json:"group"`
	Repo        string      `json:"repo"`
	Destination RepoRef     `json:"destination"`
	Repository  *Repository `json:"repository,omitempty"`
	Err         error       `json:"-"`
}

// ValidationResult collects destination checks for a whole sync configuration
type ValidationResult struct {
	Checks []DestinationCheck `json:"checks"`
}

// Valid reports whether every destination passed
func (r *ValidationResult) Valid() bool {
	return len(r.Failures()) == 0
}

// Failures returns the checks that did not pass
func (r *ValidationResult) Failures() []DestinationCheck {
	var failed []DestinationCheck
	for _, check := range r.Checks {
		if check.Err != nil {
			failed = append(failed, check)
		}
	}
	return failed
}

// Validator checks a sync configuration against the GitHub API
type Validator struct {
	client APIClient
	logger *slog.Logger
}

// NewValidator creates a new validator with GitHub API access
func NewValidator(client APIClient, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		client: client,
		logger: logger,
	}
}

// ValidateDestinations checks that every destination repository in the
// configuration parses and is reachable with the current token. Archived
// repositories are reported as failures since they reject pushes.
func (v *Validator) ValidateDestinations(ctx context.Context, config *SyncConfig, defaultOwner string) *ValidationResult {
	result := &ValidationResult{}

	for i, group := range config.Syncs {
		for _, repo := range group.Repos {
			check := DestinationCheck{Group: i + 1, Repo: repo}

			dest, err := ParseRepoRef(repo, defaultOwner)
			if err != nil {
				check.Err = err
				result.Checks = append(result.Checks, check)
				continue
			}
			check.Destination = dest

			repository, err := v.client.GetRepository(ctx, dest.Owner, dest.Repo)
			switch {
			case err != nil:
				check.Err = err
			case repository.Archived:
				check.Repository = repository
				check.Err = NewError(ErrorTypeValidation, fmt.Sprintf("repository %s is archived", dest), nil)
			default:
				check.Repository = repository
			}

			if check.Err != nil {
				v.logger.WarnContext(ctx, "destination check failed", "group", check.Group, "destination", dest.String(), "error", check.Err)
			}
			result.Checks = append(result.Checks, check)
		}
	}

	return result
}
