package github

import (
	"fmt"
	"strings"
)

// RepoRef identifies a GitHub repository by owner and name
type RepoRef struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// ParseRepoRef parses an "owner/repo" or bare "repo" reference.
// Bare names are resolved against defaultOwner.
func ParseRepoRef(s, defaultOwner string) (RepoRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RepoRef{}, fmt.Errorf("%w: reference is empty", ErrInvalidRepoReference)
	}

	owner, repo, found := strings.Cut(s, "/")
	if !found {
		owner, repo = defaultOwner, s
	}

	if owner == "" || repo == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoReference, s)
	}

	return RepoRef{Owner: owner, Repo: repo}, nil
}

// Format renders the reference as owner<sep>repo
func (r RepoRef) Format(sep string) string {
	return r.Owner + sep + r.Repo
}

// String renders the reference as owner/repo
func (r RepoRef) String() string {
	return r.Format("/")
}

// IsZero reports whether the reference is unset
func (r RepoRef) IsZero() bool {
	return r.Owner == "" && r.Repo == ""
}
