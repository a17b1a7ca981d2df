package github

// Repository represents a GitHub repository
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
}

// FileContent is a file read from a repository. Content is base64 encoded.
type FileContent struct {
	Path    string `json:"path"`
	SHA     string `json:"sha"`
	Content string `json:"content"`
	IsDir   bool   `json:"is_dir"`
}

// FileChange is one file written by a sync commit
type FileChange struct {
	Content    string `json:"content"` // base64
	Executable bool   `json:"executable"`
}

// ChangeSet is the set of files committed to a destination in one pull request
type ChangeSet struct {
	CommitMessage    string                `json:"commit_message"`
	AllowEmptyCommit bool                  `json:"allow_empty_commit"`
	Files            map[string]FileChange `json:"files"`
}

// IsEmpty reports whether the change set carries no files
func (c ChangeSet) IsEmpty() bool {
	return len(c.Files) == 0
}

// PullRequestOptions describes a pull request to open on a destination repository
type PullRequestOptions struct {
	Repo    RepoRef   `json:"repo"`
	Branch  string    `json:"branch"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Changes ChangeSet `json:"changes"`
}

// PullRequest represents a pull request opened by a sync
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
}
