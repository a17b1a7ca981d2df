// Package github provides file synchronization across GitHub repositories for reposync.
// It reads a declarative YAML sync configuration from a source repository and
// opens pull requests that carry the configured files into every destination.
//
// The package includes:
// - APIClient interface for the GitHub operations the sync needs
// - ConfigLoader, FileFetcher and Dispatcher building blocks
// - Syncer, which drives one sync run end to end
// - Client, the go-github backed APIClient implementation
package github
