package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v66/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
)

const (
	fileModeRegular    = "100644"
	fileModeExecutable = "100755"
)

// Compile-time interface satisfaction check.
var _ APIClient = (*Client)(nil)

// Client implements the APIClient interface using the GitHub REST API
type Client struct {
	client  *github.Client
	limiter RateLimiter
}

// ClientOption configures a Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL string
	limiter RateLimiter
}

// WithBaseURL points the client at a GitHub Enterprise API endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithRateLimiter replaces the default rate limiter
func WithRateLimiter(limiter RateLimiter) ClientOption {
	return func(o *clientOptions) {
		o.limiter = limiter
	}
}

// NewClient creates a new GitHub API client with the provided token. Requests
// go through an ETag cache and the secondary rate limit middleware before
// reaching the API.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rateLimitClient)
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	client := github.NewClient(tc)
	if options.baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(options.baseURL, options.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", options.baseURL, err)
		}
	}

	return newClient(client, options.limiter), nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, opts ...ClientOption) (*Client, error) {
	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := github.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return newClient(client, options.limiter), nil
}

func newClient(client *github.Client, limiter RateLimiter) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimiterConfig())
	}
	return &Client{
		client:  client,
		limiter: limiter,
	}
}

// RateLimitStats returns the pacing statistics gathered so far
func (c *Client) RateLimitStats() RateLimiterStats {
	return c.limiter.GetStats()
}

// GetContent retrieves a file from a repository at ref. Directory paths are
// reported with IsDir set and no content.
func (c *Client) GetContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	resource := fmt.Sprintf("content %s/%s:%s", owner, repo, path)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}

	file, dir, resp, err := c.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, resource)
	}

	if file == nil {
		if dir != nil {
			return &FileContent{Path: path, IsDir: true}, nil
		}
		return nil, nil
	}

	// files over 1 MB come back without content
	if file.GetEncoding() == "none" {
		return c.getBlobContent(ctx, owner, repo, file)
	}

	decoded, err := file.GetContent()
	if err != nil {
		return nil, NewError(ErrorTypeUnknown, fmt.Sprintf("failed to decode %s: %v", path, err), err)
	}

	return &FileContent{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: base64.StdEncoding.EncodeToString([]byte(decoded)),
	}, nil
}

// getBlobContent reads a file through the blob API, which serves files the
// contents API will not inline. A file without a blob SHA yields empty content.
func (c *Client) getBlobContent(ctx context.Context, owner, repo string, file *github.RepositoryContent) (*FileContent, error) {
	content := &FileContent{Path: file.GetPath(), SHA: file.GetSHA()}
	if file.GetSHA() == "" {
		return content, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	blob, resp, err := c.client.Git.GetBlob(ctx, owner, repo, file.GetSHA())
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("blob %s/%s:%s", owner, repo, file.GetPath()))
	}

	switch blob.GetEncoding() {
	case "base64":
		// the API wraps base64 at 60 columns
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
		if err != nil {
			return nil, NewError(ErrorTypeUnknown, fmt.Sprintf("failed to decode blob for %s: %v", file.GetPath(), err), err)
		}
		content.Content = base64.StdEncoding.EncodeToString(raw)
	case "utf-8":
		content.Content = base64.StdEncoding.EncodeToString([]byte(blob.GetContent()))
	}

	return content, nil
}

// GetRepository retrieves a repository by owner and name
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("repository %s/%s", owner, repo))
	}

	return convertGitHubRepository(r), nil
}

// CreatePullRequest commits the change set on top of the destination's
// default branch, points opts.Branch at the new commit and opens a pull
// request from it. It returns nil when the change set would not alter the
// default branch tree.
func (c *Client) CreatePullRequest(ctx context.Context, opts PullRequestOptions) (*PullRequest, error) {
	if opts.Changes.IsEmpty() && !opts.Changes.AllowEmptyCommit {
		return nil, nil
	}

	owner, repo := opts.Repo.Owner, opts.Repo.Repo

	destination, err := c.GetRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	base := destination.DefaultBranch

	baseRef, err := c.getRef(ctx, owner, repo, "heads/"+base)
	if err != nil {
		return nil, err
	}
	parentSHA := baseRef.GetObject().GetSHA()

	parent, err := c.getCommit(ctx, owner, repo, parentSHA)
	if err != nil {
		return nil, err
	}
	baseTreeSHA := parent.GetTree().GetSHA()

	entries, err := c.createBlobs(ctx, owner, repo, opts.Changes)
	if err != nil {
		return nil, err
	}

	tree, err := c.createTree(ctx, owner, repo, baseTreeSHA, entries)
	if err != nil {
		return nil, err
	}
	if tree.GetSHA() == baseTreeSHA && !opts.Changes.AllowEmptyCommit {
		return nil, nil
	}

	commit, err := c.createCommit(ctx, owner, repo, opts.Changes.CommitMessage, tree.GetSHA(), parentSHA)
	if err != nil {
		return nil, err
	}

	if err := c.createRef(ctx, owner, repo, opts.Branch, commit.GetSHA()); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	pr, resp, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(opts.Title),
		Head:  github.String(opts.Branch),
		Base:  github.String(base),
		Body:  github.String(opts.Body),
	})
	c.observe(resp)
	if err != nil {
		prErr := WrapGitHubError(err, fmt.Sprintf("pull request %s/%s:%s", owner, repo, opts.Branch))
		// a branch without a pull request would read as already open on the next run
		if delErr := c.deleteRef(context.WithoutCancel(ctx), owner, repo, opts.Branch); delErr != nil {
			return nil, fmt.Errorf("%w (removing branch %s also failed: %v)", prErr, opts.Branch, delErr)
		}
		return nil, prErr
	}

	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Branch: opts.Branch,
	}, nil
}

func (c *Client) getRef(ctx context.Context, owner, repo, ref string) (*github.Reference, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := c.client.Git.GetRef(ctx, owner, repo, ref)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("ref %s/%s:%s", owner, repo, ref))
	}
	return r, nil
}

func (c *Client) getCommit(ctx context.Context, owner, repo, sha string) (*github.Commit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	commit, resp, err := c.client.Git.GetCommit(ctx, owner, repo, sha)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("commit %s/%s@%s", owner, repo, sha))
	}
	return commit, nil
}

// createBlobs uploads every file of the change set and returns the matching
// tree entries in path order.
func (c *Client) createBlobs(ctx context.Context, owner, repo string, changes ChangeSet) ([]*github.TreeEntry, error) {
	paths := make([]string, 0, len(changes.Files))
	for path := range changes.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]*github.TreeEntry, 0, len(paths))
	for _, path := range paths {
		change := changes.Files[path]

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		blob, resp, err := c.client.Git.CreateBlob(ctx, owner, repo, &github.Blob{
			Content:  github.String(change.Content),
			Encoding: github.String("base64"),
		})
		c.observe(resp)
		if err != nil {
			return nil, WrapGitHubError(err, fmt.Sprintf("blob %s/%s:%s", owner, repo, path))
		}

		entries = append(entries, &github.TreeEntry{
			Path: github.String(path),
			Mode: github.String(fileMode(change)),
			Type: github.String("blob"),
			SHA:  blob.SHA,
		})
	}

	return entries, nil
}

func (c *Client) createTree(ctx context.Context, owner, repo, baseTree string, entries []*github.TreeEntry) (*github.Tree, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tree, resp, err := c.client.Git.CreateTree(ctx, owner, repo, baseTree, entries)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("tree %s/%s", owner, repo))
	}
	return tree, nil
}

func (c *Client) createCommit(ctx context.Context, owner, repo, message, treeSHA, parentSHA string) (*github.Commit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	commit, resp, err := c.client.Git.CreateCommit(ctx, owner, repo, &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(treeSHA)},
		Parents: []*github.Commit{{SHA: github.String(parentSHA)}},
	}, nil)
	c.observe(resp)
	if err != nil {
		return nil, WrapGitHubError(err, fmt.Sprintf("commit %s/%s", owner, repo))
	}
	return commit, nil
}

// createRef creates refs/heads/<branch>. A branch left over from an earlier
// run surfaces as an ErrorTypeAlreadyExists error.
func (c *Client) createRef(ctx context.Context, owner, repo, branch, sha string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, resp, err := c.client.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	})
	c.observe(resp)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("branch %s/%s:%s", owner, repo, branch))
	}
	return nil
}

func (c *Client) deleteRef(ctx context.Context, owner, repo, branch string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.client.Git.DeleteRef(ctx, owner, repo, "heads/"+branch)
	c.observe(resp)
	if err != nil {
		return WrapGitHubError(err, fmt.Sprintf("branch %s/%s:%s", owner, repo, branch))
	}
	return nil
}

func (c *Client) observe(resp *github.Response) {
	if resp != nil {
		c.limiter.Observe(resp.Rate)
	}
}

func fileMode(change FileChange) string {
	if change.Executable {
		return fileModeExecutable
	}
	return fileModeRegular
}

// convertGitHubRepository converts a GitHub API repository to our Repository type
func convertGitHubRepository(repo *github.Repository) *Repository {
	return &Repository{
		ID:            repo.GetID(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		Archived:      repo.GetArchived(),
	}
}
