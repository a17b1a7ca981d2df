package github

import (
	"context"
	"encoding/base64"
	"strconv"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a testify mock of APIClient
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) GetContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	args := m.Called(ctx, owner, repo, path, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileContent), args.Error(1)
}

func (m *MockAPIClient) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Repository), args.Error(1)
}

func (m *MockAPIClient) CreatePullRequest(ctx context.Context, opts PullRequestOptions) (*PullRequest, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PullRequest), args.Error(1)
}

// fakeAPIClient is an in-memory GitHub that records every pull request request
// in call order. Branches persist across runs like they do on GitHub.
type fakeAPIClient struct {
	mu sync.Mutex

	files    map[string]string // "owner/repo:path" -> raw content
	trees    map[string]map[string]FileChange
	branches map[string]bool // "owner/repo:branch"
	errors   map[string]error
	nextPR   int

	requests []PullRequestOptions
}

func newFakeAPIClient() *fakeAPIClient {
	return &fakeAPIClient{
		files:    make(map[string]string),
		trees:    make(map[string]map[string]FileChange),
		branches: make(map[string]bool),
		errors:   make(map[string]error),
		nextPR:   1,
	}
}

func (f *fakeAPIClient) addFile(repo, path, content string) {
	f.files[repo+":"+path] = content
}

// setTree declares the current default branch contents of a destination
func (f *fakeAPIClient) setTree(repo string, files map[string]FileChange) {
	f.trees[repo] = files
}

func (f *fakeAPIClient) GetContent(_ context.Context, owner, repo, path, _ string) (*FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := owner + "/" + repo + ":" + path
	if err, ok := f.errors["content "+key]; ok {
		return nil, err
	}
	content, ok := f.files[key]
	if !ok {
		return nil, NewError(ErrorTypeNotFound, "File not found at the requested ref", nil)
	}
	return &FileContent{
		Path:    path,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
	}, nil
}

func (f *fakeAPIClient) GetRepository(_ context.Context, owner, repo string) (*Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	full := owner + "/" + repo
	if err, ok := f.errors["repository "+full]; ok {
		return nil, err
	}
	return &Repository{Name: repo, FullName: full, DefaultBranch: "main"}, nil
}

func (f *fakeAPIClient) CreatePullRequest(_ context.Context, opts PullRequestOptions) (*PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, opts)

	full := opts.Repo.String()
	if err, ok := f.errors["pull "+full]; ok {
		return nil, err
	}

	if opts.Changes.IsEmpty() || f.unchanged(full, opts.Changes) {
		return nil, nil
	}

	branch := full + ":" + opts.Branch
	if f.branches[branch] {
		return nil, NewError(ErrorTypeAlreadyExists, referenceExistsMessage, nil)
	}
	f.branches[branch] = true

	pr := &PullRequest{
		Number: f.nextPR,
		URL:    "https://github.com/" + full + "/pull/" + strconv.Itoa(f.nextPR),
		Branch: opts.Branch,
	}
	f.nextPR++
	return pr, nil
}

func (f *fakeAPIClient) unchanged(repo string, changes ChangeSet) bool {
	tree, ok := f.trees[repo]
	if !ok {
		return false
	}
	for path, change := range changes.Files {
		if current, ok := tree[path]; !ok || current != change {
			return false
		}
	}
	return true
}

func (f *fakeAPIClient) requestedRepos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	repos := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		repos = append(repos, r.Repo.String())
	}
	return repos
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
