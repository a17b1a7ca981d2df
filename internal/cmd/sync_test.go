package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reposync/pkg/config"
	"reposync/pkg/github"
)

const testSyncConfig = `syncs:
  - files:
      - src: a.txt
      - src: b.sh
        dest: scripts/b.sh
    repos:
      - x
      - acme/y
`

func TestBuildRunContextFromEnvironment(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")
	t.Setenv("GITHUB_RUN_ID", "42")
	t.Setenv("GITHUB_SERVER_URL", "https://github.example.com")

	cmd := newSyncCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	v, err := bindRunFlags(cmd, config.DefaultConfig())
	require.NoError(t, err)

	run, err := buildRunContext(v)
	require.NoError(t, err)

	assert.Equal(t, github.RepoRef{Owner: "acme", Repo: "templates"}, run.Source)
	assert.Equal(t, "abc123", run.SHA)
	assert.Equal(t, "42", run.RunID)
	assert.Equal(t, "https://github.example.com", run.ServerURL)
	assert.Equal(t, ".github/sync.yml", run.ConfigFile)
	assert.Equal(t, github.FailurePolicyContinue, run.FailurePolicy)
	assert.False(t, run.DryRun)
}

func TestBuildRunContextFlagsOverrideEnvironment(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	cmd := newSyncCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--repository", "other/source",
		"--sha", "def456",
		"--config-file", ".github/files.yml",
		"--on-error", "fail-fast",
		"--dry-run",
	}))

	v, err := bindRunFlags(cmd, config.DefaultConfig())
	require.NoError(t, err)

	run, err := buildRunContext(v)
	require.NoError(t, err)

	assert.Equal(t, github.RepoRef{Owner: "other", Repo: "source"}, run.Source)
	assert.Equal(t, "def456", run.SHA)
	assert.Equal(t, ".github/files.yml", run.ConfigFile)
	assert.Equal(t, github.FailurePolicyFailFast, run.FailurePolicy)
	assert.True(t, run.DryRun)
}

func TestBuildRunContextUsesToolConfigDefaults(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")

	cfg := config.DefaultConfig()
	cfg.Sync.ConfigFile = ".github/shared.yml"
	cfg.Sync.OnError = "fail-fast"

	cmd := newSyncCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	v, err := bindRunFlags(cmd, cfg)
	require.NoError(t, err)

	run, err := buildRunContext(v)
	require.NoError(t, err)

	assert.Equal(t, ".github/shared.yml", run.ConfigFile)
	assert.Equal(t, github.FailurePolicyFailFast, run.FailurePolicy)
}

func TestBuildRunContextErrors(t *testing.T) {
	tests := []struct {
		name       string
		repository string
		args       []string
		wantErr    string
	}{
		{
			name:    "missing repository",
			wantErr: "source repository not specified",
		},
		{
			name:       "repository without owner",
			repository: "templates",
			wantErr:    "invalid source repository",
		},
		{
			name:       "unknown failure policy",
			repository: "acme/templates",
			args:       []string{"--on-error", "retry"},
			wantErr:    "invalid failure policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearActionsEnv(t)
			t.Setenv("GITHUB_REPOSITORY", tt.repository)

			cmd := newSyncCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			v, err := bindRunFlags(cmd, config.DefaultConfig())
			require.NoError(t, err)

			_, err = buildRunContext(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func expectSourceFiles(client *mockAPIClient) {
	client.On("GetContent", mock.Anything, "acme", "templates", ".github/sync.yml", "abc123").
		Return(fileContent(".github/sync.yml", testSyncConfig), nil)
	client.On("GetContent", mock.Anything, "acme", "templates", "a.txt", "abc123").
		Return(fileContent("a.txt", "hello\n"), nil)
	client.On("GetContent", mock.Anything, "acme", "templates", "b.sh", "abc123").
		Return(fileContent("b.sh", "#!/bin/sh\necho hi\n"), nil)
}

func forRepo(name string) interface{} {
	return mock.MatchedBy(func(opts github.PullRequestOptions) bool {
		return opts.Repo.String() == name
	})
}

func TestRunSync(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := new(mockAPIClient)
	expectSourceFiles(client)
	client.On("CreatePullRequest", mock.Anything, forRepo("acme/x")).
		Return(&github.PullRequest{Number: 7, URL: "https://github.com/acme/x/pull/7", Branch: github.SyncBranch}, nil)
	client.On("CreatePullRequest", mock.Anything, forRepo("acme/y")).
		Return(nil, nil)
	useClient(t, client, nil)

	output, err := executeCommand(newSyncCmd())
	require.NoError(t, err)

	assert.Contains(t, output, "Syncing files from acme/templates")
	assert.Contains(t, output, "acme/x: pull request #7 https://github.com/acme/x/pull/7")
	assert.Contains(t, output, "acme/y: already up to date")
	assert.Contains(t, output, "1 groups, 2 destinations, 1 created, 0 already open, 1 up to date")
	assert.Contains(t, output, "Sync completed")
	client.AssertExpectations(t)
}

func TestRunSyncDryRun(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := new(mockAPIClient)
	expectSourceFiles(client)
	useClient(t, client, nil)

	output, err := executeCommand(newSyncCmd(), "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, output, "Dry-run mode")
	assert.Contains(t, output, "acme/x: would open a pull request")
	assert.Contains(t, output, "acme/y: would open a pull request")
	assert.Contains(t, output, "2 dry-run")
	client.AssertNotCalled(t, "CreatePullRequest", mock.Anything, mock.Anything)
}

func TestRunSyncReportsFailedGroups(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := new(mockAPIClient)
	expectSourceFiles(client)
	client.On("CreatePullRequest", mock.Anything, forRepo("acme/x")).
		Return(nil, github.NewError(github.ErrorTypePermission, "Insufficient permissions", nil))
	useClient(t, client, nil)

	output, err := executeCommand(newSyncCmd())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "sync failed")
	assert.Contains(t, output, "1 sync groups failed")
	assert.Contains(t, output, "group 1 (acme/x)")
	assert.NotContains(t, output, "transient")
	client.AssertNotCalled(t, "CreatePullRequest", mock.Anything, forRepo("acme/y"))
}

func TestRunSyncAuthenticationFailure(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")

	useClient(t, nil, errors.New("no GitHub token found"))

	output, err := executeCommand(newSyncCmd())
	require.Error(t, err)
	assert.Contains(t, output, "Authentication failed")
	assert.Contains(t, output, "GITHUB_TOKEN")
}

func TestRunSyncConfigNotFound(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := new(mockAPIClient)
	client.On("GetContent", mock.Anything, "acme", "templates", ".github/sync.yml", "abc123").
		Return(nil, github.NewError(github.ErrorTypeNotFound, "File not found at the requested ref", nil))
	useClient(t, client, nil)

	_, err := executeCommand(newSyncCmd())
	require.Error(t, err)
	assert.ErrorIs(t, err, github.ErrConfigNotFound)
}

// pacedClient is a mock provider that also reports rate limiter statistics
type pacedClient struct {
	*mockAPIClient
	stats github.RateLimiterStats
}

func (c *pacedClient) RateLimitStats() github.RateLimiterStats {
	return c.stats
}

func TestRunSyncReportsRateLimitAndTransientFailures(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := &pacedClient{
		mockAPIClient: new(mockAPIClient),
		stats: github.RateLimiterStats{
			RemainingRequests: 4210,
			TotalWaits:        3,
			TotalDelayTime:    1500 * time.Millisecond,
		},
	}
	expectSourceFiles(client.mockAPIClient)
	client.On("CreatePullRequest", mock.Anything, forRepo("acme/x")).
		Return(nil, github.NewError(github.ErrorTypeNetwork, "GitHub API is temporarily unavailable", nil))
	useClient(t, client, nil)

	output, err := executeCommand(newSyncCmd())
	require.Error(t, err)

	assert.Contains(t, output, "Rate limit: 4210 requests remaining, 3 calls delayed for 1.5s")
	assert.Contains(t, output, "group 1 (acme/x)")
	assert.Contains(t, output, "transient, re-running the workflow may succeed")
}

func TestRunSyncWithoutRateLimitReporter(t *testing.T) {
	clearActionsEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/templates")
	t.Setenv("GITHUB_SHA", "abc123")

	client := new(mockAPIClient)
	expectSourceFiles(client)
	useClient(t, client, nil)

	output, err := executeCommand(newSyncCmd(), "--dry-run")
	require.NoError(t, err)
	assert.NotContains(t, output, "Rate limit")
}
