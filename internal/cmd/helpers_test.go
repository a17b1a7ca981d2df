package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"

	"reposync/pkg/config"
	"reposync/pkg/github"
)

// mockAPIClient is a testify mock of github.APIClient
type mockAPIClient struct {
	mock.Mock
}

func (m *mockAPIClient) GetContent(ctx context.Context, owner, repo, path, ref string) (*github.FileContent, error) {
	args := m.Called(ctx, owner, repo, path, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.FileContent), args.Error(1)
}

func (m *mockAPIClient) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	args := m.Called(ctx, owner, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.Repository), args.Error(1)
}

func (m *mockAPIClient) CreatePullRequest(ctx context.Context, opts github.PullRequestOptions) (*github.PullRequest, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*github.PullRequest), args.Error(1)
}

// useClient swaps the provider factory for the duration of the test
func useClient(t *testing.T, client github.APIClient, err error) {
	t.Helper()

	previous := newAPIClient
	newAPIClient = func(*config.Config) (github.APIClient, error) {
		return client, err
	}
	t.Cleanup(func() { newAPIClient = previous })
}

// clearActionsEnv unsets the Actions variables a CI runner would leak into tests
func clearActionsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_REPOSITORY", "GITHUB_SHA", "GITHUB_RUN_ID", "GITHUB_SERVER_URL", "GITHUB_TOKEN"} {
		t.Setenv(key, "")
	}
}

func fileContent(path, content string) *github.FileContent {
	return &github.FileContent{
		Path:    path,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
	}
}

// executeCommand runs cmd with args and returns everything written to stdout
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(new(bytes.Buffer))
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	return buf.String(), err
}
