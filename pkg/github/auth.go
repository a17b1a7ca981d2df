package github

import (
	"fmt"
	"os"
	"strings"

	"reposync/pkg/config"
)

// TokenEnvVar is the environment variable the token is read from first
const TokenEnvVar = "GITHUB_TOKEN"

// GetToken retrieves the GitHub token from environment variable or config file
func GetToken(cfg *config.Config) (string, error) {
	if token := os.Getenv(TokenEnvVar); token != "" {
		return strings.TrimSpace(token), nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		return strings.TrimSpace(cfg.GitHub.Token), nil
	}

	return "", fmt.Errorf("no GitHub token found: set %s environment variable or configure token in ~/.reposync/config.yaml", TokenEnvVar)
}

// NewClientFromConfig builds a Client using the token and base URL of cfg
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	token, err := GetToken(cfg)
	if err != nil {
		return nil, err
	}

	var opts []ClientOption
	if cfg != nil && cfg.GitHub.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.GitHub.BaseURL))
	}

	return NewClient(token, opts...)
}

// GetAuthInstructions returns instructions for setting up GitHub authentication
func GetAuthInstructions() string {
	return `GitHub authentication is required. Please set up authentication using one of the following methods:

1. Environment Variable (Recommended for GitHub Actions):
   export GITHUB_TOKEN="your_token"

2. Configuration File:
   Add the following to ~/.reposync/config.yaml:

   github:
     token: "your_token"

The token needs write access to contents and pull requests on every
destination repository and read access to the source repository.`
}
