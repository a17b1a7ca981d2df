package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reposync/pkg/github"
)

var (
	validateOwner   string
	validateOffline bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <sync-config.yml>",
	Short: "Validate a sync configuration file",
	Long: `Validate a local sync configuration file before committing it to the source
repository.

VALIDATION CHECKS:

Offline Validation (always performed):
• YAML syntax errors and structure validation
• Every file entry has a src path
• Every repository entry is a valid repo or owner/repo reference

Online Validation (when a GitHub token is available):
• Every destination repository exists and is reachable with the token
• No destination repository is archived

Bare repository names are resolved against --owner, which defaults to the
owner part of GITHUB_REPOSITORY.

Examples:
  reposync validate .github/sync.yml
  reposync validate .github/sync.yml --owner acme
  reposync validate .github/sync.yml --offline`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateOwner, "owner", "", "Owner used for bare repository names (default: owner of GITHUB_REPOSITORY)")
	validateCmd.Flags().BoolVar(&validateOffline, "offline", false, "Skip the GitHub API checks")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "🔍 Validating sync configuration: %s\n", configFile)

	syncConfig, err := github.LoadSyncConfigFromFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintf(out, "✓ YAML syntax and basic validation passed\n")
	displaySyncConfig(cmd, syncConfig)

	if validateOffline {
		fmt.Fprintf(out, "\n✅ Configuration file is valid (offline validation only)\n")
		return nil
	}

	owner := resolveOwner()
	if owner == "" {
		fmt.Fprintf(out, "⚠️  No owner for bare repository names: use --owner or set GITHUB_REPOSITORY\n")
	}

	client, err := newAPIClient(currentConfig())
	if err != nil {
		fmt.Fprintf(out, "⚠️  GitHub authentication unavailable: %v\n", err)
		fmt.Fprintf(out, "   Skipping destination checks\n")
		fmt.Fprintf(out, "\n✅ Configuration file is valid (offline validation only)\n")
		return nil
	}

	fmt.Fprintf(out, "🔍 Checking destination repositories...\n")
	result := github.NewValidator(client, currentLogger()).ValidateDestinations(commandContext(cmd), syncConfig, owner)

	for _, check := range result.Checks {
		if check.Err != nil {
			fmt.Fprintf(out, "  ❌ [group %d] %s: %v\n", check.Group, check.Repo, check.Err)
			continue
		}
		fmt.Fprintf(out, "  ✓ [group %d] %s (default branch %s)\n", check.Group, check.Destination, check.Repository.DefaultBranch)
	}

	if failures := result.Failures(); len(failures) > 0 {
		return fmt.Errorf("destination validation failed for %d repositories", len(failures))
	}

	fmt.Fprintf(out, "\n✅ Configuration file is valid\n")
	return nil
}

func displaySyncConfig(cmd *cobra.Command, syncConfig *github.SyncConfig) {
	out := cmd.OutOrStdout()

	if syncConfig.IsEmpty() {
		fmt.Fprintf(out, "⚠️  Configuration declares no sync groups, sync will do nothing\n")
		return
	}

	fmt.Fprintf(out, "📋 %d sync groups:\n", len(syncConfig.Syncs))
	for i, group := range syncConfig.Syncs {
		fmt.Fprintf(out, "  Group %d: %d files → %s\n", i+1, len(group.Files), strings.Join(group.Repos, ", "))
		for _, file := range group.Files {
			if file.Dest != "" && file.Dest != file.Src {
				fmt.Fprintf(out, "    - %s → %s\n", file.Src, file.Dest)
			} else {
				fmt.Fprintf(out, "    - %s\n", file.Src)
			}
		}
	}
}

func resolveOwner() string {
	if validateOwner != "" {
		return validateOwner
	}
	if ref, err := github.ParseRepoRef(os.Getenv("GITHUB_REPOSITORY"), ""); err == nil {
		return ref.Owner
	}
	return ""
}
