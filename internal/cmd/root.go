package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"reposync/internal/platform"
	"reposync/pkg/config"
)

var (
	logLevel  string
	logFormat string

	// appConfig and logger are set up before every subcommand runs
	appConfig *config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reposync",
	Short: "Keep files in sync across GitHub repositories with pull requests",
	Long: `Reposync copies files from a source repository into other repositories by
opening pull requests against them. It reads the list of files and destination
repositories from a YAML file in the source repository and is meant to run
from a GitHub Actions workflow on every push.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (auto, text, json)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
}

// setup loads the tool configuration and configures logging. Flags win over
// the configuration file.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load reposync config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid reposync config: %w", err)
	}

	l, err := platform.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = l
	return nil
}
