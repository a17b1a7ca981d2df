package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is where the sync configuration lives in the source repository
const DefaultConfigFile = ".github/sync.yml"

// SyncConfig represents the sync configuration document
type SyncConfig struct {
	Syncs []SyncGroup `yaml:"syncs" json:"syncs"`
}

// SyncGroup pairs a set of source files with the repositories that receive them
type SyncGroup struct {
	Files []FileRef `yaml:"files" json:"files"`
	Repos []string  `yaml:"repos" json:"repos"`
}

// FileRef names a source file and where it lands in each destination.
// Content is filled in by the FileFetcher and is never read from YAML.
type FileRef struct {
	Src     string `yaml:"src" json:"src"`
	Dest    string `yaml:"dest,omitempty" json:"dest,omitempty"`
	Content string `yaml:"-" json:"-"`
}

// DestPath returns the destination path, which defaults to the source path
func (f FileRef) DestPath() string {
	if f.Dest != "" {
		return f.Dest
	}
	return f.Src
}

// IsEmpty reports whether the configuration declares no sync groups
func (c *SyncConfig) IsEmpty() bool {
	return len(c.Syncs) == 0
}

// Validate validates the structure of the sync configuration
func (c *SyncConfig) Validate() error {
	var validationErrors ValidationErrors

	for i, group := range c.Syncs {
		for j, file := range group.Files {
			if file.Src == "" {
				validationErrors.Add(fmt.Sprintf("syncs[%d].files[%d].src", i, j), "", "source path is required")
			}
		}

		for j, repo := range group.Repos {
			// the owner is only known at run time, any non-empty placeholder will do
			if _, err := ParseRepoRef(repo, "owner"); err != nil {
				validationErrors.Add(fmt.Sprintf("syncs[%d].repos[%d]", i, j), repo, err.Error())
			}
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// LoadSyncConfig parses and validates a sync configuration document
func LoadSyncConfig(data []byte) (*SyncConfig, error) {
	var config SyncConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	return &config, nil
}

// LoadSyncConfigFromFile loads a sync configuration from a local file
func LoadSyncConfigFromFile(filename string) (*SyncConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadSyncConfig(data)
}

// ConfigLoader reads the sync configuration from the source repository
type ConfigLoader struct {
	client APIClient
	source RepoRef
	ref    string
	logger *slog.Logger
}

// NewConfigLoader creates a loader reading from source at ref
func NewConfigLoader(client APIClient, source RepoRef, ref string, logger *slog.Logger) *ConfigLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigLoader{
		client: client,
		source: source,
		ref:    ref,
		logger: logger,
	}
}

// Load fetches and parses the configuration at path. An empty sync list is
// logged as a warning and returned without error.
func (l *ConfigLoader) Load(ctx context.Context, path string) (*SyncConfig, error) {
	content, err := l.client.GetContent(ctx, l.source.Owner, l.source.Repo, path, l.ref)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s in %s: %w", ErrConfigNotFound, path, l.source, err)
		}
		return nil, fmt.Errorf("failed to fetch sync configuration %s: %w", path, err)
	}

	if content == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrConfigNotFound, path, l.source)
	}
	if content.IsDir {
		return nil, fmt.Errorf("%w: %s is a directory", ErrConfigParse, path)
	}

	data, err := base64.StdEncoding.DecodeString(content.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrConfigParse, path, err)
	}

	config, err := LoadSyncConfig(data)
	if err != nil {
		return nil, err
	}

	if config.IsEmpty() {
		l.logger.WarnContext(ctx, "sync configuration declares no sync groups", "path", path, "source", l.source.String())
	}

	if dump, err := yaml.Marshal(config); err == nil {
		l.logger.DebugContext(ctx, "resolved sync configuration", "path", path, "config", string(dump))
	}

	return config, nil
}
