package github

import (
	"context"
	"fmt"
	"log/slog"
)

// FileFetcher retrieves source file contents for a sync group
type FileFetcher struct {
	client APIClient
	logger *slog.Logger
}

// NewFileFetcher creates a new file fetcher
func NewFileFetcher(client APIClient, logger *slog.Logger) *FileFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileFetcher{
		client: client,
		logger: logger,
	}
}

// Fetch returns the base64 content of path in repo at ref. Missing files,
// directories and files without retrievable content report ok=false with
// a nil error so the caller can leave them out of the change set.
func (f *FileFetcher) Fetch(ctx context.Context, repo RepoRef, ref, path string) (content string, ok bool, err error) {
	file, err := f.client.GetContent(ctx, repo.Owner, repo.Repo, path, ref)
	if err != nil {
		if IsNotFound(err) {
			f.logger.WarnContext(ctx, "source file not found, skipping", "path", path, "source", repo.String())
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to fetch %s from %s: %w", path, repo, err)
	}

	if file == nil || file.IsDir || file.Content == "" {
		f.logger.WarnContext(ctx, "source path has no file content, skipping", "path", path, "source", repo.String())
		return "", false, nil
	}

	return file.Content, true, nil
}

// FetchAll fetches every file of a group once, in order, and returns copies
// with Content attached. Files that could not be fetched keep an empty Content.
func (f *FileFetcher) FetchAll(ctx context.Context, repo RepoRef, ref string, files []FileRef) ([]FileRef, error) {
	fetched := make([]FileRef, 0, len(files))
	for _, file := range files {
		content, ok, err := f.Fetch(ctx, repo, ref, file.Src)
		if err != nil {
			return nil, err
		}
		if ok {
			file.Content = content
		}
		fetched = append(fetched, file)
	}
	return fetched, nil
}
