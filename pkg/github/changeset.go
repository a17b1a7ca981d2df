package github

import "strings"

// executableSuffix marks source files that are committed with the executable bit
const executableSuffix = ".sh"

// BuildChangeSet converts fetched files into a change set keyed by
// destination path. Files without content are omitted rather than reported
// as errors, and a later file wins when two map to the same destination.
func BuildChangeSet(commitMessage string, files []FileRef) ChangeSet {
	changes := ChangeSet{
		CommitMessage:    commitMessage,
		AllowEmptyCommit: false,
		Files:            make(map[string]FileChange, len(files)),
	}

	for _, file := range files {
		if file.Content == "" {
			continue
		}
		changes.Files[file.DestPath()] = FileChange{
			Content:    file.Content,
			Executable: strings.HasSuffix(file.Src, executableSuffix),
		}
	}

	return changes
}
