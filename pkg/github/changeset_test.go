package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildChangeSet(t *testing.T) {
	files := []FileRef{
		{Src: "a.txt", Content: encode("A")},
		{Src: "b.sh", Content: encode("B")},
	}

	changes := BuildChangeSet("chore: sync files from acme/templates", files)

	assert.Equal(t, ChangeSet{
		CommitMessage:    "chore: sync files from acme/templates",
		AllowEmptyCommit: false,
		Files: map[string]FileChange{
			"a.txt": {Content: encode("A")},
			"b.sh":  {Content: encode("B"), Executable: true},
		},
	}, changes)
}

func TestBuildChangeSet_OmitsUnfetchedFiles(t *testing.T) {
	tests := []struct {
		name     string
		files    []FileRef
		expected []string
	}{
		{
			name:     "miss first",
			files:    []FileRef{{Src: "gone"}, {Src: "a", Content: encode("A")}, {Src: "b", Content: encode("B")}},
			expected: []string{"a", "b"},
		},
		{
			name:     "miss in the middle",
			files:    []FileRef{{Src: "a", Content: encode("A")}, {Src: "gone"}, {Src: "b", Content: encode("B")}},
			expected: []string{"a", "b"},
		},
		{
			name:     "miss last",
			files:    []FileRef{{Src: "a", Content: encode("A")}, {Src: "b", Content: encode("B")}, {Src: "gone"}},
			expected: []string{"a", "b"},
		},
		{
			name:  "all missed",
			files: []FileRef{{Src: "gone"}, {Src: "also-gone"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := BuildChangeSet("msg", tt.files)

			assert.Len(t, changes.Files, len(tt.expected))
			for _, path := range tt.expected {
				assert.Contains(t, changes.Files, path)
			}
			assert.NotContains(t, changes.Files, "gone")
			assert.False(t, changes.AllowEmptyCommit)
			assert.Equal(t, len(tt.expected) == 0, changes.IsEmpty())
		})
	}
}

func TestBuildChangeSet_DestinationPaths(t *testing.T) {
	files := []FileRef{
		{Src: "templates/ci.yml", Dest: ".github/workflows/ci.yml", Content: encode("ci")},
		{Src: "scripts/setup.sh", Dest: "setup", Content: encode("setup")},
		{Src: "first.txt", Dest: "same.txt", Content: encode("first")},
		{Src: "second.txt", Dest: "same.txt", Content: encode("second")},
	}

	changes := BuildChangeSet("msg", files)

	assert.Equal(t, FileChange{Content: encode("ci")}, changes.Files[".github/workflows/ci.yml"])
	// mode follows the source name, not the destination
	assert.True(t, changes.Files["setup"].Executable)
	assert.Equal(t, encode("second"), changes.Files["same.txt"].Content)
	assert.Len(t, changes.Files, 3)
}
