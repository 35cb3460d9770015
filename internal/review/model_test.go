package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tildaslashalef/reviewflow/internal/github"
)

func TestNewChangeSetFiltering(t *testing.T) {
	info := &github.PullRequestInfo{
		Number:  42,
		HeadSHA: "abc123",
		Files: []github.ChangedFile{
			{Path: "app.py", Status: "added"},
			{Path: "pkg/util.py", Status: "modified"},
			{Path: "old.py", Status: "removed"},
			{Path: "moved.py", Status: "renamed"},
			{Path: "README.md", Status: "modified"},
			{Path: "main.go", Status: "added"},
			{Path: "Makefile", Status: "added"},
		},
	}

	cs := NewChangeSet("acme/widgets", info)

	assert.Equal(t, "acme/widgets", cs.Repository)
	assert.Equal(t, 42, cs.Number)
	assert.Equal(t, "abc123", cs.HeadSHA)
	assert.Equal(t, []string{"app.py", "pkg/util.py"}, cs.Files)
}

func TestNewChangeSetEmpty(t *testing.T) {
	info := &github.PullRequestInfo{
		Number:  7,
		HeadSHA: "def456",
		Files: []github.ChangedFile{
			{Path: "docs/guide.md", Status: "modified"},
		},
	}

	cs := NewChangeSet("acme/widgets", info)
	assert.Empty(t, cs.Files)
}

func TestIsTargetLanguage(t *testing.T) {
	assert.True(t, isTargetLanguage("app.py"))
	assert.True(t, isTargetLanguage("deep/nested/module.py"))
	assert.False(t, isTargetLanguage("main.go"))
	assert.False(t, isTargetLanguage("script.sh"))
	assert.False(t, isTargetLanguage("noextension"))
}
