// Package review orchestrates one automated pull-request review run:
// environment preparation, the analysis tool battery, report assembly,
// optional narrative feedback, and publishing back to the pull request.
package review

import (
	"github.com/go-enry/go-enry/v2"

	"github.com/tildaslashalef/reviewflow/internal/github"
)

// targetLanguage is the only language the tool battery understands.
const targetLanguage = "Python"

// ChangeSet identifies the pull request under review and the subset of its
// changed files the battery will analyze. Read-only after construction.
type ChangeSet struct {
	Repository string
	Number     int
	HeadSHA    string
	Files      []string
}

// NewChangeSet builds a change set from the hosting API's view of the pull
// request, keeping only added or modified files in the target language.
func NewChangeSet(repository string, info *github.PullRequestInfo) *ChangeSet {
	cs := &ChangeSet{
		Repository: repository,
		Number:     info.Number,
		HeadSHA:    info.HeadSHA,
	}

	for _, f := range info.Files {
		if !analyzableStatus(f.Status) {
			continue
		}
		if !isTargetLanguage(f.Path) {
			continue
		}
		cs.Files = append(cs.Files, f.Path)
	}

	return cs
}

func analyzableStatus(status string) bool {
	return status == "added" || status == "modified"
}

// isTargetLanguage classifies the file by extension; content is not
// available without checking the tree out, and the extension is enough for
// the battery's purposes.
func isTargetLanguage(path string) bool {
	for _, lang := range enry.GetLanguagesByExtension(path, nil, nil) {
		if lang == targetLanguage {
			return true
		}
	}
	return false
}
