// Package annotate turns one tool's line-oriented output into inline
// pull-request annotations.
package annotate

import (
	"context"
	"strconv"
	"strings"

	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// MessagePrefix opens every inline annotation body.
const MessagePrefix = "🔍 Linting issue: "

// Finding is one parsed (file, line, message) triple.
type Finding struct {
	Path    string
	Line    int
	Message string
}

// ParseFindings extracts findings from path:line:column:code-message output.
// A line needs at least four colon-delimited segments; segment 1 must parse
// as an integer or the line is skipped. The message is everything from
// segment 3 onward.
func ParseFindings(output string) []Finding {
	var findings []Finding

	for _, line := range strings.Split(output, "\n") {
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			continue
		}

		lineNum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || lineNum <= 0 {
			continue
		}

		message := strings.TrimSpace(strings.Join(parts[3:], ":"))
		if message == "" {
			continue
		}

		findings = append(findings, Finding{
			Path:    parts[0],
			Line:    lineNum,
			Message: message,
		})
	}

	return findings
}

// LineCommenter posts one inline comment on a pull request.
type LineCommenter interface {
	PostLineComment(ctx context.Context, number int, commitSHA, path string, line int, body string) error
}

// Annotator publishes findings as inline annotations.
type Annotator struct {
	comments LineCommenter
	logger   *loggy.Logger
}

// NewAnnotator creates an annotator over the given commenter.
func NewAnnotator(comments LineCommenter, logger *loggy.Logger) *Annotator {
	return &Annotator{
		comments: comments,
		logger:   logger,
	}
}

// Annotate parses the designated tool's outcome and posts one inline
// annotation per finding. Posting failures are logged and skipped so one
// bad annotation never blocks the rest. Returns the number posted.
func (a *Annotator) Annotate(ctx context.Context, number int, headSHA string, result *battery.Result) int {
	outcome, ok := result.Outcome(battery.AnnotationTool)
	if !ok || outcome.Status != battery.StatusIssuesFound {
		return 0
	}

	findings := ParseFindings(outcome.Output)
	posted := 0

	for _, f := range findings {
		body := MessagePrefix + f.Message
		if err := a.comments.PostLineComment(ctx, number, headSHA, f.Path, f.Line, body); err != nil {
			a.logger.Warn("Could not post inline annotation",
				"path", f.Path, "line", f.Line, "error", err)
			continue
		}
		posted++
	}

	a.logger.Info("Inline annotations posted",
		"tool", battery.AnnotationTool, "found", len(findings), "posted", posted)

	return posted
}
