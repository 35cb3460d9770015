// Package report renders the classified tool outcomes into the single
// summary comment body and the per-run JSON artifact.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/tildaslashalef/reviewflow/internal/battery"
)

const (
	// MaxToolOutput caps each tool's fenced output section.
	MaxToolOutput = 1000

	// TruncationMarker is appended whenever a cap is applied.
	TruncationMarker = "..."

	// Header opens every summary comment.
	Header = "## 🤖 Automated Code Review"

	// NothingToAnalyze is the single informational line used when the
	// change contains no analyzable files.
	NothingToAnalyze = "No Python files to analyze"

	footer = "*This review was generated automatically. Please review the suggestions and apply fixes as needed.*"
)

// Truncate caps s at limit bytes, appending the marker only when the cap
// was applied. The rendered length is then exactly limit + len(marker).
func Truncate(s string, limit int, marker string) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + marker
}

// Composer assembles report bodies. The clock is injected so the header
// timestamp is the only nondeterministic part of the output.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a composer using the given clock. A nil clock means
// time.Now.
func NewComposer(now func() time.Time) *Composer {
	if now == nil {
		now = time.Now
	}
	return &Composer{now: now}
}

// Compose renders the battery result, with optional narrative feedback,
// into the summary comment body. Pure text construction: identical inputs
// yield identical output apart from the header timestamp.
func (c *Composer) Compose(result *battery.Result, feedback string) string {
	var b strings.Builder

	b.WriteString(Header)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "*Generated on %s*\n\n", c.now().UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("### Analysis Results:\n\n")

	if result.NothingToAnalyze {
		b.WriteString("ℹ️ " + NothingToAnalyze + "\n")
		return b.String()
	}

	for _, o := range result.Outcomes {
		name := strings.ToUpper(o.Tool)
		switch o.Status {
		case battery.StatusNoIssues:
			fmt.Fprintf(&b, "**%s**: ✅ %s: No issues found\n\n", name, o.Tool)
		case battery.StatusFailed:
			fmt.Fprintf(&b, "**%s**: ❌ %s: Analysis failed - %s\n\n", name, o.Tool, o.Reason)
		case battery.StatusIssuesFound:
			fmt.Fprintf(&b, "**%s**:\n```\n%s\n```\n\n", name, Truncate(o.Output, MaxToolOutput, TruncationMarker))
		}
	}

	if feedback != "" {
		b.WriteString("### 💡 AI Feedback:\n\n")
		b.WriteString(feedback)
		b.WriteString("\n\n")
	}

	b.WriteString("---\n")
	b.WriteString(footer)
	b.WriteString("\n")

	return b.String()
}
