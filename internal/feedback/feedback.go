// Package feedback produces the optional diff-aware narrative section of
// the review. Every failure mode here degrades to a one-line outcome
// string; nothing in this stage can abort the run.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/llm"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
	"github.com/tildaslashalef/reviewflow/internal/report"
)

const (
	// MaxDiffLength caps the unified diff submitted to the model.
	MaxDiffLength = 50000

	// DiffTruncationMarker is appended when the diff cap is applied.
	DiffTruncationMarker = "\n... [diff truncated]"

	// MaxContextPerTool caps each tool's contribution to the context blob.
	MaxContextPerTool = 2000

	systemPrompt = "You are an experienced software engineer reviewing a pull request. " +
		"You are given the unified diff of the change and the output of static-analysis tools. " +
		"Write concise, actionable review feedback: call out real problems, suggest concrete fixes, " +
		"and skip praise and restating the diff. Use short markdown bullet points."
)

// DiffFetcher retrieves the unified diff for a change.
type DiffFetcher interface {
	GetDiff(ctx context.Context, number int) (string, error)
}

// Generator builds the narrative feedback section.
type Generator struct {
	diffs  DiffFetcher
	client llm.Client
	logger *loggy.Logger
}

// NewGenerator creates a feedback generator over the given collaborators.
func NewGenerator(diffs DiffFetcher, client llm.Client, logger *loggy.Logger) *Generator {
	return &Generator{
		diffs:  diffs,
		client: client,
		logger: logger,
	}
}

// Generate fetches the diff, combines it with the tool outcomes, and asks
// the model for narrative commentary. Always returns a displayable string:
// on any failure it is a single-line outcome naming the failure category.
// Invoked at most once per run, never retried.
func (g *Generator) Generate(ctx context.Context, prNumber int, result *battery.Result) string {
	diff, err := g.diffs.GetDiff(ctx, prNumber)
	if err != nil {
		g.logger.Warn("Diff fetch failed, skipping AI feedback", "pr", prNumber, "error", err)
		return "❌ AI feedback unavailable: could not fetch the pull request diff"
	}

	diff = report.Truncate(diff, MaxDiffLength, DiffTruncationMarker)

	text, err := g.client.Complete(ctx, llm.CompletionRequest{
		System: systemPrompt,
		Prompt: buildPrompt(diff, result),
	})
	if err != nil {
		g.logger.Warn("Model feedback failed", "pr", prNumber, "error", err)
		return classifyFailure(err)
	}

	return text
}

// buildPrompt assembles the user message: the capped diff plus a bounded
// context blob of tool output.
func buildPrompt(diff string, result *battery.Result) string {
	var b strings.Builder

	b.WriteString("Review this pull request.\n\n")
	b.WriteString("## Diff\n```diff\n")
	b.WriteString(diff)
	b.WriteString("\n```\n\n## Static analysis results\n")

	for _, o := range result.Outcomes {
		switch o.Status {
		case battery.StatusNoIssues:
			fmt.Fprintf(&b, "- %s: no issues\n", o.Tool)
		case battery.StatusFailed:
			fmt.Fprintf(&b, "- %s: did not run (%s)\n", o.Tool, o.Reason)
		case battery.StatusIssuesFound:
			fmt.Fprintf(&b, "- %s:\n```\n%s\n```\n",
				o.Tool, report.Truncate(o.Output, MaxContextPerTool, report.TruncationMarker))
		}
	}

	return b.String()
}

// classifyFailure maps a completion error onto its reported outcome line.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, llm.ErrConnection):
		return "❌ AI feedback unavailable: could not connect to the model provider"
	case errors.Is(err, llm.ErrRateLimit):
		return "❌ AI feedback unavailable: model provider rate limit exceeded"
	case errors.Is(err, llm.ErrAPI):
		return "❌ AI feedback unavailable: model provider returned an error"
	default:
		return "❌ AI feedback unavailable: unexpected failure"
	}
}
