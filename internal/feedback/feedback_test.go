package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/reviewflow/internal/battery"
	"github.com/tildaslashalef/reviewflow/internal/llm"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
	"github.com/tildaslashalef/reviewflow/internal/report"
)

type fakeDiffs struct {
	diff string
	err  error
}

func (f *fakeDiffs) GetDiff(context.Context, int) (string, error) {
	return f.diff, f.err
}

type fakeClient struct {
	lastReq llm.CompletionRequest
	text    string
	err     error
}

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func cleanResult() *battery.Result {
	return &battery.Result{Outcomes: []battery.Outcome{
		{Tool: "flake8", Status: battery.StatusNoIssues},
		{Tool: "black", Status: battery.StatusNoIssues},
	}}
}

func TestGenerateSuccess(t *testing.T) {
	client := &fakeClient{text: "- Consider handling the error from open()."}
	g := NewGenerator(&fakeDiffs{diff: "+import os\n"}, client, loggy.NewNoopLogger())

	got := g.Generate(context.Background(), 42, cleanResult())

	assert.Equal(t, "- Consider handling the error from open().", got)
	assert.Contains(t, client.lastReq.System, "reviewing a pull request")
	assert.Contains(t, client.lastReq.Prompt, "+import os")
	assert.Contains(t, client.lastReq.Prompt, "flake8: no issues")
}

func TestGenerateDiffFetchFailure(t *testing.T) {
	client := &fakeClient{text: "unused"}
	g := NewGenerator(&fakeDiffs{err: errors.New("502")}, client, loggy.NewNoopLogger())

	got := g.Generate(context.Background(), 42, cleanResult())

	assert.Contains(t, got, "❌")
	assert.Contains(t, got, "could not fetch the pull request diff")
	assert.Empty(t, client.lastReq.Prompt, "model must not be called without a diff")
}

func TestGenerateDiffTruncation(t *testing.T) {
	long := strings.Repeat("d", MaxDiffLength+1000)
	client := &fakeClient{text: "ok"}
	g := NewGenerator(&fakeDiffs{diff: long}, client, loggy.NewNoopLogger())

	g.Generate(context.Background(), 42, cleanResult())

	capped := strings.Repeat("d", MaxDiffLength) + DiffTruncationMarker
	assert.Contains(t, client.lastReq.Prompt, capped)
	assert.NotContains(t, client.lastReq.Prompt, strings.Repeat("d", MaxDiffLength+1))
}

func TestGenerateContextBlobCap(t *testing.T) {
	long := strings.Repeat("o", MaxContextPerTool+500)
	result := &battery.Result{Outcomes: []battery.Outcome{
		{Tool: "flake8", Status: battery.StatusIssuesFound, Output: long},
		{Tool: "mypy", Status: battery.StatusFailed, Reason: "crashed"},
	}}
	client := &fakeClient{text: "ok"}
	g := NewGenerator(&fakeDiffs{diff: "+x\n"}, client, loggy.NewNoopLogger())

	g.Generate(context.Background(), 42, result)

	assert.Contains(t, client.lastReq.Prompt, strings.Repeat("o", MaxContextPerTool)+report.TruncationMarker)
	assert.NotContains(t, client.lastReq.Prompt, strings.Repeat("o", MaxContextPerTool+1))
	assert.Contains(t, client.lastReq.Prompt, "mypy: did not run (crashed)")
}

func TestGenerateFailureCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"connection", fmt.Errorf("dial: %w", llm.ErrConnection), "could not connect"},
		{"rate limit", fmt.Errorf("429: %w", llm.ErrRateLimit), "rate limit exceeded"},
		{"api error", fmt.Errorf("500: %w", llm.ErrAPI), "returned an error"},
		{"uncategorized", errors.New("weird"), "unexpected failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&fakeDiffs{diff: "+x\n"}, &fakeClient{err: tt.err}, loggy.NewNoopLogger())

			got := g.Generate(context.Background(), 42, cleanResult())

			require.True(t, strings.HasPrefix(got, "❌"))
			assert.Contains(t, got, tt.want)
			assert.NotContains(t, got, "\n", "failure outcome is a single line")
		})
	}
}
