package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tildaslashalef/reviewflow/internal/battery"
)

// ArtifactPath returns the deterministic artifact file name for a change.
func ArtifactPath(dir string, prNumber int) string {
	return filepath.Join(dir, fmt.Sprintf("review-%d.json", prNumber))
}

// WriteArtifact persists the raw tool outcomes as a JSON object keyed by
// tool name. The file is an external-facing artifact and is never read
// back by the pipeline.
func WriteArtifact(dir string, prNumber int, result *battery.Result) error {
	payload := make(map[string]string, len(result.Outcomes))

	if result.NothingToAnalyze {
		payload["info"] = NothingToAnalyze
	}

	for _, o := range result.Outcomes {
		switch o.Status {
		case battery.StatusNoIssues:
			payload[o.Tool] = fmt.Sprintf("✅ %s: No issues found", o.Tool)
		case battery.StatusFailed:
			payload[o.Tool] = fmt.Sprintf("❌ %s: Analysis failed - %s", o.Tool, o.Reason)
		case battery.StatusIssuesFound:
			payload[o.Tool] = o.Output
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	path := ArtifactPath(dir, prNumber)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing artifact %s: %w", path, err)
	}
	return nil
}
