// Package battery runs the fixed registry of static-analysis tools against
// a prepared sandbox environment and classifies each tool's result.
package battery

// Status is the three-way classification of a single tool run.
type Status string

const (
	// StatusNoIssues means the tool ran and produced no output.
	StatusNoIssues Status = "no_issues"

	// StatusIssuesFound means output was captured; exit status is irrelevant.
	StatusIssuesFound Status = "issues_found"

	// StatusFailed means the invocation produced no usable output even
	// after the shell fallback.
	StatusFailed Status = "failed"
)

// AnnotationTool is the tool whose line-oriented output feeds inline
// annotations (path:line:column:code message).
const AnnotationTool = "flake8"

// Outcome is the classified result of one tool run.
type Outcome struct {
	Tool   string `json:"tool"`
	Status Status `json:"status"`
	Output string `json:"output,omitempty"` // raw tool output for IssuesFound
	Reason string `json:"reason,omitempty"` // failure reason for Failed
}

// Result is the battery's output: one outcome per registered tool, in
// registry order, or the nothing-to-analyze sentinel.
type Result struct {
	NothingToAnalyze bool      `json:"nothing_to_analyze"`
	Outcomes         []Outcome `json:"outcomes,omitempty"`
}

// Outcome returns the outcome for the named tool, if present.
func (r *Result) Outcome(tool string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Tool == tool {
			return o, true
		}
	}
	return Outcome{}, false
}

// ToolSpec is an immutable registry entry: a tool name and its argv
// template over the changed-file list.
type ToolSpec struct {
	Name string
	Args func(files []string) []string
}

// DefaultRegistry returns the fixed tool battery. Order is significant:
// outcome and report ordering always follow it.
func DefaultRegistry() []ToolSpec {
	return []ToolSpec{
		{
			Name: "flake8",
			Args: func(files []string) []string {
				return append([]string{"flake8"}, files...)
			},
		},
		{
			Name: "black",
			Args: func(files []string) []string {
				return append([]string{"black", "--check", "--diff"}, files...)
			},
		},
		{
			Name: "mypy",
			Args: func(files []string) []string {
				return append([]string{"mypy"}, files...)
			},
		},
		{
			Name: "bandit",
			Args: func(files []string) []string {
				return append([]string{"bandit", "-r"}, files...)
			},
		},
		{
			Name: "isort",
			Args: func(files []string) []string {
				return append([]string{"isort", "--check-only", "--diff"}, files...)
			},
		},
	}
}
