package battery

import (
	"context"
	"strings"

	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// Environment is the sandbox contract the executor needs: direct execution
// plus the shell-wrapped fallback form.
type Environment interface {
	Exec(ctx context.Context, argv []string) (output string, succeeded bool, err error)
	ExecShell(ctx context.Context, argv []string) (output string, succeeded bool, err error)
}

// Executor runs every registered tool against one environment.
type Executor struct {
	registry []ToolSpec
	logger   *loggy.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry []ToolSpec, logger *loggy.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger,
	}
}

// Run executes the battery over the changed files. It always returns one
// outcome per registered tool, in registry order: a tool crash is downgraded
// to a Failed outcome and the batch continues. An empty file list
// short-circuits to the nothing-to-analyze sentinel without invoking any tool.
func (e *Executor) Run(ctx context.Context, env Environment, files []string) *Result {
	if len(files) == 0 {
		e.logger.Info("No files to analyze, skipping tool battery")
		return &Result{NothingToAnalyze: true}
	}

	result := &Result{Outcomes: make([]Outcome, 0, len(e.registry))}

	for _, spec := range e.registry {
		result.Outcomes = append(result.Outcomes, e.runTool(ctx, env, spec, files))
	}

	return result
}

// runTool invokes one tool and classifies the result. The fallback policy:
// a primary invocation failure triggers exactly one shell-wrapped retry
// before the tool is marked Failed.
func (e *Executor) runTool(ctx context.Context, env Environment, spec ToolSpec, files []string) Outcome {
	argv := spec.Args(files)

	output, _, err := env.Exec(ctx, argv)
	if err != nil {
		e.logger.Warn("Tool invocation failed, retrying via shell fallback",
			"tool", spec.Name, "error", err)

		output, _, err = env.ExecShell(ctx, argv)
		if err != nil {
			e.logger.Error("Tool failed after fallback", "tool", spec.Name, "error", err)
			return Outcome{
				Tool:   spec.Name,
				Status: StatusFailed,
				Reason: err.Error(),
			}
		}
	}

	if strings.TrimSpace(output) == "" {
		return Outcome{
			Tool:   spec.Name,
			Status: StatusNoIssues,
		}
	}

	return Outcome{
		Tool:   spec.Name,
		Status: StatusIssuesFound,
		Output: output,
	}
}
