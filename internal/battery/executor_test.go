package battery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// fakeEnv scripts per-tool behavior keyed by argv[0]
type fakeEnv struct {
	outputs    map[string]string
	execErrs   map[string]error
	shellOut   map[string]string
	shellErrs  map[string]error
	execCalls  []string
	shellCalls []string
}

func (f *fakeEnv) Exec(_ context.Context, argv []string) (string, bool, error) {
	tool := argv[0]
	f.execCalls = append(f.execCalls, tool)
	if err, ok := f.execErrs[tool]; ok {
		return "", false, err
	}
	return f.outputs[tool], true, nil
}

func (f *fakeEnv) ExecShell(_ context.Context, argv []string) (string, bool, error) {
	tool := argv[0]
	f.shellCalls = append(f.shellCalls, tool)
	if err, ok := f.shellErrs[tool]; ok {
		return "", false, err
	}
	return f.shellOut[tool], true, nil
}

func toolNames(r *Result) []string {
	names := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		names[i] = o.Tool
	}
	return names
}

func TestRunEmptyFileSet(t *testing.T) {
	env := &fakeEnv{}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, nil)

	assert.True(t, result.NothingToAnalyze)
	assert.Empty(t, result.Outcomes)
	assert.Empty(t, env.execCalls, "no tool may be invoked")
}

func TestRunAllClean(t *testing.T) {
	env := &fakeEnv{outputs: map[string]string{}}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, []string{"a.py"})

	require.Len(t, result.Outcomes, 5)
	for _, o := range result.Outcomes {
		assert.Equal(t, StatusNoIssues, o.Status, "tool %s", o.Tool)
	}
	assert.Equal(t, []string{"flake8", "black", "mypy", "bandit", "isort"}, toolNames(result))
}

func TestRunOneToolWithFindings(t *testing.T) {
	env := &fakeEnv{outputs: map[string]string{
		"flake8": "a.py:1:1: F401 'os' imported but unused\na.py:9:80: E501 line too long\n",
	}}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, []string{"a.py"})

	require.Len(t, result.Outcomes, 5)
	flake8, ok := result.Outcome("flake8")
	require.True(t, ok)
	assert.Equal(t, StatusIssuesFound, flake8.Status)
	assert.Contains(t, flake8.Output, "F401")

	for _, o := range result.Outcomes[1:] {
		assert.Equal(t, StatusNoIssues, o.Status)
	}
}

func TestRunToolCrashDoesNotAbortBatch(t *testing.T) {
	env := &fakeEnv{
		outputs:   map[string]string{"isort": "ERROR: a.py Imports are incorrectly sorted.\n"},
		execErrs:  map[string]error{"mypy": errors.New("exec \"mypy\": exit status 127 with no output")},
		shellErrs: map[string]error{"mypy": errors.New("exec \"sh\": container gone")},
	}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, []string{"a.py", "b.py"})

	require.Len(t, result.Outcomes, 5, "exactly one outcome per registered tool")
	assert.Equal(t, []string{"flake8", "black", "mypy", "bandit", "isort"}, toolNames(result))

	mypy, _ := result.Outcome("mypy")
	assert.Equal(t, StatusFailed, mypy.Status)
	assert.Contains(t, mypy.Reason, "container gone")

	isort, _ := result.Outcome("isort")
	assert.Equal(t, StatusIssuesFound, isort.Status)
}

func TestRunShellFallbackRecoversOutput(t *testing.T) {
	env := &fakeEnv{
		execErrs: map[string]error{"black": errors.New("stream unreadable")},
		shellOut: map[string]string{"black": "would reformat a.py\nexit status: 1\n"},
	}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, []string{"a.py"})

	black, _ := result.Outcome("black")
	assert.Equal(t, StatusIssuesFound, black.Status)
	assert.Contains(t, black.Output, "would reformat")
	assert.Equal(t, []string{"black"}, env.shellCalls, "fallback used only for the failing tool")
}

func TestRunAllToolsFail(t *testing.T) {
	execErrs := map[string]error{}
	shellErrs := map[string]error{}
	for _, spec := range DefaultRegistry() {
		execErrs[spec.Name] = errors.New("boom")
		shellErrs[spec.Name] = errors.New("boom again")
	}
	env := &fakeEnv{execErrs: execErrs, shellErrs: shellErrs}
	exec := NewExecutor(DefaultRegistry(), loggy.NewNoopLogger())

	result := exec.Run(context.Background(), env, []string{"a.py"})

	require.Len(t, result.Outcomes, 5)
	for _, o := range result.Outcomes {
		assert.Equal(t, StatusFailed, o.Status)
	}
}

func TestRegistryArgvTemplates(t *testing.T) {
	files := []string{"a.py", "pkg/b.py"}
	argvs := map[string][]string{}
	for _, spec := range DefaultRegistry() {
		argvs[spec.Name] = spec.Args(files)
	}

	assert.Equal(t, []string{"flake8", "a.py", "pkg/b.py"}, argvs["flake8"])
	assert.Equal(t, []string{"black", "--check", "--diff", "a.py", "pkg/b.py"}, argvs["black"])
	assert.Equal(t, []string{"bandit", "-r", "a.py", "pkg/b.py"}, argvs["bandit"])
	assert.True(t, strings.HasPrefix(strings.Join(argvs["isort"], " "), "isort --check-only --diff"))
}
