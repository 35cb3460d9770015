package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

type dockerCall struct {
	args []string
}

// fakeDocker records docker invocations and replays scripted results
type fakeDocker struct {
	calls   []dockerCall
	results []struct {
		stdout string
		stderr string
		code   int
		err    error
	}
}

func (f *fakeDocker) run(_ context.Context, _ time.Duration, args ...string) (string, string, int, error) {
	f.calls = append(f.calls, dockerCall{args: args})
	if len(f.results) == 0 {
		return "", "", 0, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.stdout, r.stderr, r.code, r.err
}

func testEnv(fake *fakeDocker) *Environment {
	return &Environment{
		containerID: "cafebabe",
		workdir:     "/src",
		execTimeout: time.Minute,
		logger:      loggy.NewNoopLogger(),
		runDocker:   fake.run,
	}
}

func TestExecCleanRun(t *testing.T) {
	fake := &fakeDocker{}
	fake.results = append(fake.results, struct {
		stdout string
		stderr string
		code   int
		err    error
	}{stdout: "", code: 0})

	env := testEnv(fake)
	out, ok, err := env.Exec(context.Background(), []string{"flake8", "app.py"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, out)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{"exec", "-w", "/src", "cafebabe", "flake8", "app.py"}, fake.calls[0].args)
}

func TestExecNonZeroExitWithOutput(t *testing.T) {
	fake := &fakeDocker{}
	fake.results = append(fake.results, struct {
		stdout string
		stderr string
		code   int
		err    error
	}{stdout: "app.py:1:1: F401 unused import\n", code: 1})

	env := testEnv(fake)
	out, ok, err := env.Exec(context.Background(), []string{"flake8", "app.py"})
	require.NoError(t, err)
	assert.True(t, ok, "captured output counts as a successful run")
	assert.Contains(t, out, "F401")
}

func TestExecStderrFallback(t *testing.T) {
	fake := &fakeDocker{}
	fake.results = append(fake.results, struct {
		stdout string
		stderr string
		code   int
		err    error
	}{stderr: "would reformat app.py\n", code: 1})

	env := testEnv(fake)
	out, ok, err := env.Exec(context.Background(), []string{"black", "--check", "app.py"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out, "would reformat")
}

func TestExecNoOutputNonZero(t *testing.T) {
	fake := &fakeDocker{}
	fake.results = append(fake.results, struct {
		stdout string
		stderr string
		code   int
		err    error
	}{code: 127})

	env := testEnv(fake)
	_, ok, err := env.Exec(context.Background(), []string{"mypy"})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "exit status 127")
}

func TestExecFailure(t *testing.T) {
	assert.Equal(t, "daemon gone", execFailure(errors.New("daemon gone"), "ignored"))
	assert.Equal(t, "mkdir: permission denied", execFailure(nil, "mkdir: permission denied\n"))
	assert.NotContains(t, execFailure(nil, "disk full\n"), "nil")
}

func TestShellFallback(t *testing.T) {
	line := ShellFallback([]string{"flake8", "my file.py"})
	assert.Equal(t, `flake8 'my file.py' 2>&1; echo "exit status: $?"`, line)
}

func TestInstallCommands(t *testing.T) {
	t.Run("pyproject", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\n"), 0644))

		steps := installCommands(dir)
		require.Len(t, steps, 2)
		assert.Equal(t, []string{"uv", "sync", "--no-progress"}, steps[1])
	})

	t.Run("requirements", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flake8\n"), 0644))

		steps := installCommands(dir)
		require.Len(t, steps, 2)
		assert.Equal(t, []string{"uv", "pip", "install", "--system", "-r", "requirements.txt"}, steps[1])
	})

	t.Run("bare repo installs tool set", func(t *testing.T) {
		steps := installCommands(t.TempDir())
		require.Len(t, steps, 2)
		assert.Contains(t, steps[1], "flake8")
		assert.Contains(t, steps[1], "bandit")
	})
}

func TestStageSnapshot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg", "__pycache__"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("print('hi')\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.pyc"), []byte{0}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "mod.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte(""), 0644))

	staging, err := stageSnapshot(root, config.DefaultExcludePatterns)
	require.NoError(t, err)
	defer os.RemoveAll(staging)

	assert.FileExists(t, filepath.Join(staging, "app.py"))
	assert.FileExists(t, filepath.Join(staging, "pkg", "mod.py"))
	assert.NoFileExists(t, filepath.Join(staging, "app.pyc"))
	assert.NoDirExists(t, filepath.Join(staging, ".git"))
	assert.NoDirExists(t, filepath.Join(staging, "pkg", "__pycache__"))
}

func TestExcluded(t *testing.T) {
	patterns := config.DefaultExcludePatterns

	assert.True(t, excluded(".git", patterns))
	assert.True(t, excluded("cache.pyc", patterns))
	assert.True(t, excluded("venv", patterns))
	assert.False(t, excluded("app.py", patterns))
	assert.False(t, excluded("gitlog.txt", patterns))
}
