// Package sandbox prepares an isolated container environment for the
// analysis tool battery and executes commands inside it.
//
// The environment is built exactly once per run: a detached container is
// started from the configured base image, a filtered snapshot of the
// repository is copied in, and project dependencies are installed. Every
// tool invocation then reuses the same container via docker exec, so a
// persistent working directory is shared across the whole battery.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

// ErrDockerUnavailable is returned when the docker CLI or daemon cannot be used.
var ErrDockerUnavailable = errors.New("sandbox: docker unavailable")

// Runner builds container environments
type Runner struct {
	cfg    config.SandboxConfig
	logger *loggy.Logger

	// runDocker is swapped out in tests
	runDocker dockerFunc
}

type dockerFunc func(ctx context.Context, timeout time.Duration, args ...string) (stdout, stderr string, exitCode int, err error)

// NewRunner creates a new sandbox runner
func NewRunner(cfg config.SandboxConfig, logger *loggy.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		runDocker: runDockerCommand,
	}
}

// Environment is a prepared container: commands run against its persistent
// working directory until Close.
type Environment struct {
	containerID string
	workdir     string
	execTimeout time.Duration
	logger      *loggy.Logger
	runDocker   dockerFunc
}

// BuildEnvironment prepares the analysis environment for the repository at
// dir. Any failure here is fatal to the run; callers must not retry.
func (r *Runner) BuildEnvironment(ctx context.Context, dir string) (*Environment, error) {
	if err := r.checkDocker(ctx); err != nil {
		return nil, err
	}

	root, headSHA := resolveRepoRoot(dir, r.logger)

	staging, err := stageSnapshot(root, r.cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("staging repository snapshot: %w", err)
	}
	defer os.RemoveAll(staging)

	stdout, stderr, code, err := r.runDocker(ctx, r.cfg.ExecTimeout,
		"run", "-d", "--rm", r.cfg.Image, "sleep", "infinity")
	if err != nil {
		return nil, fmt.Errorf("starting container from %s: %w", r.cfg.Image, err)
	}
	if code != 0 {
		return nil, fmt.Errorf("starting container from %s: %s", r.cfg.Image, strings.TrimSpace(stderr))
	}
	containerID := strings.TrimSpace(stdout)

	env := &Environment{
		containerID: containerID,
		workdir:     r.cfg.Workdir,
		execTimeout: r.cfg.ExecTimeout,
		logger:      r.logger,
		runDocker:   r.runDocker,
	}

	r.logger.Info("Sandbox container started",
		"container", shortID(containerID),
		"image", r.cfg.Image,
		"head_sha", headSHA,
	)

	if _, stderr, code, err = r.runDocker(ctx, r.cfg.ExecTimeout,
		"exec", containerID, "mkdir", "-p", r.cfg.Workdir); err != nil || code != 0 {
		env.Close()
		return nil, fmt.Errorf("creating workdir %s: %s", r.cfg.Workdir, execFailure(err, stderr))
	}

	if _, stderr, code, err = r.runDocker(ctx, r.cfg.ExecTimeout,
		"cp", staging+"/.", containerID+":"+r.cfg.Workdir); err != nil || code != 0 {
		env.Close()
		return nil, fmt.Errorf("copying snapshot into container: %s", execFailure(err, stderr))
	}

	if err := r.installDependencies(ctx, env, root); err != nil {
		env.Close()
		return nil, fmt.Errorf("installing dependencies: %w", err)
	}

	return env, nil
}

// installDependencies runs the one-time dependency install step. Project
// manifests take precedence; without one, the fixed tool set is installed.
func (r *Runner) installDependencies(ctx context.Context, env *Environment, root string) error {
	steps := installCommands(root)

	for _, argv := range steps {
		out, ok, err := env.Exec(ctx, argv)
		if err != nil {
			return fmt.Errorf("running %q: %w", strings.Join(argv, " "), err)
		}
		if !ok {
			return fmt.Errorf("running %q: %s", strings.Join(argv, " "), lastLine(out))
		}
	}

	r.logger.Info("Sandbox dependencies installed", "steps", len(steps))
	return nil
}

// installCommands decides the dependency-install sequence for the repo at root.
func installCommands(root string) [][]string {
	steps := [][]string{
		{"pip", "install", "--quiet", "uv"},
	}

	switch {
	case fileExists(filepath.Join(root, "pyproject.toml")):
		steps = append(steps, []string{"uv", "sync", "--no-progress"})
	case fileExists(filepath.Join(root, "requirements.txt")):
		steps = append(steps, []string{"uv", "pip", "install", "--system", "-r", "requirements.txt"})
	default:
		steps = append(steps, []string{"uv", "pip", "install", "--system",
			"flake8", "black", "mypy", "pylint", "bandit", "isort"})
	}

	return steps
}

// Exec runs argv inside the environment's working directory.
//
// The returned error is set only for invocation-level failures (the command
// could not be run at all, or the deadline expired with nothing captured).
// A tool that exits non-zero but produced output is reported as
// (output, true, nil): exit status is not the signal here, captured text is.
func (e *Environment) Exec(ctx context.Context, argv []string) (string, bool, error) {
	if len(argv) == 0 {
		return "", false, fmt.Errorf("empty argv")
	}

	args := append([]string{"exec", "-w", e.workdir, e.containerID}, argv...)
	stdout, stderr, code, err := e.runDocker(ctx, e.execTimeout, args...)
	if err != nil {
		return "", false, fmt.Errorf("exec %q: %w", argv[0], err)
	}

	output := stdout
	if strings.TrimSpace(output) == "" {
		// Several tools report findings on stderr only
		output = stderr
	}

	if code == 0 {
		return output, true, nil
	}

	// docker exec reflects the tool's own exit status; captured output
	// still counts as a successful capture
	if strings.TrimSpace(output) != "" {
		return output, true, nil
	}

	return "", false, fmt.Errorf("exec %q: exit status %d with no output", argv[0], code)
}

// ExecShell re-runs argv wrapped in a shell sequence that appends the exit
// status, recovering partial output when the direct invocation failed.
func (e *Environment) ExecShell(ctx context.Context, argv []string) (string, bool, error) {
	return e.Exec(ctx, []string{"sh", "-c", ShellFallback(argv)})
}

// ShellFallback builds the wrapped command line used by ExecShell.
func ShellFallback(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ") + ` 2>&1; echo "exit status: $?"`
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&|;<>()*?[]#~`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Close tears the container down. Safe to call more than once.
func (e *Environment) Close() error {
	if e.containerID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, stderr, code, err := e.runDocker(ctx, 30*time.Second, "kill", e.containerID)
	e.containerID = ""
	if err != nil {
		return fmt.Errorf("killing container: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("killing container: %s", strings.TrimSpace(stderr))
	}
	return nil
}

// checkDocker verifies the docker CLI and daemon are reachable
func (r *Runner) checkDocker(ctx context.Context) error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}

	_, stderr, code, err := r.runDocker(ctx, 10*time.Second, "info", "--format", "{{.ServerVersion}}")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: %s", ErrDockerUnavailable, strings.TrimSpace(stderr))
	}
	return nil
}

// resolveRepoRoot walks up from dir to the enclosing git worktree root and
// reports the HEAD commit for logging. Falls back to dir when no repository
// is found.
func resolveRepoRoot(dir string, logger *loggy.Logger) (root string, headSHA string) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.Debug("Not inside a git repository, mounting directory as-is", "dir", dir)
		return dir, ""
	}

	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	} else {
		root = dir
	}

	if head, err := repo.Head(); err == nil && head.Hash() != plumbing.ZeroHash {
		headSHA = head.Hash().String()
	}

	return root, headSHA
}

// stageSnapshot copies the tree at root into a fresh temp directory,
// skipping entries matched by the exclude patterns.
func stageSnapshot(root string, exclude []string) (string, error) {
	staging, err := os.MkdirTemp("", "reviewflow-snapshot-")
	if err != nil {
		return "", err
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if excluded(d.Name(), exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := filepath.Join(staging, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, dst)
	})
	if err != nil {
		os.RemoveAll(staging)
		return "", err
	}

	return staging, nil
}

// excluded matches a path component against the exclude patterns
func excluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// execFailure describes a failed docker step: the invocation error when
// there was one, otherwise the captured stderr.
func execFailure(err error, stderr string) string {
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(stderr)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// runDockerCommand executes the docker CLI
func runDockerCommand(ctx context.Context, timeout time.Duration, args ...string) (string, string, int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}

	return stdout.String(), stderr.String(), 0, nil
}
