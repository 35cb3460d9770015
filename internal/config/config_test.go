package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Run: RunConfig{
			Repository: "octocat/hello-world",
			PRNumber:   42,
			Token:      "ghp_test",
		},
		Sandbox: SandboxConfig{
			Image:       "python:3.12-slim",
			Workdir:     "/src",
			ExecTimeout: time.Minute,
		},
	}
}

func TestValidateRun(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing repository",
			mutate:  func(c *Config) { c.Run.Repository = "" },
			wantErr: "GITHUB_REPOSITORY is required",
		},
		{
			name:    "repository without owner",
			mutate:  func(c *Config) { c.Run.Repository = "/hello-world" },
			wantErr: "owner/name form",
		},
		{
			name:    "repository without slash",
			mutate:  func(c *Config) { c.Run.Repository = "hello-world" },
			wantErr: "owner/name form",
		},
		{
			name:    "zero pr number",
			mutate:  func(c *Config) { c.Run.PRNumber = 0 },
			wantErr: "GITHUB_PR_NUMBER",
		},
		{
			name:    "negative pr number",
			mutate:  func(c *Config) { c.Run.PRNumber = -3 },
			wantErr: "GITHUB_PR_NUMBER",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Run.Token = "" },
			wantErr: "GITHUB_TOKEN is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.ValidateRun()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestValidateLLMProvider(t *testing.T) {
	cfg := validConfig()

	cfg.LLMProvider = ""
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.FeedbackEnabled())

	cfg.LLMProvider = "claude"
	assert.Error(t, cfg.Validate(), "claude without api key must fail")

	cfg.Claude.APIKey = "sk-test"
	cfg.Claude.BaseURL = "https://api.anthropic.com"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.FeedbackEnabled())

	cfg.LLMProvider = "watson"
	assert.Error(t, cfg.Validate())
}

func TestRepoOwnerName(t *testing.T) {
	cfg := validConfig()
	owner, name := cfg.RepoOwnerName()
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello-world", name)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "octocat/spoon-knife")
	t.Setenv("GITHUB_PR_NUMBER", "7")
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	t.Setenv("REVIEWFLOW_SANDBOX_IMAGE", "python:3.13-slim")
	t.Setenv("REVIEWFLOW_SANDBOX_EXCLUDE", ".git, dist ,")
	t.Setenv("REVIEWFLOW_GITHUB_REQUEST_TIMEOUT", "10s")

	cfg, err := LoadFromEnv(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "octocat/spoon-knife", cfg.Run.Repository)
	assert.Equal(t, 7, cfg.Run.PRNumber)
	assert.Equal(t, "ghp_env", cfg.Run.Token)
	assert.Equal(t, "python:3.13-slim", cfg.Sandbox.Image)
	assert.Equal(t, []string{".git", "dist"}, cfg.Sandbox.ExcludePatterns)
	assert.Equal(t, 10*time.Second, cfg.GitHub.RequestTimeout)
	assert.NoError(t, cfg.ValidateRun())
}

func TestLoadFromEnvInvalidPRNumber(t *testing.T) {
	t.Setenv("GITHUB_PR_NUMBER", "seven")

	_, err := LoadFromEnv(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_PR_NUMBER")
}

func TestGlobalGetSet(t *testing.T) {
	cfg := validConfig()
	Set(cfg)

	got, err := Get()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
