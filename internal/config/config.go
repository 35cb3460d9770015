// Package config provides environment-driven configuration for reviewflow.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	LLMProvider string // Which provider to use for narrative feedback (claude, ollama, or empty to disable)
	Run         RunConfig
	GitHub      GitHubConfig
	Sandbox     SandboxConfig
	Claude      ClaudeConfig
	Ollama      OllamaConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	configDir   string // Internal: Directory where config was loaded from
}

// RunConfig holds the required parameters for a single review run.
// All three are mandatory and validated before any component runs.
type RunConfig struct {
	Repository string // "owner/name", from GITHUB_REPOSITORY
	PRNumber   int    // from GITHUB_PR_NUMBER
	Token      string // from GITHUB_TOKEN
}

// GitHubConfig represents GitHub-specific configuration
type GitHubConfig struct {
	APIURL         string        // GitHub API base URL
	RequestTimeout time.Duration // Request timeout for GitHub API
}

// SandboxConfig represents the container environment configuration
type SandboxConfig struct {
	Image           string        // Base container image for the analysis environment
	Workdir         string        // Working directory inside the container
	ExcludePatterns []string      // Patterns excluded from the mounted snapshot
	ExecTimeout     time.Duration // Timeout for a single command execution
}

// ClaudeConfig holds configuration for the Claude API client
type ClaudeConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// OllamaConfig holds configuration for the Ollama client
type OllamaConfig struct {
	Endpoint            string
	Model               string
	Timeout             time.Duration
	MaxRetries          int
	MaxTokens           int
	Temperature         float64
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DatabaseConfig represents the run-history database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// New returns an empty configuration with zero values
func New() *Config {
	return &Config{}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks configuration sections that must be coherent regardless
// of run parameters. Run parameters themselves are checked by ValidateRun.
func (c *Config) Validate() error {
	if err := c.validateSandbox(); err != nil {
		return fmt.Errorf("sandbox config: %w", err)
	}

	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}

	return nil
}

// ValidateRun checks the three required run parameters. A failure here is a
// configuration error: the process must exit non-zero without any network calls.
func (c *Config) ValidateRun() error {
	if c.Run.Repository == "" {
		return fmt.Errorf("GITHUB_REPOSITORY is required")
	}

	parts := strings.Split(c.Run.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("GITHUB_REPOSITORY must be in owner/name form, got %q", c.Run.Repository)
	}

	if c.Run.PRNumber <= 0 {
		return fmt.Errorf("GITHUB_PR_NUMBER must be a positive integer")
	}

	if c.Run.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}

	return nil
}

// RepoOwnerName splits the configured repository identifier into owner and name.
func (c *Config) RepoOwnerName() (string, string) {
	parts := strings.SplitN(c.Run.Repository, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func (c *Config) validateSandbox() error {
	if c.Sandbox.Image == "" {
		return fmt.Errorf("image cannot be empty")
	}

	if c.Sandbox.Workdir == "" {
		return fmt.Errorf("workdir cannot be empty")
	}

	if c.Sandbox.ExecTimeout <= 0 {
		return fmt.Errorf("exec timeout must be positive")
	}

	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLMProvider {
	case "", "none":
		return nil
	case "claude":
		if c.Claude.APIKey == "" {
			return fmt.Errorf("claude api key required when provider is claude")
		}
		if c.Claude.BaseURL == "" {
			return fmt.Errorf("claude base url cannot be empty")
		}
		return nil
	case "ollama":
		if c.Ollama.Endpoint == "" {
			return fmt.Errorf("ollama endpoint cannot be empty")
		}
		return nil
	default:
		return fmt.Errorf("unknown provider %q (must be claude, ollama, or none)", c.LLMProvider)
	}
}

// FeedbackEnabled reports whether the narrative feedback stage is configured.
func (c *Config) FeedbackEnabled() bool {
	return c.LLMProvider != "" && c.LLMProvider != "none"
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}
