package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultExcludePatterns are the snapshot exclusions applied when
// REVIEWFLOW_SANDBOX_EXCLUDE is not set. They keep version-control
// metadata, caches, and virtual environments out of the container.
var DefaultExcludePatterns = []string{
	".git", "__pycache__", "*.pyc", ".pytest_cache", "node_modules", ".venv", "venv",
}

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".reviewflow")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	cfg.configDir = configDir

	// Default database and log paths are in the config directory
	defaultDBPath := filepath.Join(configDir, "reviewflow.db")
	defaultLogPath := filepath.Join(configDir, "reviewflow.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// Check if ENV_FILE_PATH is set to load from a custom .env file
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		// Try to load from config directory first, then current directory
		if err := godotenv.Load(configFilePath); err != nil {
			_ = godotenv.Load() // Ignore errors if file doesn't exist
		}
	}

	// Required run parameters use the conventional GitHub Actions names
	prNumber := 0
	if raw := getEnvString("GITHUB_PR_NUMBER", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_PR_NUMBER %q: %w", raw, err)
		}
		prNumber = n
	}

	cfg.Run = RunConfig{
		Repository: getEnvString("GITHUB_REPOSITORY", ""),
		PRNumber:   prNumber,
		Token:      getEnvString("GITHUB_TOKEN", ""),
	}

	cfg.GitHub = GitHubConfig{
		APIURL:         getEnvString("REVIEWFLOW_GITHUB_API_URL", "https://api.github.com"),
		RequestTimeout: getEnvDuration("REVIEWFLOW_GITHUB_REQUEST_TIMEOUT", 30*time.Second),
	}

	cfg.Sandbox = SandboxConfig{
		Image:           getEnvString("REVIEWFLOW_SANDBOX_IMAGE", "python:3.12-slim"),
		Workdir:         getEnvString("REVIEWFLOW_SANDBOX_WORKDIR", "/src"),
		ExcludePatterns: splitList(getEnvString("REVIEWFLOW_SANDBOX_EXCLUDE", ""), DefaultExcludePatterns),
		ExecTimeout:     getEnvDuration("REVIEWFLOW_SANDBOX_EXEC_TIMEOUT", 5*time.Minute),
	}

	// Feedback is disabled unless a provider is configured
	cfg.LLMProvider = getEnvString("REVIEWFLOW_LLM_PROVIDER", "")

	cfg.Claude = ClaudeConfig{
		APIKey:      getEnvString("REVIEWFLOW_CLAUDE_API_KEY", ""),
		BaseURL:     getEnvString("REVIEWFLOW_CLAUDE_BASE_URL", "https://api.anthropic.com"),
		Model:       getEnvString("REVIEWFLOW_CLAUDE_MODEL", "claude-3-7-sonnet-20250219"),
		APIVersion:  getEnvString("REVIEWFLOW_CLAUDE_API_VERSION", "2023-06-01"),
		Timeout:     getEnvDuration("REVIEWFLOW_CLAUDE_TIMEOUT", 60*time.Second),
		MaxRetries:  getEnvInt("REVIEWFLOW_CLAUDE_MAX_RETRIES", 3),
		MaxTokens:   getEnvInt("REVIEWFLOW_CLAUDE_MAX_TOKENS", 1000),
		Temperature: getEnvFloat("REVIEWFLOW_CLAUDE_TEMPERATURE", 0.3),
	}

	cfg.Ollama = OllamaConfig{
		Endpoint:            getEnvString("REVIEWFLOW_OLLAMA_ENDPOINT", "http://localhost:11434"),
		Model:               getEnvString("REVIEWFLOW_OLLAMA_MODEL", "gemma3"),
		Timeout:             getEnvDuration("REVIEWFLOW_OLLAMA_TIMEOUT", 600*time.Second),
		MaxRetries:          getEnvInt("REVIEWFLOW_OLLAMA_MAX_RETRIES", 3),
		MaxTokens:           getEnvInt("REVIEWFLOW_OLLAMA_MAX_TOKENS", 1000),
		Temperature:         getEnvFloat("REVIEWFLOW_OLLAMA_TEMPERATURE", 0.3),
		MaxIdleConns:        getEnvInt("REVIEWFLOW_OLLAMA_MAX_IDLE_CONNS", 100),
		MaxIdleConnsPerHost: getEnvInt("REVIEWFLOW_OLLAMA_MAX_IDLE_CONNS_PER_HOST", 100),
		IdleConnTimeout:     getEnvDuration("REVIEWFLOW_OLLAMA_IDLE_CONN_TIMEOUT", 120*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Path:            getEnvString("REVIEWFLOW_DB_PATH", defaultDBPath),
		BusyTimeout:     getEnvInt("REVIEWFLOW_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("REVIEWFLOW_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("REVIEWFLOW_DB_SYNCHRONOUS_MODE", "NORMAL"),
		ForeignKeys:     getEnvBool("REVIEWFLOW_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("REVIEWFLOW_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("REVIEWFLOW_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("REVIEWFLOW_LOG_LEVEL", "info"),
		Format:     getEnvString("REVIEWFLOW_LOG_FORMAT", "text"),
		Output:     getEnvString("REVIEWFLOW_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("REVIEWFLOW_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("REVIEWFLOW_LOG_TIME_FORMAT", time.RFC3339),
	}

	return cfg, cfg.Validate()
}

// splitList parses a comma-separated env value, falling back when empty.
func splitList(raw string, fallback []string) []string {
	if raw == "" {
		return fallback
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
