// Package llm exposes a provider-neutral completion interface for the
// narrative feedback stage, with failure modes collapsed into three
// categories: connection, rate limit, and generic API error.
package llm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/reviewflow/internal/claude"
	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
	"github.com/tildaslashalef/reviewflow/internal/ollama"
)

var (
	// ErrConnection indicates the provider could not be reached.
	ErrConnection = errors.New("llm: connection failed")

	// ErrRateLimit indicates the provider rejected the request for rate reasons.
	ErrRateLimit = errors.New("llm: rate limited")

	// ErrAPI indicates any other provider-side failure.
	ErrAPI = errors.New("llm: api error")
)

// CompletionRequest is a single-turn completion with a system role.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client defines the completion contract consumed by the feedback stage.
type Client interface {
	// Complete sends one completion request and returns the model's text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ClientType defines the type of LLM client
type ClientType string

const (
	// Claude client type
	Claude ClientType = "claude"

	// Ollama client type
	Ollama ClientType = "ollama"
)

// Factory creates and returns LLM clients
type Factory struct {
	config *config.Config
	logger *loggy.Logger

	claudeLimiter *rate.Limiter
	ollamaLimiter *rate.Limiter
}

// newRateLimiter creates a rate limiter from requests-per-minute and burst
func newRateLimiter(rpm int, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// NewFactory creates a new LLM client factory
func NewFactory(cfg *config.Config, logger *loggy.Logger) *Factory {
	return &Factory{
		config: cfg,
		logger: logger,
		// Hosted APIs get a conservative limit; local Ollama is unlimited
		claudeLimiter: newRateLimiter(50, 5),
		ollamaLimiter: newRateLimiter(0, 0),
	}
}

// GetDefaultClient returns the client for the configured provider.
// Returns an error when no feedback provider is configured.
func (f *Factory) GetDefaultClient() (Client, ClientType, error) {
	switch f.config.LLMProvider {
	case string(Claude):
		c := newClaudeClientAdapter(claude.NewClient(f.config.Claude))
		return &rateLimitedClient{inner: c, limiter: f.claudeLimiter}, Claude, nil
	case string(Ollama):
		c := newOllamaClientAdapter(ollama.NewClient(f.config.Ollama))
		return &rateLimitedClient{inner: c, limiter: f.ollamaLimiter}, Ollama, nil
	case "", "none":
		return nil, "", fmt.Errorf("no feedback provider configured")
	default:
		return nil, "", fmt.Errorf("unknown provider %q", f.config.LLMProvider)
	}
}

// rateLimitedClient wraps a Client with a token-bucket limiter
type rateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

func (c *rateLimitedClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRateLimit, err)
	}
	return c.inner.Complete(ctx, req)
}
