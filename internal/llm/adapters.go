package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tildaslashalef/reviewflow/internal/claude"
	"github.com/tildaslashalef/reviewflow/internal/ollama"
)

// claudeClientAdapter adapts the Claude client to the LLM Client interface
type claudeClientAdapter struct {
	client *claude.Client
}

// newClaudeClientAdapter creates a new Claude client adapter
func newClaudeClientAdapter(client *claude.Client) *claudeClientAdapter {
	return &claudeClientAdapter{client: client}
}

// Complete implements the Client interface for Claude
func (a *claudeClientAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	claudeReq := claude.ChatRequest{
		Model:  req.Model,
		System: req.System,
		Messages: []claude.Message{
			{Role: "user", Content: req.Prompt},
		},
	}

	if req.MaxTokens > 0 {
		claudeReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		claudeReq.Temperature = &temp
	}

	resp, err := a.client.GenerateChat(ctx, claudeReq)
	if err != nil {
		return "", classifyClaudeError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrAPI)
	}

	return text, nil
}

// classifyClaudeError maps provider errors onto the package sentinels
func classifyClaudeError(err error) error {
	switch {
	case errors.Is(err, claude.ErrConnection):
		return fmt.Errorf("%w: %v", ErrConnection, err)
	case errors.Is(err, claude.ErrRateLimited):
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	default:
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
}

// ollamaClientAdapter adapts the Ollama client to the LLM Client interface
type ollamaClientAdapter struct {
	client *ollama.Client
}

// newOllamaClientAdapter creates a new Ollama client adapter
func newOllamaClientAdapter(client *ollama.Client) *ollamaClientAdapter {
	return &ollamaClientAdapter{client: client}
}

// Complete implements the Client interface for Ollama
func (a *ollamaClientAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]ollama.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: req.Prompt})

	ollamaReq := ollama.ChatRequest{
		Model:    req.Model,
		Messages: messages,
	}

	options := &ollama.RequestOptions{}
	if req.MaxTokens > 0 {
		numPredict := req.MaxTokens
		options.NumPredict = &numPredict
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		options.Temperature = &temp
	}
	ollamaReq.Options = options

	resp, err := a.client.GenerateChat(ctx, ollamaReq)
	if err != nil {
		if errors.Is(err, ollama.ErrConnection) {
			return "", fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return "", fmt.Errorf("%w: %v", ErrAPI, err)
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrAPI)
	}

	return text, nil
}
