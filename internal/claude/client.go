// Package claude implements an Anthropic Claude messages API client.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/tildaslashalef/reviewflow/internal/config"
	"github.com/tildaslashalef/reviewflow/internal/loggy"
)

var (
	// ErrConnection indicates the API could not be reached at all.
	ErrConnection = errors.New("claude: connection failed")

	// ErrRateLimited indicates the API returned 429.
	ErrRateLimited = errors.New("claude: rate limited")
)

// Client represents an Anthropic Claude API client
type Client struct {
	apiKey           string
	baseURL          string
	defaultModel     string
	httpClient       *http.Client
	maxRetries       int
	defaultMaxTokens int
	apiVersion       string
	temperature      *float64
}

// NewClient creates a new Claude client from config
func NewClient(cfg config.ClaudeConfig) *Client {
	// Ensure baseURL doesn't end with a slash
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2023-06-01"
	}

	defaultModel := cfg.Model
	if defaultModel == "" {
		defaultModel = "claude-3-7-sonnet-20250219"
	}

	defaultMaxTokens := cfg.MaxTokens
	if defaultMaxTokens <= 0 {
		defaultMaxTokens = 1000
	}

	var tempPtr *float64
	if cfg.Temperature > 0 {
		tempPtr = &cfg.Temperature
	}

	return &Client{
		apiKey:           cfg.APIKey,
		baseURL:          baseURL,
		defaultModel:     defaultModel,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		maxRetries:       cfg.MaxRetries,
		defaultMaxTokens: defaultMaxTokens,
		apiVersion:       apiVersion,
		temperature:      tempPtr,
	}
}

// GenerateChat sends a non-streaming messages request to Claude
func (c *Client) GenerateChat(ctx context.Context, req ChatRequest) (*MessageResponse, error) {
	if req.Model == "" {
		req.Model = c.defaultModel
	}

	if req.MaxTokens <= 0 {
		req.MaxTokens = c.defaultMaxTokens
	}

	if req.Temperature == nil && c.temperature != nil {
		req.Temperature = c.temperature
	}

	req.Stream = false

	var resp MessageResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return nil, fmt.Errorf("generating chat completion: %w", err)
	}

	return &resp, nil
}

// makeRequest is a helper function to make HTTP requests with retries
// It uses exponential backoff for retrying failed requests
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, response interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.baseURL, path)

	var lastErr error
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", c.apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrConnection, err)
			return lastErr
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			return lastErr
		}

		loggy.Debug("Claude API response",
			"status", resp.Status,
			"content_length", len(respBody))

		if resp.StatusCode != http.StatusOK {
			lastErr = c.handleErrorResponse(resp, respBody)
			return lastErr
		}

		if err := json.Unmarshal(respBody, response); err != nil {
			lastErr = fmt.Errorf("decoding response: %w", err)
			return lastErr
		}

		return nil
	}

	err = backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx))
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}

	return nil
}

// handleErrorResponse processes error responses from the API
// It attempts to parse the error JSON and return a structured error
func (c *Client) handleErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(body)))
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorDetails: struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			}{
				Type:    "api_error",
				Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			},
		}
	}

	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}
