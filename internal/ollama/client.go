// Package ollama implements a client for a local Ollama server.
package ollama

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

// ErrConnection indicates the Ollama server could not be reached.
var ErrConnection = errors.New("ollama: connection failed")

// Client is the Ollama API client
type Client struct {
	config     config.OllamaConfig
	httpClient *http.Client
}

// NewClient creates a new Ollama client with the provided configuration
func NewClient(cfg config.OllamaConfig) *Client {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// GetVersion returns the Ollama server version
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", fmt.Errorf("getting version: %w", err)
	}
	return resp.Version, nil
}

// GenerateChat sends a chat completion request. Model parameters the
// request leaves unset are defaulted from the client configuration.
func (c *Client) GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}

	if req.Options == nil {
		req.Options = &RequestOptions{}
	}
	if req.Options.NumPredict == nil && c.config.MaxTokens > 0 {
		numPredict := c.config.MaxTokens
		req.Options.NumPredict = &numPredict
	}
	if req.Options.Temperature == nil && c.config.Temperature > 0 {
		temp := c.config.Temperature
		req.Options.Temperature = &temp
	}

	req.Stream = false

	var resp ChatResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("generating chat completion: %w", err)
	}

	if resp.Error != "" {
		return &resp, fmt.Errorf("model error: %s", resp.Error)
	}

	return &resp, nil
}

// makeRequest performs an HTTP request against the Ollama API with
// exponential-backoff retries up to the configured maximum
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, response interface{}) error {
	var bodyBytes []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyBytes = data
	}

	url := strings.TrimSuffix(c.config.Endpoint, "/") + path

	var lastErr error
	operation := func() error {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

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

		loggy.Debug("Ollama API response", "status", resp.Status, "content_length", len(respBody))

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			return lastErr
		}

		if response != nil {
			if err := json.Unmarshal(respBody, response); err != nil {
				lastErr = fmt.Errorf("decoding response: %w", err)
				return lastErr
			}
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries)), ctx))
	if err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}

	return nil
}
