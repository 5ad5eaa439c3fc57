// Package ai provides clients for the remote embedding and chat-completion APIs.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkondo/kotaeru/internal/config"
)

// Typed failures for the remote AI services. Callers must treat embedding
// failures as "skip this item, continue with siblings" during ingestion.
var (
	ErrEmbeddingService  = errors.New("embedding service request failed")
	ErrEmbeddingMissing  = errors.New("embedding missing from response")
	ErrCompletionService = errors.New("completion service request failed")
)

// Embedder produces a vector embedding for one text segment.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces an answer from retrieved context and a user question.
type Generator interface {
	GenerateAnswer(ctx context.Context, contextText, question string) (string, error)
}

// Client talks to an OpenAI-compatible API (OpenRouter) for embeddings and
// chat completions. It is safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	embedModel  string
	chatModel   string
	temperature float64
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
	embedHTTP   *http.Client
	chatHTTP    *http.Client
}

// NewClient creates a client from the AI configuration. Embedding and
// completion calls use separate bounded timeouts.
func NewClient(cfg *config.AIConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		embedHTTP:   &http.Client{Timeout: time.Duration(cfg.EmbedTimeoutSecs) * time.Second},
		chatHTTP:    &http.Client{Timeout: time.Duration(cfg.ChatTimeoutSecs) * time.Second},
	}
}

// post sends a JSON POST to baseURL+path and returns the response body when the
// status is 2xx. A non-2xx status or transport failure returns an error; the
// response body is included for the operator log, never shown to end users.
func (c *Client) post(ctx context.Context, httpClient *http.Client, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
