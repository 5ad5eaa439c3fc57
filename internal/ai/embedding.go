package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. Transient failures (transport
// errors, non-2xx statuses, timeouts) are retried up to the configured attempt
// count with a fixed delay before ErrEmbeddingService is surfaced. A successful
// response without a usable vector returns ErrEmbeddingMissing without retry.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}
		body, err := c.post(ctx, c.embedHTTP, "/embeddings", embeddingRequest{
			Model: c.embedModel,
			Input: text,
		})
		if err != nil {
			lastErr = err
			continue
		}
		var parsed embeddingResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("decode response: %w", err)
			continue
		}
		if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
			return nil, ErrEmbeddingMissing
		}
		return parsed.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, lastErr)
}
