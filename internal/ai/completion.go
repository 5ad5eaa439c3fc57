package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// systemPrompt constrains the model to answer only from the supplied context
// and to state explicitly when the answer is absent from it.
const systemPrompt = "You are a helpful RAG assistant. Answer only from the provided context. " +
	"If the answer is not in the context, say: 'I don't know based on the provided documents.'"

// FallbackAnswer is returned when the completion API responds successfully but
// without the expected content field.
const FallbackAnswer = "I don't know based on the provided documents."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateAnswer asks the chat-completion API to answer question using only
// contextText. An unsuccessful remote response returns ErrCompletionService; a
// successful response without content returns FallbackAnswer.
func (c *Client) GenerateAnswer(ctx context.Context, contextText, question string) (string, error) {
	body, err := c.post(ctx, c.chatHTTP, "/chat/completions", completionRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nUser Question:\n%s", contextText, question)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionService, err)
	}
	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrCompletionService, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return FallbackAnswer, nil
	}
	return parsed.Choices[0].Message.Content, nil
}
