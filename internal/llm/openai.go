package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quailyquaily/uniai"
)

const defaultTimeout = 20 * time.Second

// OpenAIClient adapts the uniai chat client to an OpenAI compatible endpoint.
type OpenAIClient struct {
	client  *uniai.Client
	baseURL string
	timeout time.Duration
}

// NewOpenAI builds a client for baseURL.
func NewOpenAI(baseURL, apiKey string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &OpenAIClient{
		client: uniai.New(uniai.Config{
			Provider:      "openai",
			OpenAIAPIKey:  apiKey,
			OpenAIAPIBase: baseURL,
		}),
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *OpenAIClient) Chat(ctx context.Context, req Request) (Result, error) {
	if c.baseURL == "" {
		return Result{}, errors.New("llm endpoint not configured")
	}
	if len(req.Messages) == 0 {
		return Result{}, errors.New("llm request has no messages")
	}

	msgs := make([]uniai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, uniai.Message{Role: m.Role, Content: m.Content})
	}
	opts := []uniai.ChatOption{uniai.WithModel(req.Model), uniai.WithMessages(msgs...)}
	if v, ok := req.Parameters["temperature"].(float64); ok {
		opts = append(opts, uniai.WithTemperature(v))
	}
	if v, ok := req.Parameters["max_tokens"].(int); ok {
		opts = append(opts, uniai.WithMaxTokens(v))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	res, err := c.client.Chat(ctx, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("llm chat: %w", err)
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return Result{}, errors.New("llm returned no content")
	}
	return Result{
		Text: res.Text,
		Usage: Usage{
			InputTokens:  res.Usage.InputTokens,
			OutputTokens: res.Usage.OutputTokens,
			TotalTokens:  res.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}
