package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
)

const (
	DefaultModel = openai.GPT4o
	temperature  = 0.2
)

type Client struct {
	*openai.Client
	Model string
	// MaxTokens caps the completion; zero leaves it to the API.
	MaxTokens int
}

// NewClient validates the key and builds a go-openai client. baseURL may be
// empty for the public API.
func NewClient(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) (*Client, error) {
	if err := ai.CheckCredential(apiKey); err != nil {
		return nil, ai.Construction(ai.ProviderOpenAI, err)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens < 0 {
		maxTokens = 0
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ai.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) reject max_tokens
	switch {
	case c.MaxTokens == 0:
	case isReasoningModel(c.Model):
		req.MaxCompletionTokens = c.MaxTokens
	default:
		req.MaxTokens = c.MaxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuotaError(err) {
			err = fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return "", ai.Transport(ai.ProviderOpenAI, fmt.Errorf("failed to create chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", ai.Transport(ai.ProviderOpenAI, ai.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func isQuotaError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
