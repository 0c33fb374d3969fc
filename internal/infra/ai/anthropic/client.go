package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 2000
	apiVersion       = "2023-06-01"
	temperature      = 0.2
)

// Client calls the Anthropic Messages API.
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	HTTP      *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) (*Client, error) {
	if err := ai.CheckCredential(apiKey); err != nil {
		return nil, ai.Construction(ai.ProviderAnthropic, err)
	}
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Model:     model,
		MaxTokens: maxTokens,
		HTTP:      &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		return "", ai.Transport(ai.ProviderAnthropic, err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       c.Model,
		System:      ai.SystemInstruction,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		msg := ""
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			msg = errResp.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("anthropic: %w: %s", ai.ErrQuotaExceeded, msg)
		}
		if msg == "" {
			return "", fmt.Errorf("anthropic: unexpected status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("anthropic: API error (status %d): %s", resp.StatusCode, msg)
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("anthropic: %w", ai.ErrEmptyResponse)
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}
