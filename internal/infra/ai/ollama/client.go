package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3"
	DefaultTimeout = 120 * time.Second
)

// Client connects to a local Ollama instance via /api/generate.
type Client struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{BaseURL: baseURL, Model: model, HTTP: &http.Client{Timeout: timeout}}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", ai.Transport(ai.ProviderOllama, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.Model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	return out.Response, nil
}

// Check reports whether the daemon answers on its base URL.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}
	return nil
}
