package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
)

const DefaultModel = "gemini-2.5-flash"

const temperature float32 = 0.2

// Client is a thin wrapper around the official genai client.
type Client struct {
	cli   *genai.Client
	model string
	// MaxTokens caps the output; zero leaves it to the API.
	MaxTokens int
}

func NewClient(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if err := ai.CheckCredential(apiKey); err != nil {
		return nil, ai.Construction(ai.ProviderGemini, err)
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/") + "/"}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, ai.Construction(ai.ProviderGemini, err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{cli: cli, model: model}, nil
}

func (g *Client) Complete(ctx context.Context, prompt string) (string, error) {
	temp := temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: ai.SystemInstruction}}},
		Temperature:       &temp,
	}
	if g.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.MaxTokens)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", ai.Transport(ai.ProviderGemini, fmt.Errorf("gemini: generate content: %w", err))
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.Transport(ai.ProviderGemini, ai.ErrEmptyResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	// blank text is still an answer; the normalizer degrades it
	return b.String(), nil
}
