package analysis

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bryanwahyu/reqverify/internal/config"
	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/gemini"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/mock"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/ollama"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/openai"
)

// Fallback reasons reported when no backend was built.
const (
	ReasonUnknownModel = "unknown model"
	ReasonNoCredential = "no credential"
)

// Model is one entry of the selectable model vocabulary.
type Model struct {
	Name          string        `json:"name"`
	Provider      ai.ProviderID `json:"provider"`
	CredentialEnv string        `json:"credential_env,omitempty"`
}

// RequiresCredential reports whether the model needs an API key.
func (m Model) RequiresCredential() bool { return m.CredentialEnv != "" }

var models = []Model{
	{Name: "gpt-4o", Provider: ai.ProviderOpenAI, CredentialEnv: "OPENAI_API_KEY"},
	{Name: "claude 3.5 sonnet", Provider: ai.ProviderAnthropic, CredentialEnv: "ANTHROPIC_API_KEY"},
	{Name: "gemini 2.5 flash", Provider: ai.ProviderGemini, CredentialEnv: "GEMINI_API_KEY"},
	{Name: "local llama 3", Provider: ai.ProviderOllama},
	{Name: "mock", Provider: ai.ProviderMock},
}

// Models returns the known vocabulary in display order.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// NormalizeModelName trims and case-folds a user supplied model name.
func NormalizeModelName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func lookupModel(name string) (Model, bool) {
	name = NormalizeModelName(name)
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// ClientFactory builds the raw client for a provider.
type ClientFactory func(ctx context.Context, id ai.ProviderID, credential string) (ai.Client, error)

// Selector maps a model name and optional credential to a provider.
type Selector struct {
	cfg  config.ProvidersConfig
	log  *slog.Logger
	mock *mock.Provider

	// Getenv resolves credentials missing from the request.
	Getenv func(string) string
	// NewClient builds backend clients; replaced in tests.
	NewClient ClientFactory
}

func NewSelector(cfg config.ProvidersConfig, log *slog.Logger) *Selector {
	log = log.With("component", "selector")
	s := &Selector{
		cfg:    cfg,
		log:    log,
		mock:   mock.New(log),
		Getenv: os.Getenv,
	}
	s.NewClient = s.buildClient
	return s
}

// Select never returns nil. Unknown models and hosted models without a
// credential get the mock provider and no client is built.
func (s *Selector) Select(ctx context.Context, model, credential string) ai.Provider {
	m, ok := lookupModel(model)
	if !ok {
		s.log.Info("unknown model, using mock", "model", model)
		return substitute{fallback: s.mock, reason: ReasonUnknownModel}
	}
	if m.Provider == ai.ProviderMock {
		return s.mock
	}

	if m.RequiresCredential() {
		if strings.TrimSpace(credential) == "" {
			credential = s.Getenv(m.CredentialEnv)
		}
		if strings.TrimSpace(credential) == "" {
			s.log.Info("no credential, using mock", "model", m.Name, "env", m.CredentialEnv)
			return substitute{fallback: s.mock, reason: ReasonNoCredential}
		}
	}

	client, err := s.NewClient(ctx, m.Provider, credential)
	if err != nil {
		s.log.Warn("provider unusable", "provider", m.Provider, "error", err)
	}
	return newGuardedProvider(m.Provider, client, err, s.mock, s.log)
}

// Analyze selects a provider and runs the prompt through it.
func (s *Selector) Analyze(ctx context.Context, prompt, model, credential string) (domain.Result, ai.Outcome) {
	return s.Select(ctx, model, credential).Analyze(ctx, prompt)
}

// SelectAndAnalyze always yields a complete result.
func (s *Selector) SelectAndAnalyze(ctx context.Context, prompt, model, credential string) domain.Result {
	res, _ := s.Analyze(ctx, prompt, model, credential)
	return res
}

func (s *Selector) buildClient(ctx context.Context, id ai.ProviderID, credential string) (ai.Client, error) {
	switch id {
	case ai.ProviderOpenAI:
		c, err := openai.NewClient(credential, s.cfg.OpenAI.Model, s.cfg.OpenAI.BaseURL, s.cfg.OpenAI.MaxTokens, s.hostedTimeout(s.cfg.OpenAI))
		if err != nil {
			return nil, err
		}
		return c, nil
	case ai.ProviderAnthropic:
		c, err := anthropic.NewClient(credential, s.cfg.Anthropic.Model, s.cfg.Anthropic.BaseURL, s.cfg.Anthropic.MaxTokens, s.hostedTimeout(s.cfg.Anthropic))
		if err != nil {
			return nil, err
		}
		return c, nil
	case ai.ProviderGemini:
		c, err := gemini.NewClient(ctx, credential, s.cfg.Gemini.Model, s.cfg.Gemini.BaseURL, s.hostedTimeout(s.cfg.Gemini))
		if err != nil {
			return nil, err
		}
		c.MaxTokens = s.cfg.Gemini.MaxTokens
		return c, nil
	case ai.ProviderOllama:
		return ollama.NewClient(s.cfg.Ollama.BaseURL, s.cfg.Ollama.Model, s.cfg.Ollama.Timeout), nil
	}
	return nil, ai.Construction(id, errUnsupported)
}

func (s *Selector) hostedTimeout(e config.Endpoint) time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	if s.cfg.APITimeout > 0 {
		return s.cfg.APITimeout
	}
	return 60 * time.Second
}
