package ai

import (
	"context"

	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

// ProviderID names one backend variant.
type ProviderID string

const (
	ProviderMock      ProviderID = "mock"
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGemini    ProviderID = "gemini"
	ProviderOllama    ProviderID = "ollama"
)

// SystemInstruction is sent to every hosted backend.
const SystemInstruction = "You are a strict requirements verification assistant."

// Client is the raw call convention of one backend: prompt in, text out.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Outcome describes how a Provider produced its result.
type Outcome struct {
	Provider ProviderID `json:"provider"`
	Fallback bool       `json:"fallback"`
	Reason   string     `json:"reason,omitempty"`
}

// Provider turns a prompt into a normalized result. It never fails; failures
// surface only through the Outcome.
type Provider interface {
	ID() ProviderID
	Analyze(ctx context.Context, prompt string) (analysis.Result, Outcome)
}
