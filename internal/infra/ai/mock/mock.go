package mock

import (
	"context"
	"log/slog"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	"github.com/bryanwahyu/reqverify/internal/domain/analysis"
)

// Provider returns a fixed analysis. Used for demos, tests and as the
// fallback of every other provider.
type Provider struct {
	Log *slog.Logger
}

func New(log *slog.Logger) *Provider {
	return &Provider{Log: log}
}

func (p *Provider) ID() ai.ProviderID { return ai.ProviderMock }

func (p *Provider) Analyze(_ context.Context, _ string) (analysis.Result, ai.Outcome) {
	if p.Log != nil {
		p.Log.Info("returning mock analysis")
	}
	return Result(), ai.Outcome{Provider: ai.ProviderMock}
}

// Result is the hardcoded mock analysis. Each call returns a fresh copy.
func Result() analysis.Result {
	return analysis.Result{
		Summary: "Most requirements appear implemented with minor gaps.",
		TraceabilityMatrix: map[string]string{
			"R-1": analysis.StatusImplemented,
			"R-2": analysis.StatusPartiallyImplemented,
			"R-3": analysis.StatusNotImplemented,
		},
		MissingRequirements: []string{"R-3"},
		Suggestions: []string{
			"Add comprehensive error handling and unit tests for requirement R-2.",
			"Implement data validation workflow for R-3.",
		},
		DetailedAnalysis: "R-1 references found in module A; R-2 partially covered in module B with missing edge cases; R-3 no references found.",
	}
}
