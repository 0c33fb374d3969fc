package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/metrics"
)

// guardedProvider adapts an ai.Client to ai.Provider. Construction and
// transport failures collapse to the fallback result; schema failures keep
// the provider and degrade only the result.
type guardedProvider struct {
	id       ai.ProviderID
	client   ai.Client
	initErr  error
	fallback ai.Provider
	log      *slog.Logger
}

func newGuardedProvider(id ai.ProviderID, client ai.Client, initErr error, fallback ai.Provider, log *slog.Logger) *guardedProvider {
	if initErr != nil && ai.KindOf(initErr) == ai.KindUnknown {
		initErr = ai.Construction(id, initErr)
	}
	return &guardedProvider{id: id, client: client, initErr: initErr, fallback: fallback, log: log}
}

func (p *guardedProvider) ID() ai.ProviderID { return p.id }

// Usable reports whether the client was constructed.
func (p *guardedProvider) Usable() bool { return p.initErr == nil }

func (p *guardedProvider) Analyze(ctx context.Context, prompt string) (domain.Result, ai.Outcome) {
	if p.initErr != nil {
		return p.degrade(ctx, prompt, p.initErr)
	}

	start := time.Now()
	raw, err := p.client.Complete(ctx, prompt)
	metrics.ProviderDuration.WithLabelValues(string(p.id)).Observe(time.Since(start).Seconds())
	if err != nil {
		if ai.KindOf(err) == ai.KindUnknown {
			err = ai.Transport(p.id, err)
		}
		return p.degrade(ctx, prompt, err)
	}

	res, err := domain.Decode(raw)
	if err != nil {
		p.log.Warn("normalization failed", "provider", p.id, "error", ai.Schema(p.id, err), "chars", len(raw))
		metrics.NormalizationFailures.WithLabelValues(string(p.id)).Inc()
		res = domain.Degraded(raw)
	}
	metrics.ProviderCalls.WithLabelValues(string(p.id), "ok").Inc()
	return res, ai.Outcome{Provider: p.id}
}

func (p *guardedProvider) degrade(ctx context.Context, prompt string, err error) (domain.Result, ai.Outcome) {
	kind := ai.KindOf(err)
	p.log.Warn("provider failed, falling back to mock", "provider", p.id, "kind", kind.String(), "error", err)
	metrics.Fallbacks.WithLabelValues(string(p.id), kind.String()).Inc()
	metrics.ProviderCalls.WithLabelValues(string(p.id), "fallback").Inc()

	res, _ := p.fallback.Analyze(ctx, prompt)
	return res, ai.Outcome{Provider: ai.ProviderMock, Fallback: true, Reason: kind.String()}
}

// substitute stands in for a provider that was never built (unknown model,
// no credential). It returns the fallback result and says why.
type substitute struct {
	fallback ai.Provider
	reason   string
}

func (s substitute) ID() ai.ProviderID { return s.fallback.ID() }

func (s substitute) Analyze(ctx context.Context, prompt string) (domain.Result, ai.Outcome) {
	res, out := s.fallback.Analyze(ctx, prompt)
	out.Fallback = true
	out.Reason = s.reason
	return res, out
}
