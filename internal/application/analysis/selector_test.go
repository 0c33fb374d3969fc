package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reqverify/internal/config"
	"github.com/bryanwahyu/reqverify/internal/domain/ai"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/mock"
	"github.com/bryanwahyu/reqverify/internal/logging"
)

type stubClient struct {
	text  string
	err   error
	calls int
}

func (c *stubClient) Complete(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.text, c.err
}

type factoryCall struct {
	id         ai.ProviderID
	credential string
}

func newTestSelector(t *testing.T, client ai.Client) (*Selector, *[]factoryCall) {
	t.Helper()
	s := NewSelector(config.Defaults().Providers, logging.Discard())
	s.Getenv = func(string) string { return "" }
	var calls []factoryCall
	s.NewClient = func(_ context.Context, id ai.ProviderID, credential string) (ai.Client, error) {
		calls = append(calls, factoryCall{id, credential})
		return client, nil
	}
	return s, &calls
}

func TestSelectUnknownModelReturnsMock(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{})

	for _, model := range []string{"gpt-5-ultra", "", "   ", "llama"} {
		res, out := s.Analyze(context.Background(), "prompt", model, "sk-x")
		assert.Equal(t, mock.Result(), res)
		assert.Equal(t, ai.ProviderMock, out.Provider)
		assert.True(t, out.Fallback)
		assert.Equal(t, ReasonUnknownModel, out.Reason)
	}
	assert.Empty(t, *calls)
}

func TestSelectHostedWithoutCredentialReturnsMock(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{})

	for _, model := range []string{"gpt-4o", "claude 3.5 sonnet", "gemini 2.5 flash"} {
		got := s.SelectAndAnalyze(context.Background(), "prompt", model, "  ")
		assert.Equal(t, mock.Result(), got, model)

		_, out := s.Analyze(context.Background(), "prompt", model, "")
		assert.Equal(t, ReasonNoCredential, out.Reason)
	}
	assert.Empty(t, *calls)
}

func TestSelectIsCaseInsensitive(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{text: `{"summary":"ok"}`})

	a := s.Select(context.Background(), "GPT-4o", "x")
	b := s.Select(context.Background(), "  gpt-4o\t", "x")

	assert.Equal(t, ai.ProviderOpenAI, a.ID())
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, []factoryCall{{ai.ProviderOpenAI, "x"}, {ai.ProviderOpenAI, "x"}}, *calls)
}

func TestSelectResolvesCredentialFromEnv(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{text: `{}`})
	s.Getenv = func(k string) string {
		if k == "ANTHROPIC_API_KEY" {
			return "sk-env"
		}
		return ""
	}

	p := s.Select(context.Background(), "Claude 3.5 Sonnet", "")
	assert.Equal(t, ai.ProviderAnthropic, p.ID())
	require.Len(t, *calls, 1)
	assert.Equal(t, "sk-env", (*calls)[0].credential)

	// explicit credential wins over the environment
	s.Select(context.Background(), "claude 3.5 sonnet", "sk-explicit")
	assert.Equal(t, "sk-explicit", (*calls)[1].credential)
}

func TestSelectLocalDaemonNeedsNoCredential(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{text: `{}`})

	p := s.Select(context.Background(), "Local Llama 3", "")
	assert.Equal(t, ai.ProviderOllama, p.ID())
	assert.Equal(t, []factoryCall{{ai.ProviderOllama, ""}}, *calls)
}

func TestSelectMockModel(t *testing.T) {
	s, calls := newTestSelector(t, &stubClient{})

	res, out := s.Analyze(context.Background(), "prompt", "MOCK", "")
	assert.Equal(t, mock.Result(), res)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderMock}, out)
	assert.Empty(t, *calls)
}

func TestAnalyzeNormalizesBackendOutput(t *testing.T) {
	client := &stubClient{text: `{"summary":"ok"}`}
	s, _ := newTestSelector(t, client)

	res, out := s.Analyze(context.Background(), "prompt", "gpt-4o", "x")
	assert.Equal(t, "ok", res.Summary)
	assert.Equal(t, map[string]string{}, res.TraceabilityMatrix)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderOpenAI}, out)
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzeSchemaFailureDegradesWithoutFallback(t *testing.T) {
	s, _ := newTestSelector(t, &stubClient{text: "Sure! Here is the analysis."})

	res, out := s.Analyze(context.Background(), "prompt", "gpt-4o", "x")
	assert.Equal(t, domain.Degraded("Sure! Here is the analysis."), res)
	assert.Equal(t, ai.ProviderOpenAI, out.Provider)
	assert.False(t, out.Fallback)
}

func TestAnalyzeTransportFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"classified", ai.Transport(ai.ProviderOpenAI, ai.ErrQuotaExceeded)},
		{"plain", errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSelector(t, &stubClient{err: tt.err})

			res, out := s.Analyze(context.Background(), "prompt", "gpt-4o", "x")
			assert.Equal(t, mock.Result(), res)
			assert.Equal(t, ai.Outcome{Provider: ai.ProviderMock, Fallback: true, Reason: "transport"}, out)
		})
	}
}

func TestAnalyzeConstructionFailureFallsBack(t *testing.T) {
	s := NewSelector(config.Defaults().Providers, logging.Discard())
	s.Getenv = func(string) string { return "" }

	p := s.Select(context.Background(), "gpt-4o", "sk with spaces")
	gp, ok := p.(*guardedProvider)
	require.True(t, ok)
	assert.False(t, gp.Usable())

	for i := 0; i < 2; i++ {
		res, out := p.Analyze(context.Background(), "prompt")
		assert.Equal(t, mock.Result(), res)
		assert.Equal(t, "construction", out.Reason)
	}
}

func TestAnalyzeConstructionErrorFromFactoryIsClassified(t *testing.T) {
	s, _ := newTestSelector(t, nil)
	s.NewClient = func(context.Context, ai.ProviderID, string) (ai.Client, error) {
		return nil, errors.New("sdk missing")
	}

	_, out := s.Analyze(context.Background(), "prompt", "gemini 2.5 flash", "key")
	assert.True(t, out.Fallback)
	assert.Equal(t, "construction", out.Reason)
}

func TestLocalDaemonTimeoutFallsBackToMock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := config.Defaults().Providers
	cfg.Ollama.BaseURL = srv.URL
	cfg.Ollama.Timeout = 50 * time.Millisecond
	s := NewSelector(cfg, logging.Discard())

	res, out := s.Analyze(context.Background(), "prompt", "local llama 3", "")
	assert.Equal(t, mock.Result(), res)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderMock, Fallback: true, Reason: "transport"}, out)
}

func TestLocalDaemonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": "{\"summary\": \"local\"}", "done": true}`))
	}))
	defer srv.Close()

	cfg := config.Defaults().Providers
	cfg.Ollama.BaseURL = srv.URL
	s := NewSelector(cfg, logging.Discard())

	got := s.SelectAndAnalyze(context.Background(), "prompt", "local llama 3", "")
	assert.Equal(t, "local", got.Summary)
}

func TestModels(t *testing.T) {
	models := Models()
	require.Len(t, models, 5)
	assert.Equal(t, "gpt-4o", models[0].Name)
	assert.True(t, models[0].RequiresCredential())
	assert.False(t, models[3].RequiresCredential())

	models[0].Name = "changed"
	assert.Equal(t, "gpt-4o", Models()[0].Name)
}

func TestAnalyzeBlankAnswerDegradesWithoutFallback(t *testing.T) {
	s, _ := newTestSelector(t, &stubClient{text: ""})

	res, out := s.Analyze(context.Background(), "prompt", "gpt-4o", "x")
	assert.Equal(t, domain.Degraded(""), res)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderOpenAI}, out)
}

func TestBlankAnswerIsTheSameForHostedAndLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "choices": [{"index": 0, "message": {"role": "assistant", "content": ""}}]}`))
		case "/api/generate":
			_, _ = w.Write([]byte(`{"response": "", "done": true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.Defaults().Providers
	cfg.OpenAI.BaseURL = srv.URL + "/v1"
	cfg.Ollama.BaseURL = srv.URL
	s := NewSelector(cfg, logging.Discard())
	s.Getenv = func(string) string { return "" }

	hosted, hostedOut := s.Analyze(context.Background(), "prompt", "gpt-4o", "sk-test")
	local, localOut := s.Analyze(context.Background(), "prompt", "local llama 3", "")

	assert.Equal(t, domain.Degraded(""), hosted)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderOpenAI}, hostedOut)
	assert.Equal(t, domain.Degraded(""), local)
	assert.Equal(t, ai.Outcome{Provider: ai.ProviderOllama}, localOut)
}
