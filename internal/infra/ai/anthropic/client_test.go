package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/reqverify/internal/domain/ai"
)

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, ai.SystemInstruction, req.System)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messagesResponse{Content: []contentBlock{
			{Type: "text", Text: `{"summary":`},
			{Type: "tool_use"},
			{Type: "text", Text: `"ok"}`},
		}})
	}))
	defer srv.Close()

	c, err := NewClient("sk-ant-test", "", srv.URL, 0, 5*time.Second)
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), "verify")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, got)
}

func TestClientCompleteAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{"auth error", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, true},
		{"opaque 500", http.StatusInternalServerError, `oops`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient("sk-ant-test", "", srv.URL, 0, 5*time.Second)
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), "verify")
			require.Error(t, err)
			assert.Equal(t, ai.KindTransport, ai.KindOf(err))
			assert.Equal(t, tt.quota, errors.Is(err, ai.ErrQuotaExceeded))
		})
	}
}

func TestClientCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": []}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-ant-test", "", srv.URL, 0, 5*time.Second)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "verify")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestNewClientRejectsMalformedKey(t *testing.T) {
	_, err := NewClient("", "", "", 0, time.Second)
	assert.Equal(t, ai.KindConstruction, ai.KindOf(err))
}

func TestClientCompleteBlankTextIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": ""}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("sk-ant-test", "", srv.URL, 0, 5*time.Second)
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), "verify")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestNewClientMaxTokens(t *testing.T) {
	c, err := NewClient("sk-ant-test", "", "", 8000, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 8000, c.MaxTokens)
}
