package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicServer(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-sonnet"},
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-20250514",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var got map[string]any
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicMessage("Openings first, then tactics.", "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System: "You design playful courses.",
		Messages: []Message{
			{Role: RoleUser, Content: "Plan a course on chess."},
			{Role: RoleAssistant, Content: "Which level?"},
			{Role: RoleUser, Content: "Beginner."},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Openings first, then tactics.", resp.Text())
	assert.Equal(t, Usage{InputTokens: 50, OutputTokens: 30, TotalTokens: 80}, resp.Usage)
	assert.Equal(t, StopEnd, resp.StopReason)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)

	assert.Equal(t, "claude-sonnet-4-20250514", got["model"])
	assert.EqualValues(t, defaultMaxTokens, got["max_tokens"])
	msgs, _ := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestAnthropicProvider_StructuredOutput(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicMessage(`{"name":"Chess Mastery","age":9}`, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
		Schema:   testSchema(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Chess Mastery","age":9}`, string(resp.Content))
}

func TestAnthropicProvider_TruncatedStructuredOutput(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(anthropicMessage(`{"name":"Chess`, "max_tokens"))
	})

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
		Schema:   testSchema(),
	})
	var maxTok *ErrMaxTokensExceeded
	require.ErrorAs(t, err, &maxTok)
	assert.Equal(t, `{"name":"Chess`, string(maxTok.Content))
}

func TestAnthropicProvider_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		kind       string
		retryAfter string
		check      func(t *testing.T, err error)
	}{
		{"rate limit", http.StatusTooManyRequests, "rate_limit_error", "7", func(t *testing.T, err error) {
			var rl *ErrRateLimit
			require.ErrorAs(t, err, &rl)
			assert.Equal(t, 7*time.Second, rl.RetryAfter)
		}},
		{"server error", http.StatusInternalServerError, "api_error", "", func(t *testing.T, err error) {
			var unavail *ErrProviderUnavailable
			require.ErrorAs(t, err, &unavail)
			assert.True(t, Transient(err))
		}},
		{"bad key", http.StatusUnauthorized, "authentication_error", "", func(t *testing.T, err error) {
			var rejected *ErrRequestRejected
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, http.StatusUnauthorized, rejected.Status)
			assert.False(t, Transient(err))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": tt.kind, "message": tt.name},
				})
			})
			_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNewAnthropicProvider(t *testing.T) {
	_, err := NewAnthropicProvider(AnthropicConfig{})
	require.Error(t, err)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())
	assert.Equal(t, ProviderAnthropic, p.ProviderName())
}
