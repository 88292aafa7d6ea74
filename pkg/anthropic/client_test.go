package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/resilience"
)

func messageServer(t *testing.T, inspect func(body map[string]any)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		if inspect != nil {
			inspect(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_route_1",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "  Stay on NH275 "},
				{"type": "text", "text": "after dark. "},
			},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestComplete(t *testing.T) {
	ts := messageServer(t, func(body map[string]any) {
		assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
		assert.EqualValues(t, 300, body["max_tokens"])
		assert.Nil(t, body["system"])
		assert.Nil(t, body["temperature"])

		msgs, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	})

	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	out, err := c.Complete(context.Background(), Request{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 300,
		Prompt:    "Assess route #1",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_route_1", out.ID)
	assert.Equal(t, "Stay on NH275 after dark.", out.Text)
	assert.Equal(t, "end_turn", out.StopReason)
	assert.False(t, out.Truncated())
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 40}, out.Usage)
}

func TestComplete_SystemAndTemperature(t *testing.T) {
	ts := messageServer(t, func(body map[string]any) {
		system, ok := body["system"].([]any)
		require.True(t, ok)
		require.Len(t, system, 1)
		assert.Equal(t, "Be brief.", system[0].(map[string]any)["text"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	})

	temp := 0.2
	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	_, err := c.Complete(context.Background(), Request{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   100,
		System:      "Be brief.",
		Prompt:      "hi",
		Temperature: &temp,
	})
	require.NoError(t, err)
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"overloaded", http.StatusServiceUnavailable, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`)) //nolint:errcheck
			}))
			defer ts.Close()

			c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
			_, err := c.Complete(context.Background(), Request{Model: "m", MaxTokens: 10, Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "anthropic: complete")

			var te *resilience.TransientError
			assert.Equal(t, tt.transient, errors.As(err, &te))
			if tt.transient {
				assert.Equal(t, tt.status, te.StatusCode)
			}
		})
	}
}

func TestCompletion_Truncated(t *testing.T) {
	assert.True(t, (&Completion{StopReason: "max_tokens"}).Truncated())
	assert.False(t, (&Completion{StopReason: "end_turn"}).Truncated())
	assert.False(t, (*Completion)(nil).Truncated())
}

func TestUsage_Cost(t *testing.T) {
	u := Usage{InputTokens: 1_000_000, OutputTokens: 500_000}
	assert.InDelta(t, 0.80+2.00, u.Cost("claude-haiku-4-5-20251001"), 1e-9)
	assert.InDelta(t, 3.00+7.50, u.Cost("claude-sonnet-4-5-20250929"), 1e-9)
	assert.Zero(t, u.Cost("unknown-model"))
	assert.Zero(t, Usage{}.Cost("claude-haiku-4-5-20251001"))
}
