package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func TestOutcome(t *testing.T) {
	ok := Or(func() (string, error) { return "model text", nil }, func(error) string { return "template" })
	assert.False(t, ok.IsDegraded())
	assert.Equal(t, "model text", ok.Value)
	assert.Equal(t, "primary", ok.Source.String())
	assert.NoError(t, ok.Cause)

	cause := errors.New("boom")
	fb := Or(func() (string, error) { return "", cause }, func(err error) string { return "template: " + err.Error() })
	assert.True(t, fb.IsDegraded())
	assert.Equal(t, "template: boom", fb.Value)
	assert.Equal(t, "degraded", fb.Source.String())
	assert.ErrorIs(t, fb.Cause, cause)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("rate limited"), 429), true},
		{"wrapped explicit", errors.Join(errors.New("ctx"), NewTransientError(errors.New("x"), 503)), true},
		{"reset pattern", errors.New("read: connection reset by peer"), true},
		{"plain", errors.New("invalid request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	retried := 0
	cfg := fastRetry()
	cfg.OnRetry = func(int, error) { retried++ }

	v, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("503"), 503)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retried)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry().WithAttempts(2), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 429)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fastRetry(), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 429)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBreaker(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	fail := func(context.Context) (int, error) { return 0, errors.New("down") }
	succeed := func(context.Context) (int, error) { return 1, nil }
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Closed, b.State())
	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Open, b.State())

	_, err := Call(ctx, b, succeed)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(time.Minute)
	assert.Equal(t, HalfOpen, b.State())
	v, err := Call(ctx, b, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, "closed", b.State().String())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, func(context.Context) (int, error) { return 0, errors.New("down") })
	assert.Equal(t, Open, b.State())
	now = now.Add(2 * time.Second)
	_, _ = Call(ctx, b, func(context.Context) (int, error) { return 0, errors.New("still down") })
	assert.Equal(t, Open, b.State())
}
