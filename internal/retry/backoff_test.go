package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	calls := 0
	transient := errors.New("connection refused")
	err := Do(context.Background(), fastConfig(), "op", func() error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnAuthorizationFailure(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), "op", func() error {
		calls++
		return errors.New("API request failed with status 401: bad token")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "authorization failures must not be retried")
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), "op", func() error {
		calls++
		// Message looks transient, but the adapter knows better.
		return Permanent(errors.New("timeout while validating credentials"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPermanentUnwraps(t *testing.T) {
	base := errors.New("root cause")
	wrapped := fmt.Errorf("fetching: %w", Permanent(base))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, IsRetryable(wrapped))
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}
	err := Do(ctx, cfg, "op", func() error {
		return errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{errors.New("429 too many requests"), true},
		{errors.New("dial tcp: connection reset by peer"), true},
		{errors.New("API request failed with status 502"), true},
		{errors.New("API request failed with status 403: forbidden"), false},
		{errors.New("unauthorized"), false},
		{errors.New("record not found"), false},
	}
	for _, tc := range cases {
		got := IsRetryable(tc.err)
		assert.Equal(t, tc.retryable, got, "error: %v", tc.err)
	}
}
