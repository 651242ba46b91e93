package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configures retry behavior with exponential backoff.
type Config struct {
	MaxAttempts int           // total attempts including the first (default 3)
	BaseDelay   time.Duration // delay before the first retry (default 1s)
	MaxDelay    time.Duration // cap on any single delay (default 30s)
	Multiplier  float64       // backoff growth factor (default 2.0)
	Jitter      bool          // add up to ±10% random jitter
}

// DefaultConfig returns the retry settings used for provider fetches.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Do runs op with bounded exponential backoff. Only transient failures are
// retried; an error Permanent reports as non-retryable (authorization
// rejections, 4xx other than 429) stops immediately. The last error is
// returned after the attempt budget is spent.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				log.Debug().Str("op", name).Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			log.Debug().Str("op", name).Err(lastErr).Msg("non-retryable error, giving up")
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := backoffDelay(cfg, attempt-1)
		log.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("delay", delay).
			Err(lastErr).
			Msg("transient failure, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	log.Warn().Str("op", name).Int("attempts", cfg.MaxAttempts).Err(lastErr).Msg("operation exhausted retries")
	return lastErr
}

func backoffDelay(cfg Config, retry int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(retry))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}
	return time.Duration(delay)
}

// permanentError wraps an error to mark it non-retryable regardless of its
// message.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable. Adapters use this for
// authorization failures, which retrying can only make worse.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable classifies an error as transient. Authorization failures and
// anything wrapped with Permanent are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, fatal := range []string{"401", "403", "unauthorized", "forbidden"} {
		if strings.Contains(msg, fatal) {
			return false
		}
	}

	transient := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"429",
		"502",
		"503",
		"504",
		"no such host",
		"network unreachable",
		"broken pipe",
		"eof",
	}
	for _, marker := range transient {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
