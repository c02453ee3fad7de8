package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig configures retry behavior for a single send
type RetryConfig struct {
	MaxRetries     int           // Additional attempts after the first one
	InitialBackoff time.Duration // Delay before the first retry, doubled each time
	MaxBackoff     time.Duration // Upper bound for backoff and for honoring server pauses
}

// DefaultRetryConfig returns the retry configuration used when none is given
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// withRetry runs fn until it succeeds, fails permanently, or the retry budget is spent.
// The last error is returned unchanged so callers can classify it.
func withRetry(ctx context.Context, log *slog.Logger, cfg RetryConfig, op string, fn func(ctx context.Context) error) error {
	backoff := cfg.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= cfg.MaxRetries {
			return err
		}

		delay := backoff
		if d := retryDelay(err); d > 0 {
			if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
				// The server asked for a pause longer than a run should block
				return err
			}
			delay = d
		}
		if cfg.MaxBackoff > 0 && delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
		}

		log.Warn("send failed, retrying", "op", op, "attempt", attempt+1, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled while waiting to retry: %w", op, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
		backoff *= 2
	}
}

// permanentError marks failures that no retry can fix
type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(format string, args ...any) error {
	return permanentError{err: fmt.Errorf(format, args...)}
}

// isRetryable treats service rejections by their code and anything else
// (connection resets, timeouts, DNS) as transient. Cancellation is final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func retryDelay(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
