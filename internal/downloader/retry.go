package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/iconidentify/instagrab/internal/domain"
)

// RetryConfig holds caller-side retry configuration. The fetcher itself never retries.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns sensible defaults for retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryWithCheck executes a function with retry, allowing custom retry decision.
func RetryWithCheck[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func() (T, error),
	shouldRetry func(error) bool,
) (T, error) {
	var lastErr error
	var zero T

	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !shouldRetry(err) {
			break
		}

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}

// FetchWithRetry fetches url, retrying only failures whose kind is retryable.
func FetchWithRetry(ctx context.Context, f Fetcher, cfg RetryConfig, url string) (*domain.MediaPayload, error) {
	return RetryWithCheck(ctx, cfg, func() (*domain.MediaPayload, error) {
		return f.Fetch(ctx, url)
	}, isRetryableError)
}

func isRetryableError(err error) bool {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.Retryable()
	}
	return false
}
