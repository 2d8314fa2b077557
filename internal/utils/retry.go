package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

var RetryConfig = struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}{
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
	MaxAttempts:  3,
}

// ShouldRetry tells whether a failed node request is worth retrying and
// the minimum delay before doing so. Errors carrying an http status code
// must implement StatusCode() int.
func ShouldRetry(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, 0
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		switch code := statusErr.StatusCode(); {
		case code == http.StatusTooManyRequests:
			return true, 5 * time.Second
		case code == http.StatusBadGateway, code == http.StatusServiceUnavailable,
			code == http.StatusGatewayTimeout:
			return true, time.Second
		// Cloudflare origin timeout.
		case code == 524:
			return true, 5 * time.Second
		default:
			return false, 0
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true, time.Second
	}
	return false, 0
}

// Retry runs fn until it succeeds, fails with a non retriable error, ctx
// is done or the max attempts are reached. The delay between attempts
// grows by RetryConfig.Multiplier, capped to RetryConfig.MaxDelay.
func Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := RetryConfig.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		retry, minDelay := ShouldRetry(err)
		if !retry || attempt >= RetryConfig.MaxAttempts {
			return err
		}

		wait := max(delay, minDelay)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
		delay = min(time.Duration(float64(delay)*RetryConfig.Multiplier), RetryConfig.MaxDelay)
	}
}
