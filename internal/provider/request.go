package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// userAgent identifies the pipeline to every provider.
	userAgent = "Gigbook/1.0"

	// maxResponseBytes bounds provider response bodies.
	maxResponseBytes = 512 * 1024

	// defaultRetryAfter is used when a 429 carries no Retry-After hint.
	defaultRetryAfter = 2 * time.Second

	// retryMargin is added to every Retry-After hint before sleeping.
	retryMargin = 500 * time.Millisecond

	// maxThrottleRetries bounds retries of a throttled provider before
	// the waterfall gives up on that provider (not the whole run).
	maxThrottleRetries = 3
)

// throttleBackoff sleeps for whatever the last 429 told us to wait.
// It never stops on its own; retry.WithMaxRetries bounds it.
type throttleBackoff struct {
	next time.Duration
}

func (b *throttleBackoff) Next() (time.Duration, bool) {
	if b.next <= 0 {
		return defaultRetryAfter + retryMargin, false
	}
	return b.next, false
}

// Fetch executes a provider request with rate limiting and bounded
// retry on HTTP 429. newReq must build a fresh request each attempt.
//
// The returned status is meaningful only when err is nil; adapters map
// non-2xx statuses to their own error variants. Transport failures are
// returned as ErrUnavailable; exhausted throttling as ErrThrottled.
func Fetch(ctx context.Context, client *http.Client, limiter *RateLimiterMap, name Name, logger *slog.Logger, newReq func(ctx context.Context) (*http.Request, error)) (body []byte, status int, err error) {
	backoff := &throttleBackoff{}

	retryErr := retry.Do(ctx, retry.WithMaxRetries(maxThrottleRetries, backoff), func(ctx context.Context) error {
		if werr := limiter.Wait(ctx, name); werr != nil {
			return &ErrUnavailable{Provider: name, Cause: fmt.Errorf("rate limiter: %w", werr)}
		}

		req, rerr := newReq(ctx)
		if rerr != nil {
			return &ErrUnavailable{Provider: name, Cause: fmt.Errorf("building request: %w", rerr)}
		}
		req.Header.Set("User-Agent", userAgent)
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		logger.Debug("requesting", slog.String("url", req.URL.Redacted()))

		resp, derr := client.Do(req)
		if derr != nil {
			return &ErrUnavailable{Provider: name, Cause: derr}
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)
			wait := parseRetryAfter(resp.Header.Get("Retry-After")) + retryMargin
			backoff.next = wait
			logger.Warn("provider throttled",
				slog.String("provider", string(name)),
				slog.Duration("retry_after", wait))
			return retry.RetryableError(&ErrThrottled{Provider: name, RetryAfter: wait})
		}

		data, rerr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if rerr != nil {
			return &ErrUnavailable{Provider: name, Cause: fmt.Errorf("reading response: %w", rerr)}
		}
		body = data
		status = resp.StatusCode
		return nil
	})

	if retryErr != nil {
		var throttled *ErrThrottled
		if errors.As(retryErr, &throttled) {
			return nil, 0, throttled
		}
		return nil, 0, retryErr
	}
	return body, status, nil
}

// parseRetryAfter interprets a Retry-After header as delay seconds,
// falling back to the fixed default when absent or unparsable. HTTP
// dates are not handled; no consulted provider sends them.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
