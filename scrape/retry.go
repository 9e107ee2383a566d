package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/medprice"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry attempts to fetch a URL, retrying after each of delays.
// Errors that cannot succeed on retry (EINVALID, ENOTFOUND, context errors)
// are returned immediately. Retries are logged at debug level.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger *slog.Logger, delays []time.Duration) (string, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		html, err := fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if !retryable(ctx, err) || attempt >= maxAttempts-1 {
			break
		}

		if logger != nil {
			logger.Debug("fetch retry", "url", url, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return "", lastErr
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch medprice.ErrorCode(err) {
	case medprice.EINVALID, medprice.ENOTFOUND:
		return false
	}
	return true
}
