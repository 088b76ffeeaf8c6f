package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls bounded retry on transient failures. Used by DoWithRetry.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first (e.g. 3)
	BaseBackoff time.Duration // first-retry wait, doubled each attempt
	MaxBackoff  time.Duration // cap on any single wait, including Retry-After
}

// DefaultRetryPolicy: 3 attempts, 2s backoff doubling, capped at 60s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseBackoff: 2 * time.Second,
	MaxBackoff:  60 * time.Second,
}

// retryableStatus reports whether a status code is worth another attempt.
// 4xx other than 408/423/429 are permanent.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusLocked, http.StatusRequestTimeout:
		return true
	}
	return code >= 500
}

// DoWithRetry GETs url with the shared headers, retrying network errors and
// retryable statuses with exponential backoff. 429 waits honor Retry-After.
// Caller must close resp.Body when err == nil. Non-retryable statuses are
// returned to the caller undisturbed.
func DoWithRetry(ctx context.Context, client *http.Client, url string, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	backoff := policy.BaseBackoff
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept-Encoding", AcceptEncoding)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else if !retryableStatus(resp.StatusCode) {
			return resp, nil
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			wait := backoff
			if resp.StatusCode == http.StatusTooManyRequests {
				wait = parseRetryAfter(resp.Header.Get("Retry-After"), backoff, policy.MaxBackoff)
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt == policy.MaxAttempts {
				break
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			backoff = minDur(backoff*2, policy.MaxBackoff)
			continue
		}
		// network error path
		if attempt == policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = minDur(backoff*2, policy.MaxBackoff)
	}
	return nil, fmt.Errorf("after %d attempts: %w", policy.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); returns fallback
// when absent or invalid, capped at max in all cases.
func parseRetryAfter(s string, fallback, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return minDur(fallback, max)
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		return minDur(time.Duration(sec)*time.Second, max)
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return minDur(fallback, max)
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	return minDur(until, max)
}
