// Package transport provides HTTP round trippers shared by the completion clients.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// DefaultMaxRateLimitRetries is the number of times a rate-limited request is retried before the 429 response is
// returned to the caller
const DefaultMaxRateLimitRetries = 3

// RateLimitedTransport retries requests that are rejected with 429 Too Many Requests, waiting as long as the server's
// retry-after header asks. Responses without a usable retry-after header are returned as-is
type RateLimitedTransport struct {
	base       http.RoundTripper
	maxRetries int
	maxWait    time.Duration // Longest retry-after honored; longer waits return the 429 immediately

	sleep func(req *http.Request, d time.Duration) error
}

func WithRateLimiting(base http.RoundTripper) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{
		base:       base,
		maxRetries: DefaultMaxRateLimitRetries,
		maxWait:    2 * time.Minute,
		sleep:      sleepWithContext,
	}
}

// WithMaxRetries sets how many times a rate-limited request is retried
func (t *RateLimitedTransport) WithMaxRetries(n int) *RateLimitedTransport {
	t.maxRetries = n
	return t
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		// Restore the request body for each attempt
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return resp, nil
		}

		waitDuration := parseRetryAfter(resp.Header.Get("retry-after"), time.Now())
		if waitDuration <= 0 || waitDuration > t.maxWait {
			return resp, nil
		}

		// Close the response body to free resources
		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		log.Printf("Rate limited by %s, waiting %s (retry %d of %d)", req.URL.Host, waitDuration, attempt+1, t.maxRetries)
		if err := t.sleep(req, waitDuration); err != nil {
			return nil, err
		}
	}
}

// parseRetryAfter interprets a retry-after header given either in seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if retryTime, err := http.ParseTime(value); err == nil {
		return retryTime.Sub(now)
	}
	return 0
}

func sleepWithContext(req *http.Request, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
