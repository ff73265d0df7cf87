// Package transport provides the HTTP round tripper used for calls to the AI
// provider. It honors Retry-After on 429 responses so a briefly throttled
// provider does not surface as a user-visible failure.
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

type RateLimitAwareTransport struct {
	base http.RoundTripper
}

func WithRateLimitRetries(base http.RoundTripper) *RateLimitAwareTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitAwareTransport{base: base}
}

func (t *RateLimitAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Buffer the body so it can be replayed on retry
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if err := req.Body.Close(); err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests {
			return resp, err
		}

		wait := retryAfter(resp.Header.Get("retry-after"))
		if wait <= 0 {
			return resp, nil
		}

		if err := resp.Body.Close(); err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		log.Printf("provider rate limited, waiting %s before retrying", wait)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}
	}
}

// retryAfter parses a Retry-After header value, which may be either a number
// of seconds or an HTTP date.
func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}
