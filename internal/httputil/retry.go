// Copyright fmforge, 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by generator backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// statusOverloaded is returned by the Claude API when the service is
// saturated. net/http has no constant for it.
const statusOverloaded = 529

// retryable reports whether a status code signals a transient backend
// condition: rate limiting or an overloaded upstream.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		statusOverloaded:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries retryable statuses
// with exponential backoff. The delay starts at RetryBaseDelay (2 s) and
// doubles each attempt: 2 s, 4 s, 8 s.
//
// When maxRetries is 0 the default (3) is used. Request bodies are
// rewound through GetBody on every attempt, so POST requests built from
// byte readers retry correctly. On each retryable response the body is
// drained and closed before sleeping. If the context is cancelled during
// a backoff wait the function returns ctx.Err(). After exhausting
// retries the last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			clone.Body = body
		}

		resp, err := client.Do(clone)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries: return the response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
