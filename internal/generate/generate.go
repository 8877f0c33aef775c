// Copyright fmforge, 2026. All rights reserved.

// Package generate calls generative model backends with synthesis
// prompts. Backends share one interface; the loop never knows which
// provider it is talking to.
// Implements: docs/ARCHITECTURE § Generation.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/fmforge/fmforge/pkg/types"
)

// ErrTimeout marks a generation call that ran out of time. Callers use
// errors.Is to tell backend saturation from hard failure.
var ErrTimeout = errors.New("generation timed out")

// Client is a generative model backend. Generate returns the raw model
// output for one prompt. A transported but empty response is not an
// error; classification of unusable output happens downstream.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// wrapTimeout substitutes ErrTimeout for deadline and client-timeout
// failures so the sentinel survives later wrapping.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// New builds the backend selected by cfg.Provider.
func New(cfg types.GeneratorConfig) (Client, error) {
	switch cfg.Provider {
	case types.ProviderOllama:
		return NewOllama(cfg), nil
	case types.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude provider requires an API key")
		}
		return NewClaude(cfg), nil
	case types.ProviderMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// backoffBase is the base delay between whole-call retries. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// CallWithRetry invokes the client with bounded retries and exponential
// backoff between attempts. It returns the last error once attempts are
// exhausted. maxAttempts below 1 means a single attempt.
func CallWithRetry(ctx context.Context, client Client, prompt string, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := client.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxAttempts, lastErr)
}

// httpClient builds the HTTP client backends use. The timeout bounds a
// single attempt; context deadlines bound the whole call.
func httpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
