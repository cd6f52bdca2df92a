/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

// RetryConfig bounds the retries an API backend makes on transient errors
// before giving up and letting the Client fall back.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts. Zero disables retries.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// Validate rejects negative settings.
func (c RetryConfig) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return errors.New("max retries cannot be negative")
	case c.BaseBackoff < 0, c.MaxBackoff < 0, c.MaxJitter < 0:
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

// DefaultRetryConfig keeps retries short: a webhook delivery should not wait
// minutes for a model.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		MaxBackoff:  10 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// withRetry calls fn until it succeeds, returns a non-retryable error, or
// runs out of attempts. The delay doubles per attempt up to MaxBackoff, plus
// random jitter.
func withRetry[T any](ctx context.Context, cfg RetryConfig, operation string, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = fn()
		if err == nil || !retryable(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		wait := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff) + jitter(cfg.MaxJitter)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("backoff", wait).
			With("error", err.Error()).
			Warn("Transient generation error, retrying")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

func retryableStatus(code int) bool {
	return code == 429 || code == 529 || code >= 500
}

func isRetryableAnthropic(err error) bool {
	var apiErr *anthropic.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}

func isRetryableOpenAI(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retryableStatus(apiErr.StatusCode)
}

// isRetryableGemini matches on the message text since the genai client does
// not expose a typed status for every transport.
func isRetryableGemini(err error) bool {
	msg := err.Error()
	for _, s := range []string{"429", "RESOURCE_EXHAUSTED", "Resource exhausted", "503", "Overloaded", "quota exceeded", "Internal error"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
