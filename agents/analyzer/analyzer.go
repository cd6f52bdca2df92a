/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/agenttrace"
	"github.com/clidecoder/promptforge/agents/metrics"
	"golang.org/x/time/rate"
)

// Request is one generation call.
type Request struct {
	// Prompt is the instruction body. It may be empty when Content is a
	// fully rendered template.
	Prompt string
	// Content is the immediate material for this call.
	Content string
	// History is an optional transcript of earlier calls in the same chain.
	History string
	// WorkDir is the local checkout the backend may inspect, if any.
	WorkDir string
}

// Text joins the non-empty parts of the request in the order history,
// content, prompt, separated by blank lines.
func (r Request) Text() string {
	var parts []string
	for _, p := range []string{r.History, r.Content, r.Prompt} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Analyzer turns a request into generated text. Implementations answer
// backend failures with fallback text; the only errors returned are context
// cancellation and failures the caller must see.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// Completion is a backend's answer.
type Completion struct {
	Text             string
	PromptTokens     int64
	CompletionTokens int64
}

// Backend performs a single raw call against a generation service.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt, workDir string) (Completion, error)
}

// DefaultInterval is the minimum spacing between generation calls.
const DefaultInterval = time.Second

// Client adapts a Backend to the Analyzer contract. All calls through one
// Client share a rate gate, so a process should hold a single Client.
type Client struct {
	backend Backend
	gate    *rate.Limiter
	metrics *metrics.Generation
}

// Option configures a Client.
type Option func(*Client)

// WithInterval sets the minimum spacing between calls. Zero disables the gate.
func WithInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.gate = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.gate = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMetrics records call metrics on m.
func WithMetrics(m *metrics.Generation) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New wraps backend in a rate-gated Client.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		gate:    rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze implements Analyzer.
func (c *Client) Analyze(ctx context.Context, req Request) (string, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return "", err
	}

	log := clog.FromContext(ctx).With("backend", c.backend.Name(), "model", c.backend.Model())
	text := req.Text()

	ctx, trace := agenttrace.StartTrace(ctx, c.backend.Name(), c.backend.Model(), text)
	start := time.Now()
	comp, err := c.backend.Complete(ctx, text, req.WorkDir)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			trace.Complete("", false, ctxErr)
			return "", ctxErr
		}
		log.With("error", err).Warn("Generation failed, using fallback response")
		c.record(ctx, "fallback", elapsed, Completion{})
		fb := Fallback(text)
		trace.Complete(fb, true, err)
		return fb, nil
	}

	log.With("response_length", len(comp.Text)).Info("Received generation response")
	c.record(ctx, "ok", elapsed, comp)
	trace.RecordTokens(comp.PromptTokens, comp.CompletionTokens)
	trace.Complete(comp.Text, false, nil)
	return comp.Text, nil
}

func (c *Client) record(ctx context.Context, outcome string, elapsed time.Duration, comp Completion) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCall(ctx, c.backend.Name(), c.backend.Model(), outcome, elapsed)
	if comp.PromptTokens > 0 || comp.CompletionTokens > 0 {
		c.metrics.RecordTokens(ctx, c.backend.Name(), c.backend.Model(), comp.PromptTokens, comp.CompletionTokens)
	}
}
