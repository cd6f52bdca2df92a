/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clidecoder/promptforge/agents/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Trace is one generation call from prompt to response.
type Trace struct {
	ID               string               `json:"id"`
	Backend          string               `json:"backend"`
	Model            string               `json:"model"`
	Prompt           string               `json:"prompt"`
	Event            metrics.EventContext `json:"event,omitzero"`
	Response         string               `json:"response"`
	Fallback         bool                 `json:"fallback,omitempty"`
	Error            error                `json:"error,omitempty"`
	PromptTokens     int64                `json:"prompt_tokens,omitempty"`
	CompletionTokens int64                `json:"completion_tokens,omitempty"`
	StartTime        time.Time            `json:"start_time"`
	EndTime          time.Time            `json:"end_time"`

	tracer Tracer
	mu     sync.Mutex
	span   oteltrace.Span
}

func newTrace(ctx context.Context, tracer Tracer, backend, model, prompt string) (context.Context, *Trace) {
	ev := metrics.EventFromContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("genai.backend", backend),
		attribute.String("genai.model", model),
		attribute.Int("genai.prompt_length", len(prompt)),
	}
	if ev.Delivery != "" {
		attrs = append(attrs, attribute.String("delivery", ev.Delivery))
	}
	ctx, span := otel.Tracer("promptforge.agents.agenttrace",
		oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(ctx, "genai.generate", oteltrace.WithAttributes(ev.EnrichAttributes(attrs)...))

	return ctx, &Trace{
		ID:        generateTraceID(),
		Backend:   backend,
		Model:     model,
		Prompt:    prompt,
		Event:     ev,
		StartTime: time.Now(),
		tracer:    tracer,
		span:      span,
	}
}

// RecordTokens attaches token usage to the trace and its span.
func (t *Trace) RecordTokens(prompt, completion int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.PromptTokens, t.CompletionTokens = prompt, completion
	t.span.SetAttributes(
		attribute.Int64("tokens.input", prompt),
		attribute.Int64("tokens.output", completion),
	)
}

// Complete ends the trace and hands it to its tracer. fallback reports
// that response is the deterministic text used when the backend failed.
func (t *Trace) Complete(response string, fallback bool, err error) {
	t.mu.Lock()
	t.Response = response
	t.Fallback = fallback
	t.Error = err
	t.EndTime = time.Now()
	t.mu.Unlock()

	t.span.SetAttributes(attribute.Bool("genai.fallback", fallback))
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	} else {
		t.span.SetStatus(codes.Ok, "")
	}
	t.span.End()

	t.tracer.RecordTrace(t)
}

// Duration is the elapsed time of the call so far.
func (t *Trace) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// String renders the trace for logs. Long prompts and responses are
// shortened.
func (t *Trace) String() string {
	d := t.Duration()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Backend: %s (%s)\n", t.Backend, t.Model)
	if t.Event.Kind != "" {
		fmt.Fprintf(&sb, "Event: %s/%s %s [%s]\n", t.Event.Kind, t.Event.Action, t.Event.Repository, t.Event.Delivery)
	}
	fmt.Fprintf(&sb, "Duration: %v\n", d)
	fmt.Fprintf(&sb, "Prompt: %q\n", shorten(t.Prompt, 200))

	sb.WriteString("\nCompletion:\n")
	switch {
	case t.Error != nil && t.Fallback:
		fmt.Fprintf(&sb, "  Error: %v (fallback used)\n", t.Error)
	case t.Error != nil:
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	default:
		fmt.Fprintf(&sb, "  Response: %s\n", shorten(t.Response, 500))
	}
	if t.PromptTokens > 0 || t.CompletionTokens > 0 {
		fmt.Fprintf(&sb, "  Tokens: %d in, %d out\n", t.PromptTokens, t.CompletionTokens)
	}
	return sb.String()
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// generateTraceID returns "YYYYMMDD-HHMMSS-RRRRRRRR" with a random suffix.
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
