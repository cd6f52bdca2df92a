/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Tracer receives completed traces.
type Tracer interface {
	RecordTrace(trace *Trace)
}

type tracerKey struct{}

// WithTracer returns a context whose generation calls report to tracer.
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

// TracerFromContext returns the tracer attached to ctx, or one that logs
// each trace at debug level.
func TracerFromContext(ctx context.Context) Tracer {
	if tracer, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return tracer
	}
	return logTracer{ctx: ctx}
}

// StartTrace opens a trace and span for one call to backend. The returned
// context carries the span.
func StartTrace(ctx context.Context, backend, model, prompt string) (context.Context, *Trace) {
	return newTrace(ctx, TracerFromContext(ctx), backend, model, prompt)
}

// ByCode returns a Tracer that invokes every callback with each trace.
func ByCode(callbacks ...func(*Trace)) Tracer {
	return byCode(callbacks)
}

type byCode []func(*Trace)

func (b byCode) RecordTrace(trace *Trace) {
	var g errgroup.Group
	for _, cb := range b {
		if cb == nil {
			continue
		}
		g.Go(func() error {
			cb(trace)
			return nil
		})
	}
	_ = g.Wait()
}

type logTracer struct {
	ctx context.Context
}

func (l logTracer) RecordTrace(trace *Trace) {
	clog.FromContext(l.ctx).With(
		"trace_id", trace.ID,
		"duration_ms", trace.Duration().Milliseconds(),
		"fallback", trace.Fallback,
	).Debug("Generation trace completed", "trace", trace.String())
}
