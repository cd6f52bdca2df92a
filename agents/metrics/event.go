/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// EventContext identifies the webhook delivery a generation call serves.
type EventContext struct {
	Kind       string `json:"kind,omitempty"`       // e.g. "issues"
	Action     string `json:"action,omitempty"`     // e.g. "opened"
	Repository string `json:"repository,omitempty"` // "owner/repo"
	Delivery   string `json:"delivery,omitempty"`   // X-GitHub-Delivery or a synthesized id
}

// EnrichAttributes adds the bounded fields of the event to baseAttrs.
//
// Delivery is left out: every delivery would create a new time series. It
// stays available on logs and traces.
func (e EventContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+3)
	copy(attrs, baseAttrs)

	if e.Kind != "" {
		attrs = append(attrs, attribute.String("event", e.Kind))
	}
	if e.Action != "" {
		attrs = append(attrs, attribute.String("action", e.Action))
	}
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	return attrs
}

type contextKey string

const eventContextKey contextKey = "event_context"

// WithEventContext attaches an EventContext to ctx.
func WithEventContext(ctx context.Context, ev EventContext) context.Context {
	return context.WithValue(ctx, eventContextKey, ev)
}

// EventFromContext returns the EventContext attached to ctx, or the zero value.
func EventFromContext(ctx context.Context) EventContext {
	if ev, ok := ctx.Value(eventContextKey).(EventContext); ok {
		return ev
	}
	return EventContext{}
}
