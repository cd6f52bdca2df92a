/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/metrics"
)

// ErrRegistryFrozen is returned by Register once the registry has started
// dispatching.
var ErrRegistryFrozen = errors.New("handler registry is frozen")

// Registry maps event kinds to handlers. Kinds without a handler go to the
// fallback. Registration is only allowed before the first Dispatch or an
// explicit Freeze.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
	frozen   bool
}

// NewRegistry returns an empty registry that sends unknown kinds to fallback.
func NewRegistry(fallback Handler) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		fallback: fallback,
	}
}

// Register binds kind to h.
func (r *Registry) Register(kind string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registering %q: %w", kind, ErrRegistryFrozen)
	}
	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("handler for %q already registered", kind)
	}
	r.handlers[kind] = h
	return nil
}

// Freeze stops further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Kinds returns the kinds with a dedicated handler.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Dispatch returns the handler for kind, or the fallback.
func (r *Registry) Dispatch(kind string) Handler {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	frozen := r.frozen
	r.mu.RUnlock()
	if !frozen {
		r.Freeze()
	}
	if ok {
		return h
	}
	return r.fallback
}

// Handle dispatches ev and runs its handler. A panic inside the handler is
// reported as an error outcome for this event only.
func (r *Registry) Handle(ctx context.Context, ev *Event) (out Outcome) {
	ctx = metrics.WithEventContext(ctx, metrics.EventContext{
		Kind:       ev.Kind,
		Action:     ev.Action,
		Repository: ev.Repository(),
		Delivery:   ev.Delivery,
	})
	log := clog.FromContext(ctx).With(
		"event", ev.Kind,
		"action", ev.Action,
		"delivery", ev.Delivery,
		"request_id", ev.RequestID,
		"repository", ev.Repository(),
	)
	ctx = clog.WithLogger(ctx, log)

	defer func() {
		if p := recover(); p != nil {
			log.With("panic", p, "stack", string(debug.Stack())).Error("Handler panicked")
			out = Outcome{Status: StatusError, Error: fmt.Sprintf("handler panic: %v", p)}
		}
		eventsHandled.WithLabelValues(ev.Kind, string(out.Status)).Inc()
		log.With("status", out.Status, "reason", out.Reason, "error", out.Error).Info("Event handled")
	}()

	h := r.Dispatch(ev.Kind)
	if h == nil {
		return ignored("no handler for event %q", ev.Kind)
	}
	return h.Handle(ctx, ev)
}
