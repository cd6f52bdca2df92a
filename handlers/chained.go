/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/prompts"
)

// Chained is a handler that answers an event with a multi-step chain.
type Chained interface {
	// Steps returns the chain for ev. No steps means the event is not
	// actionable.
	Steps(ev *Event) []chain.Step
	// Type is the chain type passed to the engine.
	Type() chain.Type
	// Save persists every step and the final text, returning the record key.
	Save(ctx context.Context, ev *Event, results []chain.Result, final string) (string, error)
	// PostProcess applies side effects and builds the outcome.
	PostProcess(ctx context.Context, ev *Event, results []chain.Result, final string) Outcome
}

// subject locates the issue or pull request an event is about.
type subject struct {
	// path is the payload object holding number and labels.
	path string
}

func (s subject) number(ev *Event) int {
	return int(ev.Get(s.path + ".number").Int())
}

// ChainHandler drives a Chained through the handler life cycle.
type ChainHandler struct {
	deps    Deps
	chained Chained
	engine  *chain.Engine
	subject subject
}

// NewChainHandler validates every step c can return for a probe event and
// wires c to an engine built from d.
func NewChainHandler(d Deps, c Chained, funcs chain.Funcs, subjectPath string, probe ...*Event) (*ChainHandler, error) {
	engine := chain.New(d.Renderer, d.Analyzer, funcs, chain.WithClock(d.now))
	for _, ev := range probe {
		if err := engine.Validate(c.Steps(ev)); err != nil {
			return nil, fmt.Errorf("validating chain: %w", err)
		}
	}
	return &ChainHandler{
		deps:    d,
		chained: c,
		engine:  engine,
		subject: subject{path: subjectPath},
	}, nil
}

// Handle implements Handler.
func (h *ChainHandler) Handle(ctx context.Context, ev *Event) Outcome {
	steps := h.chained.Steps(ev)
	if len(steps) == 0 {
		return ignored("action '%s' not handled", ev.Action)
	}

	repo := ev.Repository()
	number := h.subject.number(ev)
	log := clog.FromContext(ctx).With("number", number)
	ctx = clog.WithLogger(ctx, log)

	if h.analyzed(ctx, ev, repo, number) {
		log.Info("Subject already analyzed, skipping")
		return skipped("already analyzed")
	}

	payload, err := ev.Decode()
	if err != nil {
		return failed(err)
	}
	vars := prompts.NewContext(ev.Kind, ev.Action, payload, h.deps.now())

	log.With("steps", len(steps), "chain_type", h.chained.Type()).Info("Running analysis chain")
	results, err := h.engine.Execute(ctx, steps, vars,
		chain.WithType(h.chained.Type()),
		chain.WithWorkDir(h.deps.workDir(ev)),
	)
	if err != nil {
		return failed(fmt.Errorf("running chain: %w", err))
	}

	final := Compose(results)

	record, err := h.chained.Save(ctx, ev, results, final)
	if err != nil {
		return failed(err)
	}

	out := h.chained.PostProcess(ctx, ev, results, final)
	out.Record = record
	if out.ChainSteps == 0 {
		out.ChainSteps = len(results)
	}
	return out
}

// analyzed reports whether the subject carries the marker label, either in
// the delivered payload or on the live repository.
func (h *ChainHandler) analyzed(ctx context.Context, ev *Event, repo string, number int) bool {
	marker := h.deps.settings().MarkerLabel()
	if slices.Contains(ev.Labels(h.subject.path), marker) {
		return true
	}
	if h.deps.Repos == nil || repo == "" || number == 0 {
		return false
	}
	labels, err := h.deps.Repos.Labels(ctx, repo, number)
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Failed to list labels, assuming not analyzed")
		return false
	}
	return slices.Contains(labels, marker)
}

// metadata is implemented by extracted data that contributes a metadata
// block to the composed response.
type metadata interface {
	Metadata() []string
}

// defaultMetadata is used when the first result carries no metadata.
var defaultMetadata = []string{"**Priority**: Medium", "**Category**: Unknown"}

// Compose combines chain results into the text posted back. A single result
// is used verbatim. With two or more, the last output is followed by an
// issue metadata block built from the first result's data.
func Compose(results []chain.Result) string {
	switch len(results) {
	case 0:
		return "No analysis results available."
	case 1:
		return results[0].Output
	}

	lines := defaultMetadata
	if md, ok := results[0].Data.(metadata); ok {
		if l := md.Metadata(); len(l) > 0 {
			lines = l
		}
	}
	return strings.Join([]string{
		results[len(results)-1].Output,
		"\n---\n",
		"### Issue Metadata",
		strings.Join(lines, "\n"),
	}, "\n")
}

// effects applies side effects in order and collects failures without
// stopping.
type effects struct {
	ctx    context.Context
	kind   string
	failed []string
}

func (e *effects) do(name string, fn func() error) bool {
	if err := fn(); err != nil {
		clog.FromContext(e.ctx).With("effect", name, "error", err).Error("Side effect failed")
		sideEffectFailures.WithLabelValues(e.kind, name).Inc()
		e.failed = append(e.failed, fmt.Sprintf("%s: %v", name, err))
		return false
	}
	return true
}
