/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/prompts"
)

// errNoTemplate is reported when a kind has neither a template nor a
// built-in prompt.
var errNoTemplate = errors.New("no prompt template")

// brief is the material gathered for one generation call.
type brief struct {
	// content is the context block sent ahead of the prompt.
	content string
	number  int
	pr      *ghclient.PullRequest
}

// Templated answers an event with one rendered prompt and one generation
// call. The per-kind behavior lives in its function fields.
type Templated struct {
	deps     Deps
	category string
	dir      string

	// route names the template action for ev, or returns a reason to
	// ignore it.
	route func(ev *Event) (action, reason string)
	// prepare builds the context block and may extend vars.
	prepare func(ctx context.Context, ev *Event, vars chain.Context) (*brief, error)
	// name is the record name.
	name func(ev *Event, now time.Time) string
	// publish applies side effects and returns the labels applied.
	publish func(ctx context.Context, ev *Event, b *brief, analysis string, vars chain.Context, fx *effects) []string

	// prompt is used when no template renders.
	prompt string
	// fallback takes the event when no template renders and prompt is empty.
	fallback Handler
}

// Handle implements Handler.
func (t *Templated) Handle(ctx context.Context, ev *Event) Outcome {
	action, reason := t.route(ev)
	if reason != "" {
		return ignored("%s", reason)
	}
	log := clog.FromContext(ctx).With("template", chain.Key(t.category, action).String())

	payload, err := ev.Decode()
	if err != nil {
		return failed(err)
	}
	now := t.deps.now()
	vars := prompts.NewContext(ev.Kind, ev.Action, payload, now)

	b, err := t.prepare(ctx, ev, vars)
	if err != nil {
		return failed(err)
	}

	prompt, ok := t.deps.Renderer.Render(ctx, chain.Key(t.category, action), vars)
	if !ok || prompt == "" {
		switch {
		case t.prompt != "":
			prompt = t.prompt
		case t.fallback != nil:
			log.Warn("No prompt for event, using generic handler")
			return t.fallback.Handle(ctx, ev)
		default:
			log.Error("No prompt found for event")
			return failed(errNoTemplate)
		}
	}

	analysis, err := t.deps.Analyzer.Analyze(ctx, analyzer.Request{
		Prompt:  prompt,
		Content: b.content,
		WorkDir: t.deps.workDir(ev),
	})
	if err != nil {
		return failed(err)
	}

	key, err := t.deps.save(ctx, t.dir, t.name(ev, now), []byte(analysis))
	if err != nil {
		return failed(err)
	}

	out := Outcome{
		Status:  StatusSuccess,
		Number:  b.number,
		Record:  key,
		Summary: firstLine(analysis),
	}
	if t.publish != nil {
		fx := &effects{ctx: ctx, kind: ev.Kind}
		out.Labels = t.publish(ctx, ev, b, analysis, vars, fx)
		out.Failures = fx.failed
	}
	log.With("record", key).Info("Analysis completed")
	return out
}

// onlyActions ignores events whose action is not listed.
func onlyActions(h Handler, actions ...string) Handler {
	return HandlerFunc(func(ctx context.Context, ev *Event) Outcome {
		for _, a := range actions {
			if ev.Action == a {
				return h.Handle(ctx, ev)
			}
		}
		return ignored("action '%s' not handled", ev.Action)
	})
}

const summaryLimit = 200

// firstLine returns the first non-blank line of s, shortened for display.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return truncate(line, summaryLimit)
		}
	}
	return ""
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
