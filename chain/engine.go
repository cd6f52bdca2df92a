/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/analyzer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Renderer turns a template key and variables into prompt text. The boolean
// is false when no template is configured for the key.
type Renderer interface {
	Render(ctx context.Context, key TemplateKey, vars Context) (string, bool)
}

// Engine runs chains of steps against a shared renderer, analyzer and
// function table.
type Engine struct {
	renderer Renderer
	analyzer analyzer.Analyzer
	funcs    Funcs
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New constructs an Engine.
func New(renderer Renderer, a analyzer.Analyzer, funcs Funcs, opts ...Option) *Engine {
	e := &Engine{
		renderer: renderer,
		analyzer: a,
		funcs:    funcs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks steps against the engine's function table.
func (e *Engine) Validate(steps []Step) error {
	return e.funcs.Validate(steps)
}

type runConfig struct {
	typ     Type
	workDir string
}

// RunOption configures a single Execute call.
type RunOption func(*runConfig)

// WithType sets the chain type. Every type runs sequentially.
func WithType(t Type) RunOption {
	return func(c *runConfig) {
		c.typ = t
	}
}

// WithWorkDir sets the working directory handed to the analyzer.
func WithWorkDir(dir string) RunOption {
	return func(c *runConfig) {
		c.workDir = dir
	}
}

// Execute runs steps in order against a copy of initial and returns one
// Result per executed step. Steps whose guard fails or whose template is
// missing are skipped. Errors from the analyzer abort the run.
func (e *Engine) Execute(ctx context.Context, steps []Step, initial Context, opts ...RunOption) ([]Result, error) {
	cfg := runConfig{typ: Sequential}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := clog.FromContext(ctx).With("chain_type", cfg.typ)
	if cfg.typ != Sequential {
		log.Warn("Chain type not supported, running steps sequentially")
	}

	tr := otel.Tracer("github.com/clidecoder/promptforge/chain")
	ctx, span := tr.Start(ctx, "chain.execute", oteltrace.WithAttributes(
		attribute.String("chain.type", string(cfg.typ)),
		attribute.Int("chain.steps", len(steps)),
	))
	defer span.End()

	vars := initial.Clone()
	results := make([]Result, 0, len(steps))

	for _, step := range steps {
		stepLog := log.With("step", step.Name)

		if !e.guard(ctx, step, vars, results) {
			stepLog.Info("Skipping step, guard not satisfied")
			continue
		}

		prompt, ok := e.renderer.Render(ctx, step.Template, vars)
		if !ok || prompt == "" {
			stepLog.With("template", step.Template.String()).Error("No prompt rendered for step, skipping")
			continue
		}

		output, err := e.run(ctx, step, analyzer.Request{
			Content: prompt,
			History: Transcript(results),
			WorkDir: cfg.workDir,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return results, fmt.Errorf("step %q: %w", step.Name, err)
		}

		data := e.extract(ctx, step, output)
		if data != nil {
			for _, f := range data.Fields() {
				vars[f.Key] = f.Value
			}
			vars[step.Name+"_data"] = data
		}
		if step.RetainOutput || step.Extractor != "" {
			vars[step.Name+"_response"] = output
		}

		results = append(results, Result{
			StepName: step.Name,
			Output:   output,
			Data:     data,
			Metadata: Metadata{
				Template:  step.Template,
				Timestamp: e.now(),
			},
		})
		stepLog.With("output_length", len(output)).Info("Chain step completed")
	}

	span.SetAttributes(attribute.Int("chain.results", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}

func (e *Engine) run(ctx context.Context, step Step, req analyzer.Request) (string, error) {
	tr := otel.Tracer("github.com/clidecoder/promptforge/chain")
	ctx, span := tr.Start(ctx, "chain.step", oteltrace.WithAttributes(
		attribute.String("step.name", step.Name),
		attribute.String("step.template", step.Template.String()),
	))
	defer span.End()

	output, err := e.analyzer.Analyze(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return output, nil
}

func (e *Engine) guard(ctx context.Context, step Step, vars Context, prior []Result) bool {
	if step.Guard == "" {
		return true
	}
	g, ok := e.funcs.Guards[step.Guard]
	if !ok {
		clog.FromContext(ctx).With("guard", step.Guard).Warn("Guard not registered, running step")
		return true
	}
	return g(vars, prior)
}

func (e *Engine) extract(ctx context.Context, step Step, output string) Data {
	if step.Extractor == "" {
		return nil
	}
	x, ok := e.funcs.Extractors[step.Extractor]
	if !ok {
		clog.FromContext(ctx).With("extractor", step.Extractor).Warn("Extractor not registered, skipping extraction")
		return nil
	}
	return x(output)
}
