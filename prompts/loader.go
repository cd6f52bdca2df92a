/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package prompts

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"text/template"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/chain"
)

//go:embed templates
var defaults embed.FS

// Defaults returns the built-in templates and their mapping.
func Defaults() (fs.FS, map[string]map[string]string) {
	sub, err := fs.Sub(defaults, "templates")
	if err != nil {
		panic(err)
	}
	return sub, map[string]map[string]string{
		"issues": {
			"analyze": "issues/analyze.md",
			"respond": "issues/respond.md",
			"opened":  "issues/analyze.md",
		},
		"pull_request": {
			"new_pr":     "pull_request/review.md",
			"pr_updated": "pull_request/review.md",
		},
		"pull_request_review": {
			"requested": "pull_request_review/requested.md",
		},
		"workflow_run": {
			"completed": "workflow_run/failure.md",
		},
		"push": {
			"commits": "push/commits.md",
		},
		"release": {
			"default": "release/summary.md",
		},
		"generic": {
			"default": "generic/default.md",
		},
	}
}

// Loader resolves a (category, action) pair to a template file and renders
// it. Templates are cached after the first read.
type Loader struct {
	fsys      fs.FS
	templates map[string]map[string]string

	mu    sync.Mutex
	cache map[string]*entry
}

type entry struct {
	raw  string
	tmpl *template.Template
	// err is set when raw failed to parse.
	err error
}

// New constructs a Loader reading template files from fsys. templates maps
// category to action to file path; each category may carry a "default"
// entry used when the action has none.
func New(fsys fs.FS, templates map[string]map[string]string) *Loader {
	return &Loader{
		fsys:      fsys,
		templates: templates,
		cache:     make(map[string]*entry),
	}
}

// Path returns the configured file for a key, falling back to the
// category's default entry.
func (l *Loader) Path(key chain.TemplateKey) (string, bool) {
	actions := l.templates[key.Category]
	if p := actions[key.Action]; p != "" {
		return p, true
	}
	if p := actions["default"]; p != "" {
		return p, true
	}
	return "", false
}

// Render implements chain.Renderer. It reports false when no template is
// configured or the file cannot be read. A template that fails to parse or
// execute is returned unrendered.
func (l *Loader) Render(ctx context.Context, key chain.TemplateKey, vars chain.Context) (string, bool) {
	log := clog.FromContext(ctx).With("template", key.String())

	e, err := l.load(key)
	if err != nil {
		log.With("error", err).Warn("No prompt template available")
		return "", false
	}
	if e.err != nil {
		log.With("error", e.err).Error("Failed to parse prompt template, using raw text")
		return e.raw, true
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, map[string]any(vars)); err != nil {
		log.With("error", err).Error("Failed to render prompt template, using raw text")
		return e.raw, true
	}
	return buf.String(), true
}

// Reset drops cached templates so edits on disk are picked up.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

func (l *Loader) load(key chain.TemplateKey) (*entry, error) {
	path, ok := l.Path(key)
	if !ok {
		return nil, fmt.Errorf("no template configured for %s", key)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.cache[path]; ok {
		return e, nil
	}

	b, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	e := &entry{raw: string(b)}
	e.tmpl, e.err = template.New(path).Funcs(funcs).Option("missingkey=zero").Parse(e.raw)
	l.cache[path] = e
	return e, nil
}

// Open returns a Loader over the template files under baseDir. When baseDir
// is not a directory or no templates are mapped, the built-in templates are
// used instead.
func Open(baseDir string, templates map[string]map[string]string) *Loader {
	if fi, err := os.Stat(baseDir); err == nil && fi.IsDir() && len(templates) > 0 {
		return New(os.DirFS(baseDir), templates)
	}
	return New(Defaults())
}
