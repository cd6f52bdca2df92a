/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/records"
)

// Status is the disposition of one handled event.
type Status string

const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Outcome is what a handler reports for one event.
type Outcome struct {
	Status     Status   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Error      string   `json:"error,omitempty"`
	Number     int      `json:"number,omitempty"`
	Labels     []string `json:"labels_applied,omitempty"`
	ChainSteps int      `json:"chain_steps,omitempty"`
	Summary    string   `json:"analysis_summary,omitempty"`
	Record     string   `json:"record,omitempty"`
	// Failures lists side effects that did not go through.
	Failures []string `json:"failures,omitempty"`
}

func ignored(format string, args ...any) Outcome {
	return Outcome{Status: StatusIgnored, Reason: fmt.Sprintf(format, args...)}
}

func skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Status: StatusError, Error: err.Error()}
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev *Event) Outcome
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev *Event) Outcome

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev *Event) Outcome {
	return f(ctx, ev)
}

// Repos is the repository control the handlers need. *ghclient.Client
// satisfies it.
type Repos interface {
	Labels(ctx context.Context, repo string, number int) ([]string, error)
	AddLabels(ctx context.Context, repo string, number int, labels []string) error
	Comment(ctx context.Context, repo string, number int, body string) error
	Close(ctx context.Context, repo string, number int) error
	PullRequest(ctx context.Context, repo string, number int) (*ghclient.PullRequest, error)
}

var _ Repos = (*ghclient.Client)(nil)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Renderer chain.Renderer
	Analyzer analyzer.Analyzer
	Repos    Repos
	Store    records.Store
	Settings *config.Settings
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) settings() *config.Settings {
	if d.Settings != nil {
		return d.Settings
	}
	return config.Default()
}

// repository returns the configuration for the event's repository.
func (d Deps) repository(ev *Event) (*config.Repository, bool) {
	return d.settings().Repository(ev.Repository())
}

// workDir is the local checkout of the event's repository, if configured.
func (d Deps) workDir(ev *Event) string {
	if r, ok := d.repository(ev); ok {
		return r.LocalPath
	}
	return ""
}

func (d Deps) dir(kind string) string {
	return d.settings().Outputs.Directory(kind)
}

// save writes a record and returns its key.
func (d Deps) save(ctx context.Context, dir, name string, body []byte) (string, error) {
	r := records.Record{Dir: d.dir(dir), Name: name, Body: body}
	if err := d.Store.Put(ctx, r); err != nil {
		return "", fmt.Errorf("saving %s: %w", r.Key(), err)
	}
	clog.FromContext(ctx).With("record", r.Key()).Info("Saved analysis record")
	return r.Key(), nil
}
