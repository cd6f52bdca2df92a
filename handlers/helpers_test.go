/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/prompts"
	"github.com/clidecoder/promptforge/records"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeRepos records repository mutations. fail is keyed by "labels",
// "marker", "comment", "close" and "list".
type fakeRepos struct {
	mu       sync.Mutex
	labels   map[int][]string
	calls    []string
	comments []string
	fail     map[string]error
	pr       *ghclient.PullRequest
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{labels: map[int][]string{}, fail: map[string]error{}}
}

func (f *fakeRepos) Labels(_ context.Context, _ string, number int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["list"]; err != nil {
		return nil, err
	}
	return slices.Clone(f.labels[number]), nil
}

func (f *fakeRepos) AddLabels(_ context.Context, _ string, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := "labels"
	if slices.Equal(labels, []string{config.DefaultMarkerLabel}) {
		op = "marker"
	}
	f.calls = append(f.calls, op+":"+strings.Join(labels, ","))
	if err := f.fail[op]; err != nil {
		return err
	}
	f.labels[number] = append(f.labels[number], labels...)
	return nil
}

func (f *fakeRepos) Comment(_ context.Context, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "comment")
	if err := f.fail["comment"]; err != nil {
		return err
	}
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeRepos) Close(context.Context, string, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "close")
	return f.fail["close"]
}

func (f *fakeRepos) PullRequest(_ context.Context, _ string, number int) (*ghclient.PullRequest, error) {
	if f.pr == nil {
		return &ghclient.PullRequest{Number: number}, nil
	}
	return f.pr, nil
}

func (f *fakeRepos) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

type memStore struct {
	mu      sync.Mutex
	records map[string]records.Record
	err     error
}

func (m *memStore) Put(_ context.Context, r records.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.records == nil {
		m.records = map[string]records.Record{}
	}
	m.records[r.Key()] = r
	return nil
}

func (m *memStore) body(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	return string(r.Body), ok
}

// scriptAnalyzer answers with replies in order, then "ok".
type scriptAnalyzer struct {
	mu      sync.Mutex
	replies []string
	calls   []analyzer.Request
}

func (s *scriptAnalyzer) Analyze(_ context.Context, req analyzer.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if len(s.replies) == 0 {
		return "ok", nil
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

var widgets = config.Repository{
	Name:    "acme/widgets",
	Enabled: true,
	Events:  []string{"issues", "pull_request"},
	Settings: config.RepositorySettings{
		ApplyLabels:          true,
		PostAnalysisComments: true,
	},
}

func testSettings(repos ...config.Repository) *config.Settings {
	s := config.Default()
	s.Repositories = repos
	return s
}

func testDeps(settings *config.Settings, repos Repos, a analyzer.Analyzer, store records.Store) Deps {
	return Deps{
		Renderer: prompts.New(prompts.Defaults()),
		Analyzer: a,
		Repos:    repos,
		Store:    store,
		Settings: settings,
		Now:      func() time.Time { return fixedTime },
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	return b
}

func issuePayload(t *testing.T, action string, labels ...string) []byte {
	t.Helper()
	ls := make([]map[string]any, 0, len(labels))
	for _, l := range labels {
		ls = append(ls, map[string]any{"name": l})
	}
	return mustJSON(t, map[string]any{
		"action": action,
		"issue": map[string]any{
			"number": 7,
			"title":  "Parser crashes on empty input",
			"body":   "Running parse(\"\") panics.",
			"user":   map[string]any{"login": "octocat"},
			"labels": ls,
		},
		"repository": map[string]any{"full_name": "acme/widgets"},
		"sender":     map[string]any{"login": "octocat"},
	})
}
