/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/extract"
	"github.com/google/go-cmp/cmp"
)

func TestIssueChainEndToEnd(t *testing.T) {
	repos := newFakeRepos()
	store := &memStore{}
	a := &scriptAnalyzer{replies: []string{
		"This is a critical bug in the parser.",
		"Thanks for reporting this crash!",
	}}
	reg, err := NewDefault(testDeps(testSettings(widgets), repos, a, store))
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	ctx := context.Background()

	first := reg.Handle(ctx, NewEvent("issues", issuePayload(t, "opened"), "delivery-1"))
	want := Outcome{
		Status:     StatusSuccess,
		Number:     7,
		Labels:     []string{"bug", "priority-high"},
		ChainSteps: 2,
		Summary:    "bug, high priority",
		Record:     "issues/issue_7_chained_analysis.md",
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first Handle() mismatch (-want +got):\n%s", diff)
	}

	if len(repos.comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(repos.comments))
	}
	comment := repos.comments[0]
	for _, s := range []string{"Thanks for reporting", "**Priority**: High", "### Issue Metadata"} {
		if !strings.Contains(comment, s) {
			t.Errorf("comment missing %q:\n%s", s, comment)
		}
	}

	if len(a.calls) != 2 {
		t.Fatalf("analyzer calls = %d, want 2", len(a.calls))
	}
	if !strings.Contains(a.calls[1].History, "## Step 1: initial_analysis") {
		t.Errorf("second step history = %q, want the first step", a.calls[1].History)
	}
	if !strings.Contains(a.calls[1].Content, "triaged as high priority") {
		t.Errorf("second step prompt did not see the extracted priority:\n%s", a.calls[1].Content)
	}

	second := reg.Handle(ctx, NewEvent("issues", issuePayload(t, "opened"), "delivery-2"))
	if second.Status != StatusSkipped {
		t.Errorf("second Handle() status = %q, want %q", second.Status, StatusSkipped)
	}
	if got := repos.count("marker:" + config.DefaultMarkerLabel); got != 1 {
		t.Errorf("marker applied %d times, want 1", got)
	}
	if len(a.calls) != 2 {
		t.Errorf("analyzer calls after redelivery = %d, want 2", len(a.calls))
	}

	body, ok := store.body("issues/issue_7_chained_analysis.md")
	if !ok {
		t.Fatal("no record saved")
	}
	for _, s := range []string{
		"# Chained Analysis for Issue #7\n\n",
		"## Step 1: initial_analysis\n\nThis is a critical bug in the parser.\n\n### Extracted Data\n- **labels**: [bug priority-high]\n- **priority**: high\n",
		"## Step 2: generate_response\n\nThanks for reporting this crash!\n\n---\n\n",
		"## Final Response\n\nThanks for reporting this crash!",
	} {
		if !strings.Contains(body, s) {
			t.Errorf("record missing %q:\n%s", s, body)
		}
	}
}

// timeoutBackend never answers before its deadline.
type timeoutBackend struct{}

func (timeoutBackend) Name() string  { return "test" }
func (timeoutBackend) Model() string { return "test" }
func (timeoutBackend) Complete(context.Context, string, string) (analyzer.Completion, error) {
	return analyzer.Completion{}, context.DeadlineExceeded
}

func TestIssueChainGenerationTimeouts(t *testing.T) {
	repos := newFakeRepos()
	client := analyzer.New(timeoutBackend{}, analyzer.WithInterval(0))
	h, err := NewIssueHandler(testDeps(testSettings(widgets), repos, client, &memStore{}))
	if err != nil {
		t.Fatalf("NewIssueHandler: %v", err)
	}

	got := h.Handle(context.Background(), NewEvent("issues", issuePayload(t, "opened"), "d"))
	if got.Status != StatusSuccess || got.ChainSteps != 2 {
		t.Errorf("Handle() = %+v, want success with 2 steps", got)
	}
	if n := repos.count("marker:" + config.DefaultMarkerLabel); n != 1 {
		t.Errorf("marker applied %d times, want 1", n)
	}
	if len(repos.comments) != 1 || !strings.Contains(repos.comments[0], "Clide") {
		t.Errorf("comments = %q, want the fallback reply", repos.comments)
	}
}

func TestIssueHandlerSkipsAndIgnores(t *testing.T) {
	tests := []struct {
		name    string
		payload func(*testing.T) []byte
		want    Outcome
	}{{
		name:    "other action",
		payload: func(t *testing.T) []byte { return issuePayload(t, "edited") },
		want:    Outcome{Status: StatusIgnored, Reason: "action 'edited' not handled"},
	}, {
		name:    "marker in payload",
		payload: func(t *testing.T) []byte { return issuePayload(t, "opened", "bug", config.DefaultMarkerLabel) },
		want:    Outcome{Status: StatusSkipped, Reason: "already analyzed"},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &scriptAnalyzer{}
			h, err := NewIssueHandler(testDeps(testSettings(widgets), newFakeRepos(), a, &memStore{}))
			if err != nil {
				t.Fatalf("NewIssueHandler: %v", err)
			}
			got := h.Handle(context.Background(), NewEvent("issues", tt.payload(t), "d"))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Handle() mismatch (-want +got):\n%s", diff)
			}
			if len(a.calls) != 0 {
				t.Errorf("analyzer calls = %d, want 0", len(a.calls))
			}
		})
	}
}

func TestIssueSideEffects(t *testing.T) {
	closing := widgets
	closing.Settings.AutoCloseInvalid = true

	quiet := widgets
	quiet.Settings = config.RepositorySettings{}

	tests := []struct {
		name      string
		repos     []config.Repository
		fail      map[string]error
		analysis  string
		wantCalls []string
		wantFails int
	}{{
		name:      "close recommended",
		repos:     []config.Repository{closing},
		analysis:  "Spam.\n" + extract.CloseMarker,
		wantCalls: []string{"labels:priority-medium", "comment", "comment", "close", "marker:clide-analyzed"},
	}, {
		name:      "close recommended but disabled",
		repos:     []config.Repository{widgets},
		analysis:  "Spam.\n" + extract.CloseMarker,
		wantCalls: []string{"labels:priority-medium", "comment", "marker:clide-analyzed"},
	}, {
		name:      "all side effects off",
		repos:     []config.Repository{quiet},
		analysis:  "A bug.",
		wantCalls: []string{"marker:clide-analyzed"},
	}, {
		name:      "unconfigured repository",
		analysis:  "A bug.",
		wantCalls: []string{"marker:clide-analyzed"},
	}, {
		name:      "failures do not stop later effects",
		repos:     []config.Repository{closing},
		fail:      map[string]error{"labels": errors.New("boom"), "comment": errors.New("boom")},
		analysis:  "A bug.\n" + extract.CloseMarker,
		wantCalls: []string{"labels:bug,priority-medium", "comment", "comment", "close", "marker:clide-analyzed"},
		wantFails: 3,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := newFakeRepos()
			for k, v := range tt.fail {
				repos.fail[k] = v
			}
			a := &scriptAnalyzer{replies: []string{tt.analysis, "reply"}}
			h, err := NewIssueHandler(testDeps(testSettings(tt.repos...), repos, a, &memStore{}))
			if err != nil {
				t.Fatalf("NewIssueHandler: %v", err)
			}
			got := h.Handle(context.Background(), NewEvent("issues", issuePayload(t, "opened"), "d"))
			if got.Status != StatusSuccess {
				t.Fatalf("Handle() = %+v, want success", got)
			}
			if diff := cmp.Diff(tt.wantCalls, repos.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
			if len(got.Failures) != tt.wantFails {
				t.Errorf("Failures = %q, want %d", got.Failures, tt.wantFails)
			}
		})
	}
}

func TestIssueExistingLabelsNotReapplied(t *testing.T) {
	repos := newFakeRepos()
	a := &scriptAnalyzer{replies: []string{"A critical bug.", "reply"}}
	h, err := NewIssueHandler(testDeps(testSettings(widgets), repos, a, &memStore{}))
	if err != nil {
		t.Fatalf("NewIssueHandler: %v", err)
	}
	got := h.Handle(context.Background(), NewEvent("issues", issuePayload(t, "opened", "bug"), "d"))
	if diff := cmp.Diff([]string{"priority-high"}, got.Labels); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}

func TestIssueSaveFailure(t *testing.T) {
	repos := newFakeRepos()
	h, err := NewIssueHandler(testDeps(testSettings(widgets), repos, &scriptAnalyzer{}, &memStore{err: errors.New("disk full")}))
	if err != nil {
		t.Fatalf("NewIssueHandler: %v", err)
	}
	got := h.Handle(context.Background(), NewEvent("issues", issuePayload(t, "opened"), "d"))
	if got.Status != StatusError || !strings.Contains(got.Error, "disk full") {
		t.Errorf("Handle() = %+v, want error mentioning disk full", got)
	}
	if len(repos.calls) != 0 {
		t.Errorf("calls = %q, want none", repos.calls)
	}
}

func TestIssueLabelLookupFailure(t *testing.T) {
	repos := newFakeRepos()
	repos.fail["list"] = errors.New("unavailable")
	h, err := NewIssueHandler(testDeps(testSettings(widgets), repos, &scriptAnalyzer{}, &memStore{}))
	if err != nil {
		t.Fatalf("NewIssueHandler: %v", err)
	}
	if got := h.Handle(context.Background(), NewEvent("issues", issuePayload(t, "opened"), "d")); got.Status != StatusSuccess {
		t.Errorf("Handle() = %+v, want success", got)
	}
}

func TestCompose(t *testing.T) {
	analysis := extract.Issue("A critical bug. We need more information.")
	tests := []struct {
		name    string
		results []chain.Result
		want    string
	}{{
		name: "none",
		want: "No analysis results available.",
	}, {
		name:    "single",
		results: []chain.Result{{Output: "only", Data: analysis}},
		want:    "only",
	}, {
		name: "two with metadata",
		results: []chain.Result{
			{Output: "analysis", Data: analysis},
			{Output: "Thanks for reporting"},
		},
		want: "Thanks for reporting\n\n---\n\n### Issue Metadata\n" +
			"**Suggested Labels**: bug, priority-high\n" +
			"**Priority**: High\n" +
			"**Category**: Bug\n" +
			"**Status**: Needs more information",
	}, {
		name:    "two without data",
		results: []chain.Result{{Output: "a"}, {Output: "b"}},
		want:    "b\n\n---\n\n### Issue Metadata\n**Priority**: Medium\n**Category**: Unknown",
	}, {
		name:    "first result has foreign data",
		results: []chain.Result{{Output: "a", Data: foreignData{}}, {Output: "b"}, {Output: "c"}},
		want:    "c\n\n---\n\n### Issue Metadata\n**Priority**: Medium\n**Category**: Unknown",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.results); got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewChainHandlerValidates(t *testing.T) {
	bad := &badChain{}
	_, err := NewChainHandler(testDeps(nil, newFakeRepos(), &scriptAnalyzer{}, &memStore{}), bad, chain.Funcs{}, "issue", &Event{})
	if !errors.Is(err, chain.ErrUnknownExtractor) {
		t.Errorf("NewChainHandler() error = %v, want %v", err, chain.ErrUnknownExtractor)
	}
}

type foreignData struct{}

func (foreignData) Fields() []chain.Field { return nil }

type badChain struct{ Issues }

func (*badChain) Steps(*Event) []chain.Step {
	return []chain.Step{{Name: "x", Template: chain.Key("issues", "analyze"), Extractor: "missing"}}
}
