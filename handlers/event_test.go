/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEventAccessors(t *testing.T) {
	ev := NewEvent("issues", issuePayload(t, "opened", "bug", "clide-analyzed"), "d-1")

	if ev.Action != "opened" {
		t.Errorf("Action = %q, want opened", ev.Action)
	}
	if ev.RequestID != "d-1" {
		t.Errorf("RequestID = %q, want d-1", ev.RequestID)
	}
	if got := ev.Repository(); got != "acme/widgets" {
		t.Errorf("Repository() = %q, want acme/widgets", got)
	}
	if got := ev.Sender(); got != "octocat" {
		t.Errorf("Sender() = %q, want octocat", got)
	}
	if diff := cmp.Diff([]string{"bug", "clide-analyzed"}, ev.Labels("issue")); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
	if got := ev.Labels("pull_request"); got != nil {
		t.Errorf("Labels(pull_request) = %v, want nil", got)
	}
	if got := ev.Get("issue.number").Int(); got != 7 {
		t.Errorf("Get(issue.number) = %d, want 7", got)
	}
}

func TestEventWithoutAction(t *testing.T) {
	ev := NewEvent("push", []byte(`{"ref":"refs/heads/main"}`), "")
	if ev.Action != "" {
		t.Errorf("Action = %q, want empty", ev.Action)
	}
	if got := ev.Repository(); got != "" {
		t.Errorf("Repository() = %q, want empty", got)
	}
}

func TestEventDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[string]any
		wantErr bool
	}{{
		name:    "object",
		payload: `{"action":"opened","issue":{"number":7}}`,
		want:    map[string]any{"action": "opened", "issue": map[string]any{"number": float64(7)}},
	}, {
		name:    "null",
		payload: `null`,
		want:    map[string]any{},
	}, {
		name:    "malformed",
		payload: `{"action":`,
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEvent("issues", []byte(tt.payload), "").Decode()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
