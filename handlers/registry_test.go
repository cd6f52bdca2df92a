/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/clidecoder/promptforge/agents/metrics"
)

func named(name string) Handler {
	return HandlerFunc(func(context.Context, *Event) Outcome {
		return Outcome{Status: StatusSuccess, Reason: name}
	})
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(named("generic"))
	if err := reg.Register("issues", named("issues")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register("issues", named("again")); err == nil {
		t.Error("Register() duplicate = nil error, want error")
	}

	ctx := context.Background()
	for kind, want := range map[string]string{"issues": "issues", "gollum": "generic"} {
		if got := reg.Dispatch(kind).Handle(ctx, &Event{Kind: kind}).Reason; got != want {
			t.Errorf("Dispatch(%q) = %q, want %q", kind, got, want)
		}
	}

	if err := reg.Register("push", named("push")); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("Register() after Dispatch = %v, want %v", err, ErrRegistryFrozen)
	}
}

func TestRegistryFreeze(t *testing.T) {
	reg := NewRegistry(named("generic"))
	reg.Freeze()
	if err := reg.Register("issues", named("issues")); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("Register() = %v, want %v", err, ErrRegistryFrozen)
	}
	if kinds := reg.Kinds(); len(kinds) != 0 {
		t.Errorf("Kinds() = %v, want none", kinds)
	}
}

func TestRegistryHandleRecoversPanic(t *testing.T) {
	reg := NewRegistry(named("generic"))
	if err := reg.Register("issues", HandlerFunc(func(context.Context, *Event) Outcome {
		panic("boom")
	})); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got := reg.Handle(context.Background(), &Event{Kind: "issues"})
	if got.Status != StatusError || got.Error != "handler panic: boom" {
		t.Errorf("Handle() = %+v, want error outcome for the panic", got)
	}

	// The registry keeps serving other events.
	if got := reg.Handle(context.Background(), &Event{Kind: "push"}); got.Status != StatusSuccess {
		t.Errorf("Handle() after panic = %+v, want success", got)
	}
}

func TestRegistryHandleAttachesEventContext(t *testing.T) {
	var got metrics.EventContext
	reg := NewRegistry(HandlerFunc(func(ctx context.Context, _ *Event) Outcome {
		got = metrics.EventFromContext(ctx)
		return Outcome{Status: StatusSuccess}
	}))

	ev := NewEvent("label", []byte(`{"action":"created","repository":{"full_name":"acme/widgets"}}`), "abc")
	reg.Handle(context.Background(), ev)

	want := metrics.EventContext{Kind: "label", Action: "created", Repository: "acme/widgets", Delivery: "abc"}
	if got != want {
		t.Errorf("event context = %+v, want %+v", got, want)
	}
}

func TestNewDefaultKinds(t *testing.T) {
	reg, err := NewDefault(testDeps(nil, newFakeRepos(), &scriptAnalyzer{}, &memStore{}))
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	kinds := reg.Kinds()
	for _, k := range []string{"issues", "pull_request", "pull_request_review", "workflow_run", "push", "release", "fork", "deployment", "star", "watch", "commit_comment", "project", "milestone", "team", "member"} {
		if !slices.Contains(kinds, k) {
			t.Errorf("Kinds() missing %q", k)
		}
	}
	if err := reg.Register("gollum", named("x")); !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("Register() on default registry = %v, want %v", err, ErrRegistryFrozen)
	}
}

func TestNewDefaultRequiresDeps(t *testing.T) {
	if _, err := NewDefault(Deps{}); err == nil {
		t.Error("NewDefault(Deps{}) = nil error, want error")
	}
}

func ExampleRegistry_Dispatch() {
	reg := NewRegistry(named("generic"))
	_ = reg.Register("issues", named("issues"))

	fmt.Println(reg.Dispatch("issues").Handle(context.Background(), &Event{}).Reason)
	fmt.Println(reg.Dispatch("gollum").Handle(context.Background(), &Event{}).Reason)
	// Output:
	// issues
	// generic
}
