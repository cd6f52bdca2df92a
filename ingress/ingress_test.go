/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ingress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/handlers"
	"github.com/google/go-cmp/cmp"
)

const secret = "s3cret"

type fakeRouter struct {
	events []*handlers.Event
}

func (f *fakeRouter) Handle(_ context.Context, ev *handlers.Event) handlers.Outcome {
	f.events = append(f.events, ev)
	return handlers.Outcome{Status: handlers.StatusSuccess, Number: 7}
}

func testSettings(validate bool) *config.Settings {
	s := config.Default()
	s.GitHub.WebhookSecret = secret
	s.Features.SignatureValidation = validate
	s.Repositories = []config.Repository{
		{Name: "acme/widgets", Enabled: true, Events: []string{"issues"}},
		{Name: "acme/gadgets", Enabled: false, Events: []string{"issues"}},
	}
	return s
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func deliver(t *testing.T, h http.Handler, kind, body string, headers map[string]string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/github-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", kind)
	req.Header.Set("X-GitHub-Delivery", "d-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return rec.Code, resp
}

func TestServeHTTP(t *testing.T) {
	issue := `{"action":"opened","issue":{"number":7},"repository":{"full_name":"acme/widgets"}}`

	tests := []struct {
		name     string
		kind     string
		body     string
		headers  map[string]string
		validate bool
		code     int
		want     Response
		routed   bool
	}{{
		name:     "signed delivery",
		kind:     "issues",
		body:     issue,
		headers:  map[string]string{"X-Hub-Signature-256": sign(issue)},
		validate: true,
		code:     http.StatusOK,
		want:     Response{Status: "processed", RequestID: "d-1", Result: &handlers.Outcome{Status: handlers.StatusSuccess, Number: 7}},
		routed:   true,
	}, {
		name:     "bad signature",
		kind:     "issues",
		body:     issue,
		headers:  map[string]string{"X-Hub-Signature-256": sign("tampered")},
		validate: true,
		code:     http.StatusUnauthorized,
	}, {
		name:     "missing signature",
		kind:     "issues",
		body:     issue,
		validate: true,
		code:     http.StatusUnauthorized,
	}, {
		name:   "validation disabled",
		kind:   "issues",
		body:   issue,
		code:   http.StatusOK,
		want:   Response{Status: "processed", RequestID: "d-1", Result: &handlers.Outcome{Status: handlers.StatusSuccess, Number: 7}},
		routed: true,
	}, {
		name: "ping",
		kind: "ping",
		body: `{"zen":"Keep it logically awesome."}`,
		code: http.StatusOK,
		want: Response{Status: "pong"},
	}, {
		name: "unknown repository",
		kind: "issues",
		body: `{"repository":{"full_name":"someone/else"}}`,
		code: http.StatusOK,
		want: Response{Status: "ignored", Reason: "repository not configured"},
	}, {
		name: "disabled repository",
		kind: "issues",
		body: `{"repository":{"full_name":"acme/gadgets"}}`,
		code: http.StatusOK,
		want: Response{Status: "ignored", Reason: "repository disabled"},
	}, {
		name: "event not enabled",
		kind: "push",
		body: `{"repository":{"full_name":"acme/widgets"}}`,
		code: http.StatusOK,
		want: Response{Status: "ignored", Reason: "event push not enabled"},
	}, {
		name: "missing event type",
		body: issue,
		code: http.StatusBadRequest,
		want: Response{Status: "error", Error: "missing event type"},
	}, {
		name: "invalid json",
		kind: "issues",
		body: `{"repository":`,
		code: http.StatusBadRequest,
		want: Response{Status: "error", Error: "invalid JSON payload"},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &fakeRouter{}
			code, got := deliver(t, New(router, testSettings(tt.validate)), tt.kind, tt.body, tt.headers)
			if code != tt.code {
				t.Errorf("status = %d, want %d", code, tt.code)
			}
			if tt.code == http.StatusUnauthorized {
				if got.Status != "error" || !strings.Contains(got.Error, "invalid signature") {
					t.Errorf("response = %+v, want a signature error", got)
				}
			} else if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
			if routed := len(router.events) > 0; routed != tt.routed {
				t.Errorf("routed = %t, want %t", routed, tt.routed)
			}
		})
	}
}

func TestServeHTTPEvent(t *testing.T) {
	router := &fakeRouter{}
	body := `{"action":"opened","repository":{"full_name":"acme/widgets"}}`
	deliver(t, New(router, testSettings(false)), "issues", body, nil)

	if len(router.events) != 1 {
		t.Fatalf("events = %d, want 1", len(router.events))
	}
	ev := router.events[0]
	if ev.Kind != "issues" || ev.Action != "opened" || ev.Delivery != "d-1" || ev.RequestID != "d-1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestServeHTTPMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeRouter{}, testSettings(false)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github-webhook", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got, want := rec.Body.String(), "{\"status\":\"healthy\"}\n"; got != want {
		t.Errorf("Health() = %q, want %q", got, want)
	}
}
