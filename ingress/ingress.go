/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/handlers"
	"github.com/google/go-github/v84/github"
	"github.com/tidwall/gjson"
)

// maxPayloadBytes matches the largest payload GitHub delivers.
const maxPayloadBytes = 25 << 20

// Router handles one event. *handlers.Registry satisfies it.
type Router interface {
	Handle(ctx context.Context, ev *handlers.Event) handlers.Outcome
}

var _ Router = (*handlers.Registry)(nil)

// Response is the JSON body written for every delivery.
type Response struct {
	Status    string            `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Result    *handlers.Outcome `json:"result,omitempty"`
}

// Handler receives GitHub webhook deliveries and passes the ones for
// configured repositories to the router.
type Handler struct {
	router   Router
	settings *config.Settings
	secret   []byte
}

// New constructs a Handler. Signatures are verified against the
// configured webhook secret when signature validation is enabled.
func New(router Router, settings *config.Settings) *Handler {
	return &Handler{
		router:   router,
		settings: settings,
		secret:   []byte(settings.GitHub.WebhookSecret),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond(w, http.StatusMethodNotAllowed, Response{Status: "error", Error: "method not allowed"})
		return
	}

	kind := github.WebHookType(r)
	delivery := github.DeliveryID(r)
	log := clog.FromContext(r.Context()).With("event", kind, "delivery", delivery)
	ctx := clog.WithLogger(r.Context(), log)

	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	payload, err := h.payload(r)
	if err != nil {
		log.With("error", err).Warn("Rejected webhook payload")
		status := http.StatusBadRequest
		if errors.Is(err, errSignature) {
			status = http.StatusUnauthorized
		}
		respond(w, status, Response{Status: "error", Error: err.Error()})
		return
	}
	if h.settings.Features.PayloadLogging {
		log.With("payload", string(payload)).Debug("Received webhook payload")
	}

	switch {
	case kind == "":
		respond(w, http.StatusBadRequest, Response{Status: "error", Error: "missing event type"})
		return
	case kind == "ping":
		log.Info("Received ping")
		respond(w, http.StatusOK, Response{Status: "pong"})
		return
	case !json.Valid(payload):
		respond(w, http.StatusBadRequest, Response{Status: "error", Error: "invalid JSON payload"})
		return
	}

	if reason := h.admit(kind, payload); reason != "" {
		log.With("reason", reason).Info("Ignoring webhook")
		respond(w, http.StatusOK, Response{Status: string(handlers.StatusIgnored), Reason: reason})
		return
	}

	ev := handlers.NewEvent(kind, payload, delivery)
	// The analysis outlives GitHub's delivery timeout; a dropped connection
	// must not abort it.
	out := h.router.Handle(context.WithoutCancel(ctx), ev)
	respond(w, http.StatusOK, Response{Status: "processed", RequestID: ev.RequestID, Result: &out})
}

var errSignature = errors.New("invalid signature")

func (h *Handler) payload(r *http.Request) ([]byte, error) {
	if h.settings.Features.SignatureValidation {
		if r.Header.Get(github.SHA256SignatureHeader) == "" && r.Header.Get(github.SHA1SignatureHeader) == "" {
			return nil, fmt.Errorf("%w: missing signature", errSignature)
		}
		b, err := github.ValidatePayload(r, h.secret)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errSignature, err)
		}
		return b, nil
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parsing content type: %w", err)
	}
	return github.ValidatePayloadFromBody(ct, r.Body, "", nil)
}

// admit returns why the delivery is ignored, or "" when it should be
// handled.
func (h *Handler) admit(kind string, payload []byte) string {
	name := gjson.GetBytes(payload, "repository.full_name").String()
	rc, ok := h.settings.Repository(name)
	switch {
	case name == "" || !ok:
		return "repository not configured"
	case !rc.Enabled:
		return "repository disabled"
	case !rc.Listens(kind):
		return fmt.Sprintf("event %s not enabled", kind)
	}
	return ""
}

func respond(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
}
