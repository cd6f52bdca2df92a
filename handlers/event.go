/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Event is one webhook delivery. The payload is kept as raw JSON and read
// through path accessors.
type Event struct {
	Kind      string          `json:"kind"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Delivery  string          `json:"delivery,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewEvent builds an Event, reading the action from the payload.
func NewEvent(kind string, payload []byte, delivery string) *Event {
	return &Event{
		Kind:      kind,
		Action:    gjson.GetBytes(payload, "action").String(),
		Payload:   payload,
		Delivery:  delivery,
		RequestID: delivery,
	}
}

// Get returns the value at a gjson path within the payload.
func (e *Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e.Payload, path)
}

// Repository returns the "owner/name" the event belongs to.
func (e *Event) Repository() string {
	return e.Get("repository.full_name").String()
}

// Sender returns the login of the account that triggered the event.
func (e *Event) Sender() string {
	return e.Get("sender.login").String()
}

// Labels returns the label names on the payload's subject at path.
func (e *Event) Labels(path string) []string {
	var labels []string
	for _, l := range e.Get(path + ".labels.#.name").Array() {
		labels = append(labels, l.String())
	}
	return labels
}

// Decode unmarshals the payload into a generic document.
func (e *Event) Decode() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", e.Kind, err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
