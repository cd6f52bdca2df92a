/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Recorder writes a JSON record for events that need no analysis.
type Recorder struct {
	deps Deps
	dir  string
	// prefix names the record file.
	prefix string
	// countPath is the repository counter included in the record.
	countPath string
	countKey  string
	actions   []string
}

// NewStarHandler records stars and unstars.
func NewStarHandler(d Deps) *Recorder {
	return &Recorder{
		deps:      d,
		dir:       "stars",
		prefix:    "stars",
		countPath: "repository.stargazers_count",
		countKey:  "total_stars",
		actions:   []string{"created", "deleted"},
	}
}

// NewWatchHandler records watch events.
func NewWatchHandler(d Deps) *Recorder {
	return &Recorder{
		deps:      d,
		dir:       "watches",
		prefix:    "watch",
		countPath: "repository.watchers_count",
		countKey:  "total_watchers",
	}
}

// Handle implements Handler.
func (r *Recorder) Handle(ctx context.Context, ev *Event) Outcome {
	if len(r.actions) > 0 && !slices.Contains(r.actions, ev.Action) {
		return ignored("%s", notHandled(ev))
	}

	now := r.deps.now().Unix()
	user := ev.Sender()
	total := ev.Get(r.countPath).Int()
	body, err := json.MarshalIndent(map[string]any{
		"repository": ev.Repository(),
		"action":     ev.Action,
		"user":       user,
		"timestamp":  now,
		r.countKey:   total,
	}, "", "  ")
	if err != nil {
		return failed(fmt.Errorf("encoding %s record: %w", r.prefix, err))
	}

	key, err := r.deps.save(ctx, r.dir, fmt.Sprintf("%s_%d.json", r.prefix, now), body)
	if err != nil {
		return failed(err)
	}
	return Outcome{
		Status:  StatusSuccess,
		Record:  key,
		Summary: fmt.Sprintf("%s %s by %s (%d total)", ev.Kind, ev.Action, user, total),
	}
}
