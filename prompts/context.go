/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package prompts

import (
	"time"

	"github.com/clidecoder/promptforge/chain"
)

// subjects lists the payload objects promoted to top-level variables for
// each event kind.
var subjects = map[string][]string{
	"issues":              {"issue"},
	"issue_comment":       {"issue", "comment"},
	"pull_request":        {"pull_request"},
	"pull_request_review": {"review", "pull_request"},
	"workflow_run":        {"workflow_run", "workflow"},
	"push":                {"commits", "head_commit", "pusher"},
	"release":             {"release"},
	"fork":                {"forkee"},
	"deployment":          {"deployment"},
	"commit_comment":      {"comment"},
	"project":             {"project"},
	"milestone":           {"milestone"},
	"team":                {"team", "organization"},
	"member":              {"member"},
	"star":                {"starred_at"},
}

// NewContext seeds the template variables for an event: the event kind and
// action, the whole payload, the repository and sender, the kind's subject
// objects, and a timestamp.
func NewContext(kind, action string, payload map[string]any, now time.Time) chain.Context {
	vars := chain.Context{
		"event_type": kind,
		"action":     action,
		"payload":    payload,
		"repository": objectOrEmpty(payload["repository"]),
		"sender":     objectOrEmpty(payload["sender"]),
		"timestamp":  now.UTC().Format(time.RFC3339),
	}
	if ref, ok := payload["ref"]; ok {
		vars["ref"] = ref
	}
	for _, key := range subjects[kind] {
		if v, ok := payload[key]; ok {
			vars[key] = v
		} else {
			vars[key] = map[string]any{}
		}
	}
	return vars
}

func objectOrEmpty(v any) any {
	if v == nil {
		return map[string]any{}
	}
	return v
}
