/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"regexp"
	"strings"
)

var genericLabels = append(append([]labelRule{}, issueLabels...),
	labelRule{regexp.MustCompile(`\bhigh.priority\b|\bpriority.high\b`), "priority-high"},
	labelRule{regexp.MustCompile(`\bmedium.priority\b|\bpriority.medium\b`), "priority-medium"},
	labelRule{regexp.MustCompile(`\blow.priority\b|\bpriority.low\b`), "priority-low"},
	labelRule{regexp.MustCompile(`\beasy\b|\bdifficulty.easy\b`), "difficulty-easy"},
	labelRule{regexp.MustCompile(`\bmoderate\b|\bdifficulty.moderate\b`), "difficulty-moderate"},
	labelRule{regexp.MustCompile(`\bcomplex\b|\bdifficulty.complex\b`), "difficulty-complex"},
	labelRule{regexp.MustCompile(`\bfrontend\b|\bcomponent.frontend\b`), "component-frontend"},
	labelRule{regexp.MustCompile(`\bbackend\b|\bcomponent.backend\b`), "component-backend"},
	labelRule{regexp.MustCompile(`\bdatabase\b|\bcomponent.database\b`), "component-database"},
)

// Labels returns every label from the broad label table that the output
// mentions, including difficulty and component hints. Each label appears once.
func Labels(output string) []string {
	lower := strings.ToLower(output)
	var labels []string
	for _, r := range genericLabels {
		if r.re.MatchString(lower) {
			labels = append(labels, r.label)
		}
	}
	return labels
}

// ShouldClose reports whether the output carries the close recommendation.
func ShouldClose(output string) bool {
	return strings.Contains(output, CloseMarker)
}

// Size thresholds on added plus deleted lines.
const (
	smallChange  = 50
	mediumChange = 200
)

// PullRequest returns the size and type labels for a pull request review.
// The size label is always present; at most one type label is added.
func PullRequest(output string, additions, deletions int) []string {
	var labels []string

	switch total := additions + deletions; {
	case total < smallChange:
		labels = append(labels, "size/small")
	case total < mediumChange:
		labels = append(labels, "size/medium")
	default:
		labels = append(labels, "size/large")
	}

	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "bug"), strings.Contains(lower, "fix"):
		labels = append(labels, "type/bug-fix")
	case strings.Contains(lower, "feature"), strings.Contains(lower, "enhancement"):
		labels = append(labels, "type/feature")
	case strings.Contains(lower, "refactor"):
		labels = append(labels, "type/refactor")
	case strings.Contains(lower, "documentation"), strings.Contains(lower, "docs"):
		labels = append(labels, "type/docs")
	}
	return labels
}

// Missing returns the labels in want that are not in have, preserving order
// and dropping repeats.
func Missing(want, have []string) []string {
	seen := make(map[string]struct{}, len(have)+len(want))
	for _, l := range have {
		seen[l] = struct{}{}
	}
	var out []string
	for _, l := range want {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
