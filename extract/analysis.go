/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package extract

import (
	"regexp"
	"strings"

	"github.com/clidecoder/promptforge/chain"
)

// Priority is the urgency assigned to a subject by an analysis.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Category is the coarse classification of an issue.
type Category string

const (
	CategoryBug           Category = "bug"
	CategoryFeature       Category = "feature"
	CategoryQuestion      Category = "question"
	CategoryDocumentation Category = "documentation"
	CategoryUnknown       Category = "unknown"
)

// CloseMarker is the literal a model emits to recommend closing an issue.
// It is matched case-sensitively.
const CloseMarker = "RECOMMENDATION: CLOSE ISSUE"

// Analysis is the structured data pulled out of an issue analysis.
type Analysis struct {
	Labels        []string
	Priority      Priority
	Category      Category
	NeedsMoreInfo bool
	IsDuplicate   bool
	ShouldClose   bool
}

type labelRule struct {
	re    *regexp.Regexp
	label string
}

// issueLabels is evaluated in order, so label order is stable.
var issueLabels = []labelRule{
	{regexp.MustCompile(`\bbug\b`), "bug"},
	{regexp.MustCompile(`\benhancement\b`), "enhancement"},
	{regexp.MustCompile(`\bquestion\b`), "question"},
	{regexp.MustCompile(`\bdocumentation\b`), "documentation"},
	{regexp.MustCompile(`\bmaintenance\b`), "maintenance"},
}

var (
	highPriority  = regexp.MustCompile(`high.priority|critical|urgent`)
	lowPriority   = regexp.MustCompile(`low.priority|minor|trivial`)
	needsMoreInfo = regexp.MustCompile(`need.more.information|need.more.details|unclear`)
	duplicate     = regexp.MustCompile(`duplicate|already.reported|existing.issue`)
)

// Issue derives an Analysis from raw model output.
func Issue(output string) *Analysis {
	lower := strings.ToLower(output)

	a := &Analysis{
		Labels:   []string{},
		Priority: classifyPriority(lower),
		Category: classifyCategory(lower),
	}
	for _, r := range issueLabels {
		if r.re.MatchString(lower) {
			a.Labels = append(a.Labels, r.label)
		}
	}
	a.NeedsMoreInfo = needsMoreInfo.MatchString(lower)
	a.IsDuplicate = duplicate.MatchString(lower)
	a.ShouldClose = strings.Contains(output, CloseMarker)

	a.Labels = append(a.Labels, PriorityLabel(a.Priority))
	return a
}

// PriorityLabel returns the label name carrying a priority level.
func PriorityLabel(p Priority) string {
	return "priority-" + string(p)
}

func classifyPriority(lower string) Priority {
	switch {
	case highPriority.MatchString(lower):
		return PriorityHigh
	case lowPriority.MatchString(lower):
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func classifyCategory(lower string) Category {
	switch {
	case strings.Contains(lower, "bug"):
		return CategoryBug
	case strings.Contains(lower, "feature"), strings.Contains(lower, "enhancement"):
		return CategoryFeature
	case strings.Contains(lower, "question"):
		return CategoryQuestion
	case strings.Contains(lower, "documentation"):
		return CategoryDocumentation
	default:
		return CategoryUnknown
	}
}

// Fields implements chain.Data.
func (a *Analysis) Fields() []chain.Field {
	return []chain.Field{
		{Key: "labels", Value: a.Labels},
		{Key: "priority", Value: string(a.Priority)},
		{Key: "category", Value: string(a.Category)},
		{Key: "needs_more_info", Value: a.NeedsMoreInfo},
		{Key: "is_duplicate", Value: a.IsDuplicate},
		{Key: "should_close", Value: a.ShouldClose},
	}
}

// Metadata renders the issue metadata lines appended to a composed response.
func (a *Analysis) Metadata() []string {
	var lines []string
	if len(a.Labels) > 0 {
		lines = append(lines, "**Suggested Labels**: "+strings.Join(a.Labels, ", "))
	}
	lines = append(lines,
		"**Priority**: "+title(string(a.Priority)),
		"**Category**: "+title(string(a.Category)),
	)
	if a.NeedsMoreInfo {
		lines = append(lines, "**Status**: Needs more information")
	}
	if a.IsDuplicate {
		lines = append(lines, "**Status**: Possible duplicate")
	}
	return lines
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
