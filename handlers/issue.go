/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/extract"
)

const issueAnalysis chain.ExtractorID = "issue_analysis"

// closeComment is posted before an issue is closed as off-topic.
const closeComment = `This issue has been automatically closed as it appears to be off-topic or not related to bugs, features, or codebase improvements.

If you believe this was closed in error, please feel free to provide additional context about how this relates to the project.`

var issueFuncs = chain.Funcs{
	Extractors: map[chain.ExtractorID]chain.Extractor{
		issueAnalysis: func(output string) chain.Data { return extract.Issue(output) },
	},
}

var issueSteps = []chain.Step{{
	Name:         "initial_analysis",
	Template:     chain.Key("issues", "analyze"),
	Extractor:    issueAnalysis,
	RetainOutput: true,
}, {
	Name:     "generate_response",
	Template: chain.Key("issues", "respond"),
}}

// Issues analyzes newly opened issues and replies to them.
type Issues struct {
	deps Deps
}

var _ Chained = (*Issues)(nil)

// NewIssueHandler returns the chained handler for the issues kind.
func NewIssueHandler(d Deps) (*ChainHandler, error) {
	return NewChainHandler(d, &Issues{deps: d}, issueFuncs, "issue", &Event{Kind: "issues", Action: "opened"})
}

// Steps implements Chained.
func (*Issues) Steps(ev *Event) []chain.Step {
	if ev.Action != "opened" {
		return nil
	}
	return issueSteps
}

// Type implements Chained.
func (*Issues) Type() chain.Type {
	return chain.Sequential
}

// Save implements Chained.
func (i *Issues) Save(ctx context.Context, ev *Event, results []chain.Result, final string) (string, error) {
	number := ev.Get("issue.number").Int()

	var b strings.Builder
	fmt.Fprintf(&b, "# Chained Analysis for Issue #%d\n\n", number)
	for n, r := range results {
		fmt.Fprintf(&b, "## Step %d: %s\n\n", n+1, r.StepName)
		b.WriteString(r.Output)
		if r.Data != nil {
			if fields := r.Data.Fields(); len(fields) > 0 {
				b.WriteString("\n\n### Extracted Data\n")
				for _, f := range fields {
					fmt.Fprintf(&b, "- **%s**: %v\n", f.Key, f.Value)
				}
			}
		}
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString("## Final Response\n\n")
	b.WriteString(final)

	return i.deps.save(ctx, "issues", fmt.Sprintf("issue_%d_chained_analysis.md", number), []byte(b.String()))
}

// PostProcess implements Chained. Labels, the reply and the close are gated
// by the repository's settings; the marker label is always applied last.
func (i *Issues) PostProcess(ctx context.Context, ev *Event, results []chain.Result, final string) Outcome {
	repo := ev.Repository()
	number := int(ev.Get("issue.number").Int())
	log := clog.FromContext(ctx)

	analysis := &extract.Analysis{}
	if len(results) > 0 {
		if a, ok := results[0].Data.(*extract.Analysis); ok {
			analysis = a
		}
	}

	// An unconfigured repository gets no labels, reply or close.
	rc, configured := i.deps.repository(ev)
	fx := &effects{ctx: ctx, kind: ev.Kind}

	var applied []string
	if configured && rc.Settings.ApplyLabels {
		if want := extract.Missing(analysis.Labels, ev.Labels("issue")); len(want) > 0 {
			if fx.do("labels", func() error { return i.deps.Repos.AddLabels(ctx, repo, number, want) }) {
				applied = want
				labelsApplied.WithLabelValues(ev.Kind).Add(float64(len(want)))
			}
		}
	}

	if configured && rc.Settings.PostAnalysisComments {
		fx.do("comment", func() error { return i.deps.Repos.Comment(ctx, repo, number, final) })
	}

	if configured && rc.Settings.AutoCloseInvalid && analysis.ShouldClose {
		log.Info("Closing issue recommended as off-topic")
		fx.do("close_comment", func() error { return i.deps.Repos.Comment(ctx, repo, number, closeComment) })
		fx.do("close", func() error { return i.deps.Repos.Close(ctx, repo, number) })
	}

	marker := i.deps.settings().MarkerLabel()
	fx.do("marker", func() error { return i.deps.Repos.AddLabels(ctx, repo, number, []string{marker}) })

	log.With("labels", applied, "failures", len(fx.failed)).Info("Issue chained analysis completed")
	return Outcome{
		Status:     StatusSuccess,
		Number:     number,
		Labels:     applied,
		ChainSteps: len(results),
		Summary:    summarize(analysis),
		Failures:   fx.failed,
	}
}

func summarize(a *extract.Analysis) string {
	if a.Priority == "" {
		return ""
	}
	s := fmt.Sprintf("%s, %s priority", a.Category, a.Priority)
	if a.NeedsMoreInfo {
		s += ", needs more information"
	}
	if a.IsDuplicate {
		s += ", possible duplicate"
	}
	return s
}
