/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/chain"
	"github.com/clidecoder/promptforge/extract"
	"github.com/clidecoder/promptforge/ghclient"
)

// Diff and payload excerpt limits for the context blocks, in runes.
const (
	pullRequestDiffLimit = 5000
	reviewDiffLimit      = 8000
	payloadExcerptLimit  = 3000
	deploymentLimit      = 1000
	pushCommitLimit      = 10
)

// genericPrompt is used when no generic template is configured.
const genericPrompt = `Analyze this GitHub webhook event and provide insights about what happened and any recommended actions.

Focus on:
1. What triggered this event
2. What changes or actions occurred
3. Any potential impact or follow-up needed
4. Suggestions for automation or process improvements`

func notHandled(ev *Event) string {
	return fmt.Sprintf("action '%s' not handled", ev.Action)
}

func unixName(prefix, suffix string) func(*Event, time.Time) string {
	return func(_ *Event, now time.Time) string {
		return fmt.Sprintf("%s_%d%s", prefix, now.Unix(), suffix)
	}
}

func plain(content func(*Event, chain.Context) string) func(context.Context, *Event, chain.Context) (*brief, error) {
	return func(_ context.Context, ev *Event, vars chain.Context) (*brief, error) {
		return &brief{content: content(ev, vars)}, nil
	}
}

// NewPullRequestHandler analyzes opened and updated pull requests, comments
// with the analysis and applies size and type labels.
func NewPullRequestHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "pull_request",
		dir:      "pull_requests",
		route: func(ev *Event) (string, string) {
			switch ev.Action {
			case "opened":
				return "new_pr", ""
			case "synchronize":
				return "pr_updated", ""
			}
			return "", notHandled(ev)
		},
		prepare: func(ctx context.Context, ev *Event, vars chain.Context) (*brief, error) {
			number := int(ev.Get("pull_request.number").Int())
			pr, err := d.Repos.PullRequest(ctx, ev.Repository(), number)
			if err != nil {
				return nil, err
			}
			addPullRequestVars(vars, pr)
			return &brief{content: pullRequestContext(ev, pr), number: number, pr: pr}, nil
		},
		name: func(ev *Event, _ time.Time) string {
			return fmt.Sprintf("pr_%d_analysis.md", ev.Get("pull_request.number").Int())
		},
		publish: func(ctx context.Context, ev *Event, b *brief, analysis string, _ chain.Context, fx *effects) []string {
			rc, ok := d.repository(ev)
			if !ok {
				return nil
			}
			repo := ev.Repository()
			if rc.Settings.PostAnalysisComments {
				fx.do("comment", func() error { return d.Repos.Comment(ctx, repo, b.number, analysis) })
			}
			if !rc.Settings.ApplyLabels {
				return nil
			}
			want := extract.Missing(extract.PullRequest(analysis, b.pr.Additions, b.pr.Deletions), ev.Labels("pull_request"))
			if len(want) == 0 {
				return nil
			}
			if !fx.do("labels", func() error { return d.Repos.AddLabels(ctx, repo, b.number, want) }) {
				return nil
			}
			labelsApplied.WithLabelValues(ev.Kind).Add(float64(len(want)))
			return want
		},
	}
}

func addPullRequestVars(vars chain.Context, pr *ghclient.PullRequest) {
	files := make([]string, 0, len(pr.Files))
	for _, f := range pr.Files {
		files = append(files, f.Path)
	}
	vars["files"] = files
	vars["additions"] = pr.Additions
	vars["deletions"] = pr.Deletions
	vars["changed_files"] = pr.ChangedFiles
	vars["diff"] = pr.Diff
}

func fileList(files []ghclient.FileChange) string {
	if len(files) == 0 {
		return "(no file list available)"
	}
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, "- "+f.String())
	}
	return strings.Join(lines, "\n")
}

func pullRequestContext(ev *Event, pr *ghclient.PullRequest) string {
	var b strings.Builder
	b.WriteString("# GitHub Pull Request Analysis Request\n\n## PR Details\n")
	fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
	fmt.Fprintf(&b, "- **PR Number**: #%d\n", pr.Number)
	fmt.Fprintf(&b, "- **Title**: %s\n", ev.Get("pull_request.title").String())
	fmt.Fprintf(&b, "- **URL**: %s\n", ev.Get("pull_request.html_url").String())
	fmt.Fprintf(&b, "- **Author**: %s\n", ev.Get("pull_request.user.login").String())
	fmt.Fprintf(&b, "- **State**: %s\n", ev.Get("pull_request.state").String())
	fmt.Fprintf(&b, "- **Draft**: %t\n", ev.Get("pull_request.draft").Bool())
	fmt.Fprintf(&b, "\n## PR Description\n%s\n", ev.Get("pull_request.body").String())
	fmt.Fprintf(&b, "\n## Files Changed\n%s\n", fileList(pr.Files))
	b.WriteString("\n## Statistics\n")
	fmt.Fprintf(&b, "- **Additions**: %d\n", pr.Additions)
	fmt.Fprintf(&b, "- **Deletions**: %d\n", pr.Deletions)
	fmt.Fprintf(&b, "- **Changed Files**: %d\n", pr.ChangedFiles)
	fmt.Fprintf(&b, "\n## Code Diff (truncated)\n```diff\n%s...\n```\n", truncate(pr.Diff, pullRequestDiffLimit))
	return b.String()
}

// NewReviewHandler prepares an automated review when a reviewer is
// requested on a pull request.
func NewReviewHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "pull_request_review",
		dir:      "reviews",
		route: func(ev *Event) (string, string) {
			if !ev.Get("requested_reviewer").Exists() {
				return "", "not a review request"
			}
			return "requested", ""
		},
		prepare: func(ctx context.Context, ev *Event, vars chain.Context) (*brief, error) {
			number := int(ev.Get("pull_request.number").Int())
			pr, err := d.Repos.PullRequest(ctx, ev.Repository(), number)
			if err != nil {
				return nil, err
			}
			addPullRequestVars(vars, pr)
			reviewer := ev.Get("requested_reviewer.login").String()
			vars["reviewer"] = reviewer
			vars["requester"] = ev.Sender()

			var b strings.Builder
			b.WriteString("# GitHub Pull Request Review Request\n\n## Review Request Details\n")
			fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **PR Number**: #%d\n", number)
			fmt.Fprintf(&b, "- **PR Title**: %s\n", ev.Get("pull_request.title").String())
			fmt.Fprintf(&b, "- **PR Author**: %s\n", ev.Get("pull_request.user.login").String())
			fmt.Fprintf(&b, "- **Reviewer Requested**: %s\n", reviewer)
			fmt.Fprintf(&b, "- **Requested By**: %s\n", ev.Sender())
			fmt.Fprintf(&b, "\n## PR Description\n%s\n", ev.Get("pull_request.body").String())
			fmt.Fprintf(&b, "\n## Files to Review\n%s\n", fileList(pr.Files))
			fmt.Fprintf(&b, "\n## Code Changes\n```diff\n%s...\n```\n", truncate(pr.Diff, reviewDiffLimit))
			return &brief{content: b.String(), number: number, pr: pr}, nil
		},
		name: func(ev *Event, now time.Time) string {
			return fmt.Sprintf("pr_%d_review_%d.md", ev.Get("pull_request.number").Int(), now.Unix())
		},
		publish: func(ctx context.Context, ev *Event, b *brief, analysis string, vars chain.Context, fx *effects) []string {
			if rc, ok := d.repository(ev); !ok || !rc.Settings.PostAnalysisComments {
				return nil
			}
			comment := reviewComment(fmt.Sprint(vars["reviewer"]), analysis, fmt.Sprint(vars["timestamp"]))
			fx.do("comment", func() error { return d.Repos.Comment(ctx, ev.Repository(), b.number, comment) })
			return nil
		},
	}
}

func reviewComment(reviewer, analysis, timestamp string) string {
	return fmt.Sprintf(`## 👁️ Automated Code Review

A review was requested from **%s**. Here's an automated analysis to help with the review:

---

%s

---

*This review was generated automatically by the PromptForge webhook system. The suggestions above are AI-generated and should supplement, not replace, human code review.*

*Review analysis completed at: %s*`, reviewer, analysis, timestamp)
}

// pullRequests sends review requests to review and everything else to pr.
func pullRequests(pr, review Handler) Handler {
	return HandlerFunc(func(ctx context.Context, ev *Event) Outcome {
		if ev.Action == "review_requested" {
			return review.Handle(ctx, ev)
		}
		return pr.Handle(ctx, ev)
	})
}

// NewWorkflowHandler explains failed workflow runs.
func NewWorkflowHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "workflow_run",
		dir:      "workflows",
		route: func(ev *Event) (string, string) {
			if ev.Action != "completed" {
				return "", notHandled(ev)
			}
			if c := ev.Get("workflow_run.conclusion").String(); c != "failure" {
				return "", fmt.Sprintf("conclusion '%s' not handled", c)
			}
			return "completed", ""
		},
		prepare: plain(func(ev *Event, _ chain.Context) string {
			run := func(path string) string { return ev.Get("workflow_run." + path).String() }
			var b strings.Builder
			b.WriteString("# GitHub Workflow Failure Analysis\n\n## Workflow Details\n")
			fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **Workflow**: %s\n", run("name"))
			fmt.Fprintf(&b, "- **Run ID**: %s\n", run("id"))
			fmt.Fprintf(&b, "- **Conclusion**: %s\n", run("conclusion"))
			fmt.Fprintf(&b, "- **Commit**: %s\n", run("head_sha"))
			fmt.Fprintf(&b, "- **Branch**: %s\n", run("head_branch"))
			fmt.Fprintf(&b, "\n## Workflow URL\n%s\n", run("html_url"))
			fmt.Fprintf(&b, "\n## Commit Message\n%s\n", run("head_commit.message"))
			return b.String()
		}),
		name: func(ev *Event, _ time.Time) string {
			return fmt.Sprintf("workflow_%s_analysis.md", ev.Get("workflow_run.id").String())
		},
	}
}

// NewPushHandler summarizes pushed commits.
func NewPushHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "push",
		dir:      "pushes",
		route: func(ev *Event) (string, string) {
			if len(ev.Get("commits").Array()) == 0 {
				return "", "no commits"
			}
			return "commits", ""
		},
		prepare: plain(func(ev *Event, _ chain.Context) string {
			commits := ev.Get("commits").Array()
			var b strings.Builder
			b.WriteString("# GitHub Push Event Analysis\n\n## Push Details\n")
			fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **Branch/Tag**: %s\n", ev.Get("ref").String())
			fmt.Fprintf(&b, "- **Pusher**: %s\n", orDefault(ev.Get("pusher.name").String(), "unknown"))
			fmt.Fprintf(&b, "- **Commits**: %d\n", len(commits))
			b.WriteString("\n## Commits\n")
			for i, c := range commits {
				if i == pushCommitLimit {
					break
				}
				fmt.Fprintf(&b, "\n### %s\n", truncate(c.Get("id").String(), 7))
				fmt.Fprintf(&b, "- **Author**: %s\n", c.Get("author.name").String())
				fmt.Fprintf(&b, "- **Message**: %s\n", c.Get("message").String())
				fmt.Fprintf(&b, "- **Added**: %d files\n", len(c.Get("added").Array()))
				fmt.Fprintf(&b, "- **Modified**: %d files\n", len(c.Get("modified").Array()))
				fmt.Fprintf(&b, "- **Removed**: %d files\n", len(c.Get("removed").Array()))
			}
			return b.String()
		}),
		name: unixName("push", "_analysis.md"),
	}
}

// NewReleaseHandler summarizes published, created and edited releases.
func NewReleaseHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "release",
		dir:      "releases",
		route: func(ev *Event) (string, string) {
			switch ev.Action {
			case "published", "created", "edited":
				return ev.Action, ""
			}
			return "", notHandled(ev)
		},
		prepare: plain(func(ev *Event, _ chain.Context) string {
			rel := func(path string) string { return ev.Get("release." + path).String() }
			var b strings.Builder
			b.WriteString("# GitHub Release Event Analysis\n\n## Release Details\n")
			fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **Action**: %s\n", ev.Action)
			fmt.Fprintf(&b, "- **Tag**: %s\n", rel("tag_name"))
			fmt.Fprintf(&b, "- **Name**: %s\n", rel("name"))
			fmt.Fprintf(&b, "- **Author**: %s\n", rel("author.login"))
			fmt.Fprintf(&b, "- **Prerelease**: %t\n", ev.Get("release.prerelease").Bool())
			fmt.Fprintf(&b, "- **Draft**: %t\n", ev.Get("release.draft").Bool())
			fmt.Fprintf(&b, "\n## Release Description\n%s\n", rel("body"))
			b.WriteString("\n## Assets\n")
			for _, a := range ev.Get("release.assets").Array() {
				fmt.Fprintf(&b, "- %s (%d bytes)\n", a.Get("name").String(), a.Get("size").Int())
			}
			return b.String()
		}),
		name: func(ev *Event, _ time.Time) string {
			tag := orDefault(ev.Get("release.tag_name").String(), "unknown")
			return fmt.Sprintf("release_%s_analysis.md", strings.ReplaceAll(tag, "/", "-"))
		},
	}
}

// NewForkHandler comments on forks. Without a fork template the event goes
// to generic.
func NewForkHandler(d Deps, generic Handler) *Templated {
	return &Templated{
		deps:     d,
		category: "fork",
		dir:      "forks",
		route:    func(*Event) (string, string) { return "created", "" },
		prepare: plain(func(ev *Event, _ chain.Context) string {
			var b strings.Builder
			b.WriteString("# GitHub Fork Event Analysis\n\n## Fork Details\n")
			fmt.Fprintf(&b, "- **Original Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **Fork**: %s\n", ev.Get("forkee.full_name").String())
			fmt.Fprintf(&b, "- **Owner**: %s\n", ev.Get("forkee.owner.login").String())
			fmt.Fprintf(&b, "- **Private**: %t\n", ev.Get("forkee.private").Bool())
			b.WriteString("\n## Repository Stats\n")
			fmt.Fprintf(&b, "- **Stars**: %d\n", ev.Get("repository.stargazers_count").Int())
			fmt.Fprintf(&b, "- **Forks**: %d\n", ev.Get("repository.forks_count").Int())
			fmt.Fprintf(&b, "- **Open Issues**: %d\n", ev.Get("repository.open_issues_count").Int())
			return b.String()
		}),
		name:     unixName("fork", "_analysis.md"),
		fallback: generic,
	}
}

// NewDeploymentHandler reviews deployments. Without a deployment template
// the event goes to generic.
func NewDeploymentHandler(d Deps, generic Handler) *Templated {
	return &Templated{
		deps:     d,
		category: "deployment",
		dir:      "deployments",
		route:    func(*Event) (string, string) { return "created", "" },
		prepare: plain(func(ev *Event, _ chain.Context) string {
			dep := func(path string) string { return ev.Get("deployment." + path).String() }
			var b strings.Builder
			b.WriteString("# GitHub Deployment Event Analysis\n\n## Deployment Details\n")
			fmt.Fprintf(&b, "- **Repository**: %s\n", ev.Repository())
			fmt.Fprintf(&b, "- **Environment**: %s\n", dep("environment"))
			fmt.Fprintf(&b, "- **Ref**: %s\n", dep("ref"))
			fmt.Fprintf(&b, "- **SHA**: %s\n", truncate(dep("sha"), 7))
			fmt.Fprintf(&b, "- **Creator**: %s\n", dep("creator.login"))
			fmt.Fprintf(&b, "- **Task**: %s\n", orDefault(dep("task"), "deploy"))
			fmt.Fprintf(&b, "\n## Deployment Description\n%s\n", dep("description"))
			fmt.Fprintf(&b, "\n## Payload\n```json\n%s...\n```\n", truncate(indentJSON(ev.Get("deployment.payload").Raw), deploymentLimit))
			return b.String()
		}),
		name:     unixName("deployment", "_analysis.md"),
		fallback: generic,
	}
}

// NewGenericHandler analyzes any event with the generic prompt and a payload
// excerpt.
func NewGenericHandler(d Deps) *Templated {
	return &Templated{
		deps:     d,
		category: "generic",
		dir:      "generic",
		route:    func(*Event) (string, string) { return "default", "" },
		prepare: plain(func(ev *Event, vars chain.Context) string {
			var b strings.Builder
			b.WriteString("# GitHub Webhook Event Analysis\n\n## Event Details\n")
			fmt.Fprintf(&b, "- **Event Type**: %s\n", ev.Kind)
			fmt.Fprintf(&b, "- **Repository**: %s\n", orDefault(ev.Repository(), "unknown"))
			fmt.Fprintf(&b, "- **Action**: %s\n", ev.Action)
			fmt.Fprintf(&b, "- **Sender**: %s\n", orDefault(ev.Sender(), "unknown"))
			fmt.Fprintf(&b, "- **Timestamp**: %v\n", vars["timestamp"])
			fmt.Fprintf(&b, "\n## Event Payload\n```json\n%s...\n```\n", truncate(indentJSON(string(ev.Payload)), payloadExcerptLimit))
			return b.String()
		}),
		name: func(ev *Event, now time.Time) string {
			return fmt.Sprintf("%s_%s_%d_analysis.md", ev.Kind, orDefault(ev.Action, "none"), now.Unix())
		},
		prompt: genericPrompt,
	}
}

// generalized logs the kind-specific subject before handing the event to
// the generic handler.
func generalized(generic Handler, subject string) Handler {
	return HandlerFunc(func(ctx context.Context, ev *Event) Outcome {
		clog.FromContext(ctx).With("subject", ev.Get(subject).String()).Info("Handling event generically")
		return generic.Handle(ctx, ev)
	})
}

func indentJSON(raw string) string {
	if raw == "" {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
