/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package missedissues

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/handlers"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
)

// scanWindow is how many of the newest open issues are inspected per
// repository.
const scanWindow = 100

// Issues lists open issues. *ghclient.Client satisfies it.
type Issues interface {
	OpenIssues(ctx context.Context, repo string, limit int) ([]ghclient.Issue, error)
}

var _ Issues = (*ghclient.Client)(nil)

// Router handles one event. *handlers.Registry satisfies it.
type Router interface {
	Handle(ctx context.Context, ev *handlers.Event) handlers.Outcome
}

var _ Router = (*handlers.Registry)(nil)

// RepoResult is the outcome of scanning one repository.
type RepoResult struct {
	Found      int    `json:"found"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Errors     []int  `json:"errors,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the outcome of a whole scan.
type Result struct {
	TotalRepos      int                    `json:"total_repos"`
	TotalFound      int                    `json:"total_found"`
	TotalProcessed  int                    `json:"total_processed"`
	TotalSuccessful int                    `json:"total_successful"`
	Repositories    map[string]*RepoResult `json:"repositories"`
}

// Scanner finds open issues that never received an analysis and replays
// them through the router as "opened" events.
type Scanner struct {
	issues      Issues
	router      Router
	settings    *config.Settings
	now         func() time.Time
	delay       time.Duration
	dryRun      bool
	concurrency int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock sets the clock used for issue ages and delivery IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithDelay overrides the pause between issues of one repository.
func WithDelay(d time.Duration) Option {
	return func(s *Scanner) { s.delay = d }
}

// WithDryRun reports the issues that would be analyzed without
// dispatching them.
func WithDryRun(dryRun bool) Option {
	return func(s *Scanner) { s.dryRun = dryRun }
}

// WithConcurrency sets how many repositories are scanned at once.
func WithConcurrency(n int) Option {
	return func(s *Scanner) { s.concurrency = n }
}

// New constructs a Scanner over the repositories in settings.
func New(issues Issues, router Router, settings *config.Settings, opts ...Option) *Scanner {
	s := &Scanner{
		issues:      issues,
		router:      router,
		settings:    settings,
		now:         time.Now,
		delay:       time.Duration(settings.CronAnalysis.DelayBetweenIssuesSeconds) * time.Second,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the open issues of repo that are older than the minimum age
// and lack the marker label, newest first, capped at the per-repository
// maximum.
func (s *Scanner) Find(ctx context.Context, repo string) ([]ghclient.Issue, error) {
	cron := s.settings.CronAnalysis
	issues, err := s.issues.OpenIssues(ctx, repo, scanWindow)
	if err != nil {
		return nil, fmt.Errorf("listing issues in %s: %w", repo, err)
	}

	cutoff := s.now().Add(-time.Duration(cron.MinAgeMinutes) * time.Minute)
	marker := s.settings.MarkerLabel()
	log := clog.FromContext(ctx)

	var out []ghclient.Issue
	for _, is := range issues {
		if cron.MaxIssuesPerRepo > 0 && len(out) >= cron.MaxIssuesPerRepo {
			break
		}
		if is.CreatedAt.After(cutoff) || is.HasLabel(marker) {
			continue
		}
		log.With("issue", is.Number, "title", is.Title, "age_hours", s.now().Sub(is.CreatedAt).Hours()).
			Info("Found unanalyzed issue")
		out = append(out, is)
	}
	return out, nil
}

// Run scans every enabled repository that listens to issue events.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	log := clog.FromContext(ctx).With("dry_run", s.dryRun)
	log.With("min_age_minutes", s.settings.CronAnalysis.MinAgeMinutes).Info("Starting missed issue analysis")

	var (
		mu  sync.Mutex
		res = &Result{Repositories: map[string]*RepoResult{}}
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(s.concurrency, 1))
	for _, rc := range s.settings.Repositories {
		if !rc.Enabled || !rc.Listens("issues") {
			continue
		}
		repo := rc.Name
		res.TotalRepos++
		eg.Go(func() error {
			rr, err := s.scan(ctx, repo)
			mu.Lock()
			defer mu.Unlock()
			res.Repositories[repo] = rr
			res.TotalFound += rr.Found
			res.TotalProcessed += rr.Processed
			res.TotalSuccessful += rr.Successful
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return res, err
	}

	log.With("repositories", res.TotalRepos, "found", res.TotalFound, "successful", res.TotalSuccessful).
		Info("Missed issue analysis complete")
	return res, nil
}

// scan handles one repository. Only a canceled context is returned as an
// error.
func (s *Scanner) scan(ctx context.Context, repo string) (*RepoResult, error) {
	log := clog.FromContext(ctx).With("repository", repo)
	ctx = clog.WithLogger(ctx, log)
	rr := &RepoResult{}

	issues, err := s.Find(ctx, repo)
	if err != nil {
		log.With("error", err).Error("Failed to find unanalyzed issues")
		rr.Error = err.Error()
		return rr, ctx.Err()
	}
	rr.Found = len(issues)
	if s.dryRun {
		return rr, nil
	}

	for i, is := range issues {
		if i > 0 {
			if err := sleep(ctx, s.delay); err != nil {
				return rr, err
			}
		}
		rr.Processed++
		ev, err := s.event(repo, is)
		if err != nil {
			log.With("issue", is.Number, "error", err).Error("Failed to build event")
			rr.Errors = append(rr.Errors, is.Number)
			continue
		}
		out := s.router.Handle(ctx, ev)
		if out.Status != handlers.StatusSuccess {
			log.With("issue", is.Number, "status", out.Status, "reason", out.Reason, "error", out.Error).
				Warn("Failed to process missed issue")
			rr.Errors = append(rr.Errors, is.Number)
			continue
		}
		rr.Successful++
	}

	log.With("found", rr.Found, "successful", rr.Successful, "errors", len(rr.Errors)).
		Info("Repository analysis complete")
	return rr, nil
}

// event synthesizes the "opened" delivery GitHub would have sent for is.
func (s *Scanner) event(repo string, is ghclient.Issue) (*handlers.Event, error) {
	labels := make([]map[string]string, 0, len(is.Labels))
	for _, l := range is.Labels {
		labels = append(labels, map[string]string{"name": l})
	}
	owner, _, _ := strings.Cut(repo, "/")

	payload := []byte(`{}`)
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"action", "opened"},
		{"issue.number", is.Number},
		{"issue.title", is.Title},
		{"issue.body", is.Body},
		{"issue.state", "open"},
		{"issue.html_url", is.URL},
		{"issue.created_at", is.CreatedAt.Format(time.RFC3339)},
		{"issue.updated_at", is.UpdatedAt.Format(time.RFC3339)},
		{"issue.user.login", is.Author},
		{"issue.labels", labels},
		{"repository.full_name", repo},
		{"repository.name", path.Base(repo)},
		{"repository.owner.login", owner},
		{"sender.login", is.Author},
	} {
		var err error
		if payload, err = sjson.SetBytes(payload, kv.path, kv.value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", kv.path, err)
		}
	}

	delivery := fmt.Sprintf("cron-%d-%d", s.now().Unix(), is.Number)
	ev := handlers.NewEvent("issues", payload, delivery)
	ev.RequestID = "cron-" + delivery
	return ev, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
