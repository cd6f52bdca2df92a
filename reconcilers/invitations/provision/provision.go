/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package provision

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/config"
	"golang.org/x/oauth2"
)

// Status is the result of one provisioning step.
type Status string

const (
	Done    Status = "done"
	Exists  Status = "exists"
	Skipped Status = "skipped"
	DryRun  Status = "dry run"
	Failed  Status = "failed"
)

// Step records what happened in one provisioning step.
type Step struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report is the outcome of provisioning one repository.
type Report struct {
	Repository string `json:"repository"`
	Steps      []Step `json:"steps"`
}

// OK reports whether no step failed.
func (r Report) OK() bool {
	for _, s := range r.Steps {
		if s.Status == Failed {
			return false
		}
	}
	return true
}

// Hooks is the repository control provisioning needs. *ghclient.Client
// satisfies it.
type Hooks interface {
	EnsureWebhook(ctx context.Context, repo, url, secret string, events []string) (bool, error)
	CloneURL(ctx context.Context, repo string) (string, error)
}

// runCommand runs the reload command. Tests replace it.
var runCommand = defaultRunCommand

func defaultRunCommand(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}

// Provisioner prepares a newly accepted repository: a local clone, an entry
// in the settings file, a webhook and a service reload.
type Provisioner struct {
	cfg          config.PostAcceptance
	hooks        Hooks
	settingsPath string
	secret       string
	tokenSource  oauth2.TokenSource
	dryRun       bool
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithSettingsPath names the settings file new repositories are appended
// to. Without it the configuration step is skipped.
func WithSettingsPath(p string) Option {
	return func(pr *Provisioner) { pr.settingsPath = p }
}

// WithSecret sets the secret registered on new webhooks.
func WithSecret(s string) Option {
	return func(pr *Provisioner) { pr.secret = s }
}

// WithTokenSource authenticates clones over HTTPS.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(pr *Provisioner) { pr.tokenSource = ts }
}

// WithDryRun reports each step without performing it.
func WithDryRun(dryRun bool) Option {
	return func(pr *Provisioner) { pr.dryRun = dryRun }
}

// New constructs a Provisioner for the post-acceptance settings.
func New(cfg config.PostAcceptance, hooks Hooks, opts ...Option) *Provisioner {
	p := &Provisioner{cfg: cfg, hooks: hooks}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision runs every enabled step for repo, the full "owner/name". Steps
// are independent: a failed clone does not stop the webhook from being
// registered.
func (p *Provisioner) Provision(ctx context.Context, repo string) Report {
	log := clog.FromContext(ctx).With("repository", repo)
	ctx = clog.WithLogger(ctx, log)

	dir := filepath.Join(p.cfg.CloneBaseDir, path.Base(repo))
	r := Report{Repository: repo}
	r.Steps = append(r.Steps,
		p.step(ctx, "clone", p.cfg.CloneRepository, func() (Status, string, error) { return p.clone(ctx, repo, dir) }),
		p.step(ctx, "config", p.cfg.UpdateConfig && p.settingsPath != "", func() (Status, string, error) { return p.appendConfig(repo, dir) }),
		p.step(ctx, "webhook", p.cfg.RegisterWebhook && p.cfg.WebhookURL != "", func() (Status, string, error) { return p.webhook(ctx, repo) }),
		p.step(ctx, "reload", len(p.cfg.ReloadCommand) > 0, func() (Status, string, error) { return p.reload(ctx) }),
	)

	if r.OK() {
		log.Info("Repository provisioned")
	} else {
		log.Warn("Repository provisioned with failures")
	}
	return r
}

func (p *Provisioner) step(ctx context.Context, name string, enabled bool, fn func() (Status, string, error)) Step {
	switch {
	case !enabled:
		return Step{Name: name, Status: Skipped, Detail: "disabled"}
	case p.dryRun:
		return Step{Name: name, Status: DryRun}
	}
	status, detail, err := fn()
	if err != nil {
		clog.FromContext(ctx).With("step", name, "error", err).Error("Provisioning step failed")
		return Step{Name: name, Status: Failed, Detail: err.Error()}
	}
	return Step{Name: name, Status: status, Detail: detail}
}

func (p *Provisioner) appendConfig(repo, dir string) (Status, string, error) {
	entry := config.Repository{
		Name:    repo,
		Enabled: true,
		Events:  p.cfg.WebhookEvents,
		Settings: config.RepositorySettings{
			ApplyLabels:          true,
			PostAnalysisComments: true,
		},
	}
	if p.cfg.CloneRepository {
		entry.LocalPath = dir
	}
	added, err := config.AppendRepository(p.settingsPath, entry)
	if err != nil {
		return "", "", err
	}
	if !added {
		return Exists, p.settingsPath, nil
	}
	return Done, p.settingsPath, nil
}

func (p *Provisioner) webhook(ctx context.Context, repo string) (Status, string, error) {
	created, err := p.hooks.EnsureWebhook(ctx, repo, p.cfg.WebhookURL, p.secret, p.cfg.WebhookEvents)
	if err != nil {
		return "", "", err
	}
	if !created {
		return Exists, p.cfg.WebhookURL, nil
	}
	return Done, p.cfg.WebhookURL, nil
}

func (p *Provisioner) reload(ctx context.Context) (Status, string, error) {
	out, err := runCommand(ctx, p.cfg.ReloadCommand)
	if err != nil {
		return "", "", fmt.Errorf("running %v: %w: %s", p.cfg.ReloadCommand, err, out)
	}
	return Done, string(out), nil
}
