/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/policy"
	"github.com/clidecoder/promptforge/reconcilers/invitations/provision"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "promptforge_invitation_decisions_total",
		Help: "Invitations processed, by resulting action.",
	},
	[]string{"action"},
)

// Invitations is the invitation control the processor needs.
// *ghclient.Client satisfies it.
type Invitations interface {
	Invitations(ctx context.Context) ([]ghclient.Invitation, error)
	Accept(ctx context.Context, id int64) error
	Decline(ctx context.Context, id int64) error
}

var _ Invitations = (*ghclient.Client)(nil)

// Provisioner prepares a repository once its invitation is accepted.
type Provisioner interface {
	Provision(ctx context.Context, repo string) provision.Report
}

// Action is what happened to one invitation.
type Action string

const (
	Accepted Action = "accepted"
	Declined Action = "declined"
	Skipped  Action = "skipped"
	Failed   Action = "failed"
	Errored  Action = "error"
)

// Result describes one processed invitation.
type Result struct {
	ID         int64             `json:"id"`
	Repository string            `json:"repository"`
	Action     Action            `json:"action"`
	Reason     string            `json:"reason"`
	Setup      *provision.Report `json:"setup_result,omitempty"`
}

// Status of a whole run.
const (
	StatusSuccess  = "success"
	StatusDisabled = "disabled"
)

// Report summarizes a run.
type Report struct {
	Status      string   `json:"status"`
	DryRun      bool     `json:"dry_run,omitempty"`
	Processed   int      `json:"processed"`
	Accepted    int      `json:"accepted"`
	Declined    int      `json:"declined"`
	Invitations []Result `json:"invitations"`
}

// Processor applies the acceptance policy to pending invitations.
type Processor struct {
	client      Invitations
	eval        *policy.Evaluator
	enabled     bool
	delay       time.Duration
	provisioner Provisioner
	dryRun      bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithDryRun evaluates invitations without accepting, declining or
// provisioning anything.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) { p.dryRun = dryRun }
}

// WithProvisioner runs p after each accepted invitation.
func WithProvisioner(pr Provisioner) Option {
	return func(p *Processor) { p.provisioner = pr }
}

// WithDelay overrides the pause between invitations.
func WithDelay(d time.Duration) Option {
	return func(p *Processor) { p.delay = d }
}

// New builds a Processor from the auto-accept settings.
func New(client Invitations, cfg config.AutoAcceptInvitations, opts ...Option) (*Processor, error) {
	if client == nil {
		return nil, errors.New("invitation client is required")
	}
	eval, err := policy.New(cfg.Criteria)
	if err != nil {
		return nil, fmt.Errorf("compiling criteria: %w", err)
	}
	p := &Processor{
		client:  client,
		eval:    eval,
		enabled: cfg.Enabled,
		delay:   time.Duration(cfg.DelaySeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run lists pending invitations and acts on each in turn. It fails only
// when the invitations cannot be listed or ctx ends; per-invitation
// problems are reported in the returned Report.
func (p *Processor) Run(ctx context.Context) (*Report, error) {
	log := clog.FromContext(ctx).With("dry_run", p.dryRun)

	if !p.enabled {
		log.Info("Auto-accept invitations is disabled")
		return &Report{Status: StatusDisabled, Invitations: []Result{}}, nil
	}

	pending, err := p.client.Invitations(ctx)
	if err != nil {
		return nil, err
	}
	log.With("count", len(pending)).Info("Processing invitations")

	r := &Report{Status: StatusSuccess, DryRun: p.dryRun, Invitations: make([]Result, 0, len(pending))}
	for i, inv := range pending {
		if i > 0 {
			if err := sleep(ctx, p.delay); err != nil {
				return r, err
			}
		}

		res := p.process(ctx, inv)
		decisions.WithLabelValues(string(res.Action)).Inc()
		switch res.Action {
		case Accepted:
			r.Accepted++
		case Declined:
			r.Declined++
		}
		r.Invitations = append(r.Invitations, res)
		r.Processed++
	}

	log.With("accepted", r.Accepted, "declined", r.Declined, "total", r.Processed).
		Info("Invitation processing completed")
	return r, nil
}

func (p *Processor) process(ctx context.Context, inv ghclient.Invitation) Result {
	res := Result{ID: inv.ID, Repository: inv.Repository}
	log := clog.FromContext(ctx).With("invitation", inv.ID, "repository", inv.Repository)
	ctx = clog.WithLogger(ctx, log)

	if inv.Repository == "" {
		res.Action, res.Reason = Errored, "invitation has no repository"
		log.Error("Invitation has no repository")
		return res
	}

	decision := p.eval.Evaluate(ctx, policy.Invitation{
		Repository: inv.Repository,
		Owner:      inv.Owner,
		Inviter:    inv.Inviter,
	})

	if p.dryRun {
		res.Action, res.Reason = Skipped, fmt.Sprintf("dry run: would %s", decision)
		log.Infof("Would %s invitation from %s", decision, inv.Inviter)
		return res
	}

	switch decision {
	case policy.Accept:
		if err := p.client.Accept(ctx, inv.ID); err != nil {
			log.With("error", err).Error("Failed to accept invitation")
			res.Action, res.Reason = Failed, fmt.Sprintf("api error: %v", err)
			return res
		}
		res.Action, res.Reason = Accepted, "matched criteria"
		if p.provisioner != nil {
			setup := p.provisioner.Provision(ctx, inv.Repository)
			res.Setup = &setup
		}

	case policy.Decline:
		if err := p.client.Decline(ctx, inv.ID); err != nil {
			log.With("error", err).Error("Failed to decline invitation")
			res.Action, res.Reason = Failed, fmt.Sprintf("api error: %v", err)
			return res
		}
		res.Action, res.Reason = Declined, "excluded by criteria"

	default:
		res.Action, res.Reason = Skipped, string(decision)
	}
	return res
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
