/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"fmt"

	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/reconcilers/invitations"
	"github.com/clidecoder/promptforge/reconcilers/invitations/provision"
)

// Invitations builds the invitation processor for s. Accepted repositories
// are provisioned and appended to the settings file at settingsPath.
func Invitations(s *config.Settings, gh *ghclient.Client, settingsPath string, dryRun bool) (*invitations.Processor, error) {
	ts, err := ghclient.TokenSource(GitHubConfig(s))
	if err != nil {
		return nil, fmt.Errorf("creating clone credentials: %w", err)
	}
	popts := []provision.Option{
		provision.WithSettingsPath(settingsPath),
		provision.WithSecret(s.GitHub.WebhookSecret),
		provision.WithDryRun(dryRun),
	}
	if ts != nil {
		popts = append(popts, provision.WithTokenSource(ts))
	}
	return invitations.New(gh, s.AutoAcceptInvitations,
		invitations.WithDryRun(dryRun),
		invitations.WithProvisioner(provision.New(s.AutoAcceptInvitations.PostAcceptance, gh, popts...)),
	)
}
