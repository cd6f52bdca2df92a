/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/agents/metrics"
	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/handlers"
	"github.com/clidecoder/promptforge/prompts"
	"github.com/clidecoder/promptforge/records"
)

// Service holds the collaborators shared by the binaries.
type Service struct {
	Settings *config.Settings
	GitHub   *ghclient.Client
	Registry *handlers.Registry

	closers []func() error
}

// Overrides replace selected settings from the process environment.
type Overrides struct {
	Backend string
	Model   string
}

// Load reads the settings file at path and applies o.
func Load(path string, o Overrides) (*config.Settings, error) {
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.Backend != "" {
		s.Generation.Backend = o.Backend
	}
	if o.Model != "" {
		s.Generation.Model = o.Model
	}
	return s, nil
}

// GitHubConfig maps the github settings block onto the client config.
func GitHubConfig(s *config.Settings) ghclient.Config {
	return ghclient.Config{
		Token:          s.GitHub.Token,
		AppID:          s.GitHub.AppID,
		InstallationID: s.GitHub.InstallationID,
		PrivateKeyPath: s.GitHub.PrivateKeyPath,
		BaseURL:        s.GitHub.BaseURL,
	}
}

// New builds the GitHub client, generation backend, prompt loader, record
// store and handler registry described by s.
func New(ctx context.Context, s *config.Settings) (*Service, error) {
	gh, err := ghclient.New(ctx, GitHubConfig(s))
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}

	an, err := analyzer.NewFromConfig(ctx, s.AnalyzerConfig(),
		analyzer.WithMetrics(metrics.NewGeneration("promptforge")))
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	svc := &Service{Settings: s, GitHub: gh}
	store, err := svc.store(ctx)
	if err != nil {
		return nil, err
	}

	svc.Registry, err = handlers.NewDefault(handlers.Deps{
		Renderer: prompts.Open(s.Prompts.BaseDir, s.Prompts.Templates),
		Analyzer: an,
		Repos:    gh,
		Store:    store,
		Settings: s,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("building handlers: %w", err), svc.Close())
	}
	return svc, nil
}

// store writes to the configured bucket, or under the output directory when
// none is set.
func (svc *Service) store(ctx context.Context) (records.Store, error) {
	out := svc.Settings.Outputs
	if out.Bucket == "" {
		clog.FromContext(ctx).With("dir", out.BaseDir).Info("Writing records to the local filesystem")
		return records.NewFileStore(out.BaseDir), nil
	}
	gcs, err := records.NewGCSStore(ctx, out.Bucket, "")
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", out.Bucket, err)
	}
	svc.closers = append(svc.closers, gcs.Close)
	clog.FromContext(ctx).With("bucket", out.Bucket).Info("Writing records to Cloud Storage")
	return gcs, nil
}

// Close releases the resources New acquired.
func (svc *Service) Close() error {
	var errs []error
	for _, c := range svc.closers {
		errs = append(errs, c())
	}
	svc.closers = nil
	return errors.Join(errs...)
}
