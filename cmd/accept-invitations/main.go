/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main accepts or declines pending repository invitations once and
// prints a summary table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/service"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	ConfigPath string `env:"CONFIG_PATH,default=config/settings.yaml"`
	DryRun     bool   `env:"DRY_RUN,default=false"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	settings, err := service.Load(cfg.ConfigPath, service.Overrides{})
	if err != nil {
		clog.FatalContextf(ctx, "loading settings: %v", err)
	}
	gh, err := ghclient.New(ctx, service.GitHubConfig(settings))
	if err != nil {
		clog.FatalContextf(ctx, "creating GitHub client: %v", err)
	}
	proc, err := service.Invitations(settings, gh, cfg.ConfigPath, cfg.DryRun)
	if err != nil {
		clog.FatalContextf(ctx, "creating invitation processor: %v", err)
	}

	report, err := proc.Run(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "processing invitations: %v", err)
	}
	if err := report.WriteTable(os.Stdout); err != nil {
		clog.FatalContextf(ctx, "writing summary: %v", err)
	}
}
