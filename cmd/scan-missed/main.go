/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main analyzes open issues whose webhook delivery never arrived.
// It scans once and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/clidecoder/promptforge/reconcilers/missedissues"
	"github.com/clidecoder/promptforge/service"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	ConfigPath  string `env:"CONFIG_PATH,default=config/settings.yaml"`
	DryRun      bool   `env:"DRY_RUN,default=false"`
	Backend     string `env:"GENERATION_BACKEND"`
	Model       string `env:"MODEL"`
	Concurrency int    `env:"CONCURRENCY,default=1"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	settings, err := service.Load(cfg.ConfigPath, service.Overrides{Backend: cfg.Backend, Model: cfg.Model})
	if err != nil {
		clog.FatalContextf(ctx, "loading settings: %v", err)
	}
	if !settings.CronAnalysis.Enabled {
		clog.InfoContextf(ctx, "Missed issue analysis is disabled")
		return
	}
	svc, err := service.New(ctx, settings)
	if err != nil {
		clog.FatalContextf(ctx, "creating service: %v", err)
	}
	defer svc.Close()

	scanner := missedissues.New(svc.GitHub, svc.Registry, settings,
		missedissues.WithDryRun(cfg.DryRun),
		missedissues.WithConcurrency(cfg.Concurrency))
	res, err := scanner.Run(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "scanning repositories: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		clog.FatalContextf(ctx, "writing result: %v", err)
	}
}
