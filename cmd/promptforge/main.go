/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main serves the GitHub webhook endpoint. It can also re-drive
// missed issues and process repository invitations on a timer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/clidecoder/promptforge/ingress"
	"github.com/clidecoder/promptforge/reconcilers/missedissues"
	"github.com/clidecoder/promptforge/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

type config struct {
	// Port overrides server.port from the settings file.
	Port        int    `env:"PORT"`
	MetricsPort int    `env:"METRICS_PORT,default=2112"`
	ConfigPath  string `env:"CONFIG_PATH,default=config/settings.yaml"`
	Backend     string `env:"GENERATION_BACKEND"`
	Model       string `env:"MODEL"`

	// ScanInterval enables the missed issue scanner when non-zero.
	ScanInterval time.Duration `env:"SCAN_INTERVAL,default=0"`
	// AcceptInvitations processes invitations every
	// auto_accept_invitations.check_interval_minutes.
	AcceptInvitations bool `env:"ACCEPT_INVITATIONS,default=false"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	settings, err := service.Load(cfg.ConfigPath, service.Overrides{Backend: cfg.Backend, Model: cfg.Model})
	if err != nil {
		clog.FatalContextf(ctx, "loading settings: %v", err)
	}
	svc, err := service.New(ctx, settings)
	if err != nil {
		clog.FatalContextf(ctx, "creating service: %v", err)
	}
	defer svc.Close()

	port := settings.Server.Port
	if cfg.Port != 0 {
		port = cfg.Port
	}

	mux := http.NewServeMux()
	mux.Handle(settings.Server.WebhookPath, httpmetrics.Handler("webhook", ingress.New(svc.Registry, settings)))
	mux.HandleFunc("/health", ingress.Health)
	srv := &http.Server{
		Addr:              net.JoinHostPort(settings.Server.Host, strconv.Itoa(port)),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, s := range []*http.Server{srv, metricsSrv} {
		eg.Go(func() error {
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer done()
		return errors.Join(srv.Shutdown(shutdown), metricsSrv.Shutdown(shutdown))
	})

	if cfg.ScanInterval > 0 && settings.CronAnalysis.Enabled {
		scanner := missedissues.New(svc.GitHub, svc.Registry, settings)
		eg.Go(func() error {
			return every(ctx, cfg.ScanInterval, func(ctx context.Context) error {
				_, err := scanner.Run(ctx)
				return err
			})
		})
	}
	if cfg.AcceptInvitations {
		proc, err := service.Invitations(settings, svc.GitHub, cfg.ConfigPath, false)
		if err != nil {
			clog.FatalContextf(ctx, "creating invitation processor: %v", err)
		}
		interval := time.Duration(settings.AutoAcceptInvitations.CheckIntervalMinutes) * time.Minute
		eg.Go(func() error {
			return every(ctx, interval, func(ctx context.Context) error {
				_, err := proc.Run(ctx)
				return err
			})
		})
	}

	clog.InfoContextf(ctx, "Starting webhook server on %s%s", srv.Addr, settings.Server.WebhookPath)
	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "server failed: %v", err)
	}
}

// every runs fn immediately and then once per interval until ctx ends.
// Failures are logged and retried on the next tick.
func every(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %v", interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			clog.FromContext(ctx).With("error", err).Error("Periodic run failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
