/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package provision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clidecoder/promptforge/config"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

type fakeHooks struct {
	remote   string
	cloneErr error
	hookErr  error
	hooks    map[string]bool
}

func (f *fakeHooks) CloneURL(context.Context, string) (string, error) {
	return f.remote, f.cloneErr
}

func (f *fakeHooks) EnsureWebhook(_ context.Context, repo, _, _ string, _ []string) (bool, error) {
	if f.hookErr != nil {
		return false, f.hookErr
	}
	if f.hooks == nil {
		f.hooks = map[string]bool{}
	}
	if f.hooks[repo] {
		return false, nil
	}
	f.hooks[repo] = true
	return true, nil
}

func initTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# widgets\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return dir
}

func stubReload(t *testing.T, err error) *[][]string {
	t.Helper()
	var calls [][]string
	runCommand = func(_ context.Context, argv []string) ([]byte, error) {
		calls = append(calls, argv)
		return []byte("reloaded"), err
	}
	t.Cleanup(func() { runCommand = defaultRunCommand })
	return &calls
}

func testSetup(t *testing.T) (config.PostAcceptance, string) {
	t.Helper()
	base := t.TempDir()
	settings := filepath.Join(base, "settings.yaml")
	if err := os.WriteFile(settings, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return config.PostAcceptance{
		CloneRepository: true,
		CloneBaseDir:    filepath.Join(base, "repos"),
		UpdateConfig:    true,
		RegisterWebhook: true,
		WebhookURL:      "https://hooks.example.com/github-webhook",
		WebhookEvents:   []string{"issues", "pull_request"},
		ReloadCommand:   []string{"systemctl", "restart", "promptforge"},
	}, settings
}

func TestProvision(t *testing.T) {
	ctx := context.Background()
	cfg, settings := testSetup(t)
	calls := stubReload(t, nil)
	hooks := &fakeHooks{remote: initTestRepo(t)}
	p := New(cfg, hooks, WithSettingsPath(settings), WithSecret("s3cret"))

	dir := filepath.Join(cfg.CloneBaseDir, "widgets")
	got := p.Provision(ctx, "acme/widgets")
	want := Report{
		Repository: "acme/widgets",
		Steps: []Step{
			{Name: "clone", Status: Done, Detail: dir},
			{Name: "config", Status: Done, Detail: settings},
			{Name: "webhook", Status: Done, Detail: cfg.WebhookURL},
			{Name: "reload", Status: Done, Detail: "reloaded"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Provision() mismatch (-want +got):\n%s", diff)
	}
	if !got.OK() {
		t.Error("OK() = false, want true")
	}

	if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
		t.Errorf("clone missing README.md: %v", err)
	}
	s, err := config.Load(settings)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	repo, ok := s.Repository("acme/widgets")
	if !ok {
		t.Fatal("repository not appended to settings")
	}
	if repo.LocalPath != dir || !repo.Enabled || !repo.Listens("pull_request") {
		t.Errorf("appended repository = %+v", repo)
	}
	if diff := cmp.Diff([][]string{cfg.ReloadCommand}, *calls); diff != "" {
		t.Errorf("reload calls mismatch (-want +got):\n%s", diff)
	}

	// A second run finds everything in place.
	again := p.Provision(ctx, "acme/widgets")
	for i, s := range again.Steps[:3] {
		if s.Status != Exists {
			t.Errorf("second run step %d = %+v, want %s", i, s, Exists)
		}
	}
}

func TestProvisionDryRun(t *testing.T) {
	cfg, settings := testSetup(t)
	cfg.RegisterWebhook = false
	calls := stubReload(t, nil)

	got := New(cfg, &fakeHooks{}, WithSettingsPath(settings), WithDryRun(true)).Provision(context.Background(), "acme/widgets")
	want := []Step{
		{Name: "clone", Status: DryRun},
		{Name: "config", Status: DryRun},
		{Name: "webhook", Status: Skipped, Detail: "disabled"},
		{Name: "reload", Status: DryRun},
	}
	if diff := cmp.Diff(want, got.Steps); diff != "" {
		t.Errorf("Provision() steps mismatch (-want +got):\n%s", diff)
	}
	if len(*calls) != 0 {
		t.Errorf("reload ran %d times in dry run", len(*calls))
	}
	if _, err := os.Stat(cfg.CloneBaseDir); !os.IsNotExist(err) {
		t.Errorf("clone dir created in dry run: %v", err)
	}
}

func TestProvisionStepsAreIndependent(t *testing.T) {
	cfg, settings := testSetup(t)
	stubReload(t, errors.New("exit status 1"))
	hooks := &fakeHooks{cloneErr: errors.New("getting acme/widgets: 404")}

	got := New(cfg, hooks, WithSettingsPath(settings)).Provision(context.Background(), "acme/widgets")

	var statuses []Status
	for _, s := range got.Steps {
		statuses = append(statuses, s.Status)
	}
	if diff := cmp.Diff([]Status{Failed, Done, Done, Failed}, statuses); diff != "" {
		t.Errorf("step statuses mismatch (-want +got):\n%s", diff)
	}
	if got.OK() {
		t.Error("OK() = true, want false")
	}
}

func TestProvisionWithoutSettingsPath(t *testing.T) {
	cfg, _ := testSetup(t)
	cfg.CloneRepository = false
	cfg.ReloadCommand = nil

	got := New(cfg, &fakeHooks{}).Provision(context.Background(), "acme/widgets")
	want := []Step{
		{Name: "clone", Status: Skipped, Detail: "disabled"},
		{Name: "config", Status: Skipped, Detail: "disabled"},
		{Name: "webhook", Status: Done, Detail: cfg.WebhookURL},
		{Name: "reload", Status: Skipped, Detail: "disabled"},
	}
	if diff := cmp.Diff(want, got.Steps); diff != "" {
		t.Errorf("Provision() steps mismatch (-want +got):\n%s", diff)
	}
}
