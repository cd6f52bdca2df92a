/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package invitations

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clidecoder/promptforge/config"
	"github.com/clidecoder/promptforge/ghclient"
	"github.com/clidecoder/promptforge/policy"
	"github.com/clidecoder/promptforge/reconcilers/invitations/provision"
	"github.com/google/go-cmp/cmp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	pending   []ghclient.Invitation
	listErr   error
	acceptErr error
	accepted  []int64
	declined  []int64
}

func (f *fakeClient) Invitations(context.Context) ([]ghclient.Invitation, error) {
	return f.pending, f.listErr
}

func (f *fakeClient) Accept(_ context.Context, id int64) error {
	if f.acceptErr != nil {
		return f.acceptErr
	}
	f.accepted = append(f.accepted, id)
	return nil
}

func (f *fakeClient) Decline(_ context.Context, id int64) error {
	f.declined = append(f.declined, id)
	return nil
}

type fakeProvisioner struct {
	repos []string
}

func (f *fakeProvisioner) Provision(_ context.Context, repo string) provision.Report {
	f.repos = append(f.repos, repo)
	return provision.Report{Repository: repo, Steps: []provision.Step{{Name: "clone", Status: provision.Done}}}
}

var pending = []ghclient.Invitation{
	{ID: 1, Repository: "acme/widgets", Owner: "acme", Inviter: "alice"},
	{ID: 2, Repository: "acme/secret-vault", Owner: "acme", Inviter: "alice"},
	{ID: 3, Repository: "other/thing", Owner: "other", Inviter: "mallory"},
}

func settings() config.AutoAcceptInvitations {
	return config.AutoAcceptInvitations{
		Enabled: true,
		Criteria: policy.Criteria{
			FromOrganizations: []string{"acme"},
			ExcludePatterns:   []string{"*/secret-*"},
		},
	}
}

func TestRun(t *testing.T) {
	client := &fakeClient{pending: pending}
	prov := &fakeProvisioner{}
	p, err := New(client, settings(), WithProvisioner(prov))
	require.NoError(t, err)
	accepted, declined := decisionCount(t, Accepted), decisionCount(t, Declined)

	got, err := p.Run(context.Background())
	require.NoError(t, err)

	want := &Report{
		Status:    StatusSuccess,
		Processed: 3,
		Accepted:  1,
		Declined:  1,
		Invitations: []Result{
			{ID: 1, Repository: "acme/widgets", Action: Accepted, Reason: "matched criteria", Setup: &provision.Report{
				Repository: "acme/widgets",
				Steps:      []provision.Step{{Name: "clone", Status: provision.Done}},
			}},
			{ID: 2, Repository: "acme/secret-vault", Action: Declined, Reason: "excluded by criteria"},
			{ID: 3, Repository: "other/thing", Action: Skipped, Reason: "no match"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []int64{1}, client.accepted)
	require.Equal(t, []int64{2}, client.declined)
	require.Equal(t, []string{"acme/widgets"}, prov.repos)
	require.Equal(t, accepted+1, decisionCount(t, Accepted))
	require.Equal(t, declined+1, decisionCount(t, Declined))
}

func decisionCount(t *testing.T, action Action) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, decisions.WithLabelValues(string(action)).Write(&m))
	return m.GetCounter().GetValue()
}

func TestRunDryRun(t *testing.T) {
	client := &fakeClient{pending: pending}
	prov := &fakeProvisioner{}
	p, err := New(client, settings(), WithProvisioner(prov), WithDryRun(true))
	require.NoError(t, err)

	got, err := p.Run(context.Background())
	require.NoError(t, err)

	var reasons []string
	for _, r := range got.Invitations {
		require.Equal(t, Skipped, r.Action)
		reasons = append(reasons, r.Reason)
	}
	require.Equal(t, []string{"dry run: would accept", "dry run: would decline", "dry run: would no match"}, reasons)
	require.Zero(t, got.Accepted)
	require.Empty(t, client.accepted)
	require.Empty(t, client.declined)
	require.Empty(t, prov.repos)
}

func TestRunDisabled(t *testing.T) {
	client := &fakeClient{listErr: errors.New("must not be called")}
	cfg := settings()
	cfg.Enabled = false
	p, err := New(client, cfg)
	require.NoError(t, err)

	got, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusDisabled, got.Status)
	require.Zero(t, got.Processed)
}

func TestRunFailures(t *testing.T) {
	client := &fakeClient{
		pending:   []ghclient.Invitation{{ID: 1, Repository: "acme/widgets", Owner: "acme"}, {ID: 2}},
		acceptErr: errors.New("403 Forbidden"),
	}
	p, err := New(client, settings())
	require.NoError(t, err)

	got, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Failed, got.Invitations[0].Action)
	require.Equal(t, "api error: 403 Forbidden", got.Invitations[0].Reason)
	require.Equal(t, Errored, got.Invitations[1].Action)
	require.Zero(t, got.Accepted)
}

func TestRunListError(t *testing.T) {
	p, err := New(&fakeClient{listErr: errors.New("boom")}, settings())
	require.NoError(t, err)
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("Run() = nil error, want error")
	}
}

func TestRunStopsWhenCanceled(t *testing.T) {
	client := &fakeClient{pending: pending}
	p, err := New(client, settings(), WithDelay(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	got, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, got.Processed)
}

func TestNewInvalidPattern(t *testing.T) {
	cfg := settings()
	cfg.Criteria.RepositoryPatterns = []string{"[acme"}
	if _, err := New(&fakeClient{}, cfg); err == nil {
		t.Error("New() = nil error, want error for bad pattern")
	}
}

func TestWriteTable(t *testing.T) {
	p, err := New(&fakeClient{pending: pending}, settings(), WithProvisioner(&fakeProvisioner{}))
	require.NoError(t, err)
	r, err := p.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.WriteTable(&buf))
	out := buf.String()
	for _, s := range []string{"acme/widgets", "excluded by criteria", "no match", "Processed 3 invitation(s): 1 accepted, 1 declined."} {
		if !strings.Contains(out, s) {
			t.Errorf("table missing %q:\n%s", s, out)
		}
	}

	buf.Reset()
	require.NoError(t, (&Report{Status: StatusDisabled}).WriteTable(&buf))
	require.Equal(t, "Auto-accept invitations is disabled.\n", buf.String())
}
