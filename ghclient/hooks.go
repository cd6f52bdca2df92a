/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v84/github"
)

// EnsureWebhook creates a JSON webhook on repo delivering events to url,
// unless a hook with the same URL already exists. It reports whether a hook
// was created.
func (c *Client) EnsureWebhook(ctx context.Context, repo, url, secret string, events []string) (bool, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return false, err
	}

	opts := &github.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := c.gh.Repositories.ListHooks(ctx, owner, name, opts)
		if err != nil {
			return false, fmt.Errorf("listing hooks on %s: %w", repo, err)
		}
		for _, h := range hooks {
			if h.GetConfig().GetURL() == url {
				return false, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	cfg := &github.HookConfig{
		URL:         github.Ptr(url),
		ContentType: github.Ptr("json"),
		InsecureSSL: github.Ptr("0"),
	}
	if secret != "" {
		cfg.Secret = github.Ptr(secret)
	}
	if _, _, err := c.gh.Repositories.CreateHook(ctx, owner, name, &github.Hook{
		Name:   github.Ptr("web"),
		Config: cfg,
		Events: events,
		Active: github.Ptr(true),
	}); err != nil {
		return false, fmt.Errorf("creating hook on %s: %w", repo, err)
	}
	return true, nil
}

// CloneURL returns the HTTPS clone URL of repo.
func (c *Client) CloneURL(ctx context.Context, repo string) (string, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return "", err
	}
	r, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("getting %s: %w", repo, err)
	}
	return r.GetCloneURL(), nil
}
