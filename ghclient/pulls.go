/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// PullRequest carries the details used to build a review prompt.
type PullRequest struct {
	Number       int
	Title        string
	Body         string
	URL          string
	Author       string
	State        string
	Draft        bool
	Additions    int
	Deletions    int
	ChangedFiles int
	Files        []FileChange
	Diff         string
}

// PullRequest fetches a pull request and its unified diff. A diff that
// cannot be fetched or parsed is logged and left empty.
func (c *Client) PullRequest(ctx context.Context, repo string, number int) (*PullRequest, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("getting %s#%d: %w", repo, number, err)
	}

	out := &PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		URL:          pr.GetHTMLURL(),
		Author:       pr.GetUser().GetLogin(),
		State:        pr.GetState(),
		Draft:        pr.GetDraft(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
	}

	log := clog.FromContext(ctx).With("repository", repo, "number", number)
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, owner, name, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		log.With("error", err).Warn("Failed to fetch pull request diff")
		return out, nil
	}
	out.Diff = diff
	if out.Files, err = SummarizeDiff(diff); err != nil {
		log.With("error", err).Warn("Failed to parse pull request diff")
	}
	return out, nil
}
