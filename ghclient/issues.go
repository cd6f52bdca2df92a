/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// AddLabels adds labels to an issue or pull request.
func (c *Client) AddLabels(ctx context.Context, repo string, number int, labels []string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, name, number, labels); err != nil {
		return fmt.Errorf("adding labels to %s#%d: %w", repo, number, err)
	}
	return nil
}

// Comment posts a comment on an issue or pull request.
func (c *Client) Comment(ctx context.Context, repo string, number int, body string) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	if _, _, err := c.gh.Issues.CreateComment(ctx, owner, name, number, &github.IssueComment{
		Body: github.Ptr(body),
	}); err != nil {
		return fmt.Errorf("commenting on %s#%d: %w", repo, number, err)
	}
	return nil
}

// Close closes an issue.
func (c *Client) Close(ctx context.Context, repo string, number int) error {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return err
	}
	if _, _, err := c.gh.Issues.Edit(ctx, owner, name, number, &github.IssueRequest{
		State: github.Ptr("closed"),
	}); err != nil {
		return fmt.Errorf("closing %s#%d: %w", repo, number, err)
	}
	return nil
}

// Labels returns the names of the labels on an issue or pull request.
func (c *Client) Labels(ctx context.Context, repo string, number int) ([]string, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	var names []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		labels, resp, err := c.gh.Issues.ListLabelsByIssue(ctx, owner, name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing labels on %s#%d: %w", repo, number, err)
		}
		for _, l := range labels {
			names = append(names, l.GetName())
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// Issue is an open issue returned by OpenIssues.
type Issue struct {
	Number    int
	Title     string
	Body      string
	URL       string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Labels    []string
}

// HasLabel reports whether the issue carries label.
func (i Issue) HasLabel(label string) bool {
	for _, l := range i.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// OpenIssues returns up to limit open issues, newest first. Pull requests
// are not included.
func (c *Client) OpenIssues(ctx context.Context, repo string, limit int) ([]Issue, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	var query struct {
		Repository struct {
			Issues struct {
				Nodes []struct {
					Number    int
					Title     string
					Body      string
					URL       string
					CreatedAt githubv4.DateTime
					UpdatedAt githubv4.DateTime
					Author    struct {
						Login string
					}
					Labels struct {
						Nodes []struct {
							Name string
						}
					} `graphql:"labels(first: 50)"`
				}
			} `graphql:"issues(first: $limit, states: OPEN, orderBy: {field: CREATED_AT, direction: DESC})"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner": githubv4.String(owner),
		"repo":  githubv4.String(name),
		"limit": githubv4.Int(limit),
	}
	if err := c.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("graphql query: %w", err)
	}

	issues := make([]Issue, 0, len(query.Repository.Issues.Nodes))
	for _, n := range query.Repository.Issues.Nodes {
		labels := make([]string, 0, len(n.Labels.Nodes))
		for _, l := range n.Labels.Nodes {
			labels = append(labels, l.Name)
		}
		issues = append(issues, Issue{
			Number:    n.Number,
			Title:     n.Title,
			Body:      n.Body,
			URL:       n.URL,
			Author:    n.Author.Login,
			CreatedAt: n.CreatedAt.Time,
			UpdatedAt: n.UpdatedAt.Time,
			Labels:    labels,
		})
	}
	return issues, nil
}
