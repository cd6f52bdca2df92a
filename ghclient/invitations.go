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

// Invitation is a pending repository collaboration invitation addressed to
// the authenticated user.
type Invitation struct {
	ID         int64
	Repository string
	Owner      string
	Inviter    string
	// InviterType is "User", "Organization" or "Bot".
	InviterType string
	Permissions string
}

// Invitations lists every pending invitation.
func (c *Client) Invitations(ctx context.Context) ([]Invitation, error) {
	var out []Invitation
	opts := &github.ListOptions{PerPage: 100}
	for {
		invs, resp, err := c.gh.Users.ListInvitations(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("listing invitations: %w", err)
		}
		for _, inv := range invs {
			out = append(out, Invitation{
				ID:          inv.GetID(),
				Repository:  inv.GetRepo().GetFullName(),
				Owner:       inv.GetRepo().GetOwner().GetLogin(),
				Inviter:     inv.GetInviter().GetLogin(),
				InviterType: inv.GetInviter().GetType(),
				Permissions: inv.GetPermissions(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// Accept accepts the invitation with the given ID.
func (c *Client) Accept(ctx context.Context, id int64) error {
	if _, err := c.gh.Users.AcceptInvitation(ctx, id); err != nil {
		return fmt.Errorf("accepting invitation %d: %w", id, err)
	}
	return nil
}

// Decline declines the invitation with the given ID.
func (c *Client) Decline(ctx context.Context, id int64) error {
	if _, err := c.gh.Users.DeclineInvitation(ctx, id); err != nil {
		return fmt.Errorf("declining invitation %d: %w", id, err)
	}
	return nil
}
