/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"fmt"
	"slices"

	"github.com/chainguard-dev/clog"
	"github.com/gobwas/glob"
)

// Decision is the outcome of evaluating an invitation.
type Decision string

const (
	Accept  Decision = "accept"
	Decline Decision = "decline"
	NoMatch Decision = "no match"
)

// Criteria selects which invitations are accepted or declined. Patterns
// are shell-style globs matched against "owner/name"; "*" spans "/".
type Criteria struct {
	RepositoryPatterns []string `yaml:"repository_patterns,omitempty" json:"repository_patterns,omitempty" jsonschema:"description=Repositories to accept (all when empty)"`
	FromOrganizations  []string `yaml:"from_organizations,omitempty" json:"from_organizations,omitempty" jsonschema:"description=Only accept repositories owned by these accounts"`
	FromUsers          []string `yaml:"from_users,omitempty" json:"from_users,omitempty" jsonschema:"description=Only accept invitations sent by these users"`
	ExcludePatterns    []string `yaml:"exclude_patterns,omitempty" json:"exclude_patterns,omitempty" jsonschema:"description=Repositories to decline"`
}

// Invitation is the subset of a collaboration invitation the policy reads.
type Invitation struct {
	// Repository is the full "owner/name".
	Repository string
	Owner      string
	Inviter    string
}

// Evaluator applies a compiled Criteria.
type Evaluator struct {
	repos    []pattern
	excludes []pattern
	orgs     []string
	users    []string
}

type pattern struct {
	raw string
	g   glob.Glob
}

// New compiles the patterns in c. An empty repository pattern list matches
// every repository.
func New(c Criteria) (*Evaluator, error) {
	repoPatterns := c.RepositoryPatterns
	if len(repoPatterns) == 0 {
		repoPatterns = []string{"*"}
	}
	repos, err := compile(repoPatterns)
	if err != nil {
		return nil, fmt.Errorf("repository patterns: %w", err)
	}
	excludes, err := compile(c.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	return &Evaluator{
		repos:    repos,
		excludes: excludes,
		orgs:     c.FromOrganizations,
		users:    c.FromUsers,
	}, nil
}

func compile(raw []string) ([]pattern, error) {
	out := make([]pattern, 0, len(raw))
	for _, p := range raw {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", p, err)
		}
		out = append(out, pattern{raw: p, g: g})
	}
	return out, nil
}

// Evaluate decides what to do with inv. Exclusions win over every allow
// rule; otherwise the repository, organization and user checks must all
// pass for the invitation to be accepted.
func (e *Evaluator) Evaluate(ctx context.Context, inv Invitation) Decision {
	log := clog.FromContext(ctx).With("repository", inv.Repository, "inviter", inv.Inviter)

	if p, ok := firstMatch(e.excludes, inv.Repository); ok {
		log.With("pattern", p).Info("Invitation excluded by pattern")
		return Decline
	}

	_, repoOK := firstMatch(e.repos, inv.Repository)
	orgOK := len(e.orgs) == 0 || slices.Contains(e.orgs, inv.Owner)
	userOK := len(e.users) == 0 || slices.Contains(e.users, inv.Inviter)

	if repoOK && orgOK && userOK {
		log.Info("Invitation matches criteria")
		return Accept
	}
	log.With("repo_matches", repoOK, "org_matches", orgOK, "user_matches", userOK).
		Info("Invitation does not match criteria")
	return NoMatch
}

func firstMatch(ps []pattern, s string) (string, bool) {
	for _, p := range ps {
		if p.g.Match(s) {
			return p.raw, true
		}
	}
	return "", false
}
