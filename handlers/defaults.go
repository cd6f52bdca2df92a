/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"errors"
	"fmt"
)

// NewDefault builds the registry of every supported event kind. Unknown
// kinds are analyzed by the generic handler. The registry is frozen before
// it is returned.
func NewDefault(d Deps) (*Registry, error) {
	switch {
	case d.Renderer == nil:
		return nil, errors.New("handlers: renderer is required")
	case d.Analyzer == nil:
		return nil, errors.New("handlers: analyzer is required")
	case d.Repos == nil:
		return nil, errors.New("handlers: repository client is required")
	case d.Store == nil:
		return nil, errors.New("handlers: record store is required")
	}

	issues, err := NewIssueHandler(d)
	if err != nil {
		return nil, fmt.Errorf("building issue handler: %w", err)
	}
	generic := NewGenericHandler(d)
	review := NewReviewHandler(d)

	reg := NewRegistry(generic)
	for kind, h := range map[string]Handler{
		"issues":              issues,
		"pull_request":        pullRequests(NewPullRequestHandler(d), review),
		"pull_request_review": review,
		"workflow_run":        NewWorkflowHandler(d),
		"push":                NewPushHandler(d),
		"release":             NewReleaseHandler(d),
		"fork":                NewForkHandler(d, generic),
		"deployment":          NewDeploymentHandler(d, generic),
		"star":                NewStarHandler(d),
		"watch":               NewWatchHandler(d),
		"commit_comment":      onlyActions(generalized(generic, "comment.commit_id"), "created"),
		"project":             generalized(generic, "project.name"),
		"milestone":           generalized(generic, "milestone.title"),
		"team":                generalized(generic, "team.name"),
		"member":              generalized(generic, "member.login"),
	} {
		if err := reg.Register(kind, h); err != nil {
			return nil, err
		}
	}
	reg.Freeze()
	return reg, nil
}
