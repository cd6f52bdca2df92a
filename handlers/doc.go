/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package handlers turns webhook events into generation calls and applies
// the results back onto the originating repository.
//
// A Registry maps event kinds to Handlers and is built once at start-up:
//
//	reg, err := handlers.NewDefault(handlers.Deps{
//	    Renderer: loader,
//	    Analyzer: client,
//	    Repos:    gh,
//	    Store:    records.NewFileStore(settings.Outputs.BaseDir),
//	    Settings: settings,
//	})
//	if err != nil {
//	    return err
//	}
//	outcome := reg.Handle(ctx, handlers.NewEvent("issues", body, delivery))
//
// Issues run through a two-step chain (analyze, then respond) whose first
// step feeds extracted labels, priority and category into the second. Most
// other kinds run a single templated prompt. Every handler returns an
// Outcome rather than an error; failures for one event never affect another.
package handlers
