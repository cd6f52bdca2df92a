/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package extract derives structured data from free-form model output by
// pattern matching. Every function in this package is pure.
//
// Issue produces an Analysis for a triage step:
//
//	a := extract.Issue(output)
//	if a.ShouldClose {
//		// ...
//	}
//
// Labels and PullRequest cover the broader label table used by single-shot
// handlers and the size/type labels applied to pull requests.
package extract
