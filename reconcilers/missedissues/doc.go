/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package missedissues re-drives issues whose webhook delivery was lost.
//
// A periodic Scanner lists the newest open issues of every enabled
// repository that listens to issue events, keeps those older than the
// configured minimum age that do not carry the analyzed marker label, and
// feeds a synthesized "opened" event for each through the handler
// registry. Delivery IDs take the form "cron-<unix>-<number>".
package missedissues
