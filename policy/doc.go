/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package policy decides whether a repository collaboration invitation
// should be accepted, declined, or left pending.
//
//	ev, err := policy.New(policy.Criteria{
//		FromOrganizations: []string{"acme"},
//		ExcludePatterns:   []string{"*/archive-*"},
//	})
//	if err != nil {
//		return err
//	}
//	switch ev.Evaluate(ctx, inv) {
//	case policy.Accept:
//		// accept and provision
//	case policy.Decline:
//		// decline
//	}
package policy
