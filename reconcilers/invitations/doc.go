/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package invitations accepts or declines pending repository
// collaboration invitations according to the configured criteria.
//
// Exclusion patterns decline an invitation outright. Otherwise the
// repository, organization and inviter checks must all pass for the
// invitation to be accepted; anything else is left pending. Accepted
// repositories can be provisioned with the provision subpackage.
//
//	proc, err := invitations.New(gh, settings.AutoAcceptInvitations,
//		invitations.WithProvisioner(provision.New(settings.AutoAcceptInvitations.PostAcceptance, gh)))
//	if err != nil {
//		return err
//	}
//	report, err := proc.Run(ctx)
package invitations
