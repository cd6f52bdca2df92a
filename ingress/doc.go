/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package ingress is the HTTP front door for GitHub webhook deliveries.
//
// The Handler verifies the delivery signature when enabled, answers ping
// events, drops deliveries for repositories or event types that are not
// configured, and hands the rest to the handler registry. Every response
// is a small JSON document describing what happened.
package ingress
