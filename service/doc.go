/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package service assembles the settings, clients and handler registry
// shared by the promptforge binaries.
package service
