/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the YAML settings file that lists the repositories
// the service acts on and how it treats each of them.
package config
