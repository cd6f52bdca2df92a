/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package provision onboards a repository after its invitation has been
// accepted: clone it locally, add it to the settings file, register the
// webhook and reload the service. Each step is best effort and reported
// on its own.
package provision
