/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package records persists the per-subject analysis documents produced by
// event handlers, either on local disk or in a Cloud Storage bucket.
package records
