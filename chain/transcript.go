/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"fmt"
	"strings"
)

// Transcript renders prior results as the history passed to the next step.
// It returns the empty string when there are no results.
func Transcript(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	parts := []string{"# Previous Analysis Steps\n"}
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("## Step %d: %s", i+1, r.StepName), r.Output)
		if fields := fieldsOf(r.Data); len(fields) > 0 {
			parts = append(parts, "\n### Extracted Data:")
			for _, f := range fields {
				parts = append(parts, fmt.Sprintf("- **%s**: %v", f.Key, f.Value))
			}
		}
		parts = append(parts, "\n---\n")
	}
	return strings.Join(parts, "\n")
}

func fieldsOf(d Data) []Field {
	if d == nil {
		return nil
	}
	return d.Fields()
}
