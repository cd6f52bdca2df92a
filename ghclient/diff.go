/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"fmt"

	"github.com/waigani/diffparser"
)

// FileChange summarizes one file of a unified diff.
type FileChange struct {
	Path      string
	Status    string
	Additions int
	Deletions int
}

func (f FileChange) String() string {
	return fmt.Sprintf("%s (%s, +%d/-%d)", f.Path, f.Status, f.Additions, f.Deletions)
}

// SummarizeDiff lists the files touched by a unified diff with their line
// counts.
func SummarizeDiff(diff string) ([]FileChange, error) {
	if diff == "" {
		return nil, nil
	}
	parsed, err := diffparser.Parse(diff)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	files := make([]FileChange, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		fc := FileChange{Path: f.NewName, Status: "modified"}
		// "/dev/null" sides leave the matching name empty.
		switch {
		case f.OrigName == "":
			fc.Status = "added"
		case f.NewName == "":
			fc.Status = "removed"
			fc.Path = f.OrigName
		}
		for _, h := range f.Hunks {
			for _, l := range h.WholeRange.Lines {
				switch l.Mode {
				case diffparser.ADDED:
					fc.Additions++
				case diffparser.REMOVED:
					fc.Deletions++
				}
			}
		}
		files = append(files, fc)
	}
	return files, nil
}
