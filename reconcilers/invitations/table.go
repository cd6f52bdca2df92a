/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package invitations

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// WriteTable renders r as a markdown table followed by the totals.
func (r *Report) WriteTable(w io.Writer) error {
	if r.Status == StatusDisabled {
		_, err := fmt.Fprintln(w, "Auto-accept invitations is disabled.")
		return err
	}

	table := newTable(w, []string{"ID", "Repository", "Action", "Reason", "Setup"})
	for _, res := range r.Invitations {
		setup := ""
		if res.Setup != nil {
			setup = "ok"
			if !res.Setup.OK() {
				setup = "incomplete"
			}
		}
		if err := table.Append([]string{strconv.FormatInt(res.ID, 10), res.Repository, string(res.Action), res.Reason, setup}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	_, err := fmt.Fprintf(w, "\nProcessed %d invitation(s)%s: %d accepted, %d declined.\n", r.Processed, mode, r.Accepted, r.Declined)
	return err
}
