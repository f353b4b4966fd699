// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	highlightRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
				Bold(true).
				PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 0, 0, 2)
)

// tableWithHighlights is a lipgloss table where some rows can be highlighted.
type tableWithHighlights struct {
	Table      *lgtable.Table
	Count      int
	Highlights map[int]bool
}

// Row appends a row to the table.
func (t *tableWithHighlights) Row(highlight bool, row ...string) {
	if highlight {
		t.Highlights[t.Count] = true
	}
	t.Table.Row(row...)
	t.Count++
}

func newTable(alignments ...lipgloss.Position) *tableWithHighlights {
	t := &tableWithHighlights{
		Highlights: make(map[int]bool),
	}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				s = headerRowStyle
				return
			}
			if t.Highlights[row] {
				s = highlightRowStyle
			} else {
				switch {
				case row%2 == 0:
					// Even row style.
					s = oddRowStyle
				default:
					// Odd row style
					s = evenRowStyle
				}
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			s = s.Align(alignment)
			return
		})
	return t
}

// axesTable lists the resolved range of each input axis. Axes actually sliced are highlighted.
func axesTable(r *slicing.Resolution) string {
	t := newTable(lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Center)
	t.Table.Headers("Axis", "Dim", "Start", "Stop", "Step", "Size", "Shrink")
	for axis, resolved := range r.Axes {
		dim := r.Input.Dimensions[axis]
		sliced := resolved.Size() != dim || resolved.Step != 1
		shrink := ""
		if resolved.Shrink {
			shrink = "✓"
		}
		t.Row(sliced,
			fmt.Sprintf("%d", axis),
			humanize.Comma(int64(dim)),
			fmt.Sprintf("%d", resolved.Start),
			fmt.Sprintf("%d", resolved.Stop),
			fmt.Sprintf("%d", resolved.Step),
			humanize.Comma(int64(resolved.Size())),
			shrink)
	}
	return t.Table.String()
}

// summaryTable describes the resolution and the path used to extract it.
func summaryTable(r *slicing.Resolution, path slicing.FastPath, backendName string) string {
	t := newTable(lipgloss.Right, lipgloss.Left)
	t.Row(false, "Input", r.Input.String())
	t.Row(false, "Processing shape", r.ProcessingShape.String())
	t.Row(true, "Final shape", r.FinalShape.String())
	t.Row(false, "Shrunk axes", fmt.Sprintf("%v", r.ShrunkAxes()))
	t.Row(false, "New axes", fmt.Sprintf("%v", r.NewAxes()))
	t.Row(false, "Flags", fmt.Sprintf("identity=%v, simple=%v, slice-dim0=%v", r.IsIdentity, r.IsSimpleSlice, r.SliceDim0))
	t.Row(false, "Elements", humanize.Comma(int64(r.NumElements())))
	t.Row(false, "Bytes", humanize.Bytes(uint64(r.FinalShape.Memory())))
	t.Row(true, "Path", path.String())
	t.Row(false, "Backend", backendName)
	return t.Table.String()
}
