package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/busforge/busforge/internal/report"
)

// RenderSummary renders the post-run manifest as a styled table.
func RenderSummary(r *report.Report) string {
	header := HeaderStyle.Render(fmt.Sprintf("BusForge run — %s / ID %s", r.Source, r.Identifier))

	rows := make([]string, 0, len(r.Entries)+1)
	rows = append(rows, DimStyle.Render(fmt.Sprintf("%-16s %-11s %-14s %-10s %s",
		"LABEL", "KIND", "SHAPE", "DISTANCE", "FILE")))
	for _, e := range r.Entries {
		dist := fmt.Sprintf("%d", e.Distance)
		if e.Distance < 0 {
			dist = "n/a"
		}
		rows = append(rows, fmt.Sprintf("%s %-11s %-14s %-10s %s",
			LabelStyle.Render(fmt.Sprintf("%-16s", e.Label)),
			string(e.Kind),
			fmt.Sprintf("(%d,%d,%d)", e.Shape[0], e.Shape[1], e.Shape[2]),
			dist,
			ValueStyle.Render(e.File)))
	}
	table := PanelStyle.Render(strings.Join(rows, "\n"))

	stats := fmt.Sprintf("%d jobs, %d failed, %d tail words discarded, %.2f MB in %s, seed %d",
		r.Stats.Jobs, r.Stats.Failures, r.Stats.Discarded,
		r.Stats.DatasetsMB, r.Stats.Duration.Round(time.Millisecond), r.Seed)
	statsLine := OKStyle.Render(stats)
	if r.Stats.Failures > 0 {
		statsLine = FailStyle.Render(stats)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, table, statsLine) + "\n"
}
