package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

const (
	nameWidth  = 10
	countWidth = 7
	ageWidth   = 16
	sizeWidth  = 9
)

func renderView(snap Snapshot, notice string) string {
	var b strings.Builder

	present, items := 0, 0
	for _, c := range snap.Collections {
		if c.Exists {
			present++
			items += c.Count
		}
	}
	header := fmt.Sprintf("mngtool │ %d/%d snapshots │ %s items │ %s",
		present, len(snap.Collections), humanize.Comma(int64(items)), snap.StorageDir)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Local snapshots"))
	b.WriteString("\n")
	b.WriteString(renderCollections(snap))

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Last sync"))
	b.WriteString("\n")
	b.WriteString(renderSync(snap))

	b.WriteString("\n")
	footer := fmt.Sprintf("Last updated: %s │ s:sync r:refresh q:quit", snap.Timestamp.Format("15:04:05"))
	if notice != "" {
		footer += " │ " + notice
	}
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func padLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

func renderCollections(snap Snapshot) string {
	if len(snap.Collections) == 0 {
		return emptyStyle.Render("  (no collections)")
	}

	var b strings.Builder
	cols := fmt.Sprintf("    %s %s  %s %s",
		pad("NAME", nameWidth), padLeft("ITEMS", countWidth), pad("FETCHED", ageWidth), padLeft("SIZE", sizeWidth))
	b.WriteString(columnStyle.Render(cols))
	b.WriteString("\n")

	for _, c := range snap.Collections {
		state := freshness(c, snap.Timestamp)
		count, age, size := "-", "never", "-"
		if c.Exists {
			count = humanize.Comma(int64(c.Count))
			age = humanize.RelTime(c.FetchedAt, snap.Timestamp, "ago", "from now")
			size = humanize.Bytes(uint64(c.Size))
		}
		icon := lipgloss.NewStyle().Foreground(stateColor(state)).Render(stateIcon(state))
		line := fmt.Sprintf(" %s  %s %s  %s %s",
			icon, pad(c.Name, nameWidth), padLeft(count, countWidth), pad(age, ageWidth), padLeft(size, sizeWidth))
		b.WriteString(rowStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSync(snap Snapshot) string {
	s := snap.Sync
	switch {
	case s.Running:
		line := fmt.Sprintf(" %s running since %s", stateIcon("running"), s.StartedAt.Format("15:04:05"))
		return lipgloss.NewStyle().Foreground(stateColor("running")).Render(line)
	case s.Err != "":
		line := fmt.Sprintf(" %s failed %s: %s", stateIcon("failed"),
			humanize.RelTime(s.FinishedAt, snap.Timestamp, "ago", "from now"), s.Err)
		return lipgloss.NewStyle().Foreground(stateColor("failed")).Render(line)
	case s.RunID == "":
		return emptyStyle.Render("  (no sync in this session)")
	default:
		line := fmt.Sprintf(" %s %s wrote %d files (%d unchanged) in %s, %s",
			stateIcon("fresh"), shortID(s.RunID), s.Files, s.Unchanged,
			s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond), humanize.RelTime(s.FinishedAt, snap.Timestamp, "ago", "from now"))
		return lipgloss.NewStyle().Foreground(stateColor("fresh")).Render(line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
