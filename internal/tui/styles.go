package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorMissing = lipgloss.Color("240") // gray
	colorStale   = lipgloss.Color("214") // orange
	colorFresh   = lipgloss.Color("46")  // green
	colorFailed  = lipgloss.Color("196") // red
	colorRunning = lipgloss.Color("33")  // blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingLeft(1).
			PaddingRight(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginTop(1).
			MarginBottom(0)

	columnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// StaleAfter is the snapshot age past which a collection shows as stale.
const StaleAfter = 24 * time.Hour

func freshness(c CollectionState, now time.Time) string {
	switch {
	case !c.Exists:
		return "missing"
	case now.Sub(c.FetchedAt) > StaleAfter:
		return "stale"
	default:
		return "fresh"
	}
}

func stateIcon(state string) string {
	switch state {
	case "missing":
		return "·"
	case "stale":
		return "◐"
	case "fresh":
		return "●"
	case "running":
		return "↻"
	case "failed":
		return "✗"
	default:
		return "?"
	}
}

func stateColor(state string) lipgloss.Color {
	switch state {
	case "missing":
		return colorMissing
	case "stale":
		return colorStale
	case "fresh":
		return colorFresh
	case "running":
		return colorRunning
	case "failed":
		return colorFailed
	default:
		return lipgloss.Color("252")
	}
}
