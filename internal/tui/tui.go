package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type SnapshotProvider interface {
	GetSnapshot() Snapshot
	// TriggerSync requests a background sync and reports whether it was accepted.
	TriggerSync() bool
}

type Model struct {
	provider        SnapshotProvider
	snapshot        Snapshot
	refreshInterval time.Duration
	notice          string
}

type tickMsg time.Time

func NewModel(provider SnapshotProvider, refreshInterval time.Duration) Model {
	return Model{
		provider:        provider,
		snapshot:        provider.GetSnapshot(),
		refreshInterval: refreshInterval,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.refreshInterval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.snapshot = m.provider.GetSnapshot()
			m.notice = ""
		case "s":
			if m.provider.TriggerSync() {
				m.notice = "sync requested"
			} else {
				m.notice = "sync already running"
			}
			m.snapshot = m.provider.GetSnapshot()
		}

	case tickMsg:
		m.snapshot = m.provider.GetSnapshot()
		return m, tickCmd(m.refreshInterval)
	}

	return m, nil
}

func (m Model) View() string {
	return renderView(m.snapshot, m.notice)
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run shows the dashboard until the user quits.
func Run(provider SnapshotProvider, refreshInterval time.Duration) error {
	p := tea.NewProgram(NewModel(provider, refreshInterval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
