// Package tui renders the currency screen in a terminal with Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"local_currency/internal/engine"
)

// Screen is the write side of the presentation contract plus its latest state.
type Screen interface {
	Activate()
	Retry()
	UpdateQuery(text string)
	SelectCurrency(symbol string)
	DismissError()
	Snapshot() engine.Snapshot
}

// Model is the Bubble Tea model bound to one screen.
type Model struct {
	screen  Screen
	updates <-chan engine.Snapshot

	snap   engine.Snapshot
	query  string // echoed immediately; the screen catches up asynchronously
	cursor int
	height int

	// Done is set once the screen reported a committed selection.
	Done bool
}

// NewModel creates a model reading snapshots from updates
// (typically the channel returned by engine.Screen.Subscribe).
func NewModel(screen Screen, updates <-chan engine.Snapshot) *Model {
	snap := screen.Snapshot()
	return &Model{
		screen:  screen,
		updates: updates,
		snap:    snap,
		query:   snap.SearchQuery,
		height:  24,
	}
}

// Message types for Bubble Tea
type snapshotMsg engine.Snapshot
type closedMsg struct{}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.activateCmd(), m.waitForSnapshot())
}

func (m *Model) activateCmd() tea.Cmd {
	return func() tea.Msg {
		m.screen.Activate()
		return nil
	}
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		m.snap = engine.Snapshot(msg)
		m.clampCursor()
		if m.snap.Completed {
			m.Done = true
			return m, tea.Quit
		}
		return m, m.waitForSnapshot()

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		m.screen.Retry()
		return m, nil
	case "esc":
		if m.snap.Error != nil {
			m.screen.DismissError()
		} else if m.query != "" {
			m.setQuery("")
		}
		return m, nil
	}

	if m.snap.Phase == engine.PhaseLoadFailed {
		switch msg.String() {
		case "r", "enter":
			m.screen.Retry()
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyUp, tea.KeyCtrlP:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown, tea.KeyCtrlN:
		if m.cursor < len(m.snap.Rows)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		if m.cursor < len(m.snap.Rows) {
			m.screen.SelectCurrency(m.snap.Rows[m.cursor].Currency.Symbol)
		}
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.setQuery(string(r[:len(r)-1]))
		}
	case tea.KeySpace:
		m.setQuery(m.query + " ")
	case tea.KeyRunes:
		m.setQuery(m.query + string(msg.Runes))
	}
	return m, nil
}

func (m *Model) setQuery(q string) {
	m.query = q
	m.cursor = 0
	m.screen.UpdateQuery(q)
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Rows) {
		m.cursor = len(m.snap.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(s.Labels.Title + "\n\n")

	if s.Error != nil {
		b.WriteString("! " + s.Error.Message)
		if s.Error.RetryOffered {
			b.WriteString("  [r] " + s.Labels.Retry)
		}
		b.WriteString("  [esc]\n\n")
	}

	switch s.Phase {
	case engine.PhaseLoading:
		b.WriteString(s.Labels.Loading + "\n")
	case engine.PhaseLoadFailed:
		b.WriteString(s.Labels.LoadFailedTitle + "\n")
		b.WriteString(s.Labels.LoadFailedSubtitle + "\n\n")
		b.WriteString("[r] " + s.Labels.Retry + "\n")
		return b.String()
	case engine.PhaseReady:
		fmt.Fprintf(&b, "%s: %s_\n\n", s.Labels.SearchPlaceholder, m.query)
		if s.ShowEmptyState() {
			b.WriteString(s.Labels.EmptyStateTitle + "\n")
			b.WriteString(s.EmptyStateSubtitle + "\n")
			break
		}
		m.writeRows(&b)
	}

	b.WriteString("\n↑/↓ move • enter select • esc clear • ctrl+r reload • ctrl+c quit\n")
	return b.String()
}

// writeRows renders the window of rows around the cursor that fits the terminal.
func (m *Model) writeRows(b *strings.Builder) {
	rows := m.snap.Rows
	window := m.height - 10
	if window < 3 {
		window = 3
	}

	start := 0
	if m.cursor >= window {
		start = m.cursor - window + 1
	}
	end := start + window
	if end > len(rows) {
		end = len(rows)
	}

	for i := start; i < end; i++ {
		r := rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		mark := " "
		switch {
		case r.InProgress:
			mark = "…"
		case r.Checked:
			mark = "✓"
		}
		fmt.Fprintf(b, "%s%s %-4s %s\n", cursor, mark, r.Currency.Symbol, r.Currency.Name)
	}
	if end < len(rows) {
		fmt.Fprintf(b, "  … %d more\n", len(rows)-end)
	}
}
