package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"local_currency/internal/domain"
	"local_currency/internal/engine"
)

type recordingScreen struct {
	calls []string
	snap  engine.Snapshot
}

func (s *recordingScreen) Activate() { s.calls = append(s.calls, "activate") }
func (s *recordingScreen) Retry() { s.calls = append(s.calls, "retry") }
func (s *recordingScreen) UpdateQuery(text string) { s.calls = append(s.calls, "query:"+text) }
func (s *recordingScreen) SelectCurrency(sym string) { s.calls = append(s.calls, "select:"+sym) }
func (s *recordingScreen) DismissError() { s.calls = append(s.calls, "dismiss") }
func (s *recordingScreen) Snapshot() engine.Snapshot { return s.snap }

var labels = engine.Labels{
	Title:              "Local Currency",
	Loading:            "Loading...",
	SearchPlaceholder:  "Search",
	EmptyStateTitle:    "No results",
	LoadFailedTitle:    "Something went wrong",
	LoadFailedSubtitle: "Please try again.",
	Retry:              "Retry",
}

func readySnapshot(selected, pending string) engine.Snapshot {
	visible := []domain.Currency{
		{Symbol: "USD", Name: "US Dollar"},
		{Symbol: "EUR", Name: "Euro"},
		{Symbol: "GBP", Name: "Pound Sterling"},
	}
	rows := make([]engine.Row, 0, len(visible))
	for _, c := range visible {
		rows = append(rows, engine.Row{
			Currency:   c,
			Checked:    c.Symbol == selected && c.Symbol != pending,
			InProgress: c.Symbol == pending,
		})
	}
	return engine.Snapshot{
		Phase:             engine.PhaseReady,
		VisibleCurrencies: visible,
		Rows:              rows,
		SelectedSymbol:    selected,
		PendingSymbol:     pending,
		Labels:            labels,
	}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestModel(snap engine.Snapshot) (*Model, *recordingScreen) {
	scr := &recordingScreen{snap: snap}
	return NewModel(scr, make(chan engine.Snapshot)), scr
}

func TestModel_LoadingView(t *testing.T) {
	m, _ := newTestModel(engine.Snapshot{Phase: engine.PhaseLoading, Labels: labels})
	view := m.View()
	assert.Contains(t, view, "Local Currency")
	assert.Contains(t, view, "Loading...")
}

func TestModel_ReadyRowsShowMarks(t *testing.T) {
	m, _ := newTestModel(readySnapshot("", "EUR"))
	m.Update(snapshotMsg(readySnapshot("USD", "")))
	view := m.View()
	assert.Contains(t, view, "> ✓ USD")
	assert.Contains(t, view, "EUR  Euro")

	m.Update(snapshotMsg(readySnapshot("", "EUR")))
	assert.Contains(t, m.View(), "… EUR")
	assert.NotContains(t, m.View(), "✓")
}

func TestModel_TypingUpdatesQuery(t *testing.T) {
	m, scr := newTestModel(readySnapshot("USD", ""))

	m.Update(runes("e"))
	m.Update(runes("u"))
	m.Update(key(tea.KeyBackspace))

	assert.Equal(t, []string{"query:e", "query:eu", "query:e"}, scr.calls)
	assert.Contains(t, m.View(), "Search: e_")
}

func TestModel_EnterSelectsRowUnderCursor(t *testing.T) {
	m, scr := newTestModel(readySnapshot("USD", ""))

	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeyDown)) // clamped at the last row
	m.Update(key(tea.KeyUp))
	m.Update(key(tea.KeyEnter))

	assert.Equal(t, []string{"select:EUR"}, scr.calls)
}

func TestModel_EmptyState(t *testing.T) {
	snap := engine.Snapshot{
		Phase:              engine.PhaseReady,
		SearchQuery:        "zzz",
		EmptyStateSubtitle: "We couldn't find anything for 'zzz'",
		Labels:             labels,
	}
	m, scr := newTestModel(snap)
	view := m.View()
	assert.Contains(t, view, "No results")
	assert.Contains(t, view, "'zzz'")

	m.Update(key(tea.KeyEnter))
	assert.Empty(t, scr.calls, "nothing to select")
}

func TestModel_LoadFailedRetry(t *testing.T) {
	snap := engine.Snapshot{
		Phase:  engine.PhaseLoadFailed,
		Error:  &engine.ErrorBanner{Message: "network down", RetryOffered: true},
		Labels: labels,
	}
	m, scr := newTestModel(snap)

	view := m.View()
	assert.Contains(t, view, "! network down")
	assert.Contains(t, view, "Something went wrong")

	m.Update(runes("r"))
	m.Update(runes("x"))
	assert.Equal(t, []string{"retry"}, scr.calls, "typing is ignored while failed")
}

func TestModel_EscDismissesBannerThenClearsQuery(t *testing.T) {
	snap := readySnapshot("USD", "")
	snap.Error = &engine.ErrorBanner{Message: "rejected"}
	m, scr := newTestModel(snap)

	m.Update(key(tea.KeyEsc))
	assert.Equal(t, []string{"dismiss"}, scr.calls)

	m.Update(snapshotMsg(readySnapshot("USD", "")))
	m.Update(runes("eu"))
	m.Update(key(tea.KeyEsc))
	assert.Equal(t, []string{"dismiss", "query:eu", "query:"}, scr.calls)
}

func TestModel_QuitsOnCompletion(t *testing.T) {
	m, _ := newTestModel(readySnapshot("USD", ""))

	done := readySnapshot("EUR", "")
	done.Completed = true
	_, cmd := m.Update(snapshotMsg(done))

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Done)
}

func TestModel_InitActivates(t *testing.T) {
	scr := &recordingScreen{snap: engine.Snapshot{Labels: labels}}
	updates := make(chan engine.Snapshot, 1)
	m := NewModel(scr, updates)

	m.activateCmd()()
	assert.Equal(t, []string{"activate"}, scr.calls)

	updates <- readySnapshot("USD", "")
	msg := m.waitForSnapshot()()
	assert.IsType(t, snapshotMsg{}, msg)

	close(updates)
	assert.IsType(t, closedMsg{}, m.waitForSnapshot()())
}
