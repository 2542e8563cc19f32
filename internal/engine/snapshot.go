package engine

import (
	"encoding/json"
	"fmt"

	"local_currency/internal/domain"
)

// Phase is the coarse screen state that decides which view is rendered.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseLoadFailed
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "LOADING"
	case PhaseLoadFailed:
		return "LOAD_FAILED"
	case PhaseReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "LOADING":
		*p = PhaseLoading
	case "LOAD_FAILED":
		*p = PhaseLoadFailed
	case "READY":
		*p = PhaseReady
	default:
		return fmt.Errorf("unknown phase %q", name)
	}
	return nil
}

// ErrorBanner is the error shown to the user after a failed load or commit.
type ErrorBanner struct {
	Message      string `json:"message"`
	RetryOffered bool   `json:"retry_offered"`
}

// Row is the render model of a single visible currency.
type Row struct {
	Currency   domain.Currency `json:"currency"`
	Icon       string          `json:"icon"`
	Checked    bool            `json:"checked"`
	InProgress bool            `json:"in_progress"`
}

// Snapshot is the immutable view state handed to renderers.
// Every field of one snapshot belongs to the same transition.
type Snapshot struct {
	Version            uint64            `json:"version"`
	Phase              Phase             `json:"phase"`
	VisibleCurrencies  []domain.Currency `json:"visible_currencies"`
	Rows               []Row             `json:"rows"`
	SelectedSymbol     string            `json:"selected_symbol,omitempty"`
	PendingSymbol      string            `json:"pending_symbol,omitempty"`
	Error              *ErrorBanner      `json:"error,omitempty"`
	SearchQuery        string            `json:"search_query"`
	EmptyStateSubtitle string            `json:"empty_state_subtitle"`
	Labels             Labels            `json:"labels"`
	Completed          bool              `json:"completed"`
}

// ShowEmptyState reports whether the list area should show the
// "no results" view instead of rows.
func (s Snapshot) ShowEmptyState() bool {
	return s.Phase == PhaseReady && len(s.VisibleCurrencies) == 0
}

// HasPending reports whether a commit is outstanding.
func (s Snapshot) HasPending() bool {
	return s.PendingSymbol != ""
}

func buildRows(visible []domain.Currency, selected, pending string, icons IconResolver) []Row {
	rows := make([]Row, 0, len(visible))
	for _, c := range visible {
		rows = append(rows, Row{
			Currency:   c,
			Icon:       icons.IconName(c.Symbol),
			Checked:    c.Symbol == selected && c.Symbol != pending,
			InProgress: c.Symbol == pending,
		})
	}
	return rows
}
