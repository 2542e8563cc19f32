package engine

import (
	"context"
	"fmt"
	"time"

	"local_currency/internal/domain"
)

// CatalogSource supplies the full currency list. A single call yields the
// whole catalog or an error; there are no partial results.
type CatalogSource interface {
	FetchCurrencies(ctx context.Context) (domain.Catalog, error)
}

// Committer persists the chosen currency symbol.
type Committer interface {
	Commit(ctx context.Context, symbol string) error
}

// DefaultStore is the local key-value record of the committed symbol.
type DefaultStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, symbol string) error
}

// Navigator receives the completion signal once a selection is committed.
type Navigator interface {
	Done()
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) Done() { f() }

// Localizer resolves display strings by key.
type Localizer interface {
	Text(key string) string
	Format(key string, args ...any) string
}

// IconResolver maps a currency symbol to an icon identifier.
type IconResolver interface {
	IconName(symbol string) string
}

// Recorder receives operational measurements from the screen.
type Recorder interface {
	CatalogLoaded(elapsed time.Duration, err error)
	CommitFinished(elapsed time.Duration, err error)
	StaleResultDiscarded(kind string)
}

// Localization keys used by the screen.
const (
	KeyTitle                 = "Local Currency"
	KeyLoading               = "Loading..."
	KeySearchPlaceholder     = "Search"
	KeyEmptyStateTitle       = "alert.noSearchResultsTitle"
	KeyEmptyStateSubtitle    = "alert.noSearchResultsSubtitle"
	KeyEmptyCatalogSubtitle  = "alert.noCurrenciesSubtitle"
	KeyLoadFailedTitle       = "alert.problemTitle"
	KeyLoadFailedSubtitle    = "alert.problemSubtitle"
	KeyRetry                 = "action.retry"
	KeyGenericFailureMessage = "alert.genericFailure"
)

// Labels are the static display strings of the screen, resolved once.
type Labels struct {
	Title              string `json:"title"`
	Loading            string `json:"loading"`
	SearchPlaceholder  string `json:"search_placeholder"`
	EmptyStateTitle    string `json:"empty_state_title"`
	LoadFailedTitle    string `json:"load_failed_title"`
	LoadFailedSubtitle string `json:"load_failed_subtitle"`
	Retry              string `json:"retry"`
}

func resolveLabels(loc Localizer) Labels {
	return Labels{
		Title:              loc.Text(KeyTitle),
		Loading:            loc.Text(KeyLoading),
		SearchPlaceholder:  loc.Text(KeySearchPlaceholder),
		EmptyStateTitle:    loc.Text(KeyEmptyStateTitle),
		LoadFailedTitle:    loc.Text(KeyLoadFailedTitle),
		LoadFailedSubtitle: loc.Text(KeyLoadFailedSubtitle),
		Retry:              loc.Text(KeyRetry),
	}
}

// keyLocalizer echoes keys back; used when no Localizer is wired.
type keyLocalizer struct{}

func (keyLocalizer) Text(key string) string { return key }

func (keyLocalizer) Format(key string, args ...any) string {
	return key + " " + fmt.Sprint(args...)
}

type plainIcons struct{}

func (plainIcons) IconName(symbol string) string { return symbol }

type nopRecorder struct{}

func (nopRecorder) CatalogLoaded(time.Duration, error)  {}
func (nopRecorder) CommitFinished(time.Duration, error) {}
func (nopRecorder) StaleResultDiscarded(string)         {}
