package event

import (
	"local_currency/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvActivate Type = iota + 1
	EvRetry
	EvQueryUpdate
	EvSelect
	EvDismissError
	EvCatalogResult
	EvCommitResult
)

func (t Type) String() string {
	switch t {
	case EvActivate:
		return "ACTIVATE"
	case EvRetry:
		return "RETRY"
	case EvQueryUpdate:
		return "QUERY_UPDATE"
	case EvSelect:
		return "SELECT"
	case EvDismissError:
		return "DISMISS_ERROR"
	case EvCatalogResult:
		return "CATALOG_RESULT"
	case EvCommitResult:
		return "COMMIT_RESULT"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface for all screen sequencer events.
type Event interface {
	GetSeq() uint64
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }

// ActivateEvent is raised when the screen becomes visible.
type ActivateEvent struct {
	BaseEvent
}

func (e ActivateEvent) GetType() Type { return EvActivate }

// RetryEvent asks for a catalog reload.
type RetryEvent struct {
	BaseEvent
}

func (e RetryEvent) GetType() Type { return EvRetry }

// QueryUpdateEvent carries the new search text.
type QueryUpdateEvent struct {
	BaseEvent
	Query string `json:"query"`
}

func (e QueryUpdateEvent) GetType() Type { return EvQueryUpdate }

// SelectEvent is a tap on a currency row.
type SelectEvent struct {
	BaseEvent
	Symbol string `json:"symbol"`
}

func (e SelectEvent) GetType() Type { return EvSelect }

// DismissErrorEvent closes the error banner.
type DismissErrorEvent struct {
	BaseEvent
}

func (e DismissErrorEvent) GetType() Type { return EvDismissError }

// CatalogResultEvent is posted by the catalog load goroutine.
// Gen is the load generation that issued the fetch.
type CatalogResultEvent struct {
	BaseEvent
	Gen     uint64         `json:"gen"`
	Catalog domain.Catalog `json:"catalog"`
	Err     error          `json:"-"`
}

func (e CatalogResultEvent) GetType() Type { return EvCatalogResult }

// CommitResultEvent is posted by the commit goroutine.
// Previous is the confirmed symbol captured when the commit started.
type CommitResultEvent struct {
	BaseEvent
	Gen      uint64 `json:"gen"`
	Symbol   string `json:"symbol"`
	Previous string `json:"previous"`
	Err      error  `json:"-"`
}

func (e CommitResultEvent) GetType() Type { return EvCommitResult }
