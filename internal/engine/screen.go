package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"local_currency/internal/domain"
	"local_currency/internal/event"
)

const defaultInboxSize = 64

// Config holds the per-activation settings of a Screen.
type Config struct {
	// InitialSymbol is the committed selection when the screen opens.
	InitialSymbol string
	InboxSize     int
	// DumpPath receives a JSON state dump if the loop panics. Empty disables it.
	DumpPath string
	// OnStateUpdate is called from the loop goroutine with every published snapshot.
	OnStateUpdate func(Snapshot)
}

// Dependencies are the collaborators of a Screen. Source and Committer are
// required; the rest fall back to no-op implementations.
type Dependencies struct {
	Source    CatalogSource
	Committer Committer
	Defaults  DefaultStore
	Navigator Navigator
	Localizer Localizer
	Icons     IconResolver
	Metrics   Recorder
}

// Screen is the single-threaded state machine behind the local currency list.
// All state below the inbox is owned by the Run goroutine; renderers only
// enqueue intents and read published snapshots.
type Screen struct {
	inbox   chan event.Event
	stopped chan struct{}
	nextSeq atomic.Uint64

	source    CatalogSource
	committer Committer
	defaults  DefaultStore
	navigator Navigator
	loc       Localizer
	icons     IconResolver
	metrics   Recorder
	labels    Labels
	dumpPath  string

	// Loop-owned state
	runCtx        context.Context
	phase         Phase
	all           []domain.Currency
	visible       []domain.Currency
	query         string
	selected      string
	confirmed     string
	pending       string
	banner        *ErrorBanner
	emptySubtitle string
	completed     bool
	loadGen       uint64
	commitGen     uint64

	// Boundary: used to notify renderers of state changes
	onStateUpdate func(Snapshot)

	version uint64

	mu      sync.RWMutex // Used only for external reads
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewScreen creates a screen in the Loading phase. Nothing is fetched until
// Run is started and Activate is called.
func NewScreen(cfg Config, deps Dependencies) *Screen {
	if deps.Source == nil || deps.Committer == nil {
		panic("engine: catalog source and committer are required")
	}
	if deps.Localizer == nil {
		deps.Localizer = keyLocalizer{}
	}
	if deps.Icons == nil {
		deps.Icons = plainIcons{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	size := cfg.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}

	s := &Screen{
		inbox:         make(chan event.Event, size),
		stopped:       make(chan struct{}),
		source:        deps.Source,
		committer:     deps.Committer,
		defaults:      deps.Defaults,
		navigator:     deps.Navigator,
		loc:           deps.Localizer,
		icons:         deps.Icons,
		metrics:       deps.Metrics,
		labels:        resolveLabels(deps.Localizer),
		dumpPath:      cfg.DumpPath,
		phase:         PhaseLoading,
		selected:      cfg.InitialSymbol,
		confirmed:     cfg.InitialSymbol,
		onStateUpdate: cfg.OnStateUpdate,
		subs:          make(map[int]chan Snapshot),
	}
	s.emptySubtitle = s.subtitleFor("")
	s.current = s.buildSnapshot()
	return s
}

// Activate enters Loading and fetches the catalog.
func (s *Screen) Activate() { s.post(&event.ActivateEvent{}) }

// Retry reloads the catalog after a failure or on explicit request.
func (s *Screen) Retry() { s.post(&event.RetryEvent{}) }

// UpdateQuery replaces the search text and refilters the list.
func (s *Screen) UpdateQuery(text string) { s.post(&event.QueryUpdateEvent{Query: text}) }

// SelectCurrency starts committing symbol as the new local currency.
func (s *Screen) SelectCurrency(symbol string) { s.post(&event.SelectEvent{Symbol: symbol}) }

// DismissError hides the error banner.
func (s *Screen) DismissError() { s.post(&event.DismissErrorEvent{}) }

// Snapshot returns the latest published state (external read).
func (s *Screen) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel that always holds the newest snapshot a slow
// reader has not consumed yet; intermediate snapshots may be skipped.
// The current snapshot is delivered immediately.
func (s *Screen) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Stopped is closed when Run returns.
func (s *Screen) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *Screen) post(ev event.Event) {
	setSeq(ev, s.nextSeq.Add(1))
	select {
	case s.inbox <- ev:
	case <-s.stopped:
		slog.Debug("Screen stopped, intent dropped", slog.String("type", ev.GetType().String()))
	}
}

func setSeq(ev event.Event, seq uint64) {
	switch e := ev.(type) {
	case *event.ActivateEvent:
		e.Seq = seq
	case *event.RetryEvent:
		e.Seq = seq
	case *event.QueryUpdateEvent:
		e.Seq = seq
	case *event.SelectEvent:
		e.Seq = seq
	case *event.DismissErrorEvent:
		e.Seq = seq
	case *event.CatalogResultEvent:
		e.Seq = seq
	case *event.CommitResultEvent:
		e.Seq = seq
	}
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// Collaborator calls started by the loop are bound to ctx.
func (s *Screen) Run(ctx context.Context) {
	slog.Info("Screen loop started", slog.String("selected", s.confirmed))
	s.runCtx = ctx

	defer close(s.stopped)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			if s.dumpPath != "" {
				s.DumpState(s.dumpPath)
			}
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Screen loop stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Screen) processEvent(ev event.Event) {
	var changed bool

	switch e := ev.(type) {
	case *event.ActivateEvent:
		changed = s.handleActivate()
	case *event.RetryEvent:
		changed = s.handleRetry()
	case *event.QueryUpdateEvent:
		changed = s.handleQuery(e.Query)
	case *event.SelectEvent:
		changed = s.handleSelect(e.Symbol)
	case *event.DismissErrorEvent:
		changed = s.handleDismiss()
	case *event.CatalogResultEvent:
		changed = s.handleCatalogResult(e)
	case *event.CommitResultEvent:
		changed = s.handleCommitResult(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	slog.Debug("Screen event processed",
		slog.Uint64("seq", ev.GetSeq()),
		slog.String("type", ev.GetType().String()),
		slog.String("phase", s.phase.String()),
		slog.Bool("changed", changed))

	if changed {
		s.publish()
	}
}

func (s *Screen) handleActivate() bool {
	if s.completed {
		return false
	}
	s.emptySubtitle = s.subtitleFor(s.query)
	s.startLoad()
	return true
}

func (s *Screen) handleRetry() bool {
	if s.completed || s.phase == PhaseLoading {
		return false
	}
	s.startLoad()
	return true
}

// startLoad clears the list and banner and fetches a fresh catalog.
// A newer load supersedes any load still in flight.
func (s *Screen) startLoad() {
	s.phase = PhaseLoading
	s.all = nil
	s.visible = nil
	s.banner = nil
	s.loadGen++
	gen := s.loadGen

	ctx := s.runCtx
	go func() {
		started := time.Now()
		catalog, err := s.source.FetchCurrencies(ctx)
		s.metrics.CatalogLoaded(time.Since(started), err)
		s.postResult(ctx, &event.CatalogResultEvent{Gen: gen, Catalog: catalog, Err: err})
	}()
}

func (s *Screen) handleCatalogResult(e *event.CatalogResultEvent) bool {
	if e.Gen != s.loadGen {
		slog.Info("Stale catalog result discarded", slog.Uint64("gen", e.Gen), slog.Uint64("current", s.loadGen))
		s.metrics.StaleResultDiscarded("catalog")
		return false
	}

	if e.Err != nil {
		slog.Warn("Catalog load failed", slog.Any("error", e.Err))
		s.phase = PhaseLoadFailed
		s.banner = &ErrorBanner{Message: s.messageFor(e.Err), RetryOffered: true}
		return true
	}

	s.all = domain.FiatOnly(e.Catalog.Currencies)
	s.visible = domain.FilterByQuery(s.all, s.query)
	s.banner = nil
	s.phase = PhaseReady
	slog.Info("Catalog loaded",
		slog.Int("received", len(e.Catalog.Currencies)),
		slog.Int("fiat", len(s.all)))
	return true
}

func (s *Screen) handleQuery(text string) bool {
	s.query = text
	s.visible = domain.FilterByQuery(s.all, text)
	s.emptySubtitle = s.subtitleFor(text)
	return true
}

func (s *Screen) handleSelect(symbol string) bool {
	if s.completed || symbol == "" {
		return false
	}
	if symbol == s.selected || symbol == s.pending {
		return false
	}
	// Only a listed fiat row can be chosen.
	if s.phase != PhaseReady || !s.offers(symbol) {
		slog.Warn("Selection rejected",
			slog.String("symbol", symbol),
			slog.String("phase", s.phase.String()))
		return false
	}

	s.commitGen++
	gen := s.commitGen
	previous := s.confirmed

	s.pending = symbol
	s.selected = ""
	s.banner = nil

	ctx := s.runCtx
	go func() {
		started := time.Now()
		err := s.committer.Commit(ctx, symbol)
		s.metrics.CommitFinished(time.Since(started), err)
		s.postResult(ctx, &event.CommitResultEvent{Gen: gen, Symbol: symbol, Previous: previous, Err: err})
	}()

	slog.Info("Commit started", slog.String("symbol", symbol), slog.Uint64("gen", gen))
	return true
}

func (s *Screen) offers(symbol string) bool {
	for _, c := range s.all {
		if c.Symbol == symbol {
			return true
		}
	}
	return false
}

func (s *Screen) handleCommitResult(e *event.CommitResultEvent) bool {
	if e.Gen != s.commitGen {
		slog.Info("Stale commit result discarded",
			slog.String("symbol", e.Symbol),
			slog.Uint64("gen", e.Gen),
			slog.Uint64("current", s.commitGen))
		s.metrics.StaleResultDiscarded("commit")
		return false
	}

	s.pending = ""

	if e.Err != nil {
		slog.Warn("Commit failed", slog.String("symbol", e.Symbol), slog.Any("error", e.Err))
		s.selected = e.Previous
		s.banner = &ErrorBanner{Message: s.messageFor(e.Err), RetryOffered: false}
		return true
	}

	s.selected = e.Symbol
	s.confirmed = e.Symbol
	s.banner = nil
	s.completed = true
	slog.Info("Commit succeeded", slog.String("symbol", e.Symbol))

	// Publish before the navigator runs so renderers observe the final state.
	s.publish()

	if s.defaults != nil {
		if err := s.defaults.Set(s.runCtx, e.Symbol); err != nil {
			slog.Warn("Failed to store default currency", slog.String("symbol", e.Symbol), slog.Any("error", err))
		}
	}
	if s.navigator != nil {
		s.navigator.Done()
	}
	return false
}

func (s *Screen) handleDismiss() bool {
	if s.banner == nil {
		return false
	}
	s.banner = nil
	return true
}

// postResult hands a collaborator outcome back to the loop.
func (s *Screen) postResult(ctx context.Context, ev event.Event) {
	setSeq(ev, s.nextSeq.Add(1))
	select {
	case s.inbox <- ev:
	case <-ctx.Done():
	case <-s.stopped:
	}
}

func (s *Screen) subtitleFor(query string) string {
	if query == "" {
		return s.loc.Text(KeyEmptyCatalogSubtitle)
	}
	return s.loc.Format(KeyEmptyStateSubtitle, query)
}

func (s *Screen) messageFor(err error) string {
	if msg := domain.UserMessage(err); msg != "" {
		return msg
	}
	return s.loc.Text(KeyGenericFailureMessage)
}

func (s *Screen) buildSnapshot() Snapshot {
	visible := make([]domain.Currency, len(s.visible))
	copy(visible, s.visible)

	var banner *ErrorBanner
	if s.banner != nil {
		b := *s.banner
		banner = &b
	}

	return Snapshot{
		Version:            s.version,
		Phase:              s.phase,
		VisibleCurrencies:  visible,
		Rows:               buildRows(visible, s.selected, s.pending, s.icons),
		SelectedSymbol:     s.selected,
		PendingSymbol:      s.pending,
		Error:              banner,
		SearchQuery:        s.query,
		EmptyStateSubtitle: s.emptySubtitle,
		Labels:             s.labels,
		Completed:          s.completed,
	}
}

func (s *Screen) publish() {
	s.version++
	snap := s.buildSnapshot()

	s.mu.Lock()
	s.current = snap
	for _, ch := range s.subs {
		// Keep only the newest snapshot for slow readers.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	s.mu.Unlock()

	if s.onStateUpdate != nil {
		s.onStateUpdate(snap)
	}
}

// DumpState writes the loop-owned state to a file (for post-mortem).
func (s *Screen) DumpState(filename string) {
	slog.Info("Dumping screen state...", slog.String("file", filename))

	data := struct {
		Phase     string            `json:"phase"`
		All       []domain.Currency `json:"all_currencies"`
		Query     string            `json:"query"`
		Selected  string            `json:"selected"`
		Confirmed string            `json:"confirmed"`
		Pending   string            `json:"pending"`
		LoadGen   uint64            `json:"load_gen"`
		CommitGen uint64            `json:"commit_gen"`
	}{
		Phase:     s.phase.String(),
		All:       s.all,
		Query:     s.query,
		Selected:  s.selected,
		Confirmed: s.confirmed,
		Pending:   s.pending,
		LoadGen:   s.loadGen,
		CommitGen: s.commitGen,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
