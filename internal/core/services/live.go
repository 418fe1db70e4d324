package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Ensure LiveSearch implements the interface.
var _ driving.LiveSearch = (*LiveSearch)(nil)

// Fingerprinter is implemented by search services that can report the
// corpus state their results depend on. Live sessions use it to invalidate
// their results cache.
type Fingerprinter interface {
	Fingerprint() domain.Fingerprint
}

// LiveOptions configures a live search session.
type LiveOptions struct {
	// Mode is the initial search mode. Empty uses smart.
	Mode domain.SearchMode

	// Debounce is the quiet period before dispatch. Zero uses domain.DefaultDebounce.
	Debounce time.Duration

	// Limit caps each result list. Zero is unlimited.
	Limit int

	// Scope applies to every query of the session.
	Scope domain.Scope

	// CaseSensitive applies to exact and regex modes.
	CaseSensitive bool
}

// afterFunc schedules f after d and returns a func that cancels it.
type afterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type cacheKey struct {
	mode  domain.SearchMode
	query string
}

// LiveSearch turns keystrokes into debounced searches. Every Input bumps the
// sequence number; a result is delivered only if it belongs to the latest
// sequence, so superseded searches are dropped on arrival. At most one
// search runs at a time.
type LiveSearch struct {
	search   driving.SearchService
	opts     LiveOptions
	after    afterFunc
	onChange func(from, to domain.LiveState)

	mu            sync.Mutex
	state         domain.LiveState
	mode          domain.SearchMode
	query         string
	seq           uint64
	lastDelivered uint64
	timerGen      uint64
	stopTimer     func() bool
	inFlight      bool
	cancelFlight  context.CancelFunc
	pending       bool
	cache         map[cacheKey][]domain.SearchResult
	cacheFP       domain.Fingerprint
	closed        bool
	updates       chan domain.LiveUpdate
}

// NewLiveSearch creates a live search session over search.
func NewLiveSearch(search driving.SearchService, opts LiveOptions) *LiveSearch {
	if opts.Debounce <= 0 {
		opts.Debounce = domain.DefaultDebounce
	}
	if opts.Mode == "" {
		opts.Mode = domain.SearchModeSmart
	}
	return &LiveSearch{
		search:  search,
		opts:    opts,
		after:   realAfterFunc,
		mode:    opts.Mode,
		cache:   make(map[cacheKey][]domain.SearchResult),
		updates: make(chan domain.LiveUpdate, 1),
	}
}

// Updates delivers results. Only the newest undelivered update is buffered;
// a slow reader skips intermediate ones.
func (l *LiveSearch) Updates() <-chan domain.LiveUpdate {
	return l.updates
}

// State returns the current session state.
func (l *LiveSearch) State() domain.LiveState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Mode returns the active mode.
func (l *LiveSearch) Mode() domain.SearchMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Input records the full current query text and restarts the debounce timer.
func (l *LiveSearch) Input(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.seq++
	l.query = text
	l.supersede()
	l.evict(text)

	if strings.TrimSpace(text) == "" {
		l.pending = false
		l.setState(domain.LiveIdle)
		l.deliver(domain.LiveUpdate{Seq: l.seq, Query: text, Mode: l.mode, Results: []domain.SearchResult{}})
		return
	}

	l.setState(domain.LivePending)
	l.timerGen++
	gen := l.timerGen
	l.stopTimer = l.after(l.opts.Debounce, func() { l.fire(gen) })
}

// SetMode switches mode and re-runs the current query without debounce.
func (l *LiveSearch) SetMode(mode domain.SearchMode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || mode == l.mode {
		return
	}
	l.mode = mode
	l.seq++
	l.supersede()
	if strings.TrimSpace(l.query) == "" {
		return
	}
	if l.inFlight {
		l.pending = true
		l.setState(domain.LivePending)
		return
	}
	l.dispatch()
}

// Close stops the session and closes Updates.
func (l *LiveSearch) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.supersede()
	if l.cancelFlight != nil {
		l.cancelFlight()
	}
	close(l.updates)
}

// supersede stops the debounce timer. An in-flight search keeps running;
// its result is dropped on arrival by the sequence check in run.
// Callers hold mu.
func (l *LiveSearch) supersede() {
	if l.stopTimer != nil {
		l.stopTimer()
		l.stopTimer = nil
	}
	l.timerGen++
	if l.inFlight {
		l.setState(domain.LiveCancelled)
	}
}

func (l *LiveSearch) fire(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.timerGen {
		return
	}
	l.stopTimer = nil
	if l.inFlight {
		l.pending = true
		return
	}
	l.dispatch()
}

// dispatch starts a search for the current query. Callers hold mu and
// guarantee no search is in flight.
func (l *LiveSearch) dispatch() {
	seq, text, mode := l.seq, l.query, l.mode

	if results, ok := l.cached(mode, text); ok {
		logger.Debug("Live search seq=%d served from cache", seq)
		l.setState(domain.LivePresenting)
		l.deliver(domain.LiveUpdate{Seq: seq, Query: text, Mode: mode, Results: results, Cached: true})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.inFlight = true
	l.cancelFlight = cancel
	l.setState(domain.LiveSearching)

	q := domain.SearchQuery{
		Text:          text,
		Mode:          mode,
		Scope:         l.opts.Scope,
		Limit:         l.opts.Limit,
		CaseSensitive: l.opts.CaseSensitive,
	}
	go l.run(ctx, seq, q)
}

func (l *LiveSearch) run(ctx context.Context, seq uint64, q domain.SearchQuery) {
	results, err := l.search.Search(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	if l.cancelFlight != nil {
		l.cancelFlight()
		l.cancelFlight = nil
	}
	if l.closed {
		return
	}

	if seq == l.seq && seq >= l.lastDelivered {
		if err == nil {
			l.store(q.Mode, q.Text, results)
		}
		l.setState(domain.LivePresenting)
		l.deliver(domain.LiveUpdate{Seq: seq, Query: q.Text, Mode: q.Mode, Results: results, Err: err})
	} else {
		logger.Debug("Live search seq=%d discarded (latest=%d)", seq, l.seq)
	}

	if l.pending {
		l.pending = false
		l.dispatch()
	}
}

// deliver publishes u, replacing any update the reader has not taken yet.
// Callers hold mu.
func (l *LiveSearch) deliver(u domain.LiveUpdate) {
	if u.Seq < l.lastDelivered {
		return
	}
	select {
	case <-l.updates:
	default:
	}
	select {
	case l.updates <- u:
		l.lastDelivered = u.Seq
	default:
	}
}

func (l *LiveSearch) setState(s domain.LiveState) {
	if s == l.state {
		return
	}
	from := l.state
	l.state = s
	if l.onChange != nil {
		l.onChange(from, s)
	}
}

// cached looks up results for an identical earlier query. The cache is
// dropped when the corpus fingerprint moves.
func (l *LiveSearch) cached(mode domain.SearchMode, text string) ([]domain.SearchResult, bool) {
	fp, ok := l.search.(Fingerprinter)
	if !ok {
		return nil, false
	}
	if current := fp.Fingerprint(); !current.Equal(l.cacheFP) {
		l.cache = make(map[cacheKey][]domain.SearchResult)
		l.cacheFP = current
		return nil, false
	}
	results, ok := l.cache[cacheKey{mode: mode, query: text}]
	return results, ok
}

func (l *LiveSearch) store(mode domain.SearchMode, text string, results []domain.SearchResult) {
	if _, ok := l.search.(Fingerprinter); !ok {
		return
	}
	l.cache[cacheKey{mode: mode, query: text}] = results
}

// evict keeps only cached queries that extend text.
func (l *LiveSearch) evict(text string) {
	for k := range l.cache {
		if !strings.HasPrefix(k.query, text) {
			delete(l.cache, k)
		}
	}
}
