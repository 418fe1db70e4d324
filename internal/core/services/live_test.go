package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// fakeClock fires scheduled funcs when the test advances time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	rest := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.stopped = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// searchCall is one blocked call into scriptedSearch.
type searchCall struct {
	ctx   context.Context
	query domain.SearchQuery
	reply chan searchReply
}

type searchReply struct {
	results []domain.SearchResult
	err     error
}

// scriptedSearch hands every call to the test and blocks until it replies.
type scriptedSearch struct {
	calls chan *searchCall

	mu sync.Mutex
	fp domain.Fingerprint
}

func newScriptedSearch() *scriptedSearch {
	return &scriptedSearch{calls: make(chan *searchCall, 16)}
}

func (s *scriptedSearch) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	call := &searchCall{ctx: ctx, query: q, reply: make(chan searchReply, 1)}
	s.calls <- call
	r := <-call.reply
	return r.results, r.err
}

func (s *scriptedSearch) ModeAvailable(domain.SearchMode) error { return nil }
func (s *scriptedSearch) AvailableModes() []domain.SearchMode  { return domain.AllSearchModes() }

func (s *scriptedSearch) Fingerprint() domain.Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fp
}

func (s *scriptedSearch) setFingerprint(fp domain.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fp = fp
}

func (s *scriptedSearch) next(t *testing.T) *searchCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a search call")
		return nil
	}
}

func (s *scriptedSearch) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-s.calls:
		t.Fatalf("unexpected search for %q", c.query.Text)
	case <-time.After(30 * time.Millisecond):
	}
}

func resultsFor(text string) []domain.SearchResult {
	return []domain.SearchResult{{ConversationID: text, Snippet: text, Score: 1, Rank: 1}}
}

func nextUpdate(t *testing.T, l *LiveSearch) domain.LiveUpdate {
	t.Helper()
	select {
	case u := <-l.Updates():
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("expected an update")
		return domain.LiveUpdate{}
	}
}

func assertNoUpdate(t *testing.T, l *LiveSearch) {
	t.Helper()
	select {
	case u := <-l.Updates():
		t.Fatalf("unexpected update seq=%d query=%q", u.Seq, u.Query)
	case <-time.After(30 * time.Millisecond):
	}
}

func waitState(t *testing.T, l *LiveSearch, want domain.LiveState) {
	t.Helper()
	require.Eventually(t, func() bool { return l.State() == want }, 2*time.Second, time.Millisecond)
}

func newTestLive(search *scriptedSearch, opts LiveOptions) (*LiveSearch, *fakeClock) {
	clock := &fakeClock{}
	l := NewLiveSearch(search, opts)
	l.after = clock.AfterFunc
	return l, clock
}

func TestNewLiveSearch_Defaults(t *testing.T) {
	l := NewLiveSearch(newScriptedSearch(), LiveOptions{})
	defer l.Close()
	assert.Equal(t, domain.DefaultDebounce, l.opts.Debounce)
	assert.Equal(t, domain.SearchModeSmart, l.Mode())
	assert.Equal(t, domain.LiveIdle, l.State())
}

func TestLiveSearch_DebounceCollapsesKeystrokes(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{Limit: 5})
	defer l.Close()

	l.Input("a")
	assert.Equal(t, domain.LivePending, l.State())
	clock.Advance(50 * time.Millisecond)
	l.Input("ab")
	clock.Advance(149 * time.Millisecond)
	search.assertNoCall(t)

	clock.Advance(time.Millisecond)
	call := search.next(t)
	assert.Equal(t, "ab", call.query.Text)
	assert.Equal(t, 5, call.query.Limit)
	assert.Equal(t, domain.SearchModeSmart, call.query.Mode)
	assert.Equal(t, domain.LiveSearching, l.State())

	call.reply <- searchReply{results: resultsFor("ab")}
	u := nextUpdate(t, l)
	assert.Equal(t, uint64(2), u.Seq)
	assert.Equal(t, "ab", u.Query)
	assert.Equal(t, resultsFor("ab"), u.Results)
	waitState(t, l, domain.LivePresenting)

	search.assertNoCall(t)
}

func TestLiveSearch_DiscardsSupersededResult(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	l.Input("ab")
	clock.Advance(domain.DefaultDebounce)
	first := search.next(t)

	l.Input("abc")
	assert.Equal(t, domain.LivePending, l.State())
	// The stale search runs to completion instead of being aborted.
	assert.NoError(t, first.ctx.Err())
	clock.Advance(domain.DefaultDebounce)
	// The debounce fired while a search is running; nothing new dispatches yet.
	search.assertNoCall(t)

	first.reply <- searchReply{results: resultsFor("ab")}
	second := search.next(t)
	assert.Equal(t, "abc", second.query.Text)
	assertNoUpdate(t, l)

	second.reply <- searchReply{results: resultsFor("abc")}
	u := nextUpdate(t, l)
	assert.Equal(t, uint64(2), u.Seq)
	assert.Equal(t, "abc", u.Query)
	assert.Equal(t, resultsFor("abc"), u.Results)
}

func TestLiveSearch_StaleResultBeforeDebounceFires(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	l.Input("k")
	clock.Advance(domain.DefaultDebounce)
	first := search.next(t)

	l.Input("ku")
	first.reply <- searchReply{results: resultsFor("k")}
	assertNoUpdate(t, l)
	waitState(t, l, domain.LivePending)
	search.assertNoCall(t)

	clock.Advance(domain.DefaultDebounce)
	second := search.next(t)
	second.reply <- searchReply{results: resultsFor("ku")}
	u := nextUpdate(t, l)
	assert.Equal(t, "ku", u.Query)
}

func TestLiveSearch_SequenceNeverDecreases(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	var last uint64
	for _, text := range []string{"a", "ab", "abc", "abcd"} {
		l.Input(text)
		clock.Advance(domain.DefaultDebounce)
		call := search.next(t)
		call.reply <- searchReply{results: resultsFor(text)}
		u := nextUpdate(t, l)
		assert.GreaterOrEqual(t, u.Seq, last)
		assert.Equal(t, text, u.Query)
		last = u.Seq
	}
}

func TestLiveSearch_InvalidPatternIsInline(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{Mode: domain.SearchModeRegex})
	defer l.Close()

	l.Input("(")
	clock.Advance(domain.DefaultDebounce)
	call := search.next(t)
	assert.Equal(t, domain.SearchModeRegex, call.query.Mode)
	call.reply <- searchReply{err: domain.ErrInvalidPattern}

	u := nextUpdate(t, l)
	assert.True(t, errors.Is(u.Err, domain.ErrInvalidPattern))
	assert.Empty(t, u.Results)
	waitState(t, l, domain.LivePresenting)

	// Input continues after the error.
	l.Input("(a)")
	clock.Advance(domain.DefaultDebounce)
	call = search.next(t)
	call.reply <- searchReply{results: resultsFor("(a)")}
	u = nextUpdate(t, l)
	assert.NoError(t, u.Err)
	assert.Equal(t, "(a)", u.Query)
}

func TestLiveSearch_ClearReturnsToIdle(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	l.Input("abc")
	clock.Advance(domain.DefaultDebounce)
	call := search.next(t)

	l.Input("")
	assert.Equal(t, domain.LiveIdle, l.State())
	u := nextUpdate(t, l)
	assert.Equal(t, "", u.Query)
	assert.NotNil(t, u.Results)
	assert.Empty(t, u.Results)

	// The superseded search completes and is dropped.
	call.reply <- searchReply{results: resultsFor("abc")}
	assertNoUpdate(t, l)
	assert.Equal(t, domain.LiveIdle, l.State())

	clock.Advance(time.Second)
	search.assertNoCall(t)
}

func TestLiveSearch_StateTransitions(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	var mu sync.Mutex
	var seen []domain.LiveState
	l.onChange = func(_, to domain.LiveState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, to)
	}

	l.Input("a")
	clock.Advance(domain.DefaultDebounce)
	first := search.next(t)
	l.Input("ab")
	first.reply <- searchReply{}
	clock.Advance(domain.DefaultDebounce)
	second := search.next(t)
	second.reply <- searchReply{}
	nextUpdate(t, l)
	waitState(t, l, domain.LivePresenting)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.LiveState{
		domain.LivePending,
		domain.LiveSearching,
		domain.LiveCancelled,
		domain.LivePending,
		domain.LiveSearching,
		domain.LivePresenting,
	}, seen)
}

func TestLiveSearch_SetModeRerunsImmediately(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	l.Input("auth")
	clock.Advance(domain.DefaultDebounce)
	call := search.next(t)
	call.reply <- searchReply{results: resultsFor("smart")}
	nextUpdate(t, l)

	l.SetMode(domain.SearchModeExact)
	assert.Equal(t, domain.SearchModeExact, l.Mode())
	call = search.next(t)
	assert.Equal(t, domain.SearchModeExact, call.query.Mode)
	assert.Equal(t, "auth", call.query.Text)
	call.reply <- searchReply{results: resultsFor("exact")}
	u := nextUpdate(t, l)
	assert.Equal(t, domain.SearchModeExact, u.Mode)

	// Same mode is a no-op.
	l.SetMode(domain.SearchModeExact)
	search.assertNoCall(t)
}

func TestLiveSearch_PrefixCache(t *testing.T) {
	search := newScriptedSearch()
	search.setFingerprint(domain.Fingerprint{Count: 1})
	l, clock := newTestLive(search, LiveOptions{})
	defer l.Close()

	run := func(text string) domain.LiveUpdate {
		l.Input(text)
		clock.Advance(domain.DefaultDebounce)
		call := search.next(t)
		call.reply <- searchReply{results: resultsFor(text)}
		return nextUpdate(t, l)
	}

	assert.False(t, run("abc").Cached)
	assert.False(t, run("ab").Cached)

	// "abc" extends "ab" and survived; back to it is served from cache.
	l.Input("abc")
	clock.Advance(domain.DefaultDebounce)
	search.assertNoCall(t)
	u := nextUpdate(t, l)
	assert.True(t, u.Cached)
	assert.Equal(t, resultsFor("abc"), u.Results)

	// Typing "abc" dropped "ab", which does not extend it.
	assert.False(t, run("ab").Cached)

	// Diverging drops both.
	assert.False(t, run("x").Cached)
	assert.False(t, run("abc").Cached)

	// A corpus change invalidates everything.
	search.setFingerprint(domain.Fingerprint{Count: 2})
	assert.False(t, run("ab").Cached)
}

func TestLiveSearch_Close(t *testing.T) {
	search := newScriptedSearch()
	l, clock := newTestLive(search, LiveOptions{})

	l.Input("abc")
	clock.Advance(domain.DefaultDebounce)
	call := search.next(t)

	l.Close()
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)
	call.reply <- searchReply{results: resultsFor("abc")}

	_, open := <-l.Updates()
	assert.False(t, open)

	// Calls after Close are ignored.
	l.Input("more")
	l.SetMode(domain.SearchModeRegex)
	l.Close()
	clock.Advance(time.Second)
	search.assertNoCall(t)
}
