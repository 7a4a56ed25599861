// Package directory owns the paged user listing: an ordered, duplicate-free
// accumulation of directory pages with an explicit resume cursor.
package directory

import (
	"context"
	"sync"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
	"github.com/dpetukhov/rosterhub/internal/logging"
)

// DefaultPageSize is the directory page size used when none is configured.
const DefaultPageSize = 10

// State is an immutable snapshot of the listing.
type State struct {
	Items          []backend.UserRecord
	Exhausted      bool
	LoadingInitial bool
	LoadingMore    bool
}

// HasMore reports whether another page may exist.
func (s State) HasMore() bool { return !s.Exhausted }

// Paginator accumulates directory pages fetched from the document backend.
// Items keep fetch order (descending server CreatedAt); pages resume
// strictly after the cursor, so the listing is duplicate-free by
// construction.
//
// Fetch errors intentionally leave no trace in the state: the listing
// simply does not grow. They are logged, and the loading flag is cleared so
// the caller may retry.
type Paginator struct {
	docs     backend.Documents
	log      logging.Logger
	pageSize int

	mu             sync.Mutex
	items          []backend.UserRecord
	cursor         *backend.Cursor
	exhausted      bool
	loadingInitial bool
	loadingMore    bool
	observers      map[int]func(State)
	nextObs        int
}

// NewPaginator creates an empty listing over docs. pageSize values below 1
// fall back to DefaultPageSize.
func NewPaginator(docs backend.Documents, log logging.Logger, pageSize int) *Paginator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		docs:      docs,
		log:       log,
		pageSize:  pageSize,
		observers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the listing.
func (p *Paginator) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every change
// and returns an unsubscribe func.
func (p *Paginator) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// FetchInitial discards any accumulated state and loads the first page.
// A fetch already in flight is left alone.
func (p *Paginator) FetchInitial(ctx context.Context) {
	p.mu.Lock()
	if p.loadingInitial {
		p.mu.Unlock()
		return
	}
	p.items = nil
	p.cursor = nil
	p.exhausted = false
	p.loadingInitial = true
	snap := p.snapshotLocked()
	obs := p.observersLocked()
	p.mu.Unlock()
	notify(snap, obs)

	page, err := p.docs.QueryUsersPage(ctx, nil, p.pageSize)

	p.mu.Lock()
	p.loadingInitial = false
	if err != nil {
		p.log.Error(ctx, "directory initial fetch", "error", err)
	} else {
		p.appendPageLocked(page)
	}
	snap = p.snapshotLocked()
	obs = p.observersLocked()
	p.mu.Unlock()
	notify(snap, obs)
}

// FetchMore loads the page after the current cursor. It is a no-op while a
// fetch-more is in flight, once the listing is exhausted, or before any
// initial page has been loaded.
func (p *Paginator) FetchMore(ctx context.Context) {
	p.mu.Lock()
	if p.loadingMore || p.exhausted || p.cursor == nil {
		p.mu.Unlock()
		return
	}
	after := *p.cursor
	p.loadingMore = true
	snap := p.snapshotLocked()
	obs := p.observersLocked()
	p.mu.Unlock()
	notify(snap, obs)

	page, err := p.docs.QueryUsersPage(ctx, &after, p.pageSize)

	p.mu.Lock()
	p.loadingMore = false
	if err != nil {
		p.log.Error(ctx, "directory fetch more", "error", err)
	} else {
		p.appendPageLocked(page)
	}
	snap = p.snapshotLocked()
	obs = p.observersLocked()
	p.mu.Unlock()
	notify(snap, obs)
}

// Refresh reloads the listing from the top.
func (p *Paginator) Refresh(ctx context.Context) {
	p.FetchInitial(ctx)
}

// appendPageLocked merges one fetched page: append in order, advance the
// cursor to the last record, and mark exhaustion on a short page.
func (p *Paginator) appendPageLocked(page []backend.UserRecord) {
	p.items = append(p.items, page...)
	if len(page) > 0 {
		c := backend.CursorFor(page[len(page)-1])
		p.cursor = &c
	}
	p.exhausted = len(page) < p.pageSize
}

func (p *Paginator) snapshotLocked() State {
	items := make([]backend.UserRecord, len(p.items))
	copy(items, p.items)
	return State{
		Items:          items,
		Exhausted:      p.exhausted,
		LoadingInitial: p.loadingInitial,
		LoadingMore:    p.loadingMore,
	}
}

func (p *Paginator) observersLocked() []func(State) {
	obs := make([]func(State), 0, len(p.observers))
	for _, fn := range p.observers {
		obs = append(obs, fn)
	}
	return obs
}

func notify(snap State, obs []func(State)) {
	for _, fn := range obs {
		fn(snap)
	}
}
