package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
	"github.com/dpetukhov/rosterhub/internal/logging"
)

// fakeDocs serves pages out of a fixed dataset the way the real backend
// does: strictly after the cursor, in stored order, up to the limit.
type fakeDocs struct {
	mu  sync.Mutex
	all []backend.UserRecord

	// ErrOnCall makes the n-th query (1-based) fail with Err.
	ErrOnCall int
	Err       error

	// Optional gates to hold a query open while a test pokes the paginator.
	Entered chan struct{}
	Gate    chan struct{}

	Calls     int
	LastAfter *backend.Cursor
	LastLimit int
}

func (f *fakeDocs) PutUserDocument(ctx context.Context, rec backend.UserRecord) error {
	return nil
}

func (f *fakeDocs) QueryUsersPage(ctx context.Context, after *backend.Cursor, limit int) ([]backend.UserRecord, error) {
	f.mu.Lock()
	f.Calls++
	call := f.Calls
	f.LastAfter = after
	f.LastLimit = limit
	f.mu.Unlock()

	if f.Entered != nil {
		f.Entered <- struct{}{}
	}
	if f.Gate != nil {
		<-f.Gate
	}
	if f.ErrOnCall != 0 && call == f.ErrOnCall {
		return nil, f.Err
	}

	start := 0
	if after != nil {
		for i, rec := range f.all {
			if rec.ID == after.ID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.all) {
		end = len(f.all)
	}
	if start >= end {
		return nil, nil
	}
	return append([]backend.UserRecord(nil), f.all[start:end]...), nil
}

func (f *fakeDocs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// dataset builds n records in descending CreatedAt order, the order the
// backend serves them in.
func dataset(n int) []backend.UserRecord {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recs := make([]backend.UserRecord, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, backend.UserRecord{
			ID:          fmt.Sprintf("u%02d", i+1),
			DisplayName: fmt.Sprintf("User %02d", i+1),
			Email:       fmt.Sprintf("user%02d@x.com", i+1),
			CreatedAt:   base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return recs
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestThreePagesNoDuplicatesNoGaps(t *testing.T) {
	docs := &fakeDocs{all: dataset(27)}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)
	st := p.State()
	require.Len(t, st.Items, 10)
	require.False(t, st.Exhausted)

	p.FetchMore(ctx)
	require.Len(t, p.State().Items, 20)
	require.Equal(t, "u10", docs.LastAfter.ID)

	p.FetchMore(ctx)
	st = p.State()
	require.Len(t, st.Items, 27)
	require.True(t, st.Exhausted)
	require.False(t, st.HasMore())
	require.Equal(t, "u20", docs.LastAfter.ID)

	// Items equal concatenation order: no duplicates, no gaps.
	for i, rec := range st.Items {
		require.Equal(t, fmt.Sprintf("u%02d", i+1), rec.ID)
	}
	require.Equal(t, 3, docs.callCount())
}

func TestFetchMoreAfterExhaustionIsNoOp(t *testing.T) {
	docs := &fakeDocs{all: dataset(7)}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)
	require.True(t, p.State().Exhausted)
	require.Equal(t, 1, docs.callCount())

	p.FetchMore(ctx)
	p.FetchMore(ctx)
	require.Equal(t, 1, docs.callCount(), "no backend call once exhausted")
	require.Len(t, p.State().Items, 7)
}

func TestFetchMoreWithoutInitialIsNoOp(t *testing.T) {
	docs := &fakeDocs{all: dataset(5)}
	p := NewPaginator(docs, testLogger(), 10)

	p.FetchMore(context.Background())
	require.Zero(t, docs.callCount())
}

func TestFetchMoreWhileLoadingIsNoOp(t *testing.T) {
	docs := &fakeDocs{all: dataset(30)}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)

	docs.Entered = make(chan struct{})
	docs.Gate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.FetchMore(ctx)
		close(done)
	}()
	<-docs.Entered
	require.True(t, p.State().LoadingMore)

	// Re-entrant trigger while the first fetch-more is still in flight.
	docs.Entered = nil
	p.FetchMore(ctx)
	require.Equal(t, 2, docs.callCount(), "no second backend call while loading")

	close(docs.Gate)
	<-done
	require.Len(t, p.State().Items, 20)
	require.False(t, p.State().LoadingMore)
}

func TestRefreshReplacesItems(t *testing.T) {
	docs := &fakeDocs{all: dataset(27)}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)
	p.FetchMore(ctx)
	require.Len(t, p.State().Items, 20)

	p.Refresh(ctx)
	st := p.State()
	require.Len(t, st.Items, 10, "refresh replaces, never appends")
	require.False(t, st.Exhausted)
	require.Nil(t, docs.LastAfter, "refresh starts from the top")

	// Same backend, same result as a fresh FetchInitial.
	fresh := NewPaginator(docs, testLogger(), 10)
	fresh.FetchInitial(ctx)
	require.Equal(t, fresh.State().Items, st.Items)
}

func TestFetchErrorLeavesStateSilent(t *testing.T) {
	docs := &fakeDocs{all: dataset(30), ErrOnCall: 2, Err: errors.New("boom")}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)
	require.Len(t, p.State().Items, 10)

	p.FetchMore(ctx)
	st := p.State()
	// The failure leaves no trace: items, cursor and exhaustion are
	// untouched, and there is no error field to populate.
	require.Len(t, st.Items, 10)
	require.False(t, st.Exhausted)
	require.False(t, st.LoadingMore)

	// The flag was cleared, so a retry goes through.
	p.FetchMore(ctx)
	require.Len(t, p.State().Items, 20)
}

func TestInitialFetchErrorYieldsEmptyListing(t *testing.T) {
	docs := &fakeDocs{all: dataset(5), ErrOnCall: 1, Err: errors.New("boom")}
	p := NewPaginator(docs, testLogger(), 10)
	ctx := context.Background()

	p.FetchInitial(ctx)
	st := p.State()
	require.Empty(t, st.Items)
	require.False(t, st.Exhausted)
	require.False(t, st.LoadingInitial)

	// Retry succeeds.
	p.FetchInitial(ctx)
	require.Len(t, p.State().Items, 5)
}

func TestObserverNotifications(t *testing.T) {
	docs := &fakeDocs{all: dataset(5)}
	p := NewPaginator(docs, testLogger(), 10)

	var mu sync.Mutex
	var seen []State
	unsub := p.Subscribe(func(st State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	p.FetchInitial(context.Background())
	mu.Lock()
	require.Len(t, seen, 2)
	require.True(t, seen[0].LoadingInitial)
	require.False(t, seen[1].LoadingInitial)
	require.Len(t, seen[1].Items, 5)
	mu.Unlock()

	unsub()
	p.Refresh(context.Background())
	mu.Lock()
	require.Len(t, seen, 2, "no notifications after unsubscribe")
	mu.Unlock()
}
