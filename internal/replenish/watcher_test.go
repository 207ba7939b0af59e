package replenish

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guessthat/cardcache/internal/domain"
	"github.com/guessthat/cardcache/internal/session"
)

// blockingSource parks every Download until released, so tests can hold a
// fetch in flight deterministically.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) Download(ctx context.Context, b domain.Bucket, count int) ([]domain.Card, error) {
	s.calls.Add(1)
	s.started <- struct{}{}
	<-s.release
	return nil, nil
}

func TestCheckRespectsReserve(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, Reserve+10)
	source := &fakeSource{}
	tracker := session.NewTracker()
	w := NewWatcher(NewPolicy(store, source, discardLogger()), tracker, testBucket)

	// Stock minus used is above the reserve: no fetch.
	w.Check(context.Background())
	assert.Equal(t, 0, source.callCount())

	// Nine consumed targets leave remaining = reserve + 1: still quiet.
	for i := 0; i < 9; i++ {
		tracker.MarkUsed(fmt.Sprintf("Wort %d", i))
	}
	w.Check(context.Background())
	assert.Equal(t, 0, source.callCount())

	// The tenth dips remaining to the reserve line and triggers a fetch.
	tracker.MarkUsed("Wort 9")
	w.Check(context.Background())
	assert.Equal(t, 1, source.callCount())
}

func TestCheckSingleFetchInFlight(t *testing.T) {
	store := newFakeStore() // empty: always at or below reserve
	source := newBlockingSource()
	tracker := session.NewTracker()
	w := NewWatcher(NewPolicy(store, source, discardLogger()), tracker, testBucket)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Check(context.Background())
	}()
	<-source.started // first fetch is in flight

	// Overlapping triggers are dropped, not queued.
	w.Check(context.Background())
	w.Check(context.Background())
	assert.Equal(t, int32(1), source.calls.Load())

	close(source.release)
	wg.Wait()
}

func TestWatcherFiresOnConsumptionGrowth(t *testing.T) {
	store := newFakeStore()
	// The source yields nothing so the store stays under the reserve and
	// every growth event re-triggers a fetch.
	source := &fakeSource{empty: true}
	tracker := session.NewTracker()
	w := NewWatcher(NewPolicy(store, source, discardLogger()), tracker, testBucket)

	ctx := context.Background()
	w.Start(ctx)
	defer w.Stop()

	// Start runs one check immediately.
	require.Eventually(t, func() bool { return source.callCount() >= 1 },
		time.Second, 5*time.Millisecond)

	before := source.callCount()
	tracker.MarkUsed("Grossmutter")
	require.Eventually(t, func() bool { return source.callCount() > before },
		time.Second, 5*time.Millisecond)
}

func TestStartIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, Reserve+10) // quiet: no fetches
	tracker := session.NewTracker()
	w := NewWatcher(NewPolicy(store, &fakeSource{}, discardLogger()), tracker, testBucket)

	ctx := context.Background()
	w.Start(ctx)
	w.Start(ctx)
	assert.True(t, w.Running())

	w.Stop()
	assert.False(t, w.Running())
	w.Stop() // no-op
}

func TestStoppedWatcherIgnoresGrowth(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{}
	tracker := session.NewTracker()
	w := NewWatcher(NewPolicy(store, source, discardLogger()), tracker, testBucket)

	ctx := context.Background()
	w.Start(ctx)
	require.Eventually(t, func() bool { return source.callCount() >= 1 },
		time.Second, 5*time.Millisecond)
	w.Stop()

	calls := source.callCount()
	tracker.MarkUsed("Stammbaum")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, source.callCount())
}
