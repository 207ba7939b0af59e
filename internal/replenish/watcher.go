package replenish

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/guessthat/cardcache/internal/domain"
	"github.com/guessthat/cardcache/internal/session"
)

// Watcher is the session-aware background top-up: whenever the tracked
// consumption grows and the unconsumed stock (count minus used) drops to
// Reserve or below, it fetches TopUpSize cards in the background. At most
// one fetch is in flight; triggers arriving while one runs are dropped,
// not queued — the next growth event re-checks anyway, and merges are
// idempotent so a late arrival cannot do harm.
//
// Started once per app-foreground period, stopped on background so the
// app does not fetch results it cannot act on.
type Watcher struct {
	policy  *Policy
	tracker *session.Tracker
	bucket  domain.Bucket
	reserve int

	inflight atomic.Bool

	mu    sync.Mutex
	unsub func()
}

// NewWatcher builds a watcher over the policy's store and source.
func NewWatcher(policy *Policy, tracker *session.Tracker, bucket domain.Bucket) *Watcher {
	return &Watcher{
		policy:  policy,
		tracker: tracker,
		bucket:  bucket,
		reserve: Reserve,
	}
}

// Start subscribes to consumption growth and runs one check immediately.
// Calling Start while running is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.unsub != nil {
		w.mu.Unlock()
		return
	}
	w.unsub = w.tracker.Subscribe(func() {
		go w.Check(ctx)
	})
	w.mu.Unlock()

	go w.Check(ctx)
}

// Stop unsubscribes from the tracker. An in-flight fetch is not
// cancelled; its merge is idempotent and allowed to complete after the
// watcher has stopped. Stop when not running is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	unsub := w.unsub
	w.unsub = nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Running reports whether the watcher is subscribed.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unsub != nil
}

// Check runs one reserve check and, if stock minus session consumption is
// at or below the reserve, performs a fetch-and-merge. The in-flight
// guard is explicit: overlapping calls return immediately.
func (w *Watcher) Check(ctx context.Context) {
	count, err := w.policy.store.Count(w.bucket)
	if err != nil {
		w.policy.log.Warn("auto top-up check failed", "bucket", w.bucket, "error", err)
		return
	}
	remaining := count - w.tracker.Size()
	if remaining > w.reserve {
		return
	}
	if !w.inflight.CompareAndSwap(false, true) {
		return
	}
	defer w.inflight.Store(false)

	cards, err := w.policy.source.Download(ctx, w.bucket, TopUpSize)
	if err != nil {
		w.policy.log.Warn("auto top-up failed, continuing offline", "bucket", w.bucket, "error", err)
		return
	}
	if err := w.policy.store.InsertBatch(cards); err != nil {
		w.policy.log.Warn("auto top-up merge failed", "bucket", w.bucket, "error", err)
		return
	}
	w.policy.log.Info("auto top-up merged cards", "bucket", w.bucket, "fetched", len(cards), "remaining_before", remaining)
}
