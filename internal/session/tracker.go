package session

import (
	"sync"

	"github.com/guessthat/cardcache/internal/textnorm"
)

// Tracker holds the normalized targets already shown during the current
// play session. It lives for the process lifetime and is never persisted;
// relaunching the app resets it. Subscribers are notified whenever the set
// changes size, which is what drives the usage-aware auto top-up.
type Tracker struct {
	mu     sync.Mutex
	used   map[string]struct{}
	nextID int
	subs   map[int]func()
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		used: make(map[string]struct{}),
		subs: make(map[int]func()),
	}
}

// MarkUsed records the target's normalized key as consumed. Empty input
// (before or after normalization) is a no-op.
func (t *Tracker) MarkUsed(target string) {
	key := textnorm.Normalize(target)
	if key == "" {
		return
	}

	t.mu.Lock()
	if _, ok := t.used[key]; ok {
		t.mu.Unlock()
		return
	}
	t.used[key] = struct{}{}
	subs := t.subscribers()
	t.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Clear empties the set. This is an explicit user action, not part of the
// normal game flow.
func (t *Tracker) Clear() {
	t.mu.Lock()
	changed := len(t.used) > 0
	t.used = make(map[string]struct{})
	var subs []func()
	if changed {
		subs = t.subscribers()
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Contains reports whether the target's normalized key has been consumed.
func (t *Tracker) Contains(target string) bool {
	key := textnorm.Normalize(target)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.used[key]
	return ok
}

// Size returns the number of consumed keys.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.used)
}

// Subscribe registers fn to run after every size change and returns an
// unsubscribe function. Unsubscribing twice is harmless. Callbacks run on
// the mutating goroutine and must not block.
func (t *Tracker) Subscribe(fn func()) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// subscribers snapshots the callback list; callers hold t.mu.
func (t *Tracker) subscribers() []func() {
	subs := make([]func(), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	return subs
}
