package replenish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guessthat/cardcache/internal/domain"
)

var testBucket = domain.Bucket{Language: "de-CH", Category: "family", Difficulty: domain.Medium}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store keyed by card id; good enough for the
// policy, which never relies on the dedup rule itself.
type fakeStore struct {
	mu       sync.Mutex
	cards    map[string]domain.Card
	countErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: make(map[string]domain.Card)}
}

func (s *fakeStore) Count(b domain.Bucket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	n := 0
	for _, c := range s.cards {
		if c.Bucket() == b {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InsertBatch(cards []domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cards {
		s.cards[c.ID] = c
	}
	return nil
}

func (s *fakeStore) DrawRandom(b domain.Bucket, count int) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Card
	for _, c := range s.cards {
		if c.Bucket() == b && len(out) < count {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) fill(b domain.Bucket, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("stock-%d", i)
		s.cards[id] = domain.Card{
			ID: id, Language: b.Language, Category: b.Category,
			Difficulty: b.Difficulty, Target: fmt.Sprintf("Wort %d", i),
		}
	}
}

type fakeSource struct {
	mu    sync.Mutex
	calls int
	err   error
	empty bool
}

func (f *fakeSource) Download(ctx context.Context, b domain.Bucket, count int) ([]domain.Card, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	cards := make([]domain.Card, count)
	for i := range cards {
		id := fmt.Sprintf("remote-%d-%d", n, i)
		cards[i] = domain.Card{
			ID: id, Language: b.Language, Category: b.Category,
			Difficulty: b.Difficulty, Target: id,
		}
	}
	return cards, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTopUpIfLowBelowThreshold(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, Threshold-1)
	source := &fakeSource{}
	p := NewPolicy(store, source, discardLogger())

	p.TopUpIfLow(context.Background(), testBucket)

	assert.Equal(t, 1, source.callCount())
	c, _ := store.Count(testBucket)
	assert.Equal(t, Threshold-1+TopUpSize, c)
}

func TestTopUpIfLowAtThresholdIsNoop(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, Threshold)
	source := &fakeSource{}
	p := NewPolicy(store, source, discardLogger())

	p.TopUpIfLow(context.Background(), testBucket)

	assert.Equal(t, 0, source.callCount())
}

func TestTopUpSwallowsRemoteFailure(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{err: errors.New("service unavailable")}
	p := NewPolicy(store, source, discardLogger())

	// Must not panic or propagate; the caller keeps playing offline.
	p.TopUpIfLow(context.Background(), testBucket)

	c, _ := store.Count(testBucket)
	assert.Equal(t, 0, c)
}

func TestDrawForTurnDegradesOffline(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, 5)
	source := &fakeSource{err: errors.New("no network")}
	p := NewPolicy(store, source, discardLogger())

	cards, err := p.DrawForTurn(context.Background(), 3, testBucket)
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestDrawForTurnTopsUpFirst(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{}
	p := NewPolicy(store, source, discardLogger())

	cards, err := p.DrawForTurn(context.Background(), 3, testBucket)
	require.NoError(t, err)
	assert.Len(t, cards, 3)
	assert.Equal(t, 1, source.callCount())
}

func TestEnsureSeedFillsEmptyBucket(t *testing.T) {
	store := newFakeStore()
	p := NewPolicy(store, &fakeSource{}, discardLogger())

	require.NoError(t, p.EnsureSeed(testBucket))

	seed, err := SeedCards()
	require.NoError(t, err)
	require.NotEmpty(t, seed)

	c, err := store.Count(testBucket)
	require.NoError(t, err)
	assert.Equal(t, len(seed), c)
}

func TestEnsureSeedIsNoopOnStockedBucket(t *testing.T) {
	store := newFakeStore()
	store.fill(testBucket, 1)
	p := NewPolicy(store, &fakeSource{}, discardLogger())

	require.NoError(t, p.EnsureSeed(testBucket))

	c, err := store.Count(testBucket)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestEnsureSeedSkipsForeignBucket(t *testing.T) {
	store := newFakeStore()
	p := NewPolicy(store, &fakeSource{}, discardLogger())

	other := domain.Bucket{Language: "fr-CH", Category: "animals", Difficulty: domain.Hard}
	require.NoError(t, p.EnsureSeed(other))

	c, err := store.Count(other)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestBundledSeedIsWellFormed(t *testing.T) {
	seed, err := SeedCards()
	require.NoError(t, err)
	require.NotEmpty(t, seed)
	for _, c := range seed {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Target)
		assert.True(t, c.Difficulty.Valid(), "card %s has invalid difficulty", c.ID)
		assert.NotEmpty(t, c.Forbidden, "card %s has no forbidden words", c.ID)
	}
}
