package replenish

import (
	"context"
	"log/slog"

	"github.com/guessthat/cardcache/internal/domain"
)

// Local cache policy. THRESHOLD and TOPUP_SIZE trade network calls against
// staleness; RESERVE is smaller than the top-up margin because it accounts
// for in-session consumption the raw stock count cannot see.
const (
	// Threshold is the stock floor: below it a draw triggers a top-up.
	Threshold = 30
	// TopUpSize is how many cards each top-up requests.
	TopUpSize = 50
	// Reserve is the minimum unconsumed stock the auto top-up watcher
	// keeps: stock minus session-used cards.
	Reserve = 40
)

// Store is the slice of the persistent store the policy needs.
type Store interface {
	Count(b domain.Bucket) (int, error)
	InsertBatch(cards []domain.Card) error
	DrawRandom(b domain.Bucket, count int) ([]domain.Card, error)
}

// Source generates new cards remotely. Failures are expected (the game is
// playable offline) and never propagate past the policy.
type Source interface {
	Download(ctx context.Context, b domain.Bucket, count int) ([]domain.Card, error)
}

// Policy keeps a bucket stocked without over-fetching.
type Policy struct {
	store  Store
	source Source
	log    *slog.Logger
}

// NewPolicy wires a policy over the given store and card source.
func NewPolicy(store Store, source Source, log *slog.Logger) *Policy {
	return &Policy{store: store, source: source, log: log}
}

// TopUpIfLow requests TopUpSize new cards when the bucket's stock is under
// Threshold and merges them into the store. Remote or storage failures are
// logged and swallowed: the app keeps playing on whatever stock exists.
func (p *Policy) TopUpIfLow(ctx context.Context, b domain.Bucket) {
	count, err := p.store.Count(b)
	if err != nil {
		p.log.Warn("top-up skipped, count failed", "bucket", b, "error", err)
		return
	}
	if count >= Threshold {
		return
	}

	cards, err := p.source.Download(ctx, b, TopUpSize)
	if err != nil {
		p.log.Warn("top-up failed, continuing offline", "bucket", b, "error", err)
		return
	}
	if err := p.store.InsertBatch(cards); err != nil {
		p.log.Warn("top-up merge failed", "bucket", b, "error", err)
		return
	}
	p.log.Info("topped up bucket", "bucket", b, "fetched", len(cards))
}

// DrawForTurn is the only draw path used during active play: it attempts a
// replenish first, then draws from local stock. A failed remote call
// degrades to drawing whatever is there, possibly nothing.
func (p *Policy) DrawForTurn(ctx context.Context, count int, b domain.Bucket) ([]domain.Card, error) {
	p.TopUpIfLow(ctx, b)
	return p.store.DrawRandom(b, count)
}
