package replenish

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/guessthat/cardcache/internal/domain"
)

//go:embed seed/de-CH_family_medium.json
var seedData []byte

var (
	seedOnce  sync.Once
	seedCards []domain.Card
	seedErr   error
)

// SeedCards returns the bundled starter set.
func SeedCards() ([]domain.Card, error) {
	seedOnce.Do(func() {
		seedErr = json.Unmarshal(seedData, &seedCards)
	})
	if seedErr != nil {
		return nil, fmt.Errorf("failed to parse bundled seed: %w", seedErr)
	}
	return seedCards, nil
}

// EnsureSeed inserts the bundled starter cards matching the bucket when
// the bucket is empty. Once stock exists the call is a no-op, so it is
// effectively once per bucket.
func (p *Policy) EnsureSeed(b domain.Bucket) error {
	count, err := p.store.Count(b)
	if err != nil {
		return fmt.Errorf("failed to check stock before seeding: %w", err)
	}
	if count > 0 {
		return nil
	}

	all, err := SeedCards()
	if err != nil {
		return err
	}
	var matching []domain.Card
	for _, c := range all {
		if c.Bucket() == b {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		p.log.Info("no bundled seed for bucket", "bucket", b)
		return nil
	}

	if err := p.store.InsertBatch(matching); err != nil {
		return fmt.Errorf("failed to insert seed cards: %w", err)
	}
	p.log.Info("seeded bucket", "bucket", b, "cards", len(matching))
	return nil
}
