package session

import (
	"github.com/guessthat/cardcache/internal/domain"
	"github.com/guessthat/cardcache/internal/textnorm"
)

// Queue is the playable card queue for one turn. Cards whose target was
// already consumed this session are excluded up front, the rest is
// deduplicated by normalized key (first occurrence wins), and the queue
// re-filters itself after every consumption so a target can never be
// shown twice.
type Queue struct {
	tracker *Tracker
	cards   []domain.Card
}

// NewQueue builds a queue from a freshly drawn batch.
func NewQueue(cards []domain.Card, tracker *Tracker) *Queue {
	q := &Queue{tracker: tracker}
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		key := textnorm.Normalize(c.Target)
		if seen[key] || tracker.Contains(c.Target) {
			continue
		}
		seen[key] = true
		q.cards = append(q.cards, c)
	}
	return q
}

// Current returns the head-of-queue card, if any.
func (q *Queue) Current() (domain.Card, bool) {
	if len(q.cards) == 0 {
		return domain.Card{}, false
	}
	return q.cards[0], true
}

// Consume marks the current card's target as used (whether it was
// answered correctly or skipped) and advances, dropping any queued card
// whose target the now-larger used set covers.
func (q *Queue) Consume() {
	if len(q.cards) == 0 {
		return
	}
	q.tracker.MarkUsed(q.cards[0].Target)

	rest := q.cards[1:]
	q.cards = q.cards[:0]
	for _, c := range rest {
		if q.tracker.Contains(c.Target) {
			continue
		}
		q.cards = append(q.cards, c)
	}
}

// Len returns the number of cards left in the queue.
func (q *Queue) Len() int {
	return len(q.cards)
}
