package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guessthat/cardcache/internal/domain"
)

func card(id, target string) domain.Card {
	return domain.Card{
		ID: id, Language: "de-CH", Category: "family",
		Difficulty: domain.Medium, Target: target,
	}
}

func TestNewQueueFiltersUsedTargets(t *testing.T) {
	tr := NewTracker()
	tr.MarkUsed("Mutter")

	q := NewQueue([]domain.Card{
		card("a", "MUTTER"), // already used, case/diacritic-insensitively
		card("b", "Vater"),
	}, tr)

	require.Equal(t, 1, q.Len())
	head, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "b", head.ID)
}

func TestNewQueueDedupsFirstOccurrenceWins(t *testing.T) {
	tr := NewTracker()
	q := NewQueue([]domain.Card{
		card("a", "Hallo"),
		card("b", "hallo"),
		card("c", "Vater"),
	}, tr)

	require.Equal(t, 2, q.Len())
	head, _ := q.Current()
	assert.Equal(t, "a", head.ID)
}

func TestConsumeMarksUsedAndRefilters(t *testing.T) {
	tr := NewTracker()
	q := NewQueue([]domain.Card{
		card("a", "Mutter"),
		card("b", "Vater"),
		card("c", "mutter"), // dropped up front by dedup
	}, tr)
	require.Equal(t, 2, q.Len())

	q.Consume()
	assert.True(t, tr.Contains("Mutter"))

	head, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "b", head.ID)

	q.Consume()
	_, ok = q.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestConsumeRefiltersAgainstExternalMarks(t *testing.T) {
	tr := NewTracker()
	q := NewQueue([]domain.Card{
		card("a", "Mutter"),
		card("b", "Vater"),
		card("c", "Tochter"),
	}, tr)

	// Another queue (or screen) consumed "Vater" in the meantime.
	tr.MarkUsed("Vater")

	q.Consume() // consumes "Mutter", refilters the tail
	head, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "c", head.ID)
}

func TestConsumeOnEmptyQueue(t *testing.T) {
	tr := NewTracker()
	q := NewQueue(nil, tr)
	q.Consume()
	assert.Equal(t, 0, q.Len())
}
