package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/guessthat/cardcache/internal/domain"
	"github.com/guessthat/cardcache/internal/textnorm"
)

// Count returns the number of active cards in the bucket.
func (db *DB) Count(b domain.Bucket) (int, error) {
	var c int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM cards
		WHERE language = ? AND category = ? AND difficulty = ?
	`, b.Language, b.Category, b.Difficulty).Scan(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards for bucket %v: %w", b, err)
	}
	return c, nil
}

// InsertBatch merges cards into the active table in one atomic
// transaction. Each card resolves to a row by normalized key within its
// bucket first, then by id; if neither matches a new row is inserted with
// the card's own id. The matched row's display target is updated and its
// forbidden-word set fully replaced, so repeating the same payload is
// idempotent and conflicting keys end up with the last element's data.
func (db *DB) InsertBatch(cards []domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return db.inTx(func(tx *sql.Tx) error {
		for _, c := range cards {
			if err := mergeCard(tx, c); err != nil {
				return fmt.Errorf("failed to merge card %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func mergeCard(tx *sql.Tx, c domain.Card) error {
	key := textnorm.Normalize(c.Target)

	// Resolve by bucket + normalized key: the dedup rule, not the id.
	var rowID string
	err := tx.QueryRow(`
		SELECT id FROM cards
		WHERE language = ? AND category = ? AND difficulty = ? AND normalized_target = ?
	`, c.Language, c.Category, c.Difficulty, key).Scan(&rowID)
	if err == sql.ErrNoRows {
		// Fall back to the id so a re-sent card whose target changed
		// updates in place instead of duplicating.
		err = tx.QueryRow(`SELECT id FROM cards WHERE id = ?`, c.ID).Scan(&rowID)
	}
	switch {
	case err == sql.ErrNoRows:
		rowID = c.ID
		if _, err := tx.Exec(`
			INSERT INTO cards (id, language, category, difficulty, target, normalized_target)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rowID, c.Language, c.Category, c.Difficulty, c.Target, key); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(`
			UPDATE cards
			SET language = ?, category = ?, difficulty = ?, target = ?, normalized_target = ?
			WHERE id = ?
		`, c.Language, c.Category, c.Difficulty, c.Target, key, rowID); err != nil {
			return err
		}
	}

	return replaceForbidden(tx, "card_forbidden", rowID, c.Forbidden)
}

// replaceForbidden rewrites the forbidden-word set of a card in the given
// table, deduplicating by exact value while keeping input order.
func replaceForbidden(tx *sql.Tx, table, cardID string, words []string) error {
	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE card_id = ?`, cardID); err != nil {
		return err
	}
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		if _, err := tx.Exec(`INSERT INTO `+table+` (card_id, word) VALUES (?, ?)`, cardID, w); err != nil {
			return err
		}
	}
	return nil
}

// DrawRandom returns up to count active cards from the bucket, selected
// uniformly at random without replacement and hydrated with their
// forbidden words. An empty bucket yields an empty list.
func (db *DB) DrawRandom(b domain.Bucket, count int) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, language, category, difficulty, target
		FROM cards
		WHERE language = ? AND category = ? AND difficulty = ?
		ORDER BY RANDOM() LIMIT ?
	`, b.Language, b.Category, b.Difficulty, count)
	if err != nil {
		return nil, fmt.Errorf("failed to draw cards for bucket %v: %w", b, err)
	}
	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	if err := db.hydrateForbidden("card_forbidden", cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// ListAll returns every active card across all buckets, ordered by target
// text case-insensitively, hydrated with forbidden words.
func (db *DB) ListAll() ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, language, category, difficulty, target
		FROM cards
		ORDER BY target COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	if err := db.hydrateForbidden("card_forbidden", cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetByID returns the active card with the given id, or nil if absent.
func (db *DB) GetByID(id string) (*domain.Card, error) {
	var c domain.Card
	err := db.conn.QueryRow(`
		SELECT id, language, category, difficulty, target
		FROM cards WHERE id = ?
	`, id).Scan(&c.ID, &c.Language, &c.Category, &c.Difficulty, &c.Target)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	cards := []domain.Card{c}
	if err := db.hydrateForbidden("card_forbidden", cards); err != nil {
		return nil, err
	}
	return &cards[0], nil
}

// UpdateCard overwrites the display fields of an existing card and fully
// replaces its forbidden-word set, recomputing the normalized key. This is
// the direct-edit path: unlike InsertBatch it does not merge, and the
// caller is responsible for not violating the per-bucket uniqueness rule.
func (db *DB) UpdateCard(c domain.Card) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE cards
			SET language = ?, category = ?, difficulty = ?, target = ?, normalized_target = ?
			WHERE id = ?
		`, c.Language, c.Category, c.Difficulty, c.Target, textnorm.Normalize(c.Target), c.ID)
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", c.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", c.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("update card %s: %w", c.ID, ErrNotFound)
		}
		if err := replaceForbidden(tx, "card_forbidden", c.ID, c.Forbidden); err != nil {
			return fmt.Errorf("failed to replace forbidden words for %s: %w", c.ID, err)
		}
		return nil
	})
}

// CustomCardInput is a user-authored card before it has an id.
type CustomCardInput struct {
	Language   string
	Category   string
	Difficulty domain.Difficulty
	Target     string
	Forbidden  []string
}

// CreateCustomCard inserts a user-authored card under a freshly generated
// id. If the bucket already holds an active card with the same normalized
// target it fails with ErrDuplicateTarget and writes nothing; a person
// typing a duplicate should hear about it rather than silently merge.
func (db *DB) CreateCustomCard(in CustomCardInput) (*domain.Card, error) {
	card := domain.Card{
		ID:         uuid.NewString(),
		Language:   in.Language,
		Category:   in.Category,
		Difficulty: in.Difficulty,
		Target:     in.Target,
		Forbidden:  in.Forbidden,
	}
	key := textnorm.Normalize(card.Target)

	err := db.inTx(func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRow(`
			SELECT id FROM cards
			WHERE language = ? AND category = ? AND difficulty = ? AND normalized_target = ?
		`, card.Language, card.Category, card.Difficulty, key).Scan(&existing)
		if err == nil {
			return ErrDuplicateTarget
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check for duplicate target: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO cards (id, language, category, difficulty, target, normalized_target)
			VALUES (?, ?, ?, ?, ?, ?)
		`, card.ID, card.Language, card.Category, card.Difficulty, card.Target, key); err != nil {
			return fmt.Errorf("failed to insert custom card: %w", err)
		}
		if err := replaceForbidden(tx, "card_forbidden", card.ID, card.Forbidden); err != nil {
			return fmt.Errorf("failed to insert forbidden words: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cards := []domain.Card{card}
	if err := db.hydrateForbidden("card_forbidden", cards); err != nil {
		return nil, err
	}
	return &cards[0], nil
}

func scanCards(rows *sql.Rows) ([]domain.Card, error) {
	defer rows.Close()
	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Language, &c.Category, &c.Difficulty, &c.Target); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card rows: %w", err)
	}
	return cards, nil
}

// hydrateForbidden loads the forbidden words for every card in cards from
// the given table, preserving insertion order per card.
func (db *DB) hydrateForbidden(table string, cards []domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	ids := make([]any, len(cards))
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
		index[c.ID] = i
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := db.conn.Query(
		`SELECT card_id, word FROM `+table+` WHERE card_id IN (`+placeholders+`) ORDER BY rowid`,
		ids...)
	if err != nil {
		return fmt.Errorf("failed to load forbidden words: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cardID, word string
		if err := rows.Scan(&cardID, &word); err != nil {
			return fmt.Errorf("failed to scan forbidden word row: %w", err)
		}
		i := index[cardID]
		cards[i].Forbidden = append(cards[i].Forbidden, word)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read forbidden word rows: %w", err)
	}
	return nil
}
