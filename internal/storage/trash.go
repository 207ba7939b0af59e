package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/guessthat/cardcache/internal/domain"
)

// TrashTTLSeconds is the retention window for soft-deleted cards. Once
// now - deletedAt reaches it the card is purged for good.
const TrashTTLSeconds int64 = 3600

// DeleteCard moves an active card into the trash, stamping the deletion
// time. Unknown ids are a no-op. A prior trash entry for the same id is
// fully overwritten, not merged. The expiry sweep runs first so a restore
// slot freed by the TTL cannot be resurrected by accident.
func (db *DB) DeleteCard(id string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := purgeExpiredTx(tx, db.now().Unix()); err != nil {
			return err
		}

		var c domain.Card
		var key string
		err := tx.QueryRow(`
			SELECT id, language, category, difficulty, target, normalized_target
			FROM cards WHERE id = ?
		`, id).Scan(&c.ID, &c.Language, &c.Category, &c.Difficulty, &c.Target, &key)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load card %s for deletion: %w", id, err)
		}

		words, err := forbiddenTx(tx, "card_forbidden", id)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO trash_cards
				(id, language, category, difficulty, target, normalized_target, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.Language, c.Category, c.Difficulty, c.Target, key, db.now().Unix()); err != nil {
			return fmt.Errorf("failed to move card %s to trash: %w", id, err)
		}

		// Snapshot the forbidden set, trimming and dropping empty entries.
		cleaned := words[:0]
		for _, w := range words {
			w = strings.TrimSpace(w)
			if w != "" {
				cleaned = append(cleaned, w)
			}
		}
		if err := replaceForbidden(tx, "trash_forbidden", id, cleaned); err != nil {
			return fmt.Errorf("failed to snapshot forbidden words for %s: %w", id, err)
		}

		if _, err := tx.Exec(`DELETE FROM card_forbidden WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove forbidden words for %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove card %s: %w", id, err)
		}
		return nil
	})
}

// RestoreCard moves a trashed card back to the active table under its
// original id. Ids not present in the trash (including entries the sweep
// just purged) are a no-op.
func (db *DB) RestoreCard(id string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if err := purgeExpiredTx(tx, db.now().Unix()); err != nil {
			return err
		}

		var c domain.Card
		var key string
		err := tx.QueryRow(`
			SELECT id, language, category, difficulty, target, normalized_target
			FROM trash_cards WHERE id = ?
		`, id).Scan(&c.ID, &c.Language, &c.Category, &c.Difficulty, &c.Target, &key)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load trashed card %s: %w", id, err)
		}

		words, err := forbiddenTx(tx, "trash_forbidden", id)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO cards
				(id, language, category, difficulty, target, normalized_target)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, c.Language, c.Category, c.Difficulty, c.Target, key); err != nil {
			return fmt.Errorf("failed to restore card %s: %w", id, err)
		}
		if err := replaceForbidden(tx, "card_forbidden", id, words); err != nil {
			return fmt.Errorf("failed to restore forbidden words for %s: %w", id, err)
		}

		if _, err := tx.Exec(`DELETE FROM trash_forbidden WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear trash words for %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM trash_cards WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear trash entry for %s: %w", id, err)
		}
		return nil
	})
}

// ListTrash sweeps expired entries, then returns the remaining trash
// ordered by deletion time, most recent first, hydrated with forbidden
// words.
func (db *DB) ListTrash() ([]domain.TrashCard, error) {
	if err := db.PurgeExpired(); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT id, language, category, difficulty, target, deleted_at
		FROM trash_cards
		ORDER BY deleted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}
	defer rows.Close()

	var trashed []domain.TrashCard
	for rows.Next() {
		var t domain.TrashCard
		if err := rows.Scan(&t.ID, &t.Language, &t.Category, &t.Difficulty, &t.Target, &t.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trash row: %w", err)
		}
		trashed = append(trashed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trash rows: %w", err)
	}

	cards := make([]domain.Card, len(trashed))
	for i, t := range trashed {
		cards[i] = t.Card
	}
	if err := db.hydrateForbidden("trash_forbidden", cards); err != nil {
		return nil, err
	}
	for i := range trashed {
		trashed[i].Forbidden = cards[i].Forbidden
	}
	return trashed, nil
}

// PurgeExpired permanently deletes every trash entry past the TTL. There
// is no background scheduler; it runs on open and before every trash read
// or mutation.
func (db *DB) PurgeExpired() error {
	return db.inTx(func(tx *sql.Tx) error {
		return purgeExpiredTx(tx, db.now().Unix())
	})
}

func purgeExpiredTx(tx *sql.Tx, nowSec int64) error {
	cutoff := nowSec - TrashTTLSeconds
	if _, err := tx.Exec(`
		DELETE FROM trash_forbidden
		WHERE card_id IN (SELECT id FROM trash_cards WHERE deleted_at <= ?)
	`, cutoff); err != nil {
		return fmt.Errorf("failed to purge expired trash words: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trash_cards WHERE deleted_at <= ?`, cutoff); err != nil {
		return fmt.Errorf("failed to purge expired trash: %w", err)
	}
	return nil
}

func forbiddenTx(tx *sql.Tx, table, cardID string) ([]string, error) {
	rows, err := tx.Query(`SELECT word FROM `+table+` WHERE card_id = ? ORDER BY rowid`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load forbidden words for %s: %w", cardID, err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan forbidden word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read forbidden words: %w", err)
	}
	return words, nil
}
