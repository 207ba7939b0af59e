package storage

const schema = `
-- The 'cards' table stores every active card. The dedup key is
-- (language, category, difficulty, normalized_target), not the id.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    language TEXT NOT NULL,
    category TEXT NOT NULL,
    difficulty TEXT NOT NULL,
    target TEXT NOT NULL,
    normalized_target TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS card_forbidden (
    card_id TEXT NOT NULL,
    word TEXT NOT NULL
);

-- Soft-deleted cards, retained for a bounded recovery window.
CREATE TABLE IF NOT EXISTS trash_cards (
    id TEXT PRIMARY KEY,
    language TEXT NOT NULL,
    category TEXT NOT NULL,
    difficulty TEXT NOT NULL,
    target TEXT NOT NULL,
    normalized_target TEXT NOT NULL,
    deleted_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trash_forbidden (
    card_id TEXT NOT NULL,
    word TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_lcd
    ON cards(language, category, difficulty);

CREATE INDEX IF NOT EXISTS idx_cards_lcd_norm
    ON cards(language, category, difficulty, normalized_target);

CREATE INDEX IF NOT EXISTS idx_card_forbidden_card
    ON card_forbidden(card_id);

CREATE INDEX IF NOT EXISTS idx_trash_forbidden_card
    ON trash_forbidden(card_id);

CREATE INDEX IF NOT EXISTS idx_trash_deleted_at
    ON trash_cards(deleted_at);
`
