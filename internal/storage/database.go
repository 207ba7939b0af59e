package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection. It is the sole owner of card and
// trash durability; all multi-statement operations run inside a single
// transaction so readers never observe a half-written card.
type DB struct {
	conn *sql.DB

	// now supplies wall-clock time for trash timestamps and TTL sweeps.
	// Tests replace it; production uses time.Now. Wall clock means a
	// device time change can purge early or late, which is accepted.
	now func() time.Time
}

// Open creates (or opens) the database at path, ensures the schema is up
// to date and sweeps any trash that expired while the app was closed.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Single-writer model: one connection keeps the per-connection pragmas
	// in force and serializes interleaved writers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000; PRAGMA synchronous = NORMAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.PurgeExpired(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to sweep trash on open: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// inTx runs fn inside a transaction: commit on success, rollback and
// return the error otherwise. A panic in fn rolls back and re-panics.
func (db *DB) inTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
