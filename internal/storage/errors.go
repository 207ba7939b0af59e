package storage

import "errors"

var (
	// ErrDuplicateTarget is returned by CreateCustomCard when the bucket
	// already holds an active card with the same normalized target. The
	// sync path (InsertBatch) merges instead; user-authored creation must
	// never silently overwrite.
	ErrDuplicateTarget = errors.New("a card with this target already exists in the bucket")

	// ErrNotFound is returned by operations that require an existing row
	// for the given id.
	ErrNotFound = errors.New("card not found")
)
