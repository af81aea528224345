package storage

import "errors"

// Errors shared by every backend. Stores are append-only: a run, curve,
// sweep or bar is written once and never updated.
var (
	// ErrNotFound means no run, curve or sweep has the requested ID.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means the key was already written.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput rejects nil runs, empty IDs and similar.
	ErrInvalidInput = errors.New("invalid input")
)
