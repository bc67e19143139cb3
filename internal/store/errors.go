package store

import "errors"

var (
	// ErrNotFound means no record exists for the user id.
	ErrNotFound = errors.New("user record not found")

	// ErrDegraded is returned for writes while the store is running on
	// an empty dataset after an unrecoverable snapshot corruption. A
	// flush in that state would overwrite data a human might still
	// salvage from disk.
	ErrDegraded = errors.New("store is degraded, writes are disabled")
)
