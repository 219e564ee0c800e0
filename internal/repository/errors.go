package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a session changed since it was read.
	ErrVersionConflict = errors.New("session version conflict")
)
