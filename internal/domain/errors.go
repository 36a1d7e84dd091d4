package domain

import "errors"

var (
	// ErrValidation marks malformed caller input (short queries, bad
	// rectangle corners, an unparsable excluded-place list).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a query that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrLookup marks a geocoding call that failed, timed out, or returned
	// nothing. Lookups are retried only on the next periodic cycle.
	ErrLookup = errors.New("geocoding lookup failed")

	// ErrPersistence marks a cache document read or write failure.
	ErrPersistence = errors.New("persistence failure")
)
