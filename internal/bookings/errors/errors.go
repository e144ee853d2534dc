package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrNightTaken surfaces the occupancy ledger's per-night uniqueness
	// violation: some requested (accommodation, night) pair is already owned
	// by a non-cancelled booking.
	ErrNightTaken = errors.New("accommodation already occupied for one of the requested nights")

	// ErrTransientStore marks an infrastructure failure of the transactional
	// write path. It never reaches the caller; the coordinator falls back to
	// the lock-guarded path instead.
	ErrTransientStore = errors.New("transient store failure")

	ErrAccommodationNotFound = errors.New("accommodation not found")
)
