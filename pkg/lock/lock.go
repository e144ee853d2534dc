// Package lock provides keyed, lease-based mutual exclusion over a shared
// store. A lease is held by exactly one owner token until that owner releases
// it or its expiry passes; after expiry any party may treat the key as free.
// The package knows nothing about bookings - any keyed resource can use it.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned by Acquire when the key stayed held by a live owner
// for the whole acquisition window. It is an expected outcome, not a fault.
var ErrBusy = errors.New("lock: key is held by another owner")

// Lease is the stored lock record. Key doubles as the document ID so the
// store's primary-key uniqueness backs the mutual exclusion.
type Lease struct {
	Key       string    `json:"key" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Expired reports whether the lease's expiry has passed at the given instant.
func (l Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// Store is the atomic primitive the manager is built on.
type Store interface {
	// TryAcquire writes a lease for key owned by owner if and only if no
	// lease exists or the existing one has expired. The check-and-write
	// must be a single indivisible store operation; implementations that
	// read then write separately are unsafe under concurrency.
	// Returns false with a nil error when the key is held by a live owner.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release deletes the lease only when its current owner matches owner.
	// A mismatch or a missing lease deletes nothing and is not an error.
	Release(ctx context.Context, key, owner string) error

	// DeleteExpired removes every lease whose expiry has already passed
	// and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
