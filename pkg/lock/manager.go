package lock

import (
	"context"
	"resort/pkg/logger"
	"time"

	"github.com/google/uuid"
)

const maxRetryInterval = time.Second

// Manager layers owner-token generation, bounded retry with backoff, and
// advisory sweeping on top of a Store's atomic primitive.
type Manager struct {
	store         Store
	retryInterval time.Duration
	log           *logger.Logger
}

func NewManager(store Store, retryInterval time.Duration, log *logger.Logger) *Manager {
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
	}
	return &Manager{
		store:         store,
		retryInterval: retryInterval,
		log:           log,
	}
}

// Acquire attempts to take the lease for key, retrying with backoff until
// timeout elapses. On success it returns the owner token the caller must
// present to Release. When the key remains held by a live owner for the
// whole window it returns ErrBusy.
//
// Token generation lives here so uniqueness and format are a manager
// invariant rather than a caller convention.
func (m *Manager) Acquire(ctx context.Context, key string, ttl, timeout time.Duration) (string, error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(timeout)
	interval := m.retryInterval

	for {
		acquired, err := m.store.TryAcquire(ctx, key, owner, ttl)
		if err != nil {
			return "", err
		}
		if acquired {
			return owner, nil
		}

		if !time.Now().Add(interval).Before(deadline) {
			return "", ErrBusy
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		if interval *= 2; interval > maxRetryInterval {
			interval = maxRetryInterval
		}
	}
}

// Release gives the lease back. A mismatched or missing owner is a benign
// race (the TTL lapsed and the key was reassigned), so it is logged at debug
// and swallowed; only store faults are reported, and even those are safe to
// ignore since the lease self-expires.
func (m *Manager) Release(ctx context.Context, key, owner string) {
	if owner == "" {
		return
	}
	if err := m.store.Release(ctx, key, owner); err != nil {
		m.log.Warn("Failed to release lease lock", "key", key, "error", err)
		return
	}
	m.log.Debug("Lease lock released", "key", key)
}

// Sweep deletes lock records whose expiry has already passed. Called at
// process startup to bound storage growth from crashed holders; correctness
// does not depend on it because TryAcquire already treats expired leases
// as free.
func (m *Manager) Sweep(ctx context.Context) {
	deleted, err := m.store.DeleteExpired(ctx)
	if err != nil {
		m.log.Warn("Failed to sweep expired lease locks", "error", err)
		return
	}
	if deleted > 0 {
		m.log.Info("Swept expired lease locks", "deleted", deleted)
	}
}
