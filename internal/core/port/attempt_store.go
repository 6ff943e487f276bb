package port

import (
	"context"
	"time"
)

// AttemptState is the current throttling record for a client identifier.
type AttemptState struct {
	Failures    int
	LockedUntil time.Time
	LastAttempt time.Time
}

// LoginAttemptStore persists failure counters and lockout windows per client
// identifier. Mutations for a single identifier are atomic relative to each
// other; stale records may be evicted lazily on the next access.
type LoginAttemptStore interface {
	// Fail increments the failure counter and returns the updated state. When
	// the counter reaches threshold the implementation records
	// lockedUntil = now + lockFor and freezes the counter until that instant
	// passes.
	Fail(ctx context.Context, clientID string, threshold int, lockFor time.Duration) (AttemptState, error)
	// State returns the current record without mutating it.
	State(ctx context.Context, clientID string) (AttemptState, error)
	// Clear removes the record for the identifier.
	Clear(ctx context.Context, clientID string) error
}
