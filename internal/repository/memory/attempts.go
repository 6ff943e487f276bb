package memory

import (
	"context"
	"sync"
	"time"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
)

type attemptRecord struct {
	failures    int
	lockedUntil time.Time
	lastAttempt time.Time
}

// LoginAttemptStore keeps failure counters in process memory. Used when Redis
// is disabled and in tests; records do not survive a restart.
type LoginAttemptStore struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	now     func() time.Time
}

// NewLoginAttemptStore constructs an empty in-memory attempt store.
func NewLoginAttemptStore() *LoginAttemptStore {
	return &LoginAttemptStore{
		records: make(map[string]*attemptRecord),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *LoginAttemptStore) WithClock(now func() time.Time) *LoginAttemptStore {
	s.now = now
	return s
}

// Fail increments the failure counter and returns the updated state.
func (s *LoginAttemptStore) Fail(_ context.Context, clientID string, threshold int, lockFor time.Duration) (port.AttemptState, error) {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[clientID]
	if ok && !record.lockedUntil.IsZero() {
		if record.lockedUntil.After(now) {
			// Lockout active; counter stays frozen.
			record.lastAttempt = now
			return stateOf(record), nil
		}
		// Lockout elapsed; start over.
		ok = false
	}
	if !ok {
		record = &attemptRecord{}
		s.records[clientID] = record
	}

	record.failures++
	record.lastAttempt = now
	if record.failures >= threshold {
		record.lockedUntil = now.Add(lockFor)
	}

	return stateOf(record), nil
}

// State returns the current record without mutating it.
func (s *LoginAttemptStore) State(_ context.Context, clientID string) (port.AttemptState, error) {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[clientID]
	if !ok {
		return port.AttemptState{}, nil
	}

	if !record.lockedUntil.IsZero() && !record.lockedUntil.After(now) {
		// Elapsed lockout reads as a clean slate and is evicted lazily.
		delete(s.records, clientID)
		return port.AttemptState{LastAttempt: record.lastAttempt}, nil
	}

	return stateOf(record), nil
}

// Clear removes the record for the identifier.
func (s *LoginAttemptStore) Clear(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, clientID)
	return nil
}

func stateOf(record *attemptRecord) port.AttemptState {
	return port.AttemptState{
		Failures:    record.failures,
		LockedUntil: record.lockedUntil,
		LastAttempt: record.lastAttempt,
	}
}

var _ port.LoginAttemptStore = (*LoginAttemptStore)(nil)
