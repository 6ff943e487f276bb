package memory

import (
	"context"
	"sync"
	"time"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
)

// AccessTokenDenylist keeps revoked access token hashes in process memory.
// Expired entries are evicted lazily on lookup.
type AccessTokenDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewAccessTokenDenylist constructs an empty in-memory denylist.
func NewAccessTokenDenylist() *AccessTokenDenylist {
	return &AccessTokenDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (d *AccessTokenDenylist) WithClock(now func() time.Time) *AccessTokenDenylist {
	d.now = now
	return d
}

// Invalidate marks the token hash as revoked for the supplied TTL.
func (d *AccessTokenDenylist) Invalidate(_ context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[tokenHash] = d.now().UTC().Add(ttl)
	return nil
}

// IsInvalidated reports whether the token hash has been revoked.
func (d *AccessTokenDenylist) IsInvalidated(_ context.Context, tokenHash string) (bool, error) {
	now := d.now().UTC()

	d.mu.Lock()
	defer d.mu.Unlock()

	expiresAt, ok := d.entries[tokenHash]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(now) {
		delete(d.entries, tokenHash)
		return false, nil
	}
	return true, nil
}

var _ port.AccessTokenDenylist = (*AccessTokenDenylist)(nil)
