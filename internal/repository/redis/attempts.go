package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
)

const defaultAttemptPrefix = "lsm:login_attempt"

// failScript atomically records a login failure. While a lockout is active the
// counter is frozen; once the lockout instant passes the record starts fresh.
// Keys expire after the lock duration so abandoned records evict themselves.
var failScript = red.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local threshold = tonumber(ARGV[2])
local lock_ms = tonumber(ARGV[3])

local locked_until = tonumber(redis.call('HGET', key, 'locked_until') or '0')
if locked_until > now then
  redis.call('HSET', key, 'last_attempt', now)
  local failures = tonumber(redis.call('HGET', key, 'failures') or '0')
  return {failures, locked_until}
end
if locked_until > 0 then
  redis.call('DEL', key)
end

local failures = redis.call('HINCRBY', key, 'failures', 1)
redis.call('HSET', key, 'last_attempt', now)
if failures >= threshold then
  locked_until = now + lock_ms
  redis.call('HSET', key, 'locked_until', locked_until)
end
redis.call('PEXPIRE', key, lock_ms)
return {failures, locked_until}
`)

// LoginAttemptRepository persists failure counters and lockout windows in Redis hashes.
type LoginAttemptRepository struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

// NewLoginAttemptRepository constructs a repository using the provided Redis client.
func NewLoginAttemptRepository(client *red.Client, prefix string) *LoginAttemptRepository {
	if prefix == "" {
		prefix = defaultAttemptPrefix
	}
	return &LoginAttemptRepository{client: client, prefix: prefix, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (r *LoginAttemptRepository) WithClock(now func() time.Time) *LoginAttemptRepository {
	r.now = now
	return r
}

// Fail increments the failure counter and returns the updated state.
func (r *LoginAttemptRepository) Fail(ctx context.Context, clientID string, threshold int, lockFor time.Duration) (port.AttemptState, error) {
	now := r.now().UTC()
	result, err := failScript.Run(ctx, r.client,
		[]string{r.key(clientID)},
		now.UnixMilli(), threshold, lockFor.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return port.AttemptState{}, fmt.Errorf("redis record login failure: %w", err)
	}
	if len(result) != 2 {
		return port.AttemptState{}, fmt.Errorf("unexpected fail script result length %d", len(result))
	}

	state := port.AttemptState{
		Failures:    int(result[0]),
		LastAttempt: now,
	}
	if result[1] > 0 {
		state.LockedUntil = time.UnixMilli(result[1]).UTC()
	}

	return state, nil
}

// State returns the current record without mutating it.
func (r *LoginAttemptRepository) State(ctx context.Context, clientID string) (port.AttemptState, error) {
	fields, err := r.client.HGetAll(ctx, r.key(clientID)).Result()
	if err != nil {
		return port.AttemptState{}, fmt.Errorf("redis read login attempts: %w", err)
	}
	if len(fields) == 0 {
		return port.AttemptState{}, nil
	}

	state := port.AttemptState{}
	if raw, ok := fields["failures"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			state.Failures = v
		}
	}
	if raw, ok := fields["locked_until"]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			state.LockedUntil = time.UnixMilli(ms).UTC()
		}
	}
	if raw, ok := fields["last_attempt"]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			state.LastAttempt = time.UnixMilli(ms).UTC()
		}
	}

	// A lockout that already elapsed reads as a clean slate.
	if !state.LockedUntil.IsZero() && !state.LockedUntil.After(r.now().UTC()) {
		return port.AttemptState{LastAttempt: state.LastAttempt}, nil
	}

	return state, nil
}

// Clear removes the record for the identifier.
func (r *LoginAttemptRepository) Clear(ctx context.Context, clientID string) error {
	if err := r.client.Del(ctx, r.key(clientID)).Err(); err != nil {
		return fmt.Errorf("redis clear login attempts: %w", err)
	}
	return nil
}

func (r *LoginAttemptRepository) key(clientID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, clientID)
}

var _ port.LoginAttemptStore = (*LoginAttemptRepository)(nil)
