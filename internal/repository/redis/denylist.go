package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
)

const defaultDenylistPrefix = "lsm:token_denylist"

// AccessTokenDenylistRepository records invalidated access token hashes with a
// TTL matching the token's remaining lifetime, so entries vanish once the token
// would have expired anyway.
type AccessTokenDenylistRepository struct {
	client *red.Client
	prefix string
}

// NewAccessTokenDenylistRepository constructs a repository using the provided Redis client.
func NewAccessTokenDenylistRepository(client *red.Client, prefix string) *AccessTokenDenylistRepository {
	if prefix == "" {
		prefix = defaultDenylistPrefix
	}
	return &AccessTokenDenylistRepository{client: client, prefix: prefix}
}

// Invalidate marks the token hash as revoked for the supplied TTL.
func (r *AccessTokenDenylistRepository) Invalidate(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to persist.
		return nil
	}
	if err := r.client.Set(ctx, r.key(tokenHash), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set denylist entry: %w", err)
	}
	return nil
}

// IsInvalidated reports whether the token hash has been revoked.
func (r *AccessTokenDenylistRepository) IsInvalidated(ctx context.Context, tokenHash string) (bool, error) {
	if err := r.client.Get(ctx, r.key(tokenHash)).Err(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get denylist entry: %w", err)
	}
	return true, nil
}

func (r *AccessTokenDenylistRepository) key(tokenHash string) string {
	return fmt.Sprintf("%s:%s", r.prefix, tokenHash)
}

var _ port.AccessTokenDenylist = (*AccessTokenDenylistRepository)(nil)
