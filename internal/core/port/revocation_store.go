package port

import (
	"context"
	"time"
)

// AccessTokenDenylist records invalidated access tokens until their natural
// expiry so that logout can revoke otherwise stateless tokens.
type AccessTokenDenylist interface {
	Invalidate(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsInvalidated(ctx context.Context, tokenHash string) (bool, error)
}
