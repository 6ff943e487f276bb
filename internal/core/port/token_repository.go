package port

import (
	"context"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
)

// RefreshTokenRepository manages the durable record of outstanding refresh tokens.
type RefreshTokenRepository interface {
	// CreateWithCapacity inserts the token after evicting the account's oldest
	// tokens so that at most maxPerAccount records remain, including the new one.
	// The evict-then-insert pair executes inside a per-account critical section.
	CreateWithCapacity(ctx context.Context, token domain.RefreshToken, maxPerAccount int) error
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.RefreshToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByHash(ctx context.Context, hash string) error
	DeleteAllForAccount(ctx context.Context, accountID string) (int, error)
}
