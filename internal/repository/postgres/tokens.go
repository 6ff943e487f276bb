package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/repository"
)

// RefreshTokenRepository implements port.RefreshTokenRepository using PostgreSQL tables.
type RefreshTokenRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRefreshTokenRepository constructs a repository backed by a pool capable of transactions.
func NewRefreshTokenRepository(pool pgPool) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *RefreshTokenRepository) WithTx(tx pgx.Tx) *RefreshTokenRepository {
	if tx == nil {
		return r
	}
	return &RefreshTokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var refreshTokenColumns = []string{
	"id",
	"account_id",
	"token_hash",
	"created_at",
	"expires_at",
}

// CreateWithCapacity inserts the token after trimming the account's stockpile
// so that at most maxPerAccount rows remain, counting the new one. Expired rows
// are removed first; the remaining surplus is evicted oldest-first. The whole
// sequence runs in a transaction serialized per account via an advisory lock.
func (r *RefreshTokenRepository) CreateWithCapacity(ctx context.Context, token domain.RefreshToken, maxPerAccount int) error {
	if maxPerAccount <= 0 {
		return fmt.Errorf("max tokens per account must be positive, got %d", maxPerAccount)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refresh token transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", token.AccountID); err != nil {
		return fmt.Errorf("acquire account token lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM lsm.refresh_tokens WHERE account_id = $1 AND expires_at <= now()",
		token.AccountID,
	); err != nil {
		return fmt.Errorf("prune expired refresh tokens: %w", err)
	}

	// Keep the newest maxPerAccount-1 rows; the insert below fills the last slot.
	if _, err := tx.Exec(ctx, `
		DELETE FROM lsm.refresh_tokens
		 WHERE id IN (
			SELECT id FROM lsm.refresh_tokens
			 WHERE account_id = $1
			 ORDER BY created_at DESC, id DESC
			 OFFSET $2
		 )`,
		token.AccountID, maxPerAccount-1,
	); err != nil {
		return fmt.Errorf("evict surplus refresh tokens: %w", err)
	}

	stmt, args, err := r.builder.Insert("lsm.refresh_tokens").
		Columns(refreshTokenColumns...).
		Values(
			token.ID,
			token.AccountID,
			token.TokenHash,
			token.CreatedAt,
			token.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refresh token transaction: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hashed value.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.Select(refreshTokenColumns...).
		From("lsm.refresh_tokens").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var token domain.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &token, nil
}

// ListByAccount returns all refresh tokens held by the account, oldest first.
func (r *RefreshTokenRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.RefreshToken, error) {
	stmt, args, err := r.builder.Select(refreshTokenColumns...).
		From("lsm.refresh_tokens").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list refresh tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		var token domain.RefreshToken
		if err := rows.Scan(
			&token.ID,
			&token.AccountID,
			&token.TokenHash,
			&token.CreatedAt,
			&token.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}

	return tokens, nil
}

// DeleteByID removes a single refresh token row.
func (r *RefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteWhere(ctx, squirrel.Eq{"id": id})
}

// DeleteByHash removes the refresh token row matching the hash.
func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	return r.deleteWhere(ctx, squirrel.Eq{"token_hash": hash})
}

func (r *RefreshTokenRepository) deleteWhere(ctx context.Context, pred squirrel.Eq) error {
	stmt, args, err := r.builder.Delete("lsm.refresh_tokens").
		Where(pred).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteAllForAccount removes every refresh token for the account and returns
// the number of rows removed. Deleting zero rows is not an error.
func (r *RefreshTokenRepository) DeleteAllForAccount(ctx context.Context, accountID string) (int, error) {
	stmt, args, err := r.builder.Delete("lsm.refresh_tokens").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete refresh tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
