package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/repository"
)

func testRefreshToken() domain.RefreshToken {
	createdAt := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	return domain.RefreshToken{
		ID:        "token-1",
		AccountID: "account-1",
		TokenHash: "deadbeef",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(168 * time.Hour),
	}
}

func TestRefreshTokenRepository_CreateWithCapacity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	token := testRefreshToken()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs(token.AccountID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE account_id = \$1 AND expires_at <= now\(\)`).
		WithArgs(token.AccountID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`WHERE id IN`).
		WithArgs(token.AccountID, 4).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`INSERT INTO lsm\.refresh_tokens`).
		WithArgs(token.ID, token.AccountID, token.TokenHash, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	if err := repo.CreateWithCapacity(context.Background(), token, 5); err != nil {
		t.Fatalf("CreateWithCapacity returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepository_CreateWithCapacity_RejectsNonPositiveCap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	if err := repo.CreateWithCapacity(context.Background(), testRefreshToken(), 0); err == nil {
		t.Fatal("expected non-positive capacity to error")
	}
}

func TestRefreshTokenRepository_CreateWithCapacity_RollsBackOnInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	token := testRefreshToken()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs(token.AccountID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE account_id = \$1 AND expires_at <= now\(\)`).
		WithArgs(token.AccountID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`WHERE id IN`).
		WithArgs(token.AccountID, 4).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO lsm\.refresh_tokens`).
		WithArgs(token.ID, token.AccountID, token.TokenHash, token.CreatedAt, token.ExpiresAt).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.CreateWithCapacity(context.Background(), token, 5); err == nil {
		t.Fatal("expected insert failure to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepository_GetByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	want := testRefreshToken()

	rows := pgxmock.NewRows([]string{"id", "account_id", "token_hash", "created_at", "expires_at"}).
		AddRow(want.ID, want.AccountID, want.TokenHash, want.CreatedAt, want.ExpiresAt)

	mock.ExpectQuery(`SELECT .* FROM lsm\.refresh_tokens WHERE token_hash = \$1`).
		WithArgs("deadbeef").
		WillReturnRows(rows)

	token, err := repo.GetByHash(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("GetByHash returned error: %v", err)
	}
	if token.ID != want.ID || token.AccountID != want.AccountID {
		t.Fatalf("unexpected token: %+v", token)
	}
	if !token.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", want.ExpiresAt, token.ExpiresAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM lsm\.refresh_tokens WHERE token_hash = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByHash(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRepository_DeleteByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE token_hash = \$1`).
		WithArgs("deadbeef").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.DeleteByHash(context.Background(), "deadbeef"); err != nil {
		t.Fatalf("DeleteByHash returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepository_DeleteByHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE token_hash = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.DeleteByHash(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRepository_DeleteAllForAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE account_id = \$1`).
		WithArgs("account-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	count, err := repo.DeleteAllForAccount(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("DeleteAllForAccount returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected three rows removed, got %d", count)
	}
}

func TestRefreshTokenRepository_DeleteAllForAccount_NoRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec(`DELETE FROM lsm\.refresh_tokens WHERE account_id = \$1`).
		WithArgs("account-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	count, err := repo.DeleteAllForAccount(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("expected zero deletions to succeed, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero rows removed, got %d", count)
	}
}

func TestRefreshTokenRepository_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	first := testRefreshToken()
	second := testRefreshToken()
	second.ID = "token-2"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	rows := pgxmock.NewRows([]string{"id", "account_id", "token_hash", "created_at", "expires_at"}).
		AddRow(first.ID, first.AccountID, first.TokenHash, first.CreatedAt, first.ExpiresAt).
		AddRow(second.ID, second.AccountID, second.TokenHash, second.CreatedAt, second.ExpiresAt)

	mock.ExpectQuery(`SELECT .* FROM lsm\.refresh_tokens WHERE account_id = \$1 ORDER BY created_at ASC`).
		WithArgs("account-1").
		WillReturnRows(rows)

	tokens, err := repo.ListByAccount(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("ListByAccount returned error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected two tokens, got %d", len(tokens))
	}
	if tokens[0].ID != "token-1" || tokens[1].ID != "token-2" {
		t.Fatalf("expected oldest-first ordering, got %s then %s", tokens[0].ID, tokens[1].ID)
	}
}
