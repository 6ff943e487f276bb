package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/repository"
)

const pgUniqueViolation = "23505"

// AccountRepository implements port.AccountRepository using PostgreSQL tables.
type AccountRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by a pool capable of transactions.
func NewAccountRepository(pool pgPool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var accountColumns = []string{
	"id",
	"username",
	"email",
	"first_name",
	"last_name",
	"password_hash",
	"role",
	"enabled",
	"registered_at",
	"last_login",
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	stmt, args, err := r.builder.Insert("lsm.accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Username,
			account.Email,
			account.FirstName,
			account.LastName,
			account.PasswordHash,
			string(account.Role),
			account.Enabled,
			account.RegisteredAt,
			account.LastLogin,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// CreateWithDetails inserts the account row and the role-specific detail row
// in one transaction, so a failed detail insert leaves no orphaned account.
func (r *AccountRepository) CreateWithDetails(ctx context.Context, account domain.Account, student *domain.StudentDetails, teacher *domain.TeacherDetails) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txRepo := r.WithTx(tx)

	if err := txRepo.Create(ctx, account); err != nil {
		return err
	}
	if student != nil {
		if err := txRepo.CreateStudentDetails(ctx, *student); err != nil {
			return err
		}
	}
	if teacher != nil {
		if err := txRepo.CreateTeacherDetails(ctx, *teacher); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit registration transaction: %w", err)
	}

	return nil
}

// CreateStudentDetails inserts the student-specific registration record.
func (r *AccountRepository) CreateStudentDetails(ctx context.Context, details domain.StudentDetails) error {
	stmt, args, err := r.builder.Insert("lsm.student_details").
		Columns(
			"account_id",
			"tc",
			"phone",
			"parent_name",
			"parent_phone",
			"birth_date",
			"registration_date",
			"class_ids",
		).
		Values(
			details.AccountID,
			details.TC,
			details.Phone,
			details.ParentName,
			details.ParentPhone,
			details.BirthDate,
			details.RegistrationDate,
			details.ClassIDs,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert student details sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert student details: %w", err)
	}

	return nil
}

// CreateTeacherDetails inserts the teacher-specific registration record.
func (r *AccountRepository) CreateTeacherDetails(ctx context.Context, details domain.TeacherDetails) error {
	stmt, args, err := r.builder.Insert("lsm.teacher_details").
		Columns(
			"account_id",
			"tc",
			"phone",
			"birth_date",
			"class_ids",
		).
		Values(
			details.AccountID,
			details.TC,
			details.Phone,
			details.BirthDate,
			details.ClassIDs,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert teacher details sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert teacher details: %w", err)
	}

	return nil
}

// GetByID retrieves an account by primary key.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("lsm.accounts").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByIdentifier retrieves an account by username or email.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("lsm.accounts").
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Eq{"email": identifier},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// ExistsByUsername reports whether the username is already taken.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"username": username})
}

// ExistsByEmail reports whether the email is already taken.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"email": email})
}

func (r *AccountRepository) exists(ctx context.Context, pred squirrel.Eq) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("lsm.accounts").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query account existence: %w", err)
	}

	return true, nil
}

// TouchLastLogin updates the last successful login timestamp.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("lsm.accounts").
		Set("last_login", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		role      string
		lastLogin sql.NullTime
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&role,
		&account.Enabled,
		&account.RegisteredAt,
		&lastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Role = domain.AccountRole(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		account.LastLogin = &t
	}

	return &account, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
