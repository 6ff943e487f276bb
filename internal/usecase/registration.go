package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/infra/logger"
	"github.com/learnovify/Learning-Management-System/internal/infra/security"
	"github.com/learnovify/Learning-Management-System/internal/infra/telemetry"
	"github.com/learnovify/Learning-Management-System/internal/repository"
)

var (
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrWeakPassword indicates the password failed the registration policy.
	ErrWeakPassword = errors.New("password does not satisfy policy")
	// ErrInvalidRole indicates the requested role is unknown.
	ErrInvalidRole = errors.New("invalid account role")
	// ErrDetailsMismatch indicates the detail payload does not match the role.
	ErrDetailsMismatch = errors.New("detail payload does not match account role")
)

// StudentDetailsInput carries the student-specific registration fields.
type StudentDetailsInput struct {
	TC               string
	Phone            *string
	ParentName       *string
	ParentPhone      *string
	BirthDate        *time.Time
	RegistrationDate *time.Time
	ClassIDs         []int64
}

// TeacherDetailsInput carries the teacher-specific registration fields.
type TeacherDetailsInput struct {
	TC        string
	Phone     *string
	BirthDate *time.Time
	ClassIDs  []int64
}

// RegisterInput describes a registration request. Student and Teacher are
// mutually exclusive and must agree with Role.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      domain.AccountRole
	Student   *StudentDetailsInput
	Teacher   *TeacherDetailsInput
}

// RegistrationService creates accounts with the configured password policy.
type RegistrationService struct {
	accounts  port.AccountRepository
	hasher    port.PasswordHasher
	validator *security.PasswordValidator
	publisher port.EventPublisher
	metrics   *telemetry.AuthMetrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	publisher port.EventPublisher,
	metrics *telemetry.AuthMetrics,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	if validator == nil {
		validator = security.RegistrationPasswordValidator()
	}

	service := &RegistrationService{
		accounts:  accounts,
		hasher:    hasher,
		validator: validator,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	service.newID = uuid.NewString
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register validates the request, creates the account, and persists the
// role-specific detail record.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := validateDetailVariant(input); err != nil {
		return nil, err
	}

	if taken, err := s.accounts.ExistsByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, ErrDuplicateUsername
	}

	if taken, err := s.accounts.ExistsByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, ErrDuplicateEmail
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := domain.Account{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		Role:         input.Role,
		Enabled:      true,
		RegisteredAt: now,
	}

	student, teacher := detailRecords(account.ID, input)
	if err := s.accounts.CreateWithDetails(ctx, account, student, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the race after the existence checks passed.
			if taken, checkErr := s.accounts.ExistsByEmail(ctx, email); checkErr == nil && taken {
				return nil, ErrDuplicateEmail
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(string(account.Role)).Inc()
	}

	s.publishRegistered(ctx, account)

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return &account, nil
}

// validateDetailVariant ensures the detail payload matches the requested role.
func validateDetailVariant(input RegisterInput) error {
	if input.Student != nil && input.Teacher != nil {
		return ErrDetailsMismatch
	}

	switch input.Role {
	case domain.RoleStudent:
		if input.Teacher != nil {
			return ErrDetailsMismatch
		}
	case domain.RoleTeacher:
		if input.Student != nil {
			return ErrDetailsMismatch
		}
	default:
		if input.Student != nil || input.Teacher != nil {
			return ErrDetailsMismatch
		}
	}

	return nil
}

// detailRecords maps the input variant onto the domain detail record for the
// transactional insert. At most one of the results is non-nil.
func detailRecords(accountID string, input RegisterInput) (*domain.StudentDetails, *domain.TeacherDetails) {
	switch {
	case input.Student != nil:
		return &domain.StudentDetails{
			AccountID:        accountID,
			TC:               input.Student.TC,
			Phone:            input.Student.Phone,
			ParentName:       input.Student.ParentName,
			ParentPhone:      input.Student.ParentPhone,
			BirthDate:        input.Student.BirthDate,
			RegistrationDate: input.Student.RegistrationDate,
			ClassIDs:         input.Student.ClassIDs,
		}, nil
	case input.Teacher != nil:
		return nil, &domain.TeacherDetails{
			AccountID: accountID,
			TC:        input.Teacher.TC,
			Phone:     input.Teacher.Phone,
			BirthDate: input.Teacher.BirthDate,
			ClassIDs:  input.Teacher.ClassIDs,
		}
	}
	return nil, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.publisher == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:      s.newID(),
		AccountID:    account.ID,
		Username:     account.Username,
		Email:        account.Email,
		Role:         account.Role,
		RegisteredAt: account.RegisteredAt,
	}

	if err := s.publisher.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish registration event failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}
