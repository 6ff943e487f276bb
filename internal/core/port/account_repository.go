package port

import (
	"context"
	"time"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
)

// AccountRepository exposes persistence behavior for the user directory.
// CreateWithDetails persists the account row and its role-specific detail
// record atomically; neither survives if the other fails.
type AccountRepository interface {
	CreateWithDetails(ctx context.Context, account domain.Account, student *domain.StudentDetails, teacher *domain.TeacherDetails) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
