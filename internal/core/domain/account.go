package domain

import "time"

// AccountRole enumerates the privilege levels an account can hold.
type AccountRole string

const (
	RoleStudent     AccountRole = "student"
	RoleTeacher     AccountRole = "teacher"
	RoleCoordinator AccountRole = "coordinator"
	RoleAdmin       AccountRole = "admin"
)

// Valid reports whether the role is one of the known privilege levels.
func (r AccountRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleCoordinator, RoleAdmin:
		return true
	}
	return false
}

// Account mirrors the persisted representation in the accounts table.
// Username and email are globally unique.
type Account struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         AccountRole
	Enabled      bool
	RegisteredAt time.Time
	LastLogin    *time.Time
}

// StudentDetails carries the student-specific registration payload attached to an account.
type StudentDetails struct {
	AccountID        string
	TC               string
	Phone            *string
	ParentName       *string
	ParentPhone      *string
	BirthDate        *time.Time
	RegistrationDate *time.Time
	ClassIDs         []int64
}

// TeacherDetails carries the teacher-specific registration payload attached to an account.
type TeacherDetails struct {
	AccountID string
	TC        string
	Phone     *string
	BirthDate *time.Time
	ClassIDs  []int64
}
