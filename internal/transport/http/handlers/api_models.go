package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Role      string     `json:"role"`
	Enabled   bool       `json:"enabled"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	if account == nil {
		return AccountSummary{}
	}
	return AccountSummary{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      string(account.Role),
		Enabled:   account.Enabled,
		LastLogin: account.LastLogin,
	}
}

// AuthLoginRequest defines the payload for the login endpoint.
type AuthLoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// AuthLoginResponse describes the response returned for a successful login.
type AuthLoginResponse struct {
	AccessToken      string         `json:"access_token"`
	RefreshToken     string         `json:"refresh_token"`
	TokenType        string         `json:"token_type"`
	ExpiresIn        int            `json:"expires_in"`
	RefreshExpiresIn int64          `json:"refresh_expires_in_ms"`
	User             AccountSummary `json:"user"`
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenRefreshResponse contains the access token issued by the refresh
// endpoint together with the presented refresh token, which is not rotated
// and keeps its original validity.
type TokenRefreshResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	User         *AccountSummary `json:"user,omitempty"`
}

// LogoutRequest selects which sessions the logout affects. When refresh_token
// is empty or all_devices is set, every session of the account is removed.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	AllDevices   bool   `json:"all_devices"`
}

// LogoutResponse reports what logout removed.
type LogoutResponse struct {
	Message       string `json:"message"`
	TokensRemoved int    `json:"tokens_removed"`
}

// StudentDetailsPayload carries the student-specific registration fields.
type StudentDetailsPayload struct {
	TC               string     `json:"tc" binding:"required"`
	Phone            *string    `json:"phone"`
	ParentName       *string    `json:"parent_name"`
	ParentPhone      *string    `json:"parent_phone"`
	BirthDate        *time.Time `json:"birth_date"`
	RegistrationDate *time.Time `json:"registration_date"`
	ClassIDs         []int64    `json:"class_ids"`
}

// TeacherDetailsPayload carries the teacher-specific registration fields.
type TeacherDetailsPayload struct {
	TC        string     `json:"tc" binding:"required"`
	Phone     *string    `json:"phone"`
	BirthDate *time.Time `json:"birth_date"`
	ClassIDs  []int64    `json:"class_ids"`
}

// RegistrationRequest defines the account registration payload.
type RegistrationRequest struct {
	Username  string                 `json:"username" binding:"required"`
	Email     string                 `json:"email" binding:"required,email"`
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Password  string                 `json:"password" binding:"required"`
	Role      string                 `json:"role" binding:"required"`
	Student   *StudentDetailsPayload `json:"student,omitempty"`
	Teacher   *TeacherDetailsPayload `json:"teacher,omitempty"`
}

// RegistrationResponse contains the created account.
type RegistrationResponse struct {
	User    AccountSummary `json:"user"`
	Message string         `json:"message,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
