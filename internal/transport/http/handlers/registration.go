package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/usecase"
)

// RegistrationHandler exposes the account registration endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration routes, applying optional middleware ahead of the handler.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, chain ...gin.HandlerFunc) {
	r.POST("/register", withChain(chain, h.register)...)
}

var registrationErrorCases = []ErrorCase{
	{Err: usecase.ErrDuplicateUsername, Status: http.StatusConflict, Message: "username already registered"},
	{Err: usecase.ErrDuplicateEmail, Status: http.StatusConflict, Message: "email already registered"},
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
	{Err: usecase.ErrInvalidRole, Status: http.StatusBadRequest, Message: "unknown account role"},
	{Err: usecase.ErrDetailsMismatch, Status: http.StatusBadRequest, Message: "detail payload does not match role"},
}

// Register godoc
// @Summary Register a new account
// @Description Creates an account with the supplied credentials and role-specific details.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration request payload"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  req.Password,
		Role:      domain.AccountRole(strings.ToLower(strings.TrimSpace(req.Role))),
	}

	if req.Student != nil {
		input.Student = &usecase.StudentDetailsInput{
			TC:               req.Student.TC,
			Phone:            req.Student.Phone,
			ParentName:       req.Student.ParentName,
			ParentPhone:      req.Student.ParentPhone,
			BirthDate:        req.Student.BirthDate,
			RegistrationDate: req.Student.RegistrationDate,
			ClassIDs:         req.Student.ClassIDs,
		}
	}
	if req.Teacher != nil {
		input.Teacher = &usecase.TeacherDetailsInput{
			TC:        req.Teacher.TC,
			Phone:     req.Teacher.Phone,
			BirthDate: req.Teacher.BirthDate,
			ClassIDs:  req.Teacher.ClassIDs,
		}
	}

	account, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, registrationErrorCases, http.StatusInternalServerError, "failed to register account")
		return
	}

	account.PasswordHash = ""

	c.JSON(http.StatusCreated, RegistrationResponse{
		User:    newAccountSummary(account),
		Message: "account created",
	})
}
