package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/infra/security"
	"github.com/learnovify/Learning-Management-System/internal/transport/http/middleware"
	"github.com/learnovify/Learning-Management-System/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RouteMiddlewares carries optional per-route middleware chains applied ahead of handlers.
type RouteMiddlewares struct {
	Login   []gin.HandlerFunc
	Refresh []gin.HandlerFunc
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, mw RouteMiddlewares) {
	r.POST("/login", withChain(mw.Login, h.login)...)
	r.POST("/refresh", withChain(mw.Refresh, h.refresh)...)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.POST("/accounts/:id/logout", middleware.RequireAuth(h.auth), middleware.RequireRole(string(domain.RoleAdmin)), h.forceLogout)
}

func withChain(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := append([]gin.HandlerFunc{}, chain...)
	return append(out, handler)
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrLockedOut, Status: http.StatusTooManyRequests, Message: "too many failed login attempts, try again later"},
	{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account disabled"},
}

// Login godoc
// @Summary Authenticate an account with credentials
// @Description Validates the provided identifier and password, returning access and refresh tokens on success.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body AuthLoginRequest true "Login request"
// @Success 200 {object} AuthLoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Identifier: strings.TrimSpace(req.Identifier),
		Password:   req.Password,
		ClientIP:   strings.TrimSpace(c.ClientIP()),
		UserAgent:  strings.TrimSpace(c.Request.UserAgent()),
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, AuthLoginResponse{
		AccessToken:      result.AccessToken,
		RefreshToken:     result.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        expiresInSeconds(result.ExpiresAt),
		RefreshExpiresIn: expiresInMilliseconds(result.RefreshExpiresAt),
		User:             newAccountSummary(result.Account),
	})
}

var refreshErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
	{Err: usecase.ErrExpiredRefreshToken, Status: http.StatusUnauthorized, Message: "refresh token expired"},
	{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account disabled"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
}

// Refresh godoc
// @Summary Refresh an access token
// @Description Issues a new access token using a valid refresh token. The refresh token is not rotated.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body TokenRefreshRequest true "Refresh request"
// @Success 200 {object} TokenRefreshResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	result, err := h.auth.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithMappedError(c, err, refreshErrorCases, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	response := TokenRefreshResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresInSeconds(result.ExpiresAt),
	}

	rawInclude := c.DefaultQuery("include_user", "false")
	if strings.EqualFold(rawInclude, "true") || rawInclude == "1" {
		summary := newAccountSummary(result.Account)
		response.User = &summary
	}

	c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary Logout the current session
// @Description Removes refresh tokens and invalidates the presented access token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} LogoutResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedUserID(c)
	claims := getAccessTokenClaims(c)
	if !ok || claims == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		// An empty body means "log out this session only".
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid logout payload"))
		return
	}

	accessToken, _ := c.Get("access_token")
	accessTokenStr, _ := accessToken.(string)

	input := usecase.LogoutInput{
		AccountID:    accountID,
		Username:     claims.Username,
		AccessToken:  accessTokenStr,
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		AllDevices:   req.AllDevices,
	}

	result, err := h.auth.Logout(c.Request.Context(), input)
	if err != nil {
		removed := 0
		if result != nil {
			removed = result.TokensRemoved
		}
		c.JSON(http.StatusInternalServerError, LogoutResponse{
			Message:       "logout completed with errors",
			TokensRemoved: removed,
		})
		return
	}

	c.JSON(http.StatusOK, LogoutResponse{
		Message:       "logged out",
		TokensRemoved: result.TokensRemoved,
	})
}

// ForceLogout godoc
// @Summary Revoke all sessions of an account
// @Description Removes every refresh token of the target account. Requires the admin role.
// @Tags Authentication
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} LogoutResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/auth/accounts/{id}/logout [post]
func (h *AuthHandler) forceLogout(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("id"))
	if accountID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "account id is required"))
		return
	}

	result, err := h.auth.RevokeAccountSessions(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
			return
		}
		removed := 0
		if result != nil {
			removed = result.TokensRemoved
		}
		c.JSON(http.StatusInternalServerError, LogoutResponse{
			Message:       "logout completed with errors",
			TokensRemoved: removed,
		})
		return
	}

	c.JSON(http.StatusOK, LogoutResponse{
		Message:       "sessions revoked",
		TokensRemoved: result.TokensRemoved,
	})
}

func getAccessTokenClaims(c *gin.Context) *security.AccessTokenClaims {
	raw, exists := c.Get("claims")
	if !exists {
		return nil
	}

	claims, ok := raw.(*security.AccessTokenClaims)
	if !ok {
		return nil
	}

	return claims
}

func expiresInSeconds(expiresAt time.Time) int {
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}

func expiresInMilliseconds(expiresAt time.Time) int64 {
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return 0
	}
	return remaining.Milliseconds()
}
