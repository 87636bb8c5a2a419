package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest is the body for POST /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest is the body for POST /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// TokenResponse is the auth response with the issued pair.
type TokenResponse struct {
	Tokens TokenPair         `json:"tokens"`
	User   models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Login handles POST /auth/login. Failures are indistinguishable whether the
// email exists or not.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	pair, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Unauthenticated(c, "invalid email or password")
		return
	}
	response.OK(c, TokenResponse{Tokens: *pair, User: user.ToPublic()})
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token required")
		return
	}
	pair, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// Theft suspicion is logged inside the service; the caller only
		// learns the token no longer works.
		response.Unauthenticated(c, "invalid or expired refresh token")
		return
	}
	response.OK(c, gin.H{"tokens": pair})
}

// Logout handles POST /auth/logout (JWT required).
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthenticated(c, "missing user context")
		return
	}
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.service.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.logger.Error("logout", zap.Error(err))
		response.Internal(c, "failed to log out")
		return
	}
	response.NoContent(c)
}

// ChangePassword handles POST /auth/password (JWT required). All sessions
// for the principal are invalidated on success.
func (h *Handler) ChangePassword(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthenticated(c, "missing user context")
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Unauthenticated(c, "invalid token subject")
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthenticated(c, "current password incorrect")
			return
		}
		h.logger.Error("change password", zap.Error(err))
		response.Internal(c, "failed to change password")
		return
	}
	response.NoContent(c)
}

// Me handles GET /auth/me (JWT required).
func (h *Handler) Me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.Unauthenticated(c, "missing user context")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		response.Unauthenticated(c, "invalid token subject")
		return
	}
	user, err := h.service.users.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}
