package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/apperrors"
	"relay-service/internal/auth"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

// AuthHandler manages registration and login. Identity is returned to the
// caller, who keeps it client-side; the relay issues no session tokens.
type AuthHandler struct {
	users repositories.UserRepository
	audit *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, audit: audit}
}

// Register handles POST /api/users/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username        string `json:"username" binding:"required"`
		Password        string `json:"password" binding:"required"`
		PasswordConfirm string `json:"password_confirm" binding:"required"`
		Email           string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Password != req.PasswordConfirm {
		respondError(c, apperrors.Wrap(apperrors.ErrValidation, "as senhas não coincidem"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, hash, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "user registered", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Usuário registrado com sucesso",
		"user":    user.Public(),
	})
}

// Login handles POST /api/users/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		// An unknown username reads the same as a wrong password.
		emitAudit(c, h.audit, "ERROR", "login failed", "")
		respondError(c, apperrors.ErrAuth)
		return
	}

	ok, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !ok || !user.IsActive {
		emitAudit(c, h.audit, "ERROR", "login failed", user.ID)
		respondError(c, apperrors.ErrAuth)
		return
	}

	user, err = h.users.TouchLastLogin(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "login succeeded", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login realizado com sucesso",
		"user":    user.Public(),
	})
}

// GetUser handles GET /api/users/:id.
func (h *AuthHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// SetActive handles POST /api/users/:id/active, the admin-equivalent toggle.
func (h *AuthHandler) SetActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "user active toggled", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}
