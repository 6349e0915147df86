package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc AuthService }

// RegisterRoutes: /login と /register は認証不要
func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/login", h.Login)
	r.POST("/register", h.Register)
}

// RegisterAccountRoutes: 認証済みルート用
func RegisterAccountRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.PUT("/me/password", h.ChangePassword)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary  Exchange email and password for a bearer token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} map[string]string
// @Failure  401 {object} map[string]any
// @Router   /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "email and password are required"))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, ErrAuthenticationFailed) {
			log.Printf("[ERROR] login: %v", err)
		}
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "email or password is incorrect"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Login successful",
	})
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register godoc
// @Summary  Create an account for an email on the authorized list
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "new account"
// @Success  201 {object} map[string]string
// @Failure  403 {object} map[string]any
// @Failure  409 {object} map[string]any
// @Router   /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "email and a password of at least 8 characters are required"))
		return
	}

	if err := h.svc.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, errorBody("CONFLICT", "account already exists"))
		case errors.Is(err, ErrNotWhitelisted):
			c.JSON(http.StatusForbidden, errorBody("UNAUTHORIZED", "email is not on the authorized list"))
		case errors.Is(err, ErrInvalidInput):
			c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", err.Error()))
		case errors.Is(err, ErrAuthzUnavailable):
			log.Printf("[ERROR] register: %v", err)
			c.JSON(http.StatusServiceUnavailable, errorBody("AUTH_CHECK_FAILED", "authorized email list is unavailable"))
		default:
			log.Printf("[ERROR] register: %v", err)
			c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "register failed"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registered"})
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword godoc
// @Summary  Change the caller's password
// @Tags     auth
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body ChangePasswordRequest true "old and new password"
// @Success  200 {object} map[string]string
// @Failure  401 {object} map[string]any
// @Router   /me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "old_password and a new_password of at least 8 characters are required"))
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), EmailFrom(c), req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "account not found"))
		case errors.Is(err, ErrAuthenticationFailed):
			c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "old password is incorrect"))
		default:
			log.Printf("[ERROR] change password: %v", err)
			c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "change password failed"))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
