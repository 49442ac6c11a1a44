package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves /v1/users. The caller's own profile is open to every
// role; the rest is tenant administration behind user.read.all and
// user.update.all, checked in the service.
type UserHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type meResponse struct {
	User        *models.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

type updateProfileRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
}

type createUserRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,max=100"`
	Role        string `json:"role" binding:"omitempty,oneof=admin owner user"`
}

type updateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
	Role        *string `json:"role" binding:"omitempty,oneof=admin owner user"`
	IsActive    *bool   `json:"is_active"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// GetMe handles GET /v1/users/me
//
// Returns the caller's profile plus the permissions carried by the token,
// which may lag a role change until the next login.
func (h *UserHandler) GetMe(c *gin.Context) {
	caller := middleware.GetCaller(c)
	user, err := h.users.Profile(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err, "failed to get user")
		return
	}
	c.JSON(http.StatusOK, meResponse{User: user, Permissions: caller.Permissions.Strings()})
}

// GetProfile handles GET /v1/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondError(c, h.logger, err, "failed to get profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /v1/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetCaller(c), service.ProfileUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// List handles GET /v1/users
func (h *UserHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.users.List(c.Request.Context(), middleware.GetCaller(c), q.Page, q.Limit)
	if err != nil {
		respondError(c, h.logger, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.logger, err, "failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create handles POST /v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.Create(c.Request.Context(), middleware.GetCaller(c), service.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Update handles PUT /v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.Update(c.Request.Context(), middleware.GetCaller(c), id, models.UserUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, h.logger, err, "failed to update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondError(c, h.logger, err, "failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetPassword handles POST /v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), middleware.GetCaller(c), id, req.NewPassword); err != nil {
		respondError(c, h.logger, err, "failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// ToggleActive handles POST /v1/users/:id/toggle-active
func (h *UserHandler) ToggleActive(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	user, err := h.users.ToggleActive(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondError(c, h.logger, err, "failed to toggle user")
		return
	}
	c.JSON(http.StatusOK, user)
}
