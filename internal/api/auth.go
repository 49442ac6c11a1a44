package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles signup, register and login, the only endpoints that
// run without a token.
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	TenantName  string `json:"tenant_name" binding:"required"`
}

// registerRequest joins an existing tenant. Tenant may be omitted when the
// X-Tenant-ID header names it.
type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Tenant      string `json:"tenant"`
	Role        string `json:"role" binding:"omitempty,oneof=owner user"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /v1/auth/signup. It creates a tenant and makes the
// caller its admin.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		TenantName:  req.TenantName,
	})
	if err != nil {
		respondError(c, h.logger, err, "signup failed")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tenant := req.Tenant
	if tenant == "" {
		tenant = c.GetHeader(middleware.HeaderTenant)
	}

	session, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Tenant:      tenant,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err, "registration failed")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, session)
}
