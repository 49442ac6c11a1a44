package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/estatehub/internal/auth"
	"github.com/lalith-99/estatehub/internal/permission"
)

// Context keys for values stored in gin.Context.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyTenantID = "tenant_id"
	ContextKeyEmail    = "email"
	ContextKeyCaller   = "caller"
)

// AuthMiddleware rejects requests without a valid bearer token.
//
// On success the verified claims are stored on the context: the raw ids
// for logging and a permission.Caller for handlers to pass to the
// services. The tenant is confirmed later by TenantMiddleware.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}
		if !authenticate(c, header, secret) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bad
// token. Sending a broken token is a client bug, not a way to browse
// anonymously.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if !authenticate(c, header, secret) {
				return
			}
		}
		c.Next()
	}
}

// authenticate parses "Bearer <token>" and stores the claims. It aborts
// with 401 and returns false on any failure.
func authenticate(c *gin.Context, header, secret string) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid authorization format, expected: Bearer <token>",
		})
		return false
	}

	claims, err := auth.ParseToken(parts[1], secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return false
	}

	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyTenantID, claims.TenantID)
	c.Set(ContextKeyEmail, claims.Email)
	c.Set(ContextKeyCaller, claims.Caller())
	return true
}

// GetCaller returns the caller for this request. Requests that never
// passed authentication or tenant resolution get an anonymous caller with
// no tenant, which every tenant-scoped query treats as matching nothing.
func GetCaller(c *gin.Context) permission.Caller {
	val, exists := c.Get(ContextKeyCaller)
	if !exists {
		return permission.Anonymous(uuid.Nil)
	}
	caller, ok := val.(permission.Caller)
	if !ok {
		return permission.Anonymous(uuid.Nil)
	}
	return caller
}

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetTenantID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
