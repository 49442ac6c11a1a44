package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"github.com/lalith-99/estatehub/internal/permission"
	"go.uber.org/zap"
)

// HeaderTenant carries a tenant id or slug on anonymous requests.
const HeaderTenant = "X-Tenant-ID"

// TenantResolver finds an active tenant by id or slug.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, ref string) (*models.Tenant, error)
}

// TenantMiddleware fixes the tenant for the rest of the request.
//
// Authenticated callers are pinned to the tenant in their token; an
// X-Tenant-ID naming another tenant is refused. Anonymous callers choose
// one with X-Tenant-ID or ?tenant=. Unknown and inactive tenants are 404.
// It must run after AuthMiddleware or OptionalAuth.
func TenantMiddleware(resolver TenantResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		requested := c.GetHeader(HeaderTenant)
		if requested == "" {
			requested = c.Query("tenant")
		}

		if _, authed := c.Get(ContextKeyCaller); authed {
			caller := GetCaller(c)
			tenant, err := resolver.ResolveTenant(ctx, caller.TenantID.String())
			if !abortOnTenantError(c, err, logger) {
				return
			}
			if requested != "" {
				other, err := resolver.ResolveTenant(ctx, requested)
				if err != nil || other.ID != tenant.ID {
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
						"error": "token does not belong to the requested tenant",
					})
					return
				}
			}
			c.Next()
			return
		}

		if requested == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "tenant is required: send the " + HeaderTenant + " header or ?tenant=",
			})
			return
		}
		tenant, err := resolver.ResolveTenant(ctx, requested)
		if !abortOnTenantError(c, err, logger) {
			return
		}
		c.Set(ContextKeyTenantID, tenant.ID)
		c.Set(ContextKeyCaller, permission.Anonymous(tenant.ID))
		c.Next()
	}
}

func abortOnTenantError(c *gin.Context, err error, logger *zap.Logger) bool {
	switch {
	case err == nil:
		return true
	case apperr.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
	case apperr.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("failed to resolve tenant", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve tenant"})
	}
	return false
}
