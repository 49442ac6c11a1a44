package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/estatehub/internal/middleware"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

// RouterConfig is everything the HTTP layer needs.
type RouterConfig struct {
	Commands  *service.PropertyCommands
	Queries   *service.PropertyQueries
	Auth      *service.AuthService
	Users     *service.UserService
	JWTSecret string
	Logger    *zap.Logger

	// Health reports storage readiness. Nil means always healthy.
	Health func(ctx context.Context) error

	// UploadDir, when set, is served under UploadPath.
	UploadDir  string
	UploadPath string
}

// NewRouter builds the gin engine with every /v1 route registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(middleware.RequestLogger(cfg.Logger), gin.Recovery())

	if cfg.UploadDir != "" && cfg.UploadPath != "" {
		r.Static(cfg.UploadPath, cfg.UploadDir)
	}

	properties := NewPropertyHandler(cfg.Commands, cfg.Queries, cfg.Logger)
	metrics := NewMetricsHandler(cfg.Queries, cfg.Logger)
	authH := NewAuthHandler(cfg.Auth, cfg.Logger)
	users := NewUserHandler(cfg.Users, cfg.Logger)

	v1 := r.Group("/v1")

	// Health check is public so load balancers can reach it.
	v1.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				cfg.Logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authG := v1.Group("/auth")
	authG.POST("/signup", authH.Signup)
	authG.POST("/register", authH.Register)
	authG.POST("/login", authH.Login)

	tenant := middleware.TenantMiddleware(cfg.Auth, cfg.Logger)

	// Browsing works with or without a token.
	public := v1.Group("", middleware.OptionalAuth(cfg.JWTSecret), tenant)
	public.GET("/properties", properties.List)
	public.GET("/properties/:id", properties.Get)
	public.GET("/properties/:id/validate", properties.Validate)

	private := v1.Group("", middleware.AuthMiddleware(cfg.JWTSecret), tenant)
	private.GET("/users/me", users.GetMe)
	private.GET("/users/profile", users.GetProfile)
	private.PUT("/users/profile", users.UpdateProfile)
	private.GET("/users", users.List)
	private.POST("/users", users.Create)
	private.GET("/users/:id", users.Get)
	private.PUT("/users/:id", users.Update)
	private.DELETE("/users/:id", users.Delete)
	private.POST("/users/:id/reset-password", users.ResetPassword)
	private.POST("/users/:id/toggle-active", users.ToggleActive)

	private.GET("/metrics/tenant", metrics.Tenant)
	private.GET("/metrics/property", metrics.Property)

	private.GET("/properties/my", properties.ListMine)
	private.GET("/properties/favorites", properties.ListFavorites)
	private.POST("/properties", properties.Create)
	private.PATCH("/properties/:id", properties.Update)
	private.DELETE("/properties/:id", properties.Delete)
	private.POST("/properties/:id/publish", properties.Publish)
	private.POST("/properties/:id/archive", properties.Archive)
	private.POST("/properties/:id/disable", properties.Disable)
	private.POST("/properties/:id/enable", properties.Enable)
	private.POST("/properties/:id/favorite", properties.AddFavorite)
	private.DELETE("/properties/:id/favorite", properties.RemoveFavorite)
	private.GET("/properties/:id/favorite/status", properties.FavoriteStatus)
	private.POST("/properties/:id/images", properties.UploadImages)
	private.DELETE("/properties/:id/images", properties.DeleteImages)

	return r
}
