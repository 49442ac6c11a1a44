package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/estatehub/internal/api"
	"github.com/lalith-99/estatehub/internal/cache"
	"github.com/lalith-99/estatehub/internal/config"
	"github.com/lalith-99/estatehub/internal/db"
	"github.com/lalith-99/estatehub/internal/images"
	"github.com/lalith-99/estatehub/internal/observ"
	"github.com/lalith-99/estatehub/internal/repository"
	"github.com/lalith-99/estatehub/internal/repository/memory"
	"github.com/lalith-99/estatehub/internal/repository/postgres"
	"github.com/lalith-99/estatehub/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type stores struct {
	properties repository.PropertyRepository
	tenants    repository.TenantRepository
	users      repository.UserRepository
	health     func(ctx context.Context) error
	close      func()
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 2. Storage
	// ---------------------------------------------------------------
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// ---------------------------------------------------------------
	// 3. Metrics cache (optional)
	//
	// The interface stays nil when Redis is not configured so
	// PropertyQueries skips the cache entirely.
	// ---------------------------------------------------------------
	var metricsCache service.MetricsCache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		metricsCache = cache.NewMetricsCache(client, cfg.MetricsCacheTTL)
		logger.Info("metrics cache enabled", zap.Duration("ttl", cfg.MetricsCacheTTL))
	}

	// ---------------------------------------------------------------
	// 4. Services
	// ---------------------------------------------------------------
	imageStore, err := images.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes, cfg.UploadAllowTypes, logger)
	if err != nil {
		return fmt.Errorf("create image store: %w", err)
	}

	commands := service.NewPropertyCommands(st.properties, imageStore, logger)
	queries := service.NewPropertyQueries(st.properties, st.users, metricsCache, logger)
	authService := service.NewAuthService(st.users, st.tenants, cfg.JWTSecret, cfg.TokenTTL, logger)
	userService := service.NewUserService(st.users, logger)

	// ---------------------------------------------------------------
	// 5. HTTP server
	// ---------------------------------------------------------------
	router := api.NewRouter(api.RouterConfig{
		Commands:   commands,
		Queries:    queries,
		Auth:       authService,
		Users:      userService,
		JWTSecret:  cfg.JWTSecret,
		Logger:     logger,
		Health:     st.health,
		UploadDir:  imageStore.Dir(),
		UploadPath: cfg.UploadBaseURL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting estatehub",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStores picks the storage driver. memory keeps everything in process
// and is lost on restart.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return &stores{
			properties: memory.NewPropertyStore(),
			tenants:    memory.NewTenantStore(),
			users:      memory.NewUserStore(),
			close:      func() {},
		}, nil
	}

	database, err := db.New(ctx, cfg.DatabaseURL, db.PoolSettings{
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool := database.Pool()
	return &stores{
		properties: postgres.NewPropertyStore(pool),
		tenants:    postgres.NewTenantStore(pool),
		users:      postgres.NewUserStore(pool),
		health:     database.Health,
		close:      database.Close,
	}, nil
}
