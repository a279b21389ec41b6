package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/reboundhq/rebound/internal/api"
	"github.com/reboundhq/rebound/internal/app"
	"github.com/reboundhq/rebound/internal/app/maintenance"
	iauth "github.com/reboundhq/rebound/internal/auth"
	"github.com/reboundhq/rebound/internal/cache"
	"github.com/reboundhq/rebound/internal/database"
	"github.com/reboundhq/rebound/internal/middleware"
	"github.com/reboundhq/rebound/internal/realtime"
	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rebound-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		return errors.New("auth.jwt.secret must be configured (REBOUND_AUTH_JWT_SECRET)")
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	var redisStore cache.Store
	if cfg.Cache.Redis.Enabled {
		store, redisErr := cache.NewRedisStore(cache.RedisConfig{
			Address:  cfg.Cache.Redis.Address,
			Username: cfg.Cache.Redis.Username,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TLS:      cfg.Cache.Redis.TLS,
			Timeout:  cfg.Cache.Redis.Timeout,
		})
		if redisErr != nil {
			log.Warn("redis unavailable; rate limiting falls back to in-memory counters", zap.Error(redisErr))
		} else {
			redisStore = store
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	defer func() {
		if rs, ok := redisStore.(*cache.RedisStore); ok && rs != nil {
			_ = rs.Close()
		}
	}()

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	hub := realtime.NewHub()

	notificationService, err := services.NewNotificationService(db, hub)
	if err != nil {
		return fmt.Errorf("initialise notification service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		cleaner, cleanerErr := maintenance.NewCleaner(notificationService,
			maintenance.WithRetentionDays(cfg.Maintenance.NotificationRetentionDays),
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
		)
		if cleanerErr != nil {
			return fmt.Errorf("initialise maintenance: %w", cleanerErr)
		}
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer cleaner.Stop()
	}

	var rateStore middleware.RateStore
	if redisStore != nil {
		rateStore = middleware.NewSharedRateStore(redisStore)
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:        db,
		JWT:       jwtService,
		Hub:       hub,
		Config:    cfg,
		RateStore: rateStore,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrs error
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdownErrs = multierr.Append(shutdownErrs, fmt.Errorf("graceful shutdown: %w", err))
	}
	if err, ok := <-serverErr; ok && err != nil {
		shutdownErrs = multierr.Append(shutdownErrs, fmt.Errorf("server error: %w", err))
	}
	if shutdownErrs != nil {
		return shutdownErrs
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config path %q: %w", path, err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database.DatabaseOptions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("resolve sql.DB for close", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
