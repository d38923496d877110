// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/roomcraft/internal/admin"
	"github.com/carterperez-dev/templates/roomcraft/internal/auth"
	"github.com/carterperez-dev/templates/roomcraft/internal/config"
	"github.com/carterperez-dev/templates/roomcraft/internal/core"
	"github.com/carterperez-dev/templates/roomcraft/internal/health"
	"github.com/carterperez-dev/templates/roomcraft/internal/imagegen"
	"github.com/carterperez-dev/templates/roomcraft/internal/middleware"
	"github.com/carterperez-dev/templates/roomcraft/internal/notify"
	"github.com/carterperez-dev/templates/roomcraft/internal/otp"
	"github.com/carterperez-dev/templates/roomcraft/internal/redesign"
	"github.com/carterperez-dev/templates/roomcraft/internal/server"
	"github.com/carterperez-dev/templates/roomcraft/internal/storage"
	"github.com/carterperez-dev/templates/roomcraft/internal/subscription"
	"github.com/carterperez-dev/templates/roomcraft/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	genKeys := flag.Bool("genkeys", false, "generate an ES256 key pair at the configured paths and exit")
	flag.Parse()

	if *genKeys {
		if err := generateKeys(*configPath); err != nil {
			slog.Error("key generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("file store initialized", "driver", cfg.Storage.Driver)

	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if cfg.Email.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.Email)
		logger.Info("smtp mailer configured", "host", cfg.Email.SMTPHost)
	}
	dispatcher := notify.NewDispatcher(
		mailer,
		cfg.Email.SendTimeout,
		cfg.Email.MaxConcurrent,
		logger,
	)

	otpSvc := otp.NewService(
		otp.NewRepository(db.DB),
		dispatcher,
		cfg.OTP.TTL,
		logger,
	)

	userSvc := user.NewService(user.NewRepository(db.DB), store, logger)

	authSvc := auth.NewService(
		auth.NewRepository(db.DB),
		jwtManager,
		userSvc,
		otpSvc,
		redis.Client,
		logger,
	)

	if pruned, pruneErr := authSvc.PruneRefreshTokens(ctx); pruneErr != nil {
		logger.Warn("prune refresh tokens failed", "error", pruneErr)
	} else if pruned > 0 {
		logger.Info("pruned expired refresh tokens", "count", pruned)
	}

	guard := middleware.NewGuard(jwtManager, authSvc, userSvc)

	redesignSvc := redesign.NewService(
		redesign.NewRepository(db.DB),
		store,
		imagegen.NewClient(cfg.ImageGen),
		cfg.Redesign.StaleAfter,
		logger,
	)

	subscriptionSvc := subscription.NewService(
		subscription.NewRepository(db.DB),
		logger,
	)

	authHandler := auth.NewHandler(authSvc, guard, cfg.Auth.ForgotPasswordMinDuration)
	userHandler := user.NewHandler(userSvc, guard, cfg.Storage.MaxUploadBytes)
	redesignHandler := redesign.NewHandler(redesignSvc, guard, cfg.Storage.MaxUploadBytes)
	subscriptionHandler := subscription.NewHandler(subscriptionSvc, guard)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "storage", Checker: store},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Guard:         guard,
		DBStats:       db.Stats,
		RedisStats:    redis.PoolStats,
		DBPing:        db.Ping,
		RedisPing:     redis.Ping,
		Users:         userSvc,
		Redesigns:     redesignSvc,
		Subscriptions: subscriptionSvc,
		Logger:        logger,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	authLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.AuthRequests,
			cfg.RateLimit.AuthBurst,
		),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	}).Handler

	generationLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.GenerationRequests,
			cfg.RateLimit.GenerationBurst,
		),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	}).Handler

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	if local, ok := store.(*storage.LocalStore); ok {
		router.Handle("/media/*", http.StripPrefix("/media", local.Handler()))
	}

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authLimiter)
		userHandler.RegisterRoutes(r)
		redesignHandler.RegisterRoutes(r, generationLimiter)
		subscriptionHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("pending emails abandoned", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// generateKeys writes a fresh signing key pair. It refuses to overwrite an
// existing private key.
func generateKeys(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.JWT.PrivateKeyPath); err == nil {
		return fmt.Errorf("private key %s already exists", cfg.JWT.PrivateKeyPath)
	}

	for _, p := range []string{cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}

	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}

	slog.Info("key pair written",
		"private", cfg.JWT.PrivateKeyPath,
		"public", cfg.JWT.PublicKeyPath,
	)
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
