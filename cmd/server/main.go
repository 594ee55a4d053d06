package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/email"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := logging.Setup(cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// App registry
	registry, err := tenant.LoadFromFile(cfg.AppsConfigPath)
	if err != nil {
		return fmt.Errorf("load app registry %s: %w", cfg.AppsConfigPath, err)
	}
	slog.Info("app registry loaded", "apps", len(registry.All()))

	// Account store
	var store repository.AccountStore
	switch cfg.DBDriver {
	case "memory":
		slog.Warn("using in-memory account store, data is lost on restart")
		store = repository.NewMemoryAccountStore()
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(db); err != nil {
				slog.Error("database close error", "error", err)
			}
		}()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler := logging.NewPGHandler(db, 5*time.Second)
		defer pgLogHandler.Stop()
		logger = logging.Setup(cfg.IsProduction(), pgLogHandler)
		logging.StartCleanup(ctx, db, cfg.LogRetentionDays)

		store = repository.NewGormAccountStore(db)
	}

	// Outbound collaborators
	var mailer email.Sender
	if cfg.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		mailer = email.NewLogSender(logger)
	} else {
		mailer = email.NewSMTPSender(email.SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			TLSMode:  cfg.SMTPTLSMode,
		})
	}

	imageHost, err := storage.NewS3ImageHost(ctx, storage.S3Settings{
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		PublicBaseURL:   cfg.S3PublicBaseURL,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
	})
	if err != nil {
		return err
	}

	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		redisStorage := cache.NewRedisStorage(client, "ratelimit:")
		defer redisStorage.Close()
		limiterStorage = redisStorage
		slog.Info("rate limiter using redis", "addr", cfg.RedisAddr)
	}

	// Services
	tokenService := services.NewTokenService(store, services.TokenConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		AccessExpiry:  cfg.AccessTokenExpiry,
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		RefreshExpiry: cfg.RefreshTokenExpiry,
	})
	otpIssuer := services.NewOTPIssuer(store, mailer, registry.MailFromName, services.OTPConfig{
		Length:      cfg.OTPLength,
		TTL:         cfg.OTPTTL,
		HashCost:    cfg.OTPHashCost,
		AdminEmails: cfg.AdminEmailList(),
	}, logger)
	sessionVerifier := services.NewSessionVerifier(tokenService, store)
	authService := services.NewAuthService(store, tokenService, cfg.OTPLength, logger)
	accountService := services.NewAccountService(store, logger)
	avatarService := services.NewAvatarService(store, imageHost, registry.AvatarFolder, services.AvatarConfig{
		Width:  cfg.AvatarSize,
		Height: cfg.AvatarSize,
		Crop:   "fit",
		TmpDir: cfg.UploadTmpDir,
	}, logger)

	// Handlers
	cookies := handlers.CookieConfig{Secure: cfg.CookieSecure, MaxAge: cfg.CookieMaxAge}
	h := routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService, otpIssuer, cookies),
		Account: handlers.NewAccountHandler(accountService),
		Avatar:  handlers.NewAvatarHandler(avatarService),
		Health:  handlers.NewHealthHandler(store.Ping, registry),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		Immutable:    true,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})
	app.Use(middleware.TenantMiddleware(registry))

	routes.Setup(app, h, middleware.RequireSession(tokenService, sessionVerifier), limiterStorage, routes.Limits{
		API:  60,
		Auth: 10,
	})

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "db_driver", cfg.DBDriver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("server shutdown error", "error", err)
	}
	otpIssuer.Wait()

	slog.Info("server stopped")
	return nil
}
