package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healup/healup/internal/config"
	"github.com/healup/healup/internal/domain/billing"
	"github.com/healup/healup/internal/domain/clinical"
	"github.com/healup/healup/internal/domain/identity"
	"github.com/healup/healup/internal/domain/scheduling"
	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/cache"
	"github.com/healup/healup/internal/platform/db"
	"github.com/healup/healup/internal/platform/middleware"
	"github.com/healup/healup/pkg/apperr"
	"github.com/healup/healup/pkg/validation"
)

// app holds everything the router mounts.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	tokens      *auth.TokenManager
	identity    *identity.Service
	scheduling  *scheduling.Service
	billing     *billing.Service
	clinical    *clinical.Service
	apiLimiter  *middleware.RateLimiter
	authLimiter *middleware.RateLimiter
	dbHealth    echo.HandlerFunc
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func limiterConfig(rps float64, burst int) middleware.RateLimitConfig {
	if rps <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return middleware.RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = newLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Slot cache
	var slotCache scheduling.SlotCache = cache.Nop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, slot cache disabled")
		} else {
			defer client.Close()
			slotCache = cache.NewRedis(client, "healup:", cfg.SlotCacheTTL)
			logger.Info().Msg("connected to redis")
		}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	// Domain services
	identitySvc := identity.NewService(
		identity.NewUserRepoPG(pool),
		identity.NewDoctorRepoPG(pool),
		identity.NewPatientRepoPG(pool),
		tokens,
		logger.With().Str("component", "identity").Logger(),
	)
	schedulingSvc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		scheduling.NewAvailabilityRepoPG(pool),
		newDirectory(identitySvc),
		slotCache,
		logger.With().Str("component", "scheduling").Logger(),
	)
	billingSvc := billing.NewService(
		billing.NewPaymentRepoPG(pool),
		schedulingSvc,
		db.NewTransactor(pool),
		logger.With().Str("component", "billing").Logger(),
	)
	clinicalSvc := clinical.NewService(
		clinical.NewPrescriptionRepoPG(pool),
		clinical.NewReportRepoPG(pool),
		logger.With().Str("component", "clinical").Logger(),
	)

	a := &app{
		cfg:         cfg,
		logger:      logger,
		tokens:      tokens,
		identity:    identitySvc,
		scheduling:  schedulingSvc,
		billing:     billingSvc,
		clinical:    clinicalSvc,
		apiLimiter:  middleware.NewRateLimiter(limiterConfig(cfg.RateLimitRPS, cfg.RateLimitBurst)),
		authLimiter: middleware.NewRateLimiter(limiterConfig(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)),
		dbHealth:    db.HealthHandler(pool),
	}
	go a.apiLimiter.Cleanup(ctx)
	go a.authLimiter.Cleanup(ctx)

	e := a.router()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func (a *app) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.ErrorHandler(a.logger)
	e.Validator = validation.New()

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(a.cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout))
	e.Use(auth.Gate(a.tokens, a.identity))

	health := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
	e.GET("/health", health)
	e.GET("/health/db", a.dbHealth)

	api := e.Group("/api", a.apiLimiter.Middleware())
	api.GET("/health", health)

	identity.NewHandler(a.identity).RegisterRoutes(api, a.authLimiter.Middleware())
	scheduling.NewHandler(a.scheduling).RegisterRoutes(api)
	billing.NewHandler(a.billing).RegisterRoutes(api)
	clinical.NewHandler(a.clinical).RegisterRoutes(api)

	return e
}
