package main

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/cvdrisk/internal/config"
	"github.com/ehr/cvdrisk/internal/domain/ascvd"
	"github.com/ehr/cvdrisk/internal/platform/db"
	"github.com/ehr/cvdrisk/internal/platform/fhir"
	"github.com/ehr/cvdrisk/internal/platform/middleware"
	"github.com/ehr/cvdrisk/internal/platform/telemetry"
)

// newServer wires the HTTP surface. pool may be nil, which disables the
// assessment history.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	svc := ascvd.NewService(logger)
	svc.SetSBPThreshold(cfg.SBPAdvisoryThreshold)
	if pool != nil {
		svc.SetRepository(ascvd.NewAssessmentRepoPG(pool))
	}

	if cfg.MetricsEnabled {
		metrics := telemetry.NewMetrics()
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
		svc.SetMetrics(metrics)
	}

	hooks := fhir.NewCDSHooksHandler(logger)
	hooks.RegisterService(ascvd.CDSService(),
		ascvd.HookHandler(svc, ascvd.CardRenderer{SourceLabel: cfg.CDSSourceLabel}, logger))
	hooks.RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")
	ascvd.NewHandler(svc).RegisterRoutes(apiV1)

	e.GET("/health", db.HealthHandler(pool))
	return e
}
