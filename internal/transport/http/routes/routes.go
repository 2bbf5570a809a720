package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
	"github.com/arklim/homescout-onboarding/internal/transport/http/handlers"
	"github.com/arklim/homescout-onboarding/internal/transport/http/middleware"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Preferences *usecase.PreferencesService
	Onboarding  *usecase.InstallationOnboarding
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config         *config.AppConfig
	Logger         *zap.Logger
	Services       ServiceSet
	Identity       port.IdentityVerifier
	Metrics        *middleware.HTTPMetrics
	TracerProvider trace.TracerProvider
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if deps.TracerProvider != nil {
		r.Use(middleware.Tracing(deps.Config.App.Name, deps.TracerProvider))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	if len(deps.Config.HTTP.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.HTTP.AllowedOrigins))
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.ResolveUser(deps.Identity, deps.Logger))
	{
		authHandler := handlers.NewAuthHandler(deps.Identity, deps.Services.Onboarding, deps.Logger)
		authHandler.RegisterRoutes(api.Group("/auth"))

		if deps.Services.Preferences != nil {
			preferencesHandler := handlers.NewPreferencesHandler(deps.Services.Preferences)
			preferencesHandler.RegisterRoutes(api.Group("/preferences"))
		}

		if deps.Services.Onboarding != nil {
			onboardingHandler := handlers.NewOnboardingHandler(deps.Services.Onboarding)
			onboardingHandler.RegisterRoutes(api.Group("/onboarding"))
		}
	}

	return r
}
