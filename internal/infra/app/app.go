package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
	"github.com/arklim/homescout-onboarding/internal/infra/database"
	"github.com/arklim/homescout-onboarding/internal/infra/identity"
	kafkainfra "github.com/arklim/homescout-onboarding/internal/infra/kafka"
	"github.com/arklim/homescout-onboarding/internal/infra/logger"
	redisinfra "github.com/arklim/homescout-onboarding/internal/infra/redis"
	"github.com/arklim/homescout-onboarding/internal/infra/telemetry"
	postgresrepo "github.com/arklim/homescout-onboarding/internal/repository/postgres"
	redisrepo "github.com/arklim/homescout-onboarding/internal/repository/redis"
	"github.com/arklim/homescout-onboarding/internal/transport/http/middleware"
	"github.com/arklim/homescout-onboarding/internal/transport/http/routes"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}

	var tracerProvider trace.TracerProvider
	if cfg.Telemetry.Enabled {
		a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		tracerProvider = a.tracer.Provider()
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	applied, err := postgresrepo.Migrate(ctx, a.pool, database.Schema(cfg.Postgres))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	log.Info("postgres schema up to date", zap.Strings("migrations", applied))

	a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init redis: %w", err)
	}

	verifier, err := identity.NewVerifier(ctx, cfg.Identity, log)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init identity provider: %w", err)
	}
	if verifier == nil {
		log.Warn("identity provider disabled, trusting X-User-ID")
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	onboardingMetrics, err := telemetry.NewOnboardingMetrics(telemetry.OnboardingMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init onboarding metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: prometheus.DefaultRegisterer})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	repos := postgresrepo.NewRepositories(a.pool)
	navigationStore := redisrepo.NewKeyValueStore(a.redis.Client(), cfg.Redis.NavigationPrefix, cfg.Redis.NavigationTTL)
	navigator := usecase.NewNavigator(navigationStore, log).WithRecorder(onboardingMetrics)

	preferencesService := usecase.NewPreferencesService(repos.Preferences, eventPublisher, log)
	onboardingService := usecase.NewInstallationOnboarding(navigator, eventPublisher, log)

	a.engine = routes.Register(routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		Identity:       verifier,
		Metrics:        httpMetrics,
		TracerProvider: tracerProvider,
		Database:       a.pool,
		Cache:          a.redis,
		Services: routes.ServiceSet{
			Preferences: preferencesService,
			Onboarding:  onboardingService,
		},
	})

	return a, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close(context.Background())

	readHeaderTimeout := a.cfg.HTTP.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              a.cfg.App.Addr(),
		Handler:           a.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting onboarding API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownTimeout := a.cfg.HTTP.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases infrastructure in reverse start order. It tolerates partial construction.
func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down tracer provider", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
