package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/infra/config"
	"github.com/learnovify/Learning-Management-System/internal/infra/database"
	kafkainfra "github.com/learnovify/Learning-Management-System/internal/infra/kafka"
	"github.com/learnovify/Learning-Management-System/internal/infra/logger"
	redisinfra "github.com/learnovify/Learning-Management-System/internal/infra/redis"
	"github.com/learnovify/Learning-Management-System/internal/infra/security"
	"github.com/learnovify/Learning-Management-System/internal/infra/telemetry"
	memoryrepo "github.com/learnovify/Learning-Management-System/internal/repository/memory"
	postgresrepo "github.com/learnovify/Learning-Management-System/internal/repository/postgres"
	redisrepo "github.com/learnovify/Learning-Management-System/internal/repository/redis"
	"github.com/learnovify/Learning-Management-System/internal/transport/http/middleware"
	"github.com/learnovify/Learning-Management-System/internal/transport/http/routes"
	"github.com/learnovify/Learning-Management-System/internal/usecase"
)

// Application wires infrastructure, services, and the HTTP transport together.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New builds a fully wired Application from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	if cfg.Postgres.MigrateOnStart {
		if err := runMigrations(cfg.Postgres, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	jwtManager := security.NewJWTManager(keyProvider)

	repos := postgresrepo.NewRepositories(pool)
	hasher := security.NewArgon2Hasher()

	var (
		redisClient  *redisinfra.Client
		attemptStore port.LoginAttemptStore
		denylist     port.AccessTokenDenylist
		rateLimiter  *middleware.RateLimiter
	)

	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}

		attemptStore = redisrepo.NewLoginAttemptRepository(redisClient.Client(), cfg.Redis.AttemptPrefix)
		denylist = redisrepo.NewAccessTokenDenylistRepository(redisClient.Client(), cfg.Redis.DenylistPrefix)

		rateLimitWindow := cfg.RateLimit.WindowDuration
		if rateLimitWindow <= 0 {
			rateLimitWindow = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "lsm:rate_limit",
			TTL:       rateLimitWindow * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else {
		log.Info("redis disabled, using in-memory attempt and denylist stores")
		attemptStore = memoryrepo.NewLoginAttemptStore()
		denylist = memoryrepo.NewAccessTokenDenylist()
	}

	var (
		eventPublisher port.EventPublisher
		kafkaProducer  *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	authMetrics := telemetry.NewAuthMetrics()

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to init http metrics", zap.Error(err))
	}

	guard := usecase.NewLoginAttemptGuard(attemptStore, cfg.Auth, log)
	authService := usecase.NewAuthService(cfg, repos.Accounts, repos.RefreshTokens, guard, hasher, jwtManager, denylist, eventPublisher, authMetrics, log)
	passwordValidator := security.StrictRegistrationPasswordValidator(cfg.Auth.PasswordMinStrength)
	registrationService := usecase.NewRegistrationService(repos.Accounts, hasher, passwordValidator, eventPublisher, authMetrics, log)

	var cache routes.CacheChecker
	if redisClient != nil {
		cache = redisClient
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       cache,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: kafkaProducer,
		tracer:   tracer,
	}, nil
}

func runMigrations(cfg config.PostgresSettings, log *zap.Logger) error {
	migrator, err := database.NewMigrator(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	return migrator.Up()
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("failed to shut down tracer provider", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
