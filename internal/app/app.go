package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/payment"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"

	idempotencyTTL = 24 * time.Hour
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	relay          *event.OutboxRelay
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is released again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       !cfg.IsProduction(),
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.NewHandler()

	uow, err := a.openStorage(ctx, reg, healthHandler)
	if err != nil {
		return nil, err
	}

	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	gateway := a.paymentGateway(reg)
	svc := handler.Services{
		Cart:     service.NewCartService(uow, logger),
		Checkout: service.NewCheckoutService(uow, service.PaymentMode(cfg.PaymentMode), reg, logger),
		Orders:   service.NewOrderService(uow, logger),
		Products: service.NewProductService(uow, logger),
		Category: service.NewCategoryService(uow, logger),
		Payments: service.NewPaymentService(uow, gateway, logger),
		Auth:     service.NewAuthService(uow, tokens, logger),
	}

	if err := svc.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	if cfg.KafkaEnabled {
		a.wireKafka(uow, svc.Payments, reg, healthHandler)
	}

	a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute, logger)
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(svc, handler.RouterConfig{
		ServiceName:    serviceName,
		Health:         healthHandler,
		TokenValidator: tokens.Validator(),
		RateLimiter:    a.rateLimiter,
		Metrics:        middleware.NewHTTPMetrics(reg, serviceName),
		Gatherer:       reg,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.HTTPWriteTimeout,
		PaymentWebhook: gateway != nil,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStorage connects the configured storage driver and returns its unit
// of work.
func (a *App) openStorage(ctx context.Context, reg prometheus.Registerer, h *health.Handler) (repository.UnitOfWork, error) {
	if a.cfg.StorageDriver == config.StorageMemory {
		a.logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		h.RegisterCritical("storage", store.Ping)
		return store, nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewUnitOfWork(pool), nil
}

// paymentGateway returns the provider client, or nil when no provider URL
// is configured. Without a provider the webhook is not mounted.
func (a *App) paymentGateway(reg prometheus.Registerer) payment.Gateway {
	if a.cfg.PaymentGatewayURL == "" {
		a.logger.Warn("no payment gateway configured, payment webhook disabled")
		return nil
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = a.cfg.PaymentGatewayTimeout
	cbCfg := httpclient.DefaultCircuitBreakerConfig("payment-gateway")
	client := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, httpclient.NewBreakerMetrics(reg), a.logger)
	a.logger.Info("payment gateway initialized",
		slog.String("url", a.cfg.PaymentGatewayURL),
		slog.Duration("timeout", httpCfg.Timeout),
		slog.Uint64("breaker_min_requests", uint64(cbCfg.MinRequests)),
	)
	return payment.NewHTTPGateway(client, a.cfg.PaymentGatewayURL, a.cfg.PaymentGatewayToken)
}

// wireKafka sets up the outbox relay and the payment.result consumer.
func (a *App) wireKafka(uow repository.UnitOfWork, payments *service.PaymentService, reg prometheus.Registerer, h *health.Handler) {
	metrics := pkgkafka.NewMetrics(reg)
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), metrics, a.logger)
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))

	a.relay = event.NewOutboxRelay(uow, a.producer, event.RelayConfig{
		PollInterval: a.cfg.OutboxPollInterval,
		BatchSize:    a.cfg.OutboxBatchSize,
		ClaimTTL:     a.cfg.OutboxClaimTTL,
	}, a.logger)

	var seen pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	if a.redis != nil {
		seen = pkgkafka.NewRedisIdempotencyStore(a.redis, serviceName+":events:", idempotencyTTL)
	}
	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaConsumerGroup,
		Topic:    event.TopicPaymentResult,
		MinBytes: 1,
		MaxBytes: 10e6,
	},
		pkgkafka.IdempotentHandler(seen, event.PaymentResultHandler(payments, a.logger), a.logger),
		a.logger,
		pkgkafka.WithDLQ(a.dlq),
		pkgkafka.WithConsumerMetrics(metrics),
	)

	h.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return a.producer.Ping(ctx)
	})
}

// Run starts the HTTP server and background workers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.rateLimiter.Run(gctx)
		return nil
	})
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Start(gctx) })
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-gctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-serverErr:
	}

	errs := []error{runErr, a.shutdownHTTP()}
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}
	errs = append(errs, a.closeResources())
	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer and producers, Redis, PostgreSQL pool. Run performs the same
// sequence when its context ends.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")
	err := errors.Join(a.shutdownHTTP(), a.closeResources())
	a.logger.Info("application shutdown complete")
	return err
}

func (a *App) shutdownHTTP() error {
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (a *App) closeResources() error {
	var errs []error
	closeOne := func(name string, fn func() error) {
		if err := fn(); err != nil {
			a.logger.Error(name+" close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		closeOne("tracer", func() error { return a.tracerShutdown(tracerCtx) })
	}
	if a.consumer != nil {
		closeOne("kafka consumer", a.consumer.Close)
	}
	if a.producer != nil {
		closeOne("kafka producer", a.producer.Close)
	}
	if a.dlq != nil {
		closeOne("kafka dlq producer", a.dlq.Close)
	}
	if a.redis != nil {
		closeOne("redis", a.redis.Close)
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
