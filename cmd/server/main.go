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

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

// stores holds the ports of one storage backend.
type stores struct {
	txManager   usecase.TransactionManager
	accounts    usecase.AccountRepository
	entries     usecase.EntryRepository
	idempotency usecase.IdempotencyRepository
	outbox      usecase.OutboxRepository
	ledger      usecase.LedgerRepository
	tracker     usecase.ContentionTracker

	// Optional
	responseCache middleware.ResponseCache
	checks        map[string]handler.Checker
	closers       []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the backend named by cfg.StoreDriver. Redis is used
// for the contention tracker and response cache when REDIS_URL is set;
// otherwise the tracker is kept in process.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	st := &stores{
		checks:  map[string]handler.Checker{},
		tracker: memory.NewContentionTracker(cfg.HotAccountThreshold, cfg.HotAccountWindow),
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		st.txManager = memory.NewTxManager(store)
		st.accounts = memory.NewAccountRepository(store)
		st.entries = memory.NewEntryRepository(store)
		st.idempotency = memory.NewIdempotencyRepository(store)
		st.outbox = memory.NewOutboxRepository(store)
		st.ledger = memory.NewLedgerRepository(store)
		log.Warn().Msg("using in-memory store; data is lost on restart")

	case config.StoreDriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)
		log.Info().Msg("connected to postgres")

		st.txManager = postgresRepo.NewTxManager(pool)
		st.accounts = postgresRepo.NewAccountRepository()
		st.entries = postgresRepo.NewEntryRepository()
		st.idempotency = postgresRepo.NewIdempotencyRepository()
		st.outbox = postgresRepo.NewOutboxRepository(pool)
		st.ledger = postgresRepo.NewLedgerRepository()
		st.checks["postgres"] = pingPool(pool)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		log.Info().Msg("connected to redis")

		st.tracker = redisRepo.NewContentionTracker(client, cfg.HotAccountThreshold, cfg.HotAccountWindow)
		st.responseCache = redisRepo.NewResponseStore(client)
		st.checks["redis"] = pingRedis(client)
	}

	return st, nil
}

func pingPool(pool *pgxpool.Pool) handler.Checker {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func pingRedis(client *goredis.Client) handler.Checker {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// newRouter builds the ledger core on st and returns the HTTP handler.
func newRouter(cfg *config.Config, log zerolog.Logger, st *stores, m *metrics.Metrics) (http.Handler, *middleware.RateLimiter) {
	idGen := postgresRepo.NewULIDGenerator()

	controller := usecase.NewController(usecase.ControllerConfig{
		TxManager:   st.txManager,
		Accounts:    st.accounts,
		Entries:     st.entries,
		Idempotency: st.idempotency,
		Outbox:      st.outbox,
		IDGen:       idGen,
		Tracker:     st.tracker,
		Selector:    usecase.NewIsolationSelector(cfg.SerializableTransfers),
		Timeouts: usecase.Timeouts{
			Write:    cfg.WriteTimeout,
			Transfer: cfg.TransferTimeout,
			Read:     cfg.ReadTimeout,
		},
		Metrics: m,
		Logger:  log,
	})
	retry := usecase.NewRetryPolicy(cfg.RetryMax, cfg.RetryInitialInterval, usecase.WithRetryMetrics(m))

	accountUC := usecase.NewAccountUseCase(controller, st.accounts, st.outbox, idGen)
	coordinator := usecase.NewCoordinator(controller, retry, m)
	entryUC := usecase.NewEntryUseCase(controller, st.entries)
	ledgerUC := usecase.NewLedgerUseCase(controller, st.ledger)
	reconciliationUC := usecase.NewReconciliationUseCase(controller, st.accounts, st.entries)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		TransferHandler: handler.NewTransferHandler(coordinator),
		EntryHandler:    handler.NewEntryHandler(entryUC),
		LedgerHandler:   handler.NewLedgerHandler(ledgerUC, reconciliationUC),
		HealthHandler:   handler.NewHealthHandler(st.checks),
		Logger:          log,
		Metrics:         m,
		RateLimiter:     rateLimiter,
		ResponseCache:   st.responseCache,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	})

	return router, rateLimiter
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New(nil)
	router, rateLimiter := newRouter(cfg, log, st, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: st.outbox,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rateLimiter.Run(gctx, 10*time.Minute)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
