package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"donezo/internal/config"
	"donezo/internal/events"
	"donezo/internal/handlers"
	"donezo/internal/logger"
	"donezo/internal/middleware"
	"donezo/internal/repository"
	"donezo/internal/repository/inmemory"
	"donezo/internal/repository/postgres"
	"donezo/internal/repository/seed"
	"donezo/internal/service"
	"donezo/internal/worker"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	storage   repository.Storage
	publisher events.Publisher
	service   *service.TaskService
	worker    *worker.OverdueWorker
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init builds every dependency. On error the parts already built are released.
func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs")
		logger.Sync()
	})

	steps := []func(context.Context) error{
		a.initStorage,
		a.initSeed,
		a.initPublisher,
		a.initService,
		a.initWorker,
		a.initRouter,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.close()
			return err
		}
	}

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.Handler(),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.config.Repository.Type {
	case repository.Postgres:
		dbCfg := a.config.Database
		if dbCfg.Migrate {
			err := retry(ctx, "migrate", dbCfg.ConnectTimeout, func() error {
				return postgres.Migrate(dbCfg.URL)
			})
			if err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		var storage *postgres.Storage
		err := retry(ctx, "connect postgres", dbCfg.ConnectTimeout, func() error {
			var err error
			storage, err = postgres.New(ctx, dbCfg.URL, postgres.PoolConfig{
				MaxConns:    dbCfg.MaxConnections,
				MinConns:    dbCfg.MinConnections,
				IdleTimeout: dbCfg.IdleTimeout,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.storage = storage
	default:
		a.storage = inmemory.NewStorage()
		logger.Info("App: using in-memory storage")
	}

	a.shutdowns = append(a.shutdowns, a.storage.Close)
	return nil
}

func (a *App) initSeed(ctx context.Context) error {
	path := a.config.Repository.SeedFile
	if path == "" {
		return nil
	}

	fixtures, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}
	if err := seed.Apply(ctx, a.storage, fixtures, time.Now()); err != nil {
		return fmt.Errorf("apply seed %s: %w", path, err)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if a.config.MQ.URL == "" {
		a.publisher = events.Noop{}
		return nil
	}

	var publisher *events.RabbitPublisher
	err := retry(ctx, "connect rabbitmq", a.config.MQ.ConnectTimeout, func() error {
		var err error
		publisher, err = events.NewRabbitPublisher(a.config.MQ.URL)
		return err
	})
	if err != nil {
		return fmt.Errorf("connect message broker: %w", err)
	}
	a.publisher = publisher
	a.shutdowns = append(a.shutdowns, publisher.Close)
	return nil
}

func (a *App) initService(context.Context) error {
	a.service = service.NewTaskService(a.storage, service.WithPublisher(a.publisher))
	return nil
}

func (a *App) initWorker(ctx context.Context) error {
	cfg := a.config.Worker
	if !cfg.Enabled {
		return nil
	}

	var deduper worker.Deduper = worker.NewMemoryDeduper(worker.DefaultDedupTTL)
	if addr := a.config.Redis.Addr; addr != "" {
		rdb := worker.NewRedisClient(addr, a.config.Redis.Password, a.config.Redis.DB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("App: redis unavailable, deduplicating in memory", zap.Error(err))
			_ = rdb.Close()
		} else {
			deduper = worker.NewRedisDeduper(rdb, worker.DefaultDedupTTL)
			a.shutdowns = append(a.shutdowns, func() { _ = rdb.Close() })
		}
	}

	a.worker = worker.NewOverdueWorker(a.service, a.publisher, deduper, cfg.Interval, cfg.BatchSize)
	return nil
}

func (a *App) initRouter(context.Context) error {
	srv := a.config.Server
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: srv.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	health := handlers.NewHealthHandler(a.service)
	r.Get("/health", health.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if srv.RequestTimeout > 0 {
			r.Use(middleware.Timeout(srv.RequestTimeout))
		}
		r.Use(middleware.RateLimit(srv.RateLimitRPM))

		r.Route("/tasks", handlers.NewTaskHandler(a.service).Routes)
		r.Route("/users", handlers.NewUserHandler(a.service).Routes)
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	a.router = r
	return nil
}

// Handler is the full HTTP stack, traced with OpenTelemetry.
func (a *App) Handler() http.Handler {
	return otelhttp.NewHandler(a.router, "donezo")
}

// Run serves until ctx is cancelled or the listener fails, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	var wg conc.WaitGroup

	wg.Go(func() {
		logger.Info("App: server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
			cancel()
		}
	})

	if a.worker != nil {
		wg.Go(func() {
			a.worker.Start(ctx)
		})
	}

	<-ctx.Done()
	logger.Info("App: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("App: server shutdown failed", err)
	}

	wg.Wait()
	a.close()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (a *App) close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

func retry(ctx context.Context, operation string, maxElapsed time.Duration, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(fn, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("App: retrying",
			zap.String("operation", operation),
			zap.Duration("next_attempt_in", next),
			zap.Error(err))
	})
}
