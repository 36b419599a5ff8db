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

	"admissions_crm/internal/events"
	apphttp "admissions_crm/internal/http"
	"admissions_crm/internal/http/router"
	"admissions_crm/internal/leads"
	"admissions_crm/internal/leads/handler"
	"admissions_crm/internal/notification"
	"admissions_crm/internal/notification/email"
	"admissions_crm/internal/scheduler"
	"admissions_crm/platform/config"
	"admissions_crm/platform/db"
	"admissions_crm/platform/logger"
	"admissions_crm/platform/observability"
	"admissions_crm/platform/redislock"
	"admissions_crm/platform/storage"
	"admissions_crm/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, cfg, cfg.Env, log)
	defer func() { _ = shutdownTracing(context.Background()) }()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	store := initStorage(ctx, cfg, log)

	locker, closeLocker := initLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	tasks, closeTasks := initTaskClient(cfg, log)
	if closeTasks != nil {
		defer closeTasks()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.New(pool, email.NewSender(cfg), log)
	notificationModule.RegisterHandlers(eventBus)

	leadsDeps := leads.Deps{
		Pool:      pool,
		Bus:       eventBus,
		Oracle:    cfg,
		MinIO:     cfg,
		Validator: validator.New(),
		Log:       log,
	}
	if locker != nil {
		leadsDeps.Locker = locker
	}
	if store != nil {
		leadsDeps.Store = store
	}
	if tasks != nil {
		leadsDeps.Tasks = tasks
	}
	leadsModule, err := leads.NewModule(leadsDeps)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		// SSE streams stay open until their clients go away.
		notificationModule.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("server stopped")
}

func initStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) *storage.MinIOService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; import archiving disabled")
		return nil
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketLeadImports()
	if err := withRetry(ctx, log, "ensure lead-imports bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "leadImportsBucket", bucket)
	return storageSvc
}

func initLocker(cfg config.AssignmentConfig, log *logger.Logger) (*redislock.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; bulk assignment runs without a distributed lock")
		return nil, nil
	}

	locker, closeFn, err := redislock.NewFromURL(cfg.GetRedisURL(), cfg.GetAssignmentLockTTL())
	if err != nil {
		log.Error("failed to initialize assignment lock", "error", err)
		return nil, nil
	}
	return locker, func() { _ = closeFn() }
}

func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (handler.TaskEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; async endpoints disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
