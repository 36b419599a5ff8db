package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admissions_crm/internal/events"
	"admissions_crm/internal/leads"
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

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, cfg, cfg.Env, log)
	defer func() { _ = shutdownTracing(context.Background()) }()

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

	eventBus := events.NewInMemoryBus(log)

	// Workers persist notifications and send email; live streams are served by the API.
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
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		leadsDeps.Store = storageSvc
	}

	locker, closeLocker, err := redislock.NewFromURL(cfg.GetRedisURL(), cfg.GetAssignmentLockTTL())
	if err != nil {
		log.Error("failed to initialize assignment lock", "error", err)
		panic("failed to initialize assignment lock: " + err.Error())
	}
	defer func() { _ = closeLocker() }()
	leadsDeps.Locker = locker

	leadsModule, err := leads.NewModule(leadsDeps)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	jobs := leadsModule.Jobs()

	worker, err := scheduler.NewWorker(cfg, jobs, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	if sweep := scheduler.NewAutoAssignSweep(jobs.Assigner, cfg.GetAutoAssignMethod(), cfg.GetAutoAssignInterval(), log); sweep != nil {
		g.Go(func() error {
			sweep.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()

	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
