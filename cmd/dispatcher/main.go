package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/channels/sms"
	"leaseline_backend/internal/channels/voice"
	"leaseline_backend/internal/email"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/compliance"
	"leaseline_backend/internal/outreach/dispatcher"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/scheduler"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/config"
	"leaseline_backend/platform/db"
	"leaseline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting dispatch worker", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the dispatch worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	// ========================================================================
	// Dispatch Engine (Composition Root)
	// ========================================================================

	repo := repository.New(pool)

	emailSender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = schedClient.Close() }()

	disp := dispatcher.New(dispatcher.Params{
		Store:     repo,
		Settings:  settings.New(pool),
		Gate:      compliance.NewGate(repo),
		Voice:     voice.NewClient(cfg, log),
		SMS:       sms.NewClient(cfg, log),
		Email:     emailSender,
		Activity:  activity.New(pool),
		Notifier:  notification.New(pool),
		Scheduler: schedClient,
		Log:       log,
	})

	worker, err := scheduler.NewWorker(cfg, disp, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	poller, err := scheduler.NewPoller(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize due-task poller", "error", err)
		panic("failed to initialize due-task poller: " + err.Error())
	}
	defer func() { _ = poller.Close() }()

	group, runCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		worker.Run(runCtx)
		return nil
	})
	group.Go(func() error {
		poller.Run(runCtx)
		return nil
	})

	<-ctx.Done()
	log.Info("shutdown signal received, draining")
	_ = group.Wait()
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
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < attempts {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			log.Warn(name+" failed, retrying", "attempt", attempt, "delay", delay.String(), "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
