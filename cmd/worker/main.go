// Package main - точка входа фонового воркера Mektep Monitor.
//
// Воркер выполняет периодические задачи:
// - пересборка снимка панели завуча и метрик по уровням риска;
// - утренний прогрев AI-анализа учеников из группы риска.
//
// Несколько реплик воркера безопасны: снимок строит тот, кто взял блокировку в Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/bootstrap"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Данные в памяти видит только процесс API.
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required for the worker")
	}
	if !cfg.Scheduler.Enabled {
		return errors.New("scheduler is disabled (SCHEDULER_ENABLED=false)")
	}

	log := bootstrap.Logger(cfg).Named("worker")
	defer func() { _ = log.Sync() }()

	log.Info("starting Mektep Monitor worker",
		logger.String("timezone", cfg.App.Timezone),
		logger.Duration("snapshot_interval", cfg.Scheduler.SnapshotInterval),
		logger.String("warmup_schedule", cfg.Scheduler.WarmupSchedule),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ И REDIS
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	cache, err := bootstrap.OpenCache(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if cache == nil {
		return errors.New("redis is disabled, the worker has nothing to do")
	}
	defer func() { _ = cache.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	analyzer := bootstrap.NewAdvisorService(cfg, cache, log)

	sched, err := bootstrap.NewScheduler(cfg, store, cache, analyzer, log)
	if err != nil {
		return fmt.Errorf("failed to configure scheduler: %w", err)
	}
	for _, job := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.String("job", job.Name),
			logger.String("schedule", job.Schedule),
			logger.Time("next_run", job.NextRun),
		)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal, waiting for running jobs")

	if err := sched.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	log.Info("shutdown completed")
	return nil
}
