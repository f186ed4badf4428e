// Package main - точка входа HTTP API Mektep Monitor.
//
// Сервер отдаёт панели завуча, классного руководителя и психолога:
// список учеников, оценки риска с рекомендациями, сводки по школе
// и журнал психолога (направления, заметки, встречи).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/application/command"
	"github.com/mektep-hub/mektep-monitor/internal/application/query"
	"github.com/mektep-hub/mektep-monitor/internal/bootstrap"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/redis"
	httpapi "github.com/mektep-hub/mektep-monitor/internal/interface/http"
	"github.com/mektep-hub/mektep-monitor/internal/interface/http/handlers"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	log := bootstrap.Logger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting Mektep Monitor API",
		logger.String("address", cfg.HTTP.Addr()),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	cache, err := bootstrap.OpenCache(ctx, cfg.Redis)
	if err != nil {
		// Без кэша сервер работает, просто медленнее.
		log.Warn("redis unavailable, caching disabled", logger.Err(err))
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	var snapshots query.SnapshotReader
	if cache != nil {
		snapshots = redis.NewSnapshotCache(cache, cfg.Redis.SnapshotTTL)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. СЕРВИСЫ ПРИЛОЖЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	analyzer := bootstrap.NewAdvisorService(cfg, cache, log)
	clock := timeutil.SystemClock
	students := store.Students

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	if store.DB != nil {
		health.AddCheck("postgres", handlers.NewDatabaseCheck(store.DB))
	}
	if cache != nil {
		health.AddOptionalCheck("redis", handlers.NewCacheCheck(cache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	// Отдельный воркер не видит данные в памяти процесса,
	// поэтому без PostgreSQL задачи запускаются здесь.
	if store.DB == nil && cfg.Scheduler.Enabled {
		sched, err := bootstrap.NewScheduler(cfg, store, cache, analyzer, log)
		if err != nil {
			return fmt.Errorf("failed to configure scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.CORSOrigins
	httpCfg.EnableMetrics = cfg.Observability.MetricsEnabled
	httpCfg.MetricsPath = cfg.Observability.MetricsPath
	httpCfg.FocusSize = cfg.HTTP.FocusListSize
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		Students:         query.NewStudentsHandler(students),
		StudentRisk:      query.NewGetStudentRiskHandler(students, analyzer),
		StudentNarrative: query.NewGetStudentNarrativeHandler(students, analyzer),
		RiskList:         query.NewListRiskStudentsHandler(students),
		Overview:         query.NewGetSchoolOverviewHandler(students, snapshots, clock, log),
		Classes:          query.NewGetClassSummariesHandler(students),
		Subjects:         query.NewGetSubjectHotspotsHandler(students),
		Heatmap:          query.NewGetHeatmapHandler(students),
		Board:            query.NewGetPsychologistBoardHandler(students, store.Psychology, clock),
		Records:          query.NewPsychologyRecordsHandler(store.Psychology),
		Psychology:       command.NewPsychologyHandlers(students, store.Psychology, clock, log),
		Features:         cfg.Features,
		Logger:           log,
		HealthChecker:    health,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown completed", logger.Duration("uptime", server.Uptime()))
	return nil
}
