package bootstrap

import (
	"fmt"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/redis"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/scheduler"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/scheduler/jobs"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// FocusSizes returns the focus list sizes the worker precomputes: the
// configured dashboard size and the built-in default.
func FocusSizes(cfg config.HTTPConfig) []int {
	sizes := []int{analytics.DefaultFocusSize}
	if cfg.FocusListSize > 0 && cfg.FocusListSize != analytics.DefaultFocusSize {
		sizes = append([]int{cfg.FocusListSize}, sizes...)
	}
	return sizes
}

// NewScheduler registers the background jobs. Both jobs only fill Redis,
// so without a cache the scheduler has nothing to run.
func NewScheduler(cfg *config.Config, store *Store, cache *redis.Cache, analyzer jobs.Analyzer, log *logger.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(scheduler.Config{
		Logger:     log,
		Timezone:   cfg.App.Location,
		JobTimeout: cfg.Scheduler.JobTimeout,
	})

	if cache == nil {
		log.Warn("redis disabled, background jobs are not registered")
		return sched, nil
	}

	refresh := jobs.NewRefreshSnapshotJob(
		store.Students,
		redis.NewSnapshotCache(cache, cfg.Redis.SnapshotTTL),
		cache,
		timeutil.SystemClock,
		log,
		jobs.RefreshSnapshotConfig{FocusSizes: FocusSizes(cfg.HTTP)},
	)
	if err := sched.Register(refresh, scheduler.NewIntervalSchedule(cfg.Scheduler.SnapshotInterval), scheduler.RunOnStart()); err != nil {
		return nil, err
	}

	if cfg.Scheduler.WarmupSchedule != "" {
		schedule, err := scheduler.ParseCronExpression(cfg.Scheduler.WarmupSchedule, cfg.App.Location)
		if err != nil {
			return nil, fmt.Errorf("scheduler.warmup_schedule: %w", err)
		}
		warm := jobs.NewWarmAnalysesJob(store.Students, analyzer, log, jobs.WarmAnalysesConfig{Limit: cfg.Scheduler.WarmupLimit})
		if err := sched.Register(warm, schedule); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
