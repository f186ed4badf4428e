// Package jobs contains the scheduled jobs of the Mektep Monitor worker.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/metrics"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/scheduler"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Locker is a distributed lock shared by all worker replicas.
type Locker interface {
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

// SnapshotWriter stores a precomputed dashboard.
type SnapshotWriter interface {
	Put(ctx context.Context, snap analytics.Snapshot) error
}

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH SNAPSHOT JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshSnapshotJobName is the scheduler name of RefreshSnapshotJob.
const RefreshSnapshotJobName = "refresh_snapshot"

// RefreshSnapshotConfig contains configuration for the refresh job.
type RefreshSnapshotConfig struct {
	// FocusSizes are the focus list sizes to precompute. The first one is
	// what the dashboard asks for by default.
	FocusSizes []int

	// LockTTL bounds how long a crashed worker can block the others.
	LockTTL time.Duration
}

// DefaultRefreshSnapshotConfig returns sensible defaults.
func DefaultRefreshSnapshotConfig() RefreshSnapshotConfig {
	return RefreshSnapshotConfig{
		FocusSizes: []int{analytics.DefaultFocusSize},
		LockTTL:    2 * time.Minute,
	}
}

// RefreshStats describes the last successful refresh.
type RefreshStats struct {
	GeneratedAt time.Time
	Students    int
	Levels      analytics.LevelCounts
	Snapshots   int
}

// RefreshSnapshotJob rebuilds the school dashboard and puts it into the cache
// so that the overview endpoint does not score the whole school per request.
type RefreshSnapshotJob struct {
	students student.Repository
	writer   SnapshotWriter
	locker   Locker
	clock    timeutil.Clock
	logger   *logger.Logger
	config   RefreshSnapshotConfig
	owner    string

	lastStats atomic.Pointer[RefreshStats]
}

// NewRefreshSnapshotJob creates the job. locker may be nil for a single worker.
func NewRefreshSnapshotJob(
	students student.Repository,
	writer SnapshotWriter,
	locker Locker,
	clock timeutil.Clock,
	log *logger.Logger,
	config RefreshSnapshotConfig,
) *RefreshSnapshotJob {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	if len(config.FocusSizes) == 0 {
		config.FocusSizes = DefaultRefreshSnapshotConfig().FocusSizes
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultRefreshSnapshotConfig().LockTTL
	}
	return &RefreshSnapshotJob{
		students: students,
		writer:   writer,
		locker:   locker,
		clock:    clock,
		logger:   log.Named(RefreshSnapshotJobName),
		config:   config,
		owner:    uuid.NewString(),
	}
}

// Name returns the job name.
func (j *RefreshSnapshotJob) Name() string { return RefreshSnapshotJobName }

// Description returns a human-readable description.
func (j *RefreshSnapshotJob) Description() string {
	return "Rebuilds the school dashboard snapshot and the at-risk gauges"
}

// LastStats returns the stats of the last successful run or nil.
func (j *RefreshSnapshotJob) LastStats() *RefreshStats {
	return j.lastStats.Load()
}

// Run executes the refresh.
func (j *RefreshSnapshotJob) Run(ctx context.Context) error {
	if j.locker != nil {
		acquired, err := j.locker.TryLock(ctx, RefreshSnapshotJobName, j.owner, j.config.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("%w: another worker is refreshing", scheduler.ErrSkipped)
		}
		defer func() {
			// The run context may already be cancelled.
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := j.locker.Unlock(unlockCtx, RefreshSnapshotJobName, j.owner); err != nil {
				j.logger.Warn("release lock failed", logger.Err(err))
			}
		}()
	}

	all, err := j.students.List(ctx, student.ListFilter{})
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	generatedAt := j.clock.Now()
	stats := &RefreshStats{GeneratedAt: generatedAt, Students: len(all)}

	for _, size := range j.config.FocusSizes {
		dashboard := analytics.BuildDashboard(all, size)
		snap := analytics.Snapshot{Dashboard: dashboard, FocusSize: size, GeneratedAt: generatedAt}
		if err := j.writer.Put(ctx, snap); err != nil {
			return fmt.Errorf("store snapshot (focus %d): %w", size, err)
		}
		stats.Levels = dashboard.Overview.Levels
		stats.Snapshots++
	}

	setLevelGauges(stats.Levels)
	j.lastStats.Store(stats)

	j.logger.Info("dashboard snapshot refreshed",
		logger.Int("students", stats.Students),
		logger.Int("at_risk", stats.Levels.AtRisk()),
		logger.Int("snapshots", stats.Snapshots),
	)
	return nil
}

func setLevelGauges(c analytics.LevelCounts) {
	metrics.StudentsAtRisk.WithLabelValues(string(risk.LevelNone)).Set(float64(c.None))
	metrics.StudentsAtRisk.WithLabelValues(string(risk.LevelLow)).Set(float64(c.Low))
	metrics.StudentsAtRisk.WithLabelValues(string(risk.LevelMedium)).Set(float64(c.Medium))
	metrics.StudentsAtRisk.WithLabelValues(string(risk.LevelHigh)).Set(float64(c.High))
}
