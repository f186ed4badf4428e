package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/mektep-hub/mektep-monitor/internal/application/advisor"
	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM ANALYSES JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmAnalysesJobName is the scheduler name of WarmAnalysesJob.
const WarmAnalysesJobName = "warm_analyses"

// Analyzer produces an analysis of one student. Implementations fill the
// analysis cache as a side effect.
type Analyzer interface {
	Analyze(ctx context.Context, s student.Student, locale shared.Locale, role shared.Role) advisor.Analysis
}

// WarmAnalysesConfig contains configuration for the warmup job.
type WarmAnalysesConfig struct {
	// Limit is the number of highest-risk students to analyse (0 = all at risk).
	Limit int

	// Locales to warm. Defaults to Kazakh and Russian.
	Locales []shared.Locale
}

// WarmStats describes the last warmup run.
type WarmStats struct {
	Students  int
	FromAI    int
	Cached    int
	Fallbacks int
}

// WarmAnalysesJob asks the advisor about the most at-risk students before
// the school day so that teachers open their cards from the cache.
type WarmAnalysesJob struct {
	students student.Repository
	analyzer Analyzer
	logger   *logger.Logger
	config   WarmAnalysesConfig

	lastStats atomic.Pointer[WarmStats]
}

// NewWarmAnalysesJob creates the job.
func NewWarmAnalysesJob(students student.Repository, analyzer Analyzer, log *logger.Logger, config WarmAnalysesConfig) *WarmAnalysesJob {
	if log == nil {
		log = logger.NewNop()
	}
	if len(config.Locales) == 0 {
		config.Locales = []shared.Locale{shared.LocaleKazakh, shared.LocaleRussian}
	}
	return &WarmAnalysesJob{
		students: students,
		analyzer: analyzer,
		logger:   log.Named(WarmAnalysesJobName),
		config:   config,
	}
}

// Name returns the job name.
func (j *WarmAnalysesJob) Name() string { return WarmAnalysesJobName }

// Description returns a human-readable description.
func (j *WarmAnalysesJob) Description() string {
	return "Pre-computes AI analyses of the most at-risk students"
}

// LastStats returns the stats of the last run or nil.
func (j *WarmAnalysesJob) LastStats() *WarmStats {
	return j.lastStats.Load()
}

// Run executes the warmup.
func (j *WarmAnalysesJob) Run(ctx context.Context) error {
	all, err := j.students.List(ctx, student.ListFilter{})
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	targets := j.selectTargets(all)
	stats := &WarmStats{Students: len(targets)}

	for _, s := range targets {
		for _, locale := range j.config.Locales {
			if err := ctx.Err(); err != nil {
				j.lastStats.Store(stats)
				return fmt.Errorf("warmup interrupted after %d analyses: %w", stats.FromAI+stats.Cached+stats.Fallbacks, err)
			}

			analysis := j.analyzer.Analyze(ctx, s, locale, "")
			switch {
			case analysis.Cached:
				stats.Cached++
			case analysis.Source == risk.SourceRules:
				stats.Fallbacks++
			default:
				stats.FromAI++
			}
		}
	}

	j.lastStats.Store(stats)
	j.logger.Info("analyses warmed",
		logger.Int("students", stats.Students),
		logger.Int("from_ai", stats.FromAI),
		logger.Int("cached", stats.Cached),
		logger.Int("fallbacks", stats.Fallbacks),
	)
	return nil
}

// selectTargets returns at-risk students by descending score, capped at Limit.
func (j *WarmAnalysesJob) selectTargets(all []student.Student) []student.Student {
	scored := analytics.ScoreAll(all)
	atRisk := make([]analytics.Scored, 0, len(scored))
	for _, sc := range scored {
		if sc.Level.IsAtRisk() {
			atRisk = append(atRisk, sc)
		}
	}
	sort.SliceStable(atRisk, func(a, b int) bool { return atRisk[a].Score > atRisk[b].Score })

	if j.config.Limit > 0 && len(atRisk) > j.config.Limit {
		atRisk = atRisk[:j.config.Limit]
	}

	out := make([]student.Student, len(atRisk))
	for i, sc := range atRisk {
		out[i] = sc.Student
	}
	return out
}
