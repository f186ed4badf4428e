// Package advisor combines the deterministic risk engine with the external AI
// advisor. The rule-based assessment is always computed first and is returned
// whenever the advisor is disabled, slow, failing or returns an invalid payload.
package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/metrics"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// Advisor returns structured advice for one student.
type Advisor interface {
	Advise(ctx context.Context, s student.Student, locale shared.Locale) (*risk.Advice, error)
}

// Narrator returns free-text recommendations for one student.
type Narrator interface {
	Narrative(ctx context.Context, s student.Student, locale shared.Locale) (string, error)
}

// Cache stores AI advice per student snapshot.
type Cache interface {
	Get(ctx context.Context, s student.Student, locale shared.Locale) (*risk.Advice, bool, error)
	Set(ctx context.Context, s student.Student, locale shared.Locale, advice risk.Advice) error
}

// Flags decides whether a feature is on for a caller.
type Flags interface {
	IsEnabled(name string, fctx *config.FeatureContext) bool
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULT
// ══════════════════════════════════════════════════════════════════════════════

// Fallback reasons reported when rules answer instead of the advisor.
const (
	ReasonDisabled        = "disabled"
	ReasonTimeout         = "timeout"
	ReasonRateLimited     = "rate_limited"
	ReasonUnavailable     = "unavailable"
	ReasonInvalidResponse = "invalid_response"
	ReasonError           = "error"
)

// Analysis is an assessment together with the origin of its texts.
// Score and level always come from the rules.
type Analysis struct {
	risk.Assessment
	Source         risk.Source `json:"source"`
	FallbackReason string      `json:"fallbackReason,omitempty"`
	Cached         bool        `json:"cached"`
}

// Narrative is a free-text recommendation block.
type Narrative struct {
	StudentID      string        `json:"studentId"`
	Locale         shared.Locale `json:"locale"`
	Text           string        `json:"text"`
	Source         risk.Source   `json:"source"`
	FallbackReason string        `json:"fallbackReason,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Config controls the service.
type Config struct {
	// Timeout bounds a whole advisor call including retries.
	Timeout time.Duration
}

// DefaultTimeout is used when Config.Timeout is not set.
const DefaultTimeout = 8 * time.Second

// Service answers analysis requests with AI advice when possible.
type Service struct {
	advisor  Advisor
	narrator Narrator
	cache    Cache
	flags    Flags
	timeout  time.Duration
	log      *logger.Logger
}

// NewService creates the service. advisor, narrator, cache and flags may be nil.
func NewService(advisor Advisor, narrator Narrator, cache Cache, flags Flags, cfg Config, log *logger.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		advisor:  advisor,
		narrator: narrator,
		cache:    cache,
		flags:    flags,
		timeout:  cfg.Timeout,
		log:      log.Named("advisor"),
	}
}

// Analyze returns the assessment of s with texts in locale. It never fails:
// any advisor problem falls back to the rule-based texts and is reported in
// FallbackReason. role is the audience used for feature flag targeting;
// empty means any role.
func (svc *Service) Analyze(ctx context.Context, s student.Student, locale shared.Locale, role shared.Role) Analysis {
	assessment := risk.Assess(s, locale)
	result := Analysis{Assessment: assessment, Source: risk.SourceRules}

	if svc.advisor == nil || !svc.enabled(config.FeatureAdvisor, role, s.ID) {
		result.FallbackReason = ReasonDisabled
		metrics.AdvisorRequests.WithLabelValues(string(risk.SourceRules)).Inc()
		return result
	}

	if ai, ok := svc.lookup(ctx, s, locale); ok {
		result.Advice, result.Source = risk.MergeAdvice(assessment.Advice, *ai)
		result.Cached = true
		metrics.AdvisorRequests.WithLabelValues(string(result.Source)).Inc()
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	start := time.Now()
	ai, err := svc.advisor.Advise(callCtx, s, locale)
	metrics.AdvisorLatency.Observe(time.Since(start).Seconds())

	if err == nil && ai == nil {
		err = shared.ErrAdvisorInvalidResponse
	}
	if err != nil {
		reason := fallbackReason(callCtx, err)
		svc.log.Warn("advisor failed, using rule-based advice",
			logger.StudentID(s.ID),
			logger.RiskLevel(assessment.Level.String()),
			logger.String("reason", reason),
			logger.Latency(time.Since(start)),
			logger.Err(err),
		)
		metrics.AdvisorFallbacks.WithLabelValues(reason).Inc()
		metrics.AdvisorRequests.WithLabelValues(string(risk.SourceRules)).Inc()
		result.FallbackReason = reason
		return result
	}

	svc.store(ctx, s, locale, *ai)

	result.Advice, result.Source = risk.MergeAdvice(assessment.Advice, *ai)
	metrics.AdvisorRequests.WithLabelValues(string(result.Source)).Inc()
	return result
}

// Narrative returns free-text recommendations, or the rule-based list joined
// as numbered lines when the narrator is off or fails.
func (svc *Service) Narrative(ctx context.Context, s student.Student, locale shared.Locale, role shared.Role) Narrative {
	out := Narrative{StudentID: s.ID, Locale: locale, Source: risk.SourceRules}

	if svc.narrator == nil ||
		!svc.enabled(config.FeatureAdvisor, role, s.ID) ||
		!svc.enabled(config.FeatureAdvisorNarrative, role, s.ID) {
		out.Text = FallbackNarrative(s, locale)
		out.FallbackReason = ReasonDisabled
		return out
	}

	callCtx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	text, err := svc.narrator.Narrative(callCtx, s, locale)
	if err != nil {
		reason := fallbackReason(callCtx, err)
		svc.log.Warn("narrative failed, using rule-based text",
			logger.StudentID(s.ID),
			logger.String("reason", reason),
			logger.Err(err),
		)
		metrics.AdvisorFallbacks.WithLabelValues(reason).Inc()
		out.Text = FallbackNarrative(s, locale)
		out.FallbackReason = reason
		return out
	}

	out.Text = text
	out.Source = risk.SourceAI
	return out
}

func (svc *Service) enabled(feature string, role shared.Role, studentID string) bool {
	if svc.flags == nil {
		return true
	}
	return svc.flags.IsEnabled(feature, &config.FeatureContext{Role: string(role), StudentID: studentID})
}

func (svc *Service) cacheEnabled(studentID string) bool {
	return svc.cache != nil && svc.enabled(config.FeatureAdvisorCache, "", studentID)
}

// lookup reads the analysis cache. Cache errors are logged and treated as a miss.
func (svc *Service) lookup(ctx context.Context, s student.Student, locale shared.Locale) (*risk.Advice, bool) {
	if !svc.cacheEnabled(s.ID) {
		return nil, false
	}

	ai, hit, err := svc.cache.Get(ctx, s, locale)
	switch {
	case err != nil:
		metrics.AnalysisCacheLookups.WithLabelValues("error").Inc()
		svc.log.Warn("analysis cache read failed", logger.StudentID(s.ID), logger.Err(err))
		return nil, false
	case !hit || ai == nil:
		metrics.AnalysisCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.AnalysisCacheLookups.WithLabelValues("hit").Inc()
		return ai, true
	}
}

func (svc *Service) store(ctx context.Context, s student.Student, locale shared.Locale, ai risk.Advice) {
	if !svc.cacheEnabled(s.ID) {
		return
	}
	if err := svc.cache.Set(ctx, s, locale, ai); err != nil {
		svc.log.Warn("analysis cache write failed", logger.StudentID(s.ID), logger.Err(err))
	}
}

func fallbackReason(callCtx context.Context, err error) string {
	switch {
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, shared.ErrDisabled):
		return ReasonDisabled
	case errors.Is(err, shared.ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, shared.ErrServiceUnavailable):
		return ReasonUnavailable
	case errors.Is(err, shared.ErrInvalidFormat):
		return ReasonInvalidResponse
	default:
		return ReasonError
	}
}
