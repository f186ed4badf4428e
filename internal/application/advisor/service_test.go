package advisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeAdvisor struct {
	advice *risk.Advice
	err    error
	delay  time.Duration
	calls  int32
}

func (f *fakeAdvisor) Advise(ctx context.Context, _ student.Student, _ shared.Locale) (*risk.Advice, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.advice, f.err
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Narrative(context.Context, student.Student, shared.Locale) (string, error) {
	return f.text, f.err
}

type roleFlags struct {
	deny  shared.Role
	roles []string
}

func (f *roleFlags) IsEnabled(_ string, fctx *config.FeatureContext) bool {
	f.roles = append(f.roles, fctx.Role)
	return fctx.Role != string(f.deny)
}

type memoryCache struct {
	entries map[string]risk.Advice
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]risk.Advice)}
}

func (c *memoryCache) key(s student.Student, l shared.Locale) string { return s.ID + ":" + string(l) }

func (c *memoryCache) Get(_ context.Context, s student.Student, l shared.Locale) (*risk.Advice, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	a, ok := c.entries[c.key(s, l)]
	if !ok {
		return nil, false, nil
	}
	return &a, true, nil
}

func (c *memoryCache) Set(_ context.Context, s student.Student, l shared.Locale, a risk.Advice) error {
	c.entries[c.key(s, l)] = a
	return nil
}

func atRiskStudent() student.Student {
	return student.Student{
		ID:                 "s-1",
		FullName:           "Ахметова Айгерим",
		ClassName:          "9A",
		Gender:             student.GenderFemale,
		AvgGrade:           2.8,
		GradeTrend:         -0.4,
		Absences:           8,
		UnexcusedAbsences:  5,
		LowActivity:        true,
		HomeworkCompletion: 45,
		TeacherAlerts:      2,
		SubjectsAtRisk:     []student.SubjectCode{student.SubjectMath},
	}
}

func aiAdvice() *risk.Advice {
	return &risk.Advice{
		Reasons:  []string{"AI reason"},
		RoleRecs: risk.RoleRecommendations{Teacher: []string{"AI teacher rec"}},
	}
}

func newService(a Advisor, n Narrator, c Cache, flags Flags, t *testing.T) *Service {
	return NewService(a, n, c, flags, Config{Timeout: 200 * time.Millisecond}, logger.NewTest(t))
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYZE
// ══════════════════════════════════════════════════════════════════════════════

func TestAnalyze_MergesAIAdvice(t *testing.T) {
	s := atRiskStudent()
	svc := newService(&fakeAdvisor{advice: aiAdvice()}, nil, nil, nil, t)

	got := svc.Analyze(context.Background(), s, shared.LocaleRussian, "")
	rules := risk.Assess(s, shared.LocaleRussian)

	assert.Equal(t, risk.SourceMixed, got.Source)
	assert.Empty(t, got.FallbackReason)
	assert.Equal(t, rules.Score, got.Score)
	assert.Equal(t, rules.Level, got.Level)
	assert.Equal(t, []string{"AI reason"}, got.Reasons)
	assert.Equal(t, []string{"AI teacher rec"}, got.RoleRecs.Teacher)
	assert.Equal(t, rules.RoleRecs.Deputy, got.RoleRecs.Deputy)
	assert.Equal(t, rules.PsychSignals, got.PsychSignals)
}

func TestAnalyze_FallsBackToRules(t *testing.T) {
	tests := []struct {
		name    string
		advisor *fakeAdvisor
		reason  string
	}{
		{"unavailable", &fakeAdvisor{err: shared.ErrAdvisorUnavailable}, ReasonUnavailable},
		{"rate limited", &fakeAdvisor{err: shared.ErrAdvisorRateLimited}, ReasonRateLimited},
		{"invalid payload", &fakeAdvisor{err: shared.ErrAdvisorInvalidResponse}, ReasonInvalidResponse},
		{"disabled key", &fakeAdvisor{err: shared.ErrAdvisorDisabled}, ReasonDisabled},
		{"unknown error", &fakeAdvisor{err: errors.New("boom")}, ReasonError},
		{"nil advice", &fakeAdvisor{}, ReasonInvalidResponse},
		{"slow advisor", &fakeAdvisor{advice: aiAdvice(), delay: time.Second}, ReasonTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := atRiskStudent()
			got := newService(tt.advisor, nil, nil, nil, t).Analyze(context.Background(), s, shared.LocaleKazakh, "")

			rules := risk.Assess(s, shared.LocaleKazakh)
			assert.Equal(t, risk.SourceRules, got.Source)
			assert.Equal(t, tt.reason, got.FallbackReason)
			assert.Equal(t, rules, got.Assessment)
		})
	}
}

func TestAnalyze_DisabledByFlag(t *testing.T) {
	flags := config.NewFeatureFlags()
	flags.Set(config.FeatureAdvisor, false)
	advisor := &fakeAdvisor{advice: aiAdvice()}

	got := newService(advisor, nil, nil, flags, t).Analyze(context.Background(), atRiskStudent(), shared.LocaleKazakh, "")

	assert.Equal(t, risk.SourceRules, got.Source)
	assert.Equal(t, ReasonDisabled, got.FallbackReason)
	assert.Zero(t, atomic.LoadInt32(&advisor.calls))
}

func TestAnalyze_FlagsSeeRole(t *testing.T) {
	flags := &roleFlags{deny: shared.RoleParent}
	advisor := &fakeAdvisor{advice: aiAdvice()}
	svc := newService(advisor, nil, nil, flags, t)

	got := svc.Analyze(context.Background(), atRiskStudent(), shared.LocaleKazakh, shared.RoleParent)
	assert.Equal(t, risk.SourceRules, got.Source)
	assert.Equal(t, ReasonDisabled, got.FallbackReason)
	assert.Zero(t, atomic.LoadInt32(&advisor.calls))

	got = svc.Analyze(context.Background(), atRiskStudent(), shared.LocaleKazakh, shared.RoleDeputy)
	assert.Equal(t, risk.SourceMixed, got.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&advisor.calls))
	assert.Equal(t, "parent", flags.roles[0])
	assert.Contains(t, flags.roles, "deputy")
}

func TestAnalyze_TextsFollowLocale(t *testing.T) {
	s := atRiskStudent()
	kkText := risk.MessagesFor(shared.LocaleKazakh)

	t.Run("rules only", func(t *testing.T) {
		got := newService(nil, nil, nil, nil, t).Analyze(context.Background(), s, shared.LocaleKazakh, "")
		assert.Equal(t, risk.ExplainReasons(s, shared.LocaleKazakh), got.Reasons)
		assert.True(t, strings.HasPrefix(got.Reasons[0], "Орташа баға төмен"))
	})

	t.Run("partial AI answer is filled in the same language", func(t *testing.T) {
		advisor := &fakeAdvisor{advice: &risk.Advice{Reasons: []string{"Орташа баға төмен."}}}
		got := newService(advisor, nil, nil, nil, t).Analyze(context.Background(), s, shared.LocaleKazakh, "")

		assert.Equal(t, risk.SourceMixed, got.Source)
		assert.Equal(t, []string{"Орташа баға төмен."}, got.Reasons)
		assert.Equal(t, []string{kkText.TeacherAcademicSupport, kkText.TeacherEngagement}, got.RoleRecs.Teacher)
		assert.Equal(t, risk.DetectPsychSignals(s, shared.LocaleKazakh), got.PsychSignals)
		assert.Contains(t, got.PsychSignals, kkText.SignalDisengagement)
	})

	t.Run("russian", func(t *testing.T) {
		got := newService(nil, nil, nil, nil, t).Analyze(context.Background(), s, shared.LocaleRussian, "")
		assert.Equal(t, risk.Rules(s, shared.LocaleRussian), got.Advice)
	})
}

func TestAnalyze_NoAdvisor(t *testing.T) {
	got := newService(nil, nil, nil, nil, t).Analyze(context.Background(), atRiskStudent(), shared.LocaleKazakh, "")
	assert.Equal(t, risk.SourceRules, got.Source)
	assert.Equal(t, ReasonDisabled, got.FallbackReason)
}

func TestAnalyze_UsesCache(t *testing.T) {
	cache := newMemoryCache()
	advisor := &fakeAdvisor{advice: aiAdvice()}
	svc := newService(advisor, nil, cache, nil, t)
	s := atRiskStudent()

	first := svc.Analyze(context.Background(), s, shared.LocaleKazakh, "")
	assert.False(t, first.Cached)

	second := svc.Analyze(context.Background(), s, shared.LocaleKazakh, "")
	assert.True(t, second.Cached)
	assert.Equal(t, first.Advice, second.Advice)
	assert.Equal(t, int32(1), atomic.LoadInt32(&advisor.calls))
}

func TestAnalyze_CacheErrorIsAMiss(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	advisor := &fakeAdvisor{advice: aiAdvice()}

	got := newService(advisor, nil, cache, nil, t).Analyze(context.Background(), atRiskStudent(), shared.LocaleKazakh, "")
	assert.Equal(t, risk.SourceMixed, got.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&advisor.calls))
}

// ══════════════════════════════════════════════════════════════════════════════
// NARRATIVE
// ══════════════════════════════════════════════════════════════════════════════

func TestNarrative(t *testing.T) {
	s := atRiskStudent()

	t.Run("ai text", func(t *testing.T) {
		got := newService(nil, &fakeNarrator{text: "1. AI"}, nil, nil, t).
			Narrative(context.Background(), s, shared.LocaleKazakh, shared.RoleDeputy)
		assert.Equal(t, risk.SourceAI, got.Source)
		assert.Equal(t, "1. AI", got.Text)
	})

	t.Run("failure falls back", func(t *testing.T) {
		got := newService(nil, &fakeNarrator{err: shared.ErrAdvisorTimeout}, nil, nil, t).
			Narrative(context.Background(), s, shared.LocaleRussian, shared.RoleDeputy)
		assert.Equal(t, risk.SourceRules, got.Source)
		assert.Equal(t, ReasonTimeout, got.FallbackReason)
		assert.Equal(t, FallbackNarrative(s, shared.LocaleRussian), got.Text)
	})

	t.Run("role not targeted", func(t *testing.T) {
		got := newService(nil, &fakeNarrator{text: "1. AI"}, nil, config.NewFeatureFlags(), t).
			Narrative(context.Background(), s, shared.LocaleKazakh, shared.RoleTeacher)
		assert.Equal(t, risk.SourceRules, got.Source)
		assert.Equal(t, ReasonDisabled, got.FallbackReason)
	})
}

func TestFallbackNarrative(t *testing.T) {
	text := FallbackNarrative(atRiskStudent(), shared.LocaleKazakh)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "1. Орташа баға төмен"))
	assert.Contains(t, lines[4], "Математика")

	calm := student.Student{ID: "s-2", AvgGrade: 4.8}
	assert.Equal(t, "1. Явных рисков сейчас нет. Достаточно продолжать наблюдать за динамикой.",
		FallbackNarrative(calm, shared.LocaleRussian))
}
