package query

import (
	"context"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/application/advisor"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RISK QUERY
// Оценка риска одного ученика. Детерминированная оценка доступна всегда,
// анализ с AI запрашивается отдельно и при сбое совпадает с ней.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRiskQuery содержит параметры запроса.
type GetStudentRiskQuery struct {
	StudentID string

	// Role сужает рекомендации до одной роли (пусто - все роли).
	Role string

	// Locale - язык текстов (kk или ru), по умолчанию kk.
	Locale string

	// WithAnalysis - запросить тексты у AI-ассистента.
	WithAnalysis bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentRiskQuery) Validate() error {
	q.StudentID = strings.TrimSpace(q.StudentID)
	if q.StudentID == "" {
		return invalidInput("GetStudentRisk", "student_id is required")
	}
	if _, err := parseRole("GetStudentRisk", q.Role); err != nil {
		return err
	}
	return nil
}

// StudentRiskResult - результат запроса.
type StudentRiskResult struct {
	Student        student.Student `json:"student"`
	Assessment     risk.Assessment `json:"assessment"`
	Role           shared.Role     `json:"role,omitempty"`
	Source         risk.Source     `json:"source"`
	FallbackReason string          `json:"fallbackReason,omitempty"`
	Cached         bool            `json:"cached,omitempty"`
}

// GetStudentRiskHandler обрабатывает запрос.
type GetStudentRiskHandler struct {
	students student.Repository
	analyzer Analyzer
}

// NewGetStudentRiskHandler создаёт обработчик. analyzer может быть nil:
// тогда WithAnalysis возвращает оценку по правилам.
func NewGetStudentRiskHandler(students student.Repository, analyzer Analyzer) *GetStudentRiskHandler {
	return &GetStudentRiskHandler{students: students, analyzer: analyzer}
}

// Handle выполняет запрос.
func (h *GetStudentRiskHandler) Handle(ctx context.Context, q GetStudentRiskQuery) (*StudentRiskResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	role, _ := shared.ParseRole(q.Role)
	locale := shared.ParseLocale(q.Locale)

	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	var analysis advisor.Analysis
	if q.WithAnalysis && h.analyzer != nil {
		analysis = h.analyzer.Analyze(ctx, *s, locale, role)
	} else {
		analysis = advisor.Analysis{Assessment: risk.Assess(*s, locale), Source: risk.SourceRules}
	}

	assessment := analysis.Assessment
	if role != "" {
		assessment.RoleRecs = assessment.RoleRecs.Only(role)
	}

	return &StudentRiskResult{
		Student:        *s,
		Assessment:     assessment,
		Role:           role,
		Source:         analysis.Source,
		FallbackReason: analysis.FallbackReason,
		Cached:         analysis.Cached,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT NARRATIVE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentNarrativeQuery запрашивает развёрнутые рекомендации по ученику.
type GetStudentNarrativeQuery struct {
	StudentID string
	Role      string
	Locale    string
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentNarrativeQuery) Validate() error {
	q.StudentID = strings.TrimSpace(q.StudentID)
	if q.StudentID == "" {
		return invalidInput("GetStudentNarrative", "student_id is required")
	}
	_, err := parseRole("GetStudentNarrative", q.Role)
	return err
}

// GetStudentNarrativeHandler обрабатывает запрос.
type GetStudentNarrativeHandler struct {
	students student.Repository
	analyzer Analyzer
}

// NewGetStudentNarrativeHandler создаёт обработчик.
func NewGetStudentNarrativeHandler(students student.Repository, analyzer Analyzer) *GetStudentNarrativeHandler {
	return &GetStudentNarrativeHandler{students: students, analyzer: analyzer}
}

// Handle выполняет запрос.
func (h *GetStudentNarrativeHandler) Handle(ctx context.Context, q GetStudentNarrativeQuery) (*advisor.Narrative, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	role, _ := shared.ParseRole(q.Role)
	locale := shared.ParseLocale(q.Locale)

	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	if h.analyzer == nil {
		return &advisor.Narrative{
			StudentID:      s.ID,
			Locale:         locale,
			Text:           advisor.FallbackNarrative(*s, locale),
			Source:         risk.SourceRules,
			FallbackReason: advisor.ReasonDisabled,
		}, nil
	}

	n := h.analyzer.Narrative(ctx, *s, locale, role)
	return &n, nil
}
