// Package risk - движок оценки риска ученика: балл, уровень, причины,
// рекомендации по ролям и психологические сигналы.
//
// Все функции пакета чистые и детерминированные, без состояния и ввода-вывода.
// Поэтому их результат служит запасным вариантом, когда внешний AI-ассистент
// недоступен или вернул некорректные данные.
package risk

import (
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// Advice - текстовая часть оценки. Форма совпадает с JSON ответа AI-ассистента:
// {reasons[], psychSignals[], roleRecs{teacher, deputy, parent, psychologist}}.
type Advice struct {
	Reasons      []string            `json:"reasons"`
	PsychSignals []string            `json:"psychSignals"`
	RoleRecs     RoleRecommendations `json:"roleRecs"`
}

// Assessment - полная оценка риска ученика.
type Assessment struct {
	StudentID string    `json:"studentId"`
	Score     float64   `json:"score"`
	Level     Level     `json:"level"`
	AtRisk    bool      `json:"atRisk"`
	Breakdown Breakdown `json:"breakdown"`
	Advice
}

// Assess вычисляет полную детерминированную оценку. Балл и уровень
// от языка не зависят, тексты строятся на языке locale.
func Assess(s student.Student, locale shared.Locale) Assessment {
	breakdown := ScoreBreakdown(s)
	score := breakdown.Total()
	level := Classify(score)
	return Assessment{
		StudentID: s.ID,
		Score:     score,
		Level:     level,
		AtRisk:    level.IsAtRisk(),
		Breakdown: breakdown,
		Advice:    Rules(s, locale),
	}
}

// Rules возвращает текстовую часть оценки по правилам на языке locale.
func Rules(s student.Student, locale shared.Locale) Advice {
	return Advice{
		Reasons:      ExplainReasons(s, locale),
		PsychSignals: DetectPsychSignals(s, locale),
		RoleRecs:     RecommendByRole(s, locale),
	}
}

// Source - откуда взята текстовая часть оценки.
type Source string

const (
	SourceRules Source = "rules"
	SourceAI    Source = "ai"
	SourceMixed Source = "mixed"
)

// MergeAdvice объединяет ответ AI с правилами по полям:
// непустое поле AI заменяет поле правил, пустое берётся из правил.
// Роли без рекомендаций AI заполняются из правил.
func MergeAdvice(rules, ai Advice) (Advice, Source) {
	merged := rules
	fromAI, fromRules := 0, 0

	if len(ai.Reasons) > 0 {
		merged.Reasons = ai.Reasons
		fromAI++
	} else {
		fromRules++
	}

	if !ai.RoleRecs.IsEmpty() {
		merged.RoleRecs = ai.RoleRecs.FillEmpty(rules.RoleRecs)
		fromAI++
	} else {
		fromRules++
	}

	if len(ai.PsychSignals) > 0 {
		merged.PsychSignals = ai.PsychSignals
		fromAI++
	} else {
		fromRules++
	}

	switch {
	case fromAI == 0:
		return merged, SourceRules
	case fromRules == 0:
		return merged, SourceAI
	default:
		return merged, SourceMixed
	}
}
