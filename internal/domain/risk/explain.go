package risk

import (
	"fmt"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// Пороги объяснений мягче порогов скоринга: объяснение передаёт нюансы.
const (
	explainGradeStrong     = 3.0
	explainGradeBorderline = 3.5
	explainTrendDecline    = -0.3
	explainUnexcusedStrong = 3
)

// ExplainReasons возвращает причины риска в фиксированном порядке на языке locale.
// Список никогда не бывает пустым: без причин возвращается NoRiskFactors.
func ExplainReasons(s student.Student, locale shared.Locale) []string {
	m := MessagesFor(locale)
	reasons := make([]string, 0, 6)

	switch {
	case s.AvgGrade < explainGradeStrong:
		reasons = append(reasons, fmt.Sprintf(m.GradeStrong, s.AvgGrade))
	case s.AvgGrade < explainGradeBorderline:
		reasons = append(reasons, fmt.Sprintf(m.GradeBorderline, s.AvgGrade))
	}

	if s.GradeTrend < explainTrendDecline {
		reasons = append(reasons, fmt.Sprintf(m.TrendDecline, s.GradeTrend))
	}

	switch {
	case s.UnexcusedAbsences >= explainUnexcusedStrong:
		reasons = append(reasons, fmt.Sprintf(m.UnexcusedStrong, s.UnexcusedAbsences))
	case s.UnexcusedAbsences > 0:
		reasons = append(reasons, fmt.Sprintf(m.UnexcusedMild, s.UnexcusedAbsences))
	}

	if s.LowActivity {
		reasons = append(reasons, m.LowActivity)
	}

	if s.TeacherAlerts > 0 {
		reasons = append(reasons, fmt.Sprintf(m.TeacherAlerts, s.TeacherAlerts))
	}

	if len(s.SubjectsAtRisk) > 0 {
		reasons = append(reasons, fmt.Sprintf(m.Subjects, strings.Join(s.SubjectNames(), ", ")))
	}

	if len(reasons) == 0 {
		return []string{m.NoRiskFactors}
	}
	return reasons
}
