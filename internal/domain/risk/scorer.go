package risk

import (
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// ══════════════════════════════════════════════════════════════════════════════

// Веса факторов риска.
const (
	pointsGradeBelow25 = 40.0
	pointsGradeBelow30 = 30.0
	pointsGradeBelow35 = 20.0
	pointsGradeBelow40 = 10.0

	pointsTrendSharp = 15.0
	pointsTrendMild  = 8.0

	pointsPerUnexcused        = 4.0
	pointsChronicUnexcused    = 10.0
	chronicUnexcusedThreshold = 5

	pointsPerExcused = 1.5

	pointsHomeworkBelow50 = 25.0
	pointsHomeworkBelow70 = 18.0
	pointsHomeworkBelow85 = 8.0

	pointsPerTeacherAlert = 10.0
	pointsPerRiskySubject = 5.0
	pointsLowActivity     = 8.0
)

// Breakdown - вклад каждого фактора в итоговый балл.
type Breakdown struct {
	Grade     float64 `json:"grade"`
	Trend     float64 `json:"trend"`
	Unexcused float64 `json:"unexcused"`
	Excused   float64 `json:"excused"`
	Homework  float64 `json:"homework"`
	Alerts    float64 `json:"alerts"`
	Subjects  float64 `json:"subjects"`
	Activity  float64 `json:"activity"`
}

// Total суммирует вклад факторов без нормализации.
func (b Breakdown) Total() float64 {
	return b.Grade + b.Trend + b.Unexcused + b.Excused +
		b.Homework + b.Alerts + b.Subjects + b.Activity
}

// Score вычисляет балл риска ученика.
// Функция чистая: одинаковый снимок всегда даёт одинаковый балл.
func Score(s student.Student) float64 {
	return ScoreBreakdown(s).Total()
}

// ScoreBreakdown раскладывает балл риска по факторам.
func ScoreBreakdown(s student.Student) Breakdown {
	b := Breakdown{
		Grade:     gradePoints(s.AvgGrade),
		Trend:     trendPoints(s.GradeTrend),
		Unexcused: pointsPerUnexcused * float64(s.UnexcusedAbsences),
		Excused:   pointsPerExcused * float64(s.ExcusedAbsences()),
		Homework:  homeworkPoints(s.HomeworkCompletion),
		Alerts:    pointsPerTeacherAlert * float64(s.TeacherAlerts),
		Subjects:  pointsPerRiskySubject * float64(len(s.SubjectsAtRisk)),
	}
	if s.UnexcusedAbsences >= chronicUnexcusedThreshold {
		b.Unexcused += pointsChronicUnexcused
	}
	if s.LowActivity {
		b.Activity = pointsLowActivity
	}
	return b
}

func gradePoints(avg float64) float64 {
	switch {
	case avg < 2.5:
		return pointsGradeBelow25
	case avg < 3.0:
		return pointsGradeBelow30
	case avg < 3.5:
		return pointsGradeBelow35
	case avg < 4.0:
		return pointsGradeBelow40
	default:
		return 0
	}
}

func trendPoints(trend float64) float64 {
	switch {
	case trend < -0.5:
		return pointsTrendSharp
	case trend < -0.2:
		return pointsTrendMild
	default:
		return 0
	}
}

func homeworkPoints(pct float64) float64 {
	switch {
	case pct < 50:
		return pointsHomeworkBelow50
	case pct < 70:
		return pointsHomeworkBelow70
	case pct < 85:
		return pointsHomeworkBelow85
	default:
		return 0
	}
}
