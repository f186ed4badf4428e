package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

const (
	ru = shared.LocaleRussian
	kk = shared.LocaleKazakh
)

var (
	ruText = MessagesFor(ru)
	kkText = MessagesFor(kk)
)

func perfectStudent() student.Student {
	return student.Student{
		ID:                 "perfect",
		FullName:           "Perfect Student",
		ClassName:          "10A",
		Gender:             student.GenderMale,
		AvgGrade:           4.5,
		GradeTrend:         0.1,
		HomeworkCompletion: 100,
	}
}

func highRiskStudent() student.Student {
	return student.Student{
		ID:                 "risky",
		FullName:           "Risky Student",
		ClassName:          "9B",
		Gender:             student.GenderFemale,
		AvgGrade:           2.2,
		GradeTrend:         -0.6,
		Absences:           10,
		UnexcusedAbsences:  6,
		HomeworkCompletion: 40,
		TeacherAlerts:      3,
		LowActivity:        true,
		SubjectsAtRisk:     []student.SubjectCode{student.SubjectMath, student.SubjectPhysics},
	}
}

func TestScore_PerfectStudentScoresZero(t *testing.T) {
	s := perfectStudent()

	assert.Equal(t, 0.0, Score(s))
	assert.Equal(t, LevelNone, Classify(Score(s)))
	assert.Equal(t, []string{ruText.NoRiskFactors}, ExplainReasons(s, ru))
}

func TestScore_HighRiskStudent(t *testing.T) {
	s := highRiskStudent()
	b := ScoreBreakdown(s)

	assert.Equal(t, 40.0, b.Grade)
	assert.Equal(t, 15.0, b.Trend)
	assert.Equal(t, 34.0, b.Unexcused)
	assert.Equal(t, 6.0, b.Excused)
	assert.Equal(t, 25.0, b.Homework)
	assert.Equal(t, 30.0, b.Alerts)
	assert.Equal(t, 10.0, b.Subjects)
	assert.Equal(t, 8.0, b.Activity)

	assert.Equal(t, 168.0, Score(s))
	assert.Equal(t, LevelHigh, Classify(Score(s)))
}

func TestScore_FactorBands(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*student.Student)
		want   float64
	}{
		{"grade below 2.5", func(s *student.Student) { s.AvgGrade = 2.49 }, 40},
		{"grade exactly 2.5", func(s *student.Student) { s.AvgGrade = 2.5 }, 30},
		{"grade exactly 3.0", func(s *student.Student) { s.AvgGrade = 3.0 }, 20},
		{"grade exactly 3.5", func(s *student.Student) { s.AvgGrade = 3.5 }, 10},
		{"grade exactly 4.0", func(s *student.Student) { s.AvgGrade = 4.0 }, 0},
		{"trend below -0.5", func(s *student.Student) { s.GradeTrend = -0.51 }, 15},
		{"trend exactly -0.5", func(s *student.Student) { s.GradeTrend = -0.5 }, 8},
		{"trend exactly -0.2", func(s *student.Student) { s.GradeTrend = -0.2 }, 0},
		{"four unexcused", func(s *student.Student) { s.Absences = 4; s.UnexcusedAbsences = 4 }, 16},
		{"five unexcused adds flat bonus", func(s *student.Student) { s.Absences = 5; s.UnexcusedAbsences = 5 }, 30},
		{"excused only", func(s *student.Student) { s.Absences = 2 }, 3},
		{"inconsistent absences clamp excused", func(s *student.Student) { s.Absences = 1; s.UnexcusedAbsences = 2 }, 8},
		{"homework below 50", func(s *student.Student) { s.HomeworkCompletion = 49.9 }, 25},
		{"homework exactly 50", func(s *student.Student) { s.HomeworkCompletion = 50 }, 18},
		{"homework exactly 70", func(s *student.Student) { s.HomeworkCompletion = 70 }, 8},
		{"homework exactly 85", func(s *student.Student) { s.HomeworkCompletion = 85 }, 0},
		{"two alerts", func(s *student.Student) { s.TeacherAlerts = 2 }, 20},
		{"three subjects", func(s *student.Student) {
			s.SubjectsAtRisk = []student.SubjectCode{"math", "physics", "chemistry"}
		}, 15},
		{"low activity", func(s *student.Student) { s.LowActivity = true }, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := perfectStudent()
			tt.mutate(&s)
			assert.InDelta(t, tt.want, Score(s), 1e-9)
		})
	}
}

func TestScore_IsDeterministic(t *testing.T) {
	s := highRiskStudent()
	first := Score(s)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(s))
	}
}

func TestScore_IsMonotonic(t *testing.T) {
	base := highRiskStudent()
	base.Absences = 20

	prev := Score(base)
	for alerts := base.TeacherAlerts + 1; alerts < base.TeacherAlerts+5; alerts++ {
		s := base.Clone()
		s.TeacherAlerts = alerts
		assert.GreaterOrEqual(t, Score(s), prev)
		prev = Score(s)
	}

	prev = 0
	for unexcused := 0; unexcused <= base.Absences; unexcused++ {
		s := perfectStudent()
		s.Absences = base.Absences
		s.UnexcusedAbsences = unexcused
		assert.GreaterOrEqual(t, Score(s), prev, "unexcused=%d", unexcused)
		prev = Score(s)
	}

	prev = 0
	subjects := []student.SubjectCode{}
	for _, subj := range student.Subjects {
		subjects = append(subjects, subj.Code)
		s := perfectStudent()
		s.SubjectsAtRisk = subjects
		assert.Greater(t, Score(s), prev)
		prev = Score(s)
	}
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	s := highRiskStudent()
	before := s.Clone()

	_ = Assess(s, ru)

	assert.Equal(t, before, s)
}
