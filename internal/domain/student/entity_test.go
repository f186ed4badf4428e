package student

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

func validStudent() Student {
	return Student{
		ID:                 "s-001",
		FullName:           "Айгерим Садыкова",
		ClassName:          "9A",
		Gender:             GenderFemale,
		AvgGrade:           4.2,
		GradeTrend:         0.1,
		Absences:           3,
		UnexcusedAbsences:  1,
		HomeworkCompletion: 92,
		SubjectsAtRisk:     []SubjectCode{SubjectMath},
	}
}

func TestStudent_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Student)
		field  string
	}{
		{"valid", func(*Student) {}, ""},
		{"empty id", func(s *Student) { s.ID = " " }, "ID"},
		{"empty name", func(s *Student) { s.FullName = "" }, "fullName"},
		{"empty class", func(s *Student) { s.ClassName = "" }, "className"},
		{"class name at limit in cyrillic", func(s *Student) { s.ClassName = strings.Repeat("Б", MaxClassNameLen) }, ""},
		{"class name too long", func(s *Student) { s.ClassName = strings.Repeat("A", MaxClassNameLen+1) }, "className"},
		{"bad gender", func(s *Student) { s.Gender = "other" }, "gender"},
		{"grade too low", func(s *Student) { s.AvgGrade = 0.5 }, "avgGrade"},
		{"grade too high", func(s *Student) { s.AvgGrade = 5.1 }, "avgGrade"},
		{"negative absences", func(s *Student) { s.Absences = -1; s.UnexcusedAbsences = -2 }, "absences"},
		{"unexcused over total", func(s *Student) { s.UnexcusedAbsences = 4 }, "unexcusedAbsences"},
		{"homework over 100", func(s *Student) { s.HomeworkCompletion = 101 }, "homeworkCompletion"},
		{"negative alerts", func(s *Student) { s.TeacherAlerts = -1 }, "teacherAlerts"},
		{"unknown subject", func(s *Student) { s.SubjectsAtRisk = []SubjectCode{"astrology"} }, "subjectsAtRisk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStudent()
			tt.mutate(&s)
			err := s.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateAll_DuplicateID(t *testing.T) {
	a := validStudent()
	b := validStudent()

	err := ValidateAll([]Student{a, b})
	require.Error(t, err)
	assert.True(t, shared.IsAlreadyExists(err))

	b.ID = "s-002"
	assert.NoError(t, ValidateAll([]Student{a, b}))
}

func TestStudent_ExcusedAbsences(t *testing.T) {
	s := Student{Absences: 10, UnexcusedAbsences: 6}
	assert.Equal(t, 4, s.ExcusedAbsences())

	s = Student{Absences: 2, UnexcusedAbsences: 5}
	assert.Equal(t, 0, s.ExcusedAbsences())
}

func TestStudent_CloneIsIndependent(t *testing.T) {
	s := validStudent()
	c := s.Clone()
	c.SubjectsAtRisk[0] = SubjectPhysics

	assert.Equal(t, SubjectMath, s.SubjectsAtRisk[0])
}

func TestListFilter_Matches(t *testing.T) {
	s := validStudent()
	assert.True(t, ListFilter{}.Matches(s))
	assert.True(t, ListFilter{ClassName: "9A"}.Matches(s))
	assert.False(t, ListFilter{ClassName: "9B"}.Matches(s))
}

func TestLookupSubject(t *testing.T) {
	subj, ok := LookupSubject(SubjectHistoryKZ)
	require.True(t, ok)
	assert.Equal(t, "История Казахстана", subj.NameRu)

	_, ok = LookupSubject("unknown")
	assert.False(t, ok)
	assert.Len(t, Subjects, 11)
}
