package analytics

import (
	"math"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// SchoolOverview - общая статистика школы для панели завуча.
type SchoolOverview struct {
	TotalStudents int `json:"totalStudents"`
	TotalClasses  int `json:"totalClasses"`
	Boys          int `json:"boys"`
	Girls         int `json:"girls"`

	AvgGrade float64 `json:"avgGrade"`

	TotalAbsences   int `json:"totalAbsences"`
	TotalUnexcused  int `json:"totalUnexcused"`
	ExcusedAbsences int `json:"excusedAbsences"`

	AvgHomework         float64 `json:"avgHomework"`
	HomeworkDonePercent int     `json:"homeworkDonePercent"`
	HomeworkNotPercent  int     `json:"homeworkNotPercent"`

	Levels            LevelCounts `json:"levels"`
	FlaggedStudents   int         `json:"flaggedStudents"`
	AtRiskStudents    int         `json:"atRiskStudents"`
	PsychSignalsCount int         `json:"psychSignalsCount"`
}

// Overview собирает статистику по набору учеников.
func Overview(students []student.Student) SchoolOverview {
	return overviewScored(ScoreAll(students))
}

func overviewScored(scored []Scored) SchoolOverview {
	var o SchoolOverview
	o.TotalStudents = len(scored)
	if o.TotalStudents == 0 {
		return o
	}

	classes := make(map[string]struct{})
	var gradeSum, homeworkSum float64

	for _, sc := range scored {
		s := sc.Student
		classes[s.ClassName] = struct{}{}

		switch s.Gender {
		case student.GenderMale:
			o.Boys++
		case student.GenderFemale:
			o.Girls++
		}

		gradeSum += s.AvgGrade
		homeworkSum += s.HomeworkCompletion

		o.TotalAbsences += s.Absences
		o.TotalUnexcused += s.UnexcusedAbsences
		o.ExcusedAbsences += s.ExcusedAbsences()

		o.Levels.Add(sc.Level)
		if risk.HasPsychSignals(s) {
			o.PsychSignalsCount++
		}
	}

	n := float64(o.TotalStudents)
	o.TotalClasses = len(classes)
	o.AvgGrade = gradeSum / n
	o.AvgHomework = homeworkSum / n
	o.HomeworkDonePercent = int(math.Round(o.AvgHomework))
	o.HomeworkNotPercent = max(0, 100-o.HomeworkDonePercent)
	o.FlaggedStudents = o.Levels.Flagged()
	o.AtRiskStudents = o.Levels.AtRisk()
	return o
}

// Dashboard - всё, что нужно панели завуча, за один проход оценки.
type Dashboard struct {
	Overview SchoolOverview   `json:"overview"`
	Focus    []FocusEntry     `json:"focus"`
	Classes  []ClassRow       `json:"classes"`
	Subjects []SubjectHotspot `json:"subjects"`
}

// BuildDashboard оценивает учеников один раз и строит все сводки.
func BuildDashboard(students []student.Student, focusSize int) Dashboard {
	scored := ScoreAll(students)
	return Dashboard{
		Overview: overviewScored(scored),
		Focus:    focusScored(scored, focusSize),
		Classes:  classRowsScored(scored),
		Subjects: SubjectHotspots(students),
	}
}

// Snapshot - заранее построенная панель, которую воркер кладёт в кэш.
type Snapshot struct {
	Dashboard   Dashboard `json:"dashboard"`
	FocusSize   int       `json:"focusSize"`
	GeneratedAt time.Time `json:"generatedAt"`
}
