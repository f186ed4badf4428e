package query

import (
	"context"
	"sort"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST RISK STUDENTS QUERY
// Список учеников с баллом и уровнем риска для страницы "Ученики группы риска".
// ══════════════════════════════════════════════════════════════════════════════

// ListRiskStudentsQuery содержит фильтры списка.
type ListRiskStudentsQuery struct {
	// ClassName - только этот класс (пусто - вся школа).
	ClassName string

	// Level - только этот уровень (пусто - все).
	Level string

	// MinLevel - уровень не ниже указанного (пусто - без ограничения).
	MinLevel string

	Page     int
	PageSize int
}

// Validate проверяет корректность параметров запроса.
func (q *ListRiskStudentsQuery) Validate() error {
	q.ClassName = strings.TrimSpace(q.ClassName)
	if q.Level != "" {
		if _, err := risk.ParseLevel(q.Level); err != nil {
			return invalidInput("ListRiskStudents", "unknown level "+q.Level)
		}
	}
	if q.MinLevel != "" {
		if _, err := risk.ParseLevel(q.MinLevel); err != nil {
			return invalidInput("ListRiskStudents", "unknown min_level "+q.MinLevel)
		}
	}
	if q.Page < 0 || q.PageSize < 0 {
		return invalidInput("ListRiskStudents", "page and page_size cannot be negative")
	}
	return nil
}

// RiskRow - строка списка.
type RiskRow struct {
	StudentID         string                `json:"studentId"`
	FullName          string                `json:"fullName"`
	ClassName         string                `json:"className"`
	Score             float64               `json:"score"`
	Level             risk.Level            `json:"level"`
	AvgGrade          float64               `json:"avgGrade"`
	UnexcusedAbsences int                   `json:"unexcusedAbsences"`
	SubjectsAtRisk    []student.SubjectCode `json:"subjectsAtRisk"`
}

// RiskListResult - страница списка.
type RiskListResult struct {
	Items    []RiskRow             `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Counts   analytics.LevelCounts `json:"counts"`
}

// ListRiskStudentsHandler обрабатывает запрос.
type ListRiskStudentsHandler struct {
	students student.Repository
}

// NewListRiskStudentsHandler создаёт обработчик.
func NewListRiskStudentsHandler(students student.Repository) *ListRiskStudentsHandler {
	return &ListRiskStudentsHandler{students: students}
}

// Handle выполняет запрос. Строки отсортированы по убыванию балла,
// при равенстве - по ID ученика.
func (h *ListRiskStudentsHandler) Handle(ctx context.Context, q ListRiskStudentsQuery) (*RiskListResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	level, _ := risk.ParseLevel(q.Level)
	minLevel, _ := risk.ParseLevel(q.MinLevel)

	students, err := listAll(ctx, h.students, "ListRiskStudents", student.ListFilter{ClassName: q.ClassName})
	if err != nil {
		return nil, err
	}

	scored := analytics.ScoreAll(students)
	var counts analytics.LevelCounts
	rows := make([]RiskRow, 0, len(scored))
	for _, sc := range scored {
		counts.Add(sc.Level)
		if q.Level != "" && sc.Level != level {
			continue
		}
		if q.MinLevel != "" && !sc.Level.AtLeast(minLevel) {
			continue
		}
		rows = append(rows, RiskRow{
			StudentID:         sc.Student.ID,
			FullName:          sc.Student.FullName,
			ClassName:         sc.Student.ClassName,
			Score:             sc.Score,
			Level:             sc.Level,
			AvgGrade:          sc.Student.AvgGrade,
			UnexcusedAbsences: sc.Student.UnexcusedAbsences,
			SubjectsAtRisk:    sc.Student.SubjectsAtRisk,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].StudentID < rows[j].StudentID
	})

	page := shared.NewPagination(q.Page, q.PageSize)
	total := len(rows)
	from := min(page.Offset(), total)
	to := min(from+page.Limit(), total)

	return &RiskListResult{
		Items:    rows[from:to],
		Total:    total,
		Page:     page.Page,
		PageSize: page.Limit(),
		Counts:   counts,
	}, nil
}
