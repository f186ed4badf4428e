package query

import (
	"context"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT SNAPSHOT QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery - снимки учеников школы или одного класса.
type ListStudentsQuery struct {
	ClassName string
}

// StudentListResult - результат запроса.
type StudentListResult struct {
	Students []student.Student `json:"students"`
	Total    int               `json:"total"`
	Classes  []string          `json:"classes"`
}

// StudentsHandler читает снимки учеников.
type StudentsHandler struct {
	students student.Repository
}

// NewStudentsHandler создаёт обработчик.
func NewStudentsHandler(students student.Repository) *StudentsHandler {
	return &StudentsHandler{students: students}
}

// List возвращает учеников в порядке хранилища (класс, затем имя).
func (h *StudentsHandler) List(ctx context.Context, q ListStudentsQuery) (*StudentListResult, error) {
	filter := student.ListFilter{ClassName: strings.TrimSpace(q.ClassName)}
	students, err := listAll(ctx, h.students, "ListStudents", filter)
	if err != nil {
		return nil, err
	}
	classes, err := h.students.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []student.Student{}
	}
	return &StudentListResult{Students: students, Total: len(students), Classes: classes}, nil
}

// Get возвращает снимок одного ученика.
func (h *StudentsHandler) Get(ctx context.Context, id string) (*student.Student, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidInput("GetStudent", "student_id is required")
	}
	return h.students.GetByID(ctx, id)
}
