// Package student содержит доменную модель ученика школы.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"strings"
	"unicode/utf8"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Gender - пол ученика. Используется только для отображения и статистики.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid проверяет, что пол корректен.
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// KnownClasses - классы, которые есть в демонстрационных данных школы.
// Любое непустое имя класса тоже допустимо.
var KnownClasses = []string{"7A", "8A", "8B", "9A", "9B", "10A", "10B", "11A", "11B"}

// Границы допустимых значений показателей.
const (
	MinGrade      = 1.0
	MaxGrade      = 5.0
	MaxHomeworkPc = 100.0
)

// MaxClassNameLen - максимальная длина имени класса в символах.
// Совпадает с шириной колонки class_name в хранилище.
const MaxClassNameLen = 16

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - снимок показателей ученика за учебный период.
// Снимок неизменяем: движок риска только читает его.
type Student struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	ClassName string `json:"className"`
	Gender    Gender `json:"gender"`

	// AvgGrade - средний балл по пятибалльной шкале, 5.0 - лучший.
	AvgGrade float64 `json:"avgGrade"`

	// GradeTrend - изменение среднего балла за последний период.
	// Отрицательное значение означает ухудшение.
	GradeTrend float64 `json:"gradeTrend"`

	// Absences - все пропуски за четверть, UnexcusedAbsences - без уважительной причины.
	Absences          int `json:"absences"`
	UnexcusedAbsences int `json:"unexcusedAbsences"`

	// LowActivity - учитель отметил низкую вовлечённость на уроках.
	LowActivity bool `json:"lowActivity"`

	// HomeworkCompletion - процент выполненных домашних заданий (0-100).
	HomeworkCompletion float64 `json:"homeworkCompletion"`

	// TeacherAlerts - сколько раз учителя отмечали проблему.
	TeacherAlerts int `json:"teacherAlerts"`

	// SubjectsAtRisk - предметы с провалами, в исходном порядке.
	SubjectsAtRisk []SubjectCode `json:"subjectsAtRisk"`
}

// ExcusedAbsences возвращает число пропусков по уважительной причине.
// Никогда не бывает отрицательным, даже если данные противоречивы.
func (s Student) ExcusedAbsences() int {
	if s.UnexcusedAbsences >= s.Absences {
		return 0
	}
	return s.Absences - s.UnexcusedAbsences
}

// SubjectNames возвращает коды предметов строками.
func (s Student) SubjectNames() []string {
	names := make([]string, len(s.SubjectsAtRisk))
	for i, code := range s.SubjectsAtRisk {
		names[i] = string(code)
	}
	return names
}

// Validate проверяет снимок на границе загрузки данных.
// Движок риска не вызывает Validate: он определён для любого значения.
func (s Student) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return shared.ErrInvalidStudentID
	}
	if strings.TrimSpace(s.FullName) == "" {
		return shared.ValidationError("student", "fullName", "cannot be empty")
	}
	if strings.TrimSpace(s.ClassName) == "" {
		return shared.ValidationError("student", "className", "cannot be empty")
	}
	if utf8.RuneCountInString(s.ClassName) > MaxClassNameLen {
		return shared.ValidationError("student", "className", "is too long")
	}
	if !s.Gender.IsValid() {
		return shared.ValidationError("student", "gender", "must be male or female")
	}
	if s.AvgGrade < MinGrade || s.AvgGrade > MaxGrade {
		return shared.ValidationError("student", "avgGrade", "must be between 1 and 5")
	}
	if s.Absences < 0 {
		return shared.ValidationError("student", "absences", "cannot be negative")
	}
	if s.UnexcusedAbsences < 0 {
		return shared.ValidationError("student", "unexcusedAbsences", "cannot be negative")
	}
	if s.UnexcusedAbsences > s.Absences {
		return shared.ValidationError("student", "unexcusedAbsences", "cannot exceed absences")
	}
	if s.HomeworkCompletion < 0 || s.HomeworkCompletion > MaxHomeworkPc {
		return shared.ValidationError("student", "homeworkCompletion", "must be between 0 and 100")
	}
	if s.TeacherAlerts < 0 {
		return shared.ValidationError("student", "teacherAlerts", "cannot be negative")
	}
	for _, code := range s.SubjectsAtRisk {
		if !code.IsValid() {
			return shared.ValidationError("student", "subjectsAtRisk", "unknown subject "+string(code))
		}
	}
	return nil
}

// ValidateAll проверяет набор снимков и требует уникальности ID.
func ValidateAll(students []Student) error {
	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, ok := seen[s.ID]; ok {
			return shared.WrapError("student", "Validate", shared.ErrAlreadyExists,
				"duplicate student id "+s.ID, nil)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Clone возвращает копию со своим срезом предметов.
func (s Student) Clone() Student {
	c := s
	if s.SubjectsAtRisk != nil {
		c.SubjectsAtRisk = append([]SubjectCode(nil), s.SubjectsAtRisk...)
	}
	return c
}
