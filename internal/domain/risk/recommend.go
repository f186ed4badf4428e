package risk

import (
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// RoleRecommendations - рекомендации по ролям.
// JSON-имена совпадают с полем roleRecs ответа AI-ассистента.
type RoleRecommendations struct {
	Teacher      []string `json:"teacher"`
	Deputy       []string `json:"deputy"`
	Parent       []string `json:"parent"`
	Psychologist []string `json:"psychologist"`
}

const (
	recommendGradeThreshold    = 3.5
	recommendTrendThreshold    = -0.3
	recommendHomeworkThreshold = 80.0
	recommendUnexcusedConflict = 3
)

// RecommendByRole строит рекомендации для каждой роли независимо на языке locale.
// Список каждой роли непуст и сохраняет порядок срабатывания.
func RecommendByRole(s student.Student, locale shared.Locale) RoleRecommendations {
	m := MessagesFor(locale)
	var recs RoleRecommendations

	if s.AvgGrade < recommendGradeThreshold || len(s.SubjectsAtRisk) > 0 {
		recs.Teacher = append(recs.Teacher, m.TeacherAcademicSupport)
	}
	if s.LowActivity {
		recs.Teacher = append(recs.Teacher, m.TeacherEngagement)
	}

	if s.UnexcusedAbsences > 0 || s.TeacherAlerts > 0 {
		recs.Deputy = append(recs.Deputy, m.DeputyMonitoring)
	}
	if s.GradeTrend < recommendTrendThreshold {
		recs.Deputy = append(recs.Deputy, m.DeputyCurriculum)
	}

	if s.Absences > 0 {
		recs.Parent = append(recs.Parent, m.ParentAttendance)
	}
	if s.HomeworkCompletion < recommendHomeworkThreshold {
		recs.Parent = append(recs.Parent, m.ParentHomework)
	}

	if s.GradeTrend < recommendTrendThreshold || s.LowActivity || s.TeacherAlerts > 0 {
		recs.Psychologist = append(recs.Psychologist, m.PsychologistConversation)
	}
	if s.UnexcusedAbsences >= recommendUnexcusedConflict {
		recs.Psychologist = append(recs.Psychologist, m.PsychologistConflicts)
	}

	return recs.FillEmpty(RoleRecommendations{
		Teacher:      []string{m.TeacherFallback},
		Deputy:       []string{m.DeputyFallback},
		Parent:       []string{m.ParentFallback},
		Psychologist: []string{m.PsychologistFallback},
	})
}

// For возвращает рекомендации одной роли.
func (r RoleRecommendations) For(role shared.Role) []string {
	switch role {
	case shared.RoleTeacher:
		return r.Teacher
	case shared.RoleDeputy:
		return r.Deputy
	case shared.RoleParent:
		return r.Parent
	case shared.RolePsychologist:
		return r.Psychologist
	default:
		return nil
	}
}

// Only оставляет рекомендации одной роли. Пустая роль ничего не фильтрует.
func (r RoleRecommendations) Only(role shared.Role) RoleRecommendations {
	if role == "" {
		return r
	}
	var out RoleRecommendations
	switch role {
	case shared.RoleTeacher:
		out.Teacher = r.Teacher
	case shared.RoleDeputy:
		out.Deputy = r.Deputy
	case shared.RoleParent:
		out.Parent = r.Parent
	case shared.RolePsychologist:
		out.Psychologist = r.Psychologist
	}
	return out
}

// IsEmpty истинно, если ни у одной роли нет рекомендаций.
func (r RoleRecommendations) IsEmpty() bool {
	return len(r.Teacher) == 0 && len(r.Deputy) == 0 &&
		len(r.Parent) == 0 && len(r.Psychologist) == 0
}

// FillEmpty подставляет списки из from для ролей без рекомендаций.
func (r RoleRecommendations) FillEmpty(from RoleRecommendations) RoleRecommendations {
	if len(r.Teacher) == 0 {
		r.Teacher = from.Teacher
	}
	if len(r.Deputy) == 0 {
		r.Deputy = from.Deputy
	}
	if len(r.Parent) == 0 {
		r.Parent = from.Parent
	}
	if len(r.Psychologist) == 0 {
		r.Psychologist = from.Psychologist
	}
	return r
}
