// Package psychology - записи школьного психолога: направления учеников,
// заметки о встречах и запланированные консультации.
//
// Записи только добавляются и читаются. Хранилище передаётся явно через
// интерфейс Store, поэтому функции оценки риска остаются чистыми.
package psychology

import (
	"strings"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Urgency - срочность направления к психологу.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// IsValid проверяет, что срочность известна.
func (u Urgency) IsValid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

// Weight используется для сортировки: high идёт первым.
func (u Urgency) Weight() int {
	switch u {
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	default:
		return 0
	}
}

// ReasonType - повод направления.
type ReasonType string

const (
	ReasonAcademic   ReasonType = "academic"
	ReasonAttendance ReasonType = "attendance"
	ReasonBehavior   ReasonType = "behavior"
	ReasonEmotional  ReasonType = "emotional"
	ReasonFamily     ReasonType = "family"
	ReasonOther      ReasonType = "other"
)

// IsValid проверяет, что повод известен.
func (r ReasonType) IsValid() bool {
	switch r {
	case ReasonAcademic, ReasonAttendance, ReasonBehavior, ReasonEmotional, ReasonFamily, ReasonOther:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Referral - направление ученика к психологу.
type Referral struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	ClassName   string     `json:"className"`
	ReasonType  ReasonType `json:"reasonType"`
	Urgency     Urgency    `json:"urgency"`
	Comment     string     `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Validate проверяет направление перед сохранением.
func (r Referral) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return shared.ValidationError("psychology", "id", "cannot be empty")
	}
	if strings.TrimSpace(r.StudentID) == "" {
		return shared.ErrInvalidStudentID
	}
	if !r.ReasonType.IsValid() {
		return shared.ErrInvalidReasonType
	}
	if !r.Urgency.IsValid() {
		return shared.ErrInvalidUrgency
	}
	return nil
}

// Note - заметка психолога о встрече с учеником.
type Note struct {
	ID        string     `json:"id"`
	StudentID string     `json:"studentId"`
	MeetingAt *time.Time `json:"meetingAt,omitempty"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate проверяет заметку перед сохранением.
func (n Note) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return shared.ValidationError("psychology", "id", "cannot be empty")
	}
	if strings.TrimSpace(n.StudentID) == "" {
		return shared.ErrInvalidStudentID
	}
	if strings.TrimSpace(n.Note) == "" {
		return shared.ErrEmptyNote
	}
	return nil
}

// Appointment - запланированная консультация.
type Appointment struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	ClassName   string    `json:"className"`
	Datetime    time.Time `json:"datetime"`
	Note        string    `json:"note,omitempty"`
}

// Validate проверяет консультацию относительно текущего момента now.
func (a Appointment) Validate(now time.Time) error {
	if strings.TrimSpace(a.ID) == "" {
		return shared.ValidationError("psychology", "id", "cannot be empty")
	}
	if strings.TrimSpace(a.StudentID) == "" {
		return shared.ErrInvalidStudentID
	}
	if !a.Datetime.After(now) {
		return shared.ErrAppointmentInPast
	}
	return nil
}
