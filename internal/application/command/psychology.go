// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// MaxTextLength bounds comments and notes.
const MaxTextLength = 4000

// PsychologyHandlers executes the psychologist's write operations.
// All records are append-only.
type PsychologyHandlers struct {
	students student.Repository
	store    psychology.Store
	clock    timeutil.Clock
	newID    func() string
	log      *logger.Logger
}

// NewPsychologyHandlers creates the handlers.
func NewPsychologyHandlers(students student.Repository, store psychology.Store, clock timeutil.Clock, log *logger.Logger) *PsychologyHandlers {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PsychologyHandlers{
		students: students,
		store:    store,
		clock:    clock,
		newID:    uuid.NewString,
		log:      log.Named("psychology"),
	}
}

func invalid(op, msg string) error {
	return shared.NewDomainError("command", op, shared.ErrInvalidInput, msg)
}

// ══════════════════════════════════════════════════════════════════════════════
// REFER TO PSYCHOLOGIST COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ReferToPsychologistCommand directs a student to the school psychologist.
type ReferToPsychologistCommand struct {
	StudentID  string
	ReasonType string
	Urgency    string
	Comment    string
}

// Validate validates the command.
func (c *ReferToPsychologistCommand) Validate() error {
	c.StudentID = strings.TrimSpace(c.StudentID)
	c.Comment = strings.TrimSpace(c.Comment)
	if c.StudentID == "" {
		return invalid("ReferToPsychologist", "student_id is required")
	}
	if c.ReasonType == "" {
		c.ReasonType = string(psychology.ReasonOther)
	}
	if c.Urgency == "" {
		c.Urgency = string(psychology.UrgencyMedium)
	}
	if !psychology.ReasonType(c.ReasonType).IsValid() {
		return shared.ErrInvalidReasonType
	}
	if !psychology.Urgency(c.Urgency).IsValid() {
		return shared.ErrInvalidUrgency
	}
	if len(c.Comment) > MaxTextLength {
		return invalid("ReferToPsychologist", "comment is too long")
	}
	return nil
}

// ReferToPsychologist appends a referral.
func (h *PsychologyHandlers) ReferToPsychologist(ctx context.Context, cmd ReferToPsychologistCommand) (*psychology.Referral, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	ref := psychology.Referral{
		ID:          h.newID(),
		StudentID:   s.ID,
		StudentName: s.FullName,
		ClassName:   s.ClassName,
		ReasonType:  psychology.ReasonType(cmd.ReasonType),
		Urgency:     psychology.Urgency(cmd.Urgency),
		Comment:     cmd.Comment,
		CreatedAt:   h.clock.Now().UTC(),
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if err := h.store.AppendReferral(ctx, ref); err != nil {
		return nil, shared.WrapError("command", "ReferToPsychologist", shared.ErrServiceUnavailable, "failed to save referral", err)
	}

	h.log.Info("student referred to psychologist",
		logger.StudentID(s.ID),
		logger.String("urgency", cmd.Urgency),
		logger.String("reason_type", cmd.ReasonType),
	)
	return &ref, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PSYCH NOTE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RecordPsychNoteCommand stores a psychologist's note about a meeting.
type RecordPsychNoteCommand struct {
	StudentID string
	MeetingAt *time.Time
	Note      string
}

// Validate validates the command.
func (c *RecordPsychNoteCommand) Validate() error {
	c.StudentID = strings.TrimSpace(c.StudentID)
	c.Note = strings.TrimSpace(c.Note)
	if c.StudentID == "" {
		return invalid("RecordPsychNote", "student_id is required")
	}
	if c.Note == "" {
		return shared.ErrEmptyNote
	}
	if len(c.Note) > MaxTextLength {
		return invalid("RecordPsychNote", "note is too long")
	}
	return nil
}

// RecordPsychNote appends a note.
func (h *PsychologyHandlers) RecordPsychNote(ctx context.Context, cmd RecordPsychNoteCommand) (*psychology.Note, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	note := psychology.Note{
		ID:        h.newID(),
		StudentID: s.ID,
		MeetingAt: cmd.MeetingAt,
		Note:      cmd.Note,
		CreatedAt: h.clock.Now().UTC(),
	}
	if err := note.Validate(); err != nil {
		return nil, err
	}
	if err := h.store.AppendNote(ctx, note); err != nil {
		return nil, shared.WrapError("command", "RecordPsychNote", shared.ErrServiceUnavailable, "failed to save note", err)
	}

	h.log.Info("psychologist note recorded", logger.StudentID(s.ID))
	return &note, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE APPOINTMENT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ErrOutsideSchoolHours is returned for appointments on weekends or outside 08:00-18:00 Almaty time.
var ErrOutsideSchoolHours = shared.NewDomainError("psychology", "Schedule", shared.ErrValueOutOfRange,
	"appointment must be on a weekday between 08:00 and 18:00")

// ScheduleAppointmentCommand books a consultation.
type ScheduleAppointmentCommand struct {
	StudentID string
	Datetime  time.Time
	Note      string
}

// Validate validates the command.
func (c *ScheduleAppointmentCommand) Validate() error {
	c.StudentID = strings.TrimSpace(c.StudentID)
	c.Note = strings.TrimSpace(c.Note)
	if c.StudentID == "" {
		return invalid("ScheduleAppointment", "student_id is required")
	}
	if c.Datetime.IsZero() {
		return invalid("ScheduleAppointment", "datetime is required")
	}
	if !timeutil.IsSchoolHours(c.Datetime) {
		return ErrOutsideSchoolHours
	}
	if len(c.Note) > MaxTextLength {
		return invalid("ScheduleAppointment", "note is too long")
	}
	return nil
}

// ScheduleAppointment appends an appointment. The slot must be in the future,
// and a student cannot have two appointments at the same time.
func (h *PsychologyHandlers) ScheduleAppointment(ctx context.Context, cmd ScheduleAppointmentCommand) (*psychology.Appointment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	app := psychology.Appointment{
		ID:          h.newID(),
		StudentID:   s.ID,
		StudentName: s.FullName,
		ClassName:   s.ClassName,
		Datetime:    cmd.Datetime.UTC(),
		Note:        cmd.Note,
	}
	if err := app.Validate(h.clock.Now()); err != nil {
		return nil, err
	}
	if err := h.store.AppendAppointment(ctx, app); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, err
		}
		return nil, shared.WrapError("command", "ScheduleAppointment", shared.ErrServiceUnavailable, "failed to save appointment", err)
	}

	h.log.Info("appointment scheduled",
		logger.StudentID(s.ID),
		logger.String("datetime", app.Datetime.Format(time.RFC3339)),
	)
	return &app, nil
}
