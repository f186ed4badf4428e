package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PSYCHOLOGY STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PsychologyStore implements psychology.Store for PostgreSQL.
// Rows are only inserted and read.
type PsychologyStore struct {
	conn database
}

// NewPsychologyStore creates a new PsychologyStore.
func NewPsychologyStore(conn *Connection) *PsychologyStore {
	return &PsychologyStore{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Referrals
// ─────────────────────────────────────────────────────────────────────────────

const referralColumns = `id, student_id, student_name, class_name, reason_type, urgency, comment, created_at`

// AppendReferral inserts a referral.
func (s *PsychologyStore) AppendReferral(ctx context.Context, r psychology.Referral) error {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	_, err := s.conn.Exec(ctx,
		`INSERT INTO psych_referrals (`+referralColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.StudentID, r.StudentName, r.ClassName,
		string(r.ReasonType), string(r.Urgency), r.Comment, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

// ListReferrals returns all referrals, newest first.
func (s *PsychologyStore) ListReferrals(ctx context.Context) ([]psychology.Referral, error) {
	return s.queryReferrals(ctx,
		`SELECT `+referralColumns+` FROM psych_referrals ORDER BY created_at DESC, id`)
}

// ListReferralsByStudent returns referrals of one student, newest first.
func (s *PsychologyStore) ListReferralsByStudent(ctx context.Context, studentID string) ([]psychology.Referral, error) {
	return s.queryReferrals(ctx,
		`SELECT `+referralColumns+` FROM psych_referrals WHERE student_id = $1 ORDER BY created_at DESC, id`,
		studentID)
}

func (s *PsychologyStore) queryReferrals(ctx context.Context, query string, args ...any) ([]psychology.Referral, error) {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	out := []psychology.Referral{}
	for rows.Next() {
		var (
			r       psychology.Referral
			reason  string
			urgency string
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.StudentName, &r.ClassName, &reason, &urgency, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		r.ReasonType = psychology.ReasonType(reason)
		r.Urgency = psychology.Urgency(urgency)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Notes
// ─────────────────────────────────────────────────────────────────────────────

// AppendNote inserts a note.
func (s *PsychologyStore) AppendNote(ctx context.Context, n psychology.Note) error {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	_, err := s.conn.Exec(ctx,
		`INSERT INTO psych_notes (id, student_id, meeting_at, note, created_at) VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.StudentID, n.MeetingAt, n.Note, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// ListNotesByStudent returns notes of one student, newest first.
func (s *PsychologyStore) ListNotesByStudent(ctx context.Context, studentID string) ([]psychology.Note, error) {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx,
		`SELECT id, student_id, meeting_at, note, created_at FROM psych_notes
		 WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	out := []psychology.Note{}
	for rows.Next() {
		var n psychology.Note
		if err := rows.Scan(&n.ID, &n.StudentID, &n.MeetingAt, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Appointments
// ─────────────────────────────────────────────────────────────────────────────

const appointmentColumns = `id, student_id, student_name, class_name, datetime, note`

// AppendAppointment inserts an appointment.
// The (student_id, datetime) unique constraint reports double booking.
func (s *PsychologyStore) AppendAppointment(ctx context.Context, a psychology.Appointment) error {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	_, err := s.conn.Exec(ctx,
		`INSERT INTO psych_appointments (`+appointmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.StudentID, a.StudentName, a.ClassName, a.Datetime, a.Note,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAppointmentConflict
		}
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

// ListAppointments returns appointments in [from, to). A zero bound is open.
func (s *PsychologyStore) ListAppointments(ctx context.Context, from, to time.Time) ([]psychology.Appointment, error) {
	var fromArg, toArg *time.Time
	if !from.IsZero() {
		fromArg = &from
	}
	if !to.IsZero() {
		toArg = &to
	}
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM psych_appointments
		 WHERE ($1::timestamptz IS NULL OR datetime >= $1)
		   AND ($2::timestamptz IS NULL OR datetime < $2)
		 ORDER BY datetime, id`, fromArg, toArg)
}

// ListAppointmentsByStudent returns appointments of one student by time.
func (s *PsychologyStore) ListAppointmentsByStudent(ctx context.Context, studentID string) ([]psychology.Appointment, error) {
	return s.queryAppointments(ctx,
		`SELECT `+appointmentColumns+` FROM psych_appointments WHERE student_id = $1 ORDER BY datetime, id`,
		studentID)
}

func (s *PsychologyStore) queryAppointments(ctx context.Context, query string, args ...any) ([]psychology.Appointment, error) {
	ctx, cancel := s.conn.withTimeout(ctx)
	defer cancel()

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (psychology.Appointment, error) {
		var a psychology.Appointment
		err := row.Scan(&a.ID, &a.StudentID, &a.StudentName, &a.ClassName, &a.Datetime, &a.Note)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan appointments: %w", err)
	}
	if out == nil {
		out = []psychology.Appointment{}
	}
	return out, nil
}

var _ psychology.Store = (*PsychologyStore)(nil)
