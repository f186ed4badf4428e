package psychology

import (
	"context"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации: infrastructure/persistence/memory и infrastructure/persistence/postgres.
// ══════════════════════════════════════════════════════════════════════════════

// ReferralStore хранит направления к психологу.
type ReferralStore interface {
	// AppendReferral добавляет направление.
	AppendReferral(ctx context.Context, r Referral) error

	// ListReferrals возвращает все направления, новые первыми.
	ListReferrals(ctx context.Context) ([]Referral, error)

	// ListReferralsByStudent возвращает направления ученика, новые первыми.
	ListReferralsByStudent(ctx context.Context, studentID string) ([]Referral, error)
}

// NoteStore хранит заметки психолога.
type NoteStore interface {
	// AppendNote добавляет заметку.
	AppendNote(ctx context.Context, n Note) error

	// ListNotesByStudent возвращает заметки ученика, новые первыми.
	ListNotesByStudent(ctx context.Context, studentID string) ([]Note, error)
}

// AppointmentStore хранит консультации.
type AppointmentStore interface {
	// AppendAppointment добавляет консультацию.
	// Возвращает shared.ErrAppointmentConflict, если у ученика уже есть запись на это время.
	AppendAppointment(ctx context.Context, a Appointment) error

	// ListAppointments возвращает консультации в интервале [from, to) по времени.
	ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error)

	// ListAppointmentsByStudent возвращает консультации ученика по времени.
	ListAppointmentsByStudent(ctx context.Context, studentID string) ([]Appointment, error)
}

// Store объединяет все хранилища психолога.
type Store interface {
	ReferralStore
	NoteStore
	AppointmentStore
}

// SortReferrals упорядочивает направления: новые первыми, при равенстве - по ID.
func SortReferrals(refs []Referral) {
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.After(refs[j].CreatedAt)
		}
		return refs[i].ID < refs[j].ID
	})
}

// SortByUrgency упорядочивает направления по срочности, затем новые первыми.
func SortByUrgency(refs []Referral) {
	SortReferrals(refs)
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Urgency.Weight() > refs[j].Urgency.Weight()
	})
}

// SortNotes упорядочивает заметки: новые первыми.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}

// SortAppointments упорядочивает консультации по времени.
func SortAppointments(apps []Appointment) {
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].Datetime.Before(apps[j].Datetime)
	})
}
