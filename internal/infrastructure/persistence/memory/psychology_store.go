package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// PsychologyStore implements psychology.Store with append-only slices.
type PsychologyStore struct {
	mu           sync.RWMutex
	referrals    []psychology.Referral
	notes        []psychology.Note
	appointments []psychology.Appointment
}

// NewPsychologyStore creates an empty store.
func NewPsychologyStore() *PsychologyStore {
	return &PsychologyStore{}
}

// AppendReferral adds a referral.
func (s *PsychologyStore) AppendReferral(_ context.Context, r psychology.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referrals = append(s.referrals, r)
	return nil
}

// ListReferrals returns all referrals, newest first.
func (s *PsychologyStore) ListReferrals(_ context.Context) ([]psychology.Referral, error) {
	s.mu.RLock()
	out := append([]psychology.Referral{}, s.referrals...)
	s.mu.RUnlock()

	psychology.SortReferrals(out)
	return out, nil
}

// ListReferralsByStudent returns referrals of one student, newest first.
func (s *PsychologyStore) ListReferralsByStudent(_ context.Context, studentID string) ([]psychology.Referral, error) {
	s.mu.RLock()
	out := []psychology.Referral{}
	for _, r := range s.referrals {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	psychology.SortReferrals(out)
	return out, nil
}

// AppendNote adds a note.
func (s *PsychologyStore) AppendNote(_ context.Context, n psychology.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return nil
}

// ListNotesByStudent returns notes of one student, newest first.
func (s *PsychologyStore) ListNotesByStudent(_ context.Context, studentID string) ([]psychology.Note, error) {
	s.mu.RLock()
	out := []psychology.Note{}
	for _, n := range s.notes {
		if n.StudentID == studentID {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	psychology.SortNotes(out)
	return out, nil
}

// AppendAppointment adds an appointment unless the student is already booked at that time.
func (s *PsychologyStore) AppendAppointment(_ context.Context, a psychology.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.appointments {
		if existing.StudentID == a.StudentID && existing.Datetime.Equal(a.Datetime) {
			return shared.ErrAppointmentConflict
		}
	}
	s.appointments = append(s.appointments, a)
	return nil
}

// ListAppointments returns appointments in [from, to), ordered by time.
// A zero bound is open.
func (s *PsychologyStore) ListAppointments(_ context.Context, from, to time.Time) ([]psychology.Appointment, error) {
	s.mu.RLock()
	out := []psychology.Appointment{}
	for _, a := range s.appointments {
		if !from.IsZero() && a.Datetime.Before(from) {
			continue
		}
		if !to.IsZero() && !a.Datetime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	psychology.SortAppointments(out)
	return out, nil
}

// ListAppointmentsByStudent returns appointments of one student, ordered by time.
func (s *PsychologyStore) ListAppointmentsByStudent(_ context.Context, studentID string) ([]psychology.Appointment, error) {
	s.mu.RLock()
	out := []psychology.Appointment{}
	for _, a := range s.appointments {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	psychology.SortAppointments(out)
	return out, nil
}

var _ psychology.Store = (*PsychologyStore)(nil)
