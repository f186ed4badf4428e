package psychology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

func TestReferral_Validate(t *testing.T) {
	r := Referral{ID: "r1", StudentID: "s1", ReasonType: ReasonEmotional, Urgency: UrgencyHigh}
	assert.NoError(t, r.Validate())

	bad := r
	bad.Urgency = "critical"
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidUrgency)

	bad = r
	bad.ReasonType = "boredom"
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidReasonType)

	bad = r
	bad.StudentID = ""
	assert.True(t, shared.IsValidation(bad.Validate()))
}

func TestNote_Validate(t *testing.T) {
	n := Note{ID: "n1", StudentID: "s1", Note: "Беседа проведена"}
	assert.NoError(t, n.Validate())

	n.Note = "  "
	assert.ErrorIs(t, n.Validate(), shared.ErrEmptyNote)
}

func TestAppointment_Validate(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	a := Appointment{ID: "a1", StudentID: "s1", Datetime: now.Add(time.Hour)}
	assert.NoError(t, a.Validate(now))

	a.Datetime = now
	assert.ErrorIs(t, a.Validate(now), shared.ErrAppointmentInPast)
}

func TestSortByUrgency(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	refs := []Referral{
		{ID: "a", Urgency: UrgencyLow, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "b", Urgency: UrgencyHigh, CreatedAt: base},
		{ID: "c", Urgency: UrgencyHigh, CreatedAt: base.Add(time.Hour)},
		{ID: "d", Urgency: UrgencyMedium, CreatedAt: base},
	}

	SortByUrgency(refs)

	ids := []string{refs[0].ID, refs[1].ID, refs[2].ID, refs[3].ID}
	assert.Equal(t, []string{"c", "b", "d", "a"}, ids)
}
