// Package timeutil holds school-calendar helpers in the Asia/Almaty timezone.
package timeutil

import (
	"fmt"
	"time"
)

// AlmatyTZ is the school timezone (UTC+5).
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Clock abstracts the current time so that handlers can be tested.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Layouts accepted from dashboard forms.
const (
	LayoutDate     = "2006-01-02"
	LayoutDateTime = "2006-01-02T15:04"
)

// ParseDateTime accepts RFC 3339, or a local "2006-01-02T15:04" or
// "2006-01-02" value in Almaty time. A bare date means local midnight.
func ParseDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(LayoutDateTime, value, AlmatyTZ); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(LayoutDate, value, AlmatyTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", value, err)
	}
	return t, nil
}

// School day boundaries for consultations.
const (
	SchoolDayStartHour = 8
	SchoolDayEndHour   = 18
)

func isWeekend(t time.Time) bool {
	wd := t.In(AlmatyTZ).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsSchoolHours reports whether t is a weekday between 08:00 and 18:00 in Almaty.
func IsSchoolHours(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	h := t.In(AlmatyTZ).Hour()
	return h >= SchoolDayStartHour && h < SchoolDayEndHour
}
