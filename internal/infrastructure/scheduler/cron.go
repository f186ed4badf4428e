package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed 5-field cron expression used as a Schedule:
// minute hour day-of-month month day-of-week.
//
// Examples:
//   - "*/10 * * * *"  - every 10 minutes
//   - "30 7 * * 1-5"  - school days at 07:30
//   - "0 18 * * 5"    - Fridays at 18:00
type CronExpression struct {
	raw      string
	location *time.Location
	minutes  []int // 0-59
	hours    []int // 0-23
	days     []int // 1-31
	months   []int // 1-12
	weekdays []int // 0-6 (0 = Sunday)
}

// Common cron expression presets.
const (
	Every5Minutes  = "*/5 * * * *"
	Every10Minutes = "*/10 * * * *"
	EveryHour      = "0 * * * *"

	// SchoolMorning is 07:30 on weekdays, before the first lesson.
	SchoolMorning = "30 7 * * 1-5"
)

// ParseCronExpression parses a cron expression evaluated in loc
// (nil means the time passed to Next). Supports *, */n, n, n-m, n-m/s and lists.
func ParseCronExpression(expr string, loc *time.Location) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	ce := &CronExpression{raw: strings.Join(fields, " "), location: loc}
	specs := []struct {
		name     string
		dst      *[]int
		min, max int
	}{
		{"minute", &ce.minutes, 0, 59},
		{"hour", &ce.hours, 0, 23},
		{"day", &ce.days, 1, 31},
		{"month", &ce.months, 1, 12},
		{"weekday", &ce.weekdays, 0, 6},
	}
	for i, spec := range specs {
		values, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		*spec.dst = values
	}
	return ce, nil
}

// MustParseCronExpression parses a cron expression or panics.
// Use only for compile-time constants.
func MustParseCronExpression(expr string, loc *time.Location) *CronExpression {
	ce, err := ParseCronExpression(expr, loc)
	if err != nil {
		panic(err)
	}
	return ce
}

// parseField parses a comma-separated list of cron terms.
func parseField(field string, min, max int) ([]int, error) {
	seen := make(map[int]bool)
	for _, term := range strings.Split(field, ",") {
		values, err := parseTerm(strings.TrimSpace(term), min, max)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			seen[v] = true
		}
	}

	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// parseTerm parses "*", "n", "n-m" with an optional "/step".
func parseTerm(term string, min, max int) ([]int, error) {
	if term == "" {
		return nil, fmt.Errorf("empty term")
	}

	step := 1
	if base, rawStep, ok := strings.Cut(term, "/"); ok {
		s, err := strconv.Atoi(rawStep)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", rawStep)
		}
		step = s
		term = base
	}

	start, end := min, max
	switch {
	case term == "*":
	case strings.Contains(term, "-"):
		lo, hi, _ := strings.Cut(term, "-")
		var err error
		if start, err = strconv.Atoi(lo); err != nil {
			return nil, fmt.Errorf("invalid range start: %s", lo)
		}
		if end, err = strconv.Atoi(hi); err != nil {
			return nil, fmt.Errorf("invalid range end: %s", hi)
		}
	default:
		v, err := strconv.Atoi(term)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", term)
		}
		start = v
		if step == 1 {
			end = v
		}
	}

	if start < min || end > max || start > end {
		return nil, fmt.Errorf("value out of range [%d-%d]: %s", min, max, term)
	}

	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}

// String returns the normalized cron expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after the given time,
// or the zero time if nothing matches within a year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	if ce.location != nil {
		after = after.In(ce.location)
	}
	t := after.Truncate(time.Minute).Add(time.Minute)

	const maxIterations = 366 * 24 * 60
	for i := 0; i < maxIterations; i++ {
		if ce.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

func (ce *CronExpression) matches(t time.Time) bool {
	return contains(ce.minutes, t.Minute()) &&
		contains(ce.hours, t.Hour()) &&
		contains(ce.days, t.Day()) &&
		contains(ce.months, int(t.Month())) &&
		contains(ce.weekdays, int(t.Weekday()))
}

func contains(sorted []int, val int) bool {
	i := sort.SearchInts(sorted, val)
	return i < len(sorted) && sorted[i] == val
}
