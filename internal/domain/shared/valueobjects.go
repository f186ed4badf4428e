package shared

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Role Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Role is an audience of the dashboard and of the recommendations.
type Role string

const (
	RoleDeputy       Role = "deputy"
	RoleTeacher      Role = "teacher"
	RolePsychologist Role = "psychologist"
	RoleParent       Role = "parent"
)

// DashboardRoles are the roles that can open the dashboard.
// Parents only appear as a recommendation audience.
var DashboardRoles = []Role{RoleDeputy, RoleTeacher, RolePsychologist}

// IsValid checks if the role is known.
func (r Role) IsValid() bool {
	switch r {
	case RoleDeputy, RoleTeacher, RolePsychologist, RoleParent:
		return true
	}
	return false
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name. An empty string yields an empty role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return "", nil
	}
	if !r.IsValid() {
		return "", NewDomainError("shared", "ParseRole", ErrInvalidInput, "unknown role "+s)
	}
	return r, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Locale Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Locale is the language of generated texts.
type Locale string

const (
	LocaleKazakh  Locale = "kk"
	LocaleRussian Locale = "ru"
)

// DefaultLocale is used when the caller does not ask for one.
const DefaultLocale = LocaleKazakh

// ParseLocale returns the locale for s, falling back to DefaultLocale.
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleRussian:
		return LocaleRussian
	case LocaleKazakh:
		return LocaleKazakh
	default:
		return DefaultLocale
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a half-open time interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks that the range is not inverted.
func (t TimeRange) IsValid() bool {
	return !t.To.Before(t.From)
}

// Contains reports whether tm falls inside the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return !tm.Before(t.From) && tm.Before(t.To)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination limits list results.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Offset returns the offset for the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the effective page size.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a normalized pagination.
func NewPagination(page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	return Pagination{Page: page, PageSize: pageSize}
}
