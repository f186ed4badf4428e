// Package memory implements in-process stores used when no database is configured
// and in tests. All stores are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// StudentRepository implements student.Repository over a map.
type StudentRepository struct {
	mu       sync.RWMutex
	students map[string]student.Student
}

// NewStudentRepository creates a repository seeded with the given snapshots.
// Seeds are not validated; use student.ValidateAll at the import boundary.
func NewStudentRepository(seed ...student.Student) *StudentRepository {
	r := &StudentRepository{students: make(map[string]student.Student, len(seed))}
	for _, s := range seed {
		r.students[s.ID] = s.Clone()
	}
	return r
}

// GetByID returns a copy of the student.
func (r *StudentRepository) GetByID(_ context.Context, id string) (*student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	c := s.Clone()
	return &c, nil
}

// List returns students ordered by class, then full name, then ID.
func (r *StudentRepository) List(_ context.Context, filter student.ListFilter) ([]student.Student, error) {
	r.mu.RLock()
	out := make([]student.Student, 0, len(r.students))
	for _, s := range r.students {
		if filter.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListClasses returns distinct class names in lexical order.
func (r *StudentRepository) ListClasses(_ context.Context) ([]string, error) {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for _, s := range r.students {
		seen[s.ClassName] = struct{}{}
	}
	r.mu.RUnlock()

	classes := make([]string, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes, nil
}

// Upsert inserts or replaces snapshots by ID.
func (r *StudentRepository) Upsert(_ context.Context, students ...student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range students {
		r.students[s.ID] = s.Clone()
	}
	return nil
}

// Count returns the number of students.
func (r *StudentRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students), nil
}

var _ student.Repository = (*StudentRepository)(nil)
