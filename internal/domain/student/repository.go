package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - источник снимков учеников.
type Repository interface {
	// GetByID возвращает ученика по ID.
	// Возвращает shared.ErrStudentNotFound, если ученик не найден.
	GetByID(ctx context.Context, id string) (*Student, error)

	// List возвращает учеников по фильтру, отсортированных по классу и имени.
	List(ctx context.Context, filter ListFilter) ([]Student, error)

	// ListClasses возвращает имена классов в лексическом порядке.
	ListClasses(ctx context.Context) ([]string, error)

	// Upsert сохраняет снимки (используется импортом).
	// Каждый снимок должен пройти Validate до вызова.
	Upsert(ctx context.Context, students ...Student) error

	// Count возвращает общее количество учеников.
	Count(ctx context.Context) (int, error)
}

// ListFilter - параметры выборки учеников.
type ListFilter struct {
	// ClassName - только ученики этого класса (пусто - вся школа).
	ClassName string
}

// Matches проверяет, проходит ли ученик фильтр.
func (f ListFilter) Matches(s Student) bool {
	return f.ClassName == "" || s.ClassName == f.ClassName
}
