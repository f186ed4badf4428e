// Package query contains read operations (CQRS - Queries).
//
// Каждый запрос - структура с методом Validate и обработчик с методом Handle.
// Обработчики получают хранилища через интерфейсы домена и не знают,
// откуда пришли данные: PostgreSQL, память или импорт из файла.
package query

import (
	"context"

	"github.com/mektep-hub/mektep-monitor/internal/application/advisor"
	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// Analyzer возвращает оценку ученика с текстами AI или правил.
type Analyzer interface {
	Analyze(ctx context.Context, s student.Student, locale shared.Locale, role shared.Role) advisor.Analysis
	Narrative(ctx context.Context, s student.Student, locale shared.Locale, role shared.Role) advisor.Narrative
}

// SnapshotReader читает панель, заранее построенную воркером.
type SnapshotReader interface {
	Get(ctx context.Context, focusSize int) (*analytics.Snapshot, bool, error)
}

// MaxFocusSize ограничивает размер фокус-списка в запросе.
const MaxFocusSize = 100

func invalidInput(op, msg string) error {
	return shared.NewDomainError("query", op, shared.ErrInvalidInput, msg)
}

func parseRole(op, raw string) (shared.Role, error) {
	role, err := shared.ParseRole(raw)
	if err != nil {
		return "", invalidInput(op, "unknown role "+raw)
	}
	return role, nil
}

// listAll читает учеников и оборачивает ошибку хранилища.
func listAll(ctx context.Context, repo student.Repository, op string, filter student.ListFilter) ([]student.Student, error) {
	students, err := repo.List(ctx, filter)
	if err != nil {
		return nil, shared.WrapError("query", op, shared.ErrServiceUnavailable, "failed to list students", err)
	}
	return students, nil
}
