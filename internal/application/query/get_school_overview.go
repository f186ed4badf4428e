package query

import (
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCHOOL OVERVIEW QUERY
// Панель завуча: общая статистика, счётчики уровней, фокус-список,
// классы и проблемные предметы. Если воркер уже построил панель
// с тем же размером фокус-списка, она читается из кэша.
// ══════════════════════════════════════════════════════════════════════════════

// GetSchoolOverviewQuery содержит параметры запроса.
type GetSchoolOverviewQuery struct {
	// Top - размер фокус-списка (0 - значение по умолчанию).
	Top int
}

// Validate проверяет корректность параметров запроса.
func (q *GetSchoolOverviewQuery) Validate() error {
	if q.Top < 0 || q.Top > MaxFocusSize {
		return invalidInput("GetSchoolOverview", "top must be between 0 and 100")
	}
	if q.Top == 0 {
		q.Top = analytics.DefaultFocusSize
	}
	return nil
}

// SchoolOverviewResult - результат запроса.
type SchoolOverviewResult struct {
	analytics.Dashboard
	FocusSize    int       `json:"focusSize"`
	GeneratedAt  time.Time `json:"generatedAt"`
	FromSnapshot bool      `json:"fromSnapshot"`
}

// GetSchoolOverviewHandler обрабатывает запрос.
type GetSchoolOverviewHandler struct {
	students  student.Repository
	snapshots SnapshotReader
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewGetSchoolOverviewHandler создаёт обработчик. snapshots может быть nil.
func NewGetSchoolOverviewHandler(students student.Repository, snapshots SnapshotReader, clock timeutil.Clock, log *logger.Logger) *GetSchoolOverviewHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &GetSchoolOverviewHandler{students: students, snapshots: snapshots, clock: clock, log: log}
}

// Handle выполняет запрос.
func (h *GetSchoolOverviewHandler) Handle(ctx context.Context, q GetSchoolOverviewQuery) (*SchoolOverviewResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.snapshots != nil {
		snap, hit, err := h.snapshots.Get(ctx, q.Top)
		switch {
		case err != nil:
			// Кэш недоступен - считаем панель заново.
			h.log.Warn("dashboard snapshot read failed", logger.Err(err))
		case hit:
			return &SchoolOverviewResult{
				Dashboard:    snap.Dashboard,
				FocusSize:    snap.FocusSize,
				GeneratedAt:  snap.GeneratedAt,
				FromSnapshot: true,
			}, nil
		}
	}

	students, err := listAll(ctx, h.students, "GetSchoolOverview", student.ListFilter{})
	if err != nil {
		return nil, err
	}

	return &SchoolOverviewResult{
		Dashboard:   analytics.BuildDashboard(students, q.Top),
		FocusSize:   q.Top,
		GeneratedAt: h.clock.Now(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS SUMMARIES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetClassSummariesQuery запрашивает сводку по классам.
type GetClassSummariesQuery struct {
	// ClassName - только этот класс (пусто - все классы).
	ClassName string
}

// Validate проверяет корректность параметров запроса.
func (q *GetClassSummariesQuery) Validate() error {
	q.ClassName = strings.TrimSpace(q.ClassName)
	if utf8.RuneCountInString(q.ClassName) > student.MaxClassNameLen {
		return invalidInput("GetClassSummaries", "class name is too long")
	}
	return nil
}

// ClassSummariesResult - сводка по классам.
type ClassSummariesResult struct {
	Classes []analytics.ClassRow `json:"classes"`
	Total   int                  `json:"total"`
}

// GetClassSummariesHandler обрабатывает запрос.
type GetClassSummariesHandler struct {
	students student.Repository
}

// NewGetClassSummariesHandler создаёт обработчик.
func NewGetClassSummariesHandler(students student.Repository) *GetClassSummariesHandler {
	return &GetClassSummariesHandler{students: students}
}

// Handle выполняет запрос. Неизвестный класс - shared.ErrClassNotFound.
func (h *GetClassSummariesHandler) Handle(ctx context.Context, q GetClassSummariesQuery) (*ClassSummariesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if q.ClassName != "" {
		classes, err := h.students.ListClasses(ctx)
		if err != nil {
			return nil, shared.WrapError("query", "GetClassSummaries", shared.ErrServiceUnavailable, "failed to list classes", err)
		}
		if !slices.Contains(classes, q.ClassName) {
			return nil, shared.ErrClassNotFound
		}
	}

	students, err := listAll(ctx, h.students, "GetClassSummaries", student.ListFilter{ClassName: q.ClassName})
	if err != nil {
		return nil, err
	}

	rows := analytics.ClassRows(students)
	return &ClassSummariesResult{Classes: rows, Total: len(rows)}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT ANALYTICS QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// SubjectHotspotsResult - проблемные предметы школы.
type SubjectHotspotsResult struct {
	Subjects []analytics.SubjectHotspot `json:"subjects"`
	Catalog  []student.Subject          `json:"catalog"`
}

// GetSubjectHotspotsHandler считает, сколько учеников отстаёт по каждому предмету.
type GetSubjectHotspotsHandler struct {
	students student.Repository
}

// NewGetSubjectHotspotsHandler создаёт обработчик.
func NewGetSubjectHotspotsHandler(students student.Repository) *GetSubjectHotspotsHandler {
	return &GetSubjectHotspotsHandler{students: students}
}

// Handle выполняет запрос.
func (h *GetSubjectHotspotsHandler) Handle(ctx context.Context) (*SubjectHotspotsResult, error) {
	students, err := listAll(ctx, h.students, "GetSubjectHotspots", student.ListFilter{})
	if err != nil {
		return nil, err
	}
	return &SubjectHotspotsResult{
		Subjects: analytics.SubjectHotspots(students),
		Catalog:  student.Subjects,
	}, nil
}

// GetHeatmapHandler строит матрицу класс × предмет.
type GetHeatmapHandler struct {
	students student.Repository
}

// NewGetHeatmapHandler создаёт обработчик.
func NewGetHeatmapHandler(students student.Repository) *GetHeatmapHandler {
	return &GetHeatmapHandler{students: students}
}

// Handle выполняет запрос.
func (h *GetHeatmapHandler) Handle(ctx context.Context) (*analytics.Heatmap, error) {
	students, err := listAll(ctx, h.students, "GetHeatmap", student.ListFilter{})
	if err != nil {
		return nil, err
	}
	hm := analytics.ClassSubjectHeatmap(students)
	return &hm, nil
}
