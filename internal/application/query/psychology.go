package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PSYCHOLOGIST BOARD QUERY
// Панель психолога: направленные ученики, ученики группы риска
// с психологическими сигналами, открытые направления и ближайшие консультации.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultUpcomingDays - горизонт ближайших консультаций на панели.
const DefaultUpcomingDays = 7

// GetPsychologistBoardQuery содержит параметры запроса.
type GetPsychologistBoardQuery struct {
	// UpcomingDays - сколько дней вперёд показывать консультации.
	UpcomingDays int

	// Locale - язык психологических сигналов (kk или ru).
	Locale string
}

// Validate проверяет корректность параметров запроса.
func (q *GetPsychologistBoardQuery) Validate() error {
	if q.UpcomingDays < 0 || q.UpcomingDays > 60 {
		return invalidInput("GetPsychologistBoard", "upcoming_days must be between 0 and 60")
	}
	if q.UpcomingDays == 0 {
		q.UpcomingDays = DefaultUpcomingDays
	}
	return nil
}

// BoardEntry - ученик на панели психолога.
type BoardEntry struct {
	StudentID    string     `json:"studentId"`
	FullName     string     `json:"fullName"`
	ClassName    string     `json:"className"`
	Score        float64    `json:"score"`
	Level        risk.Level `json:"level"`
	PsychSignals []string   `json:"psychSignals"`
	Referrals    int        `json:"referrals"`
}

// PsychologistBoard - результат запроса.
type PsychologistBoard struct {
	// Referred - ученики с направлениями, по убыванию балла.
	Referred []BoardEntry `json:"referred"`

	// Signals - ученики medium/high с психологическими сигналами без направления.
	Signals []BoardEntry `json:"signals"`

	// Referrals - все направления, сначала срочные.
	Referrals []psychology.Referral `json:"referrals"`

	// Upcoming - консультации в ближайшие дни.
	Upcoming []psychology.Appointment `json:"upcoming"`
}

// GetPsychologistBoardHandler обрабатывает запрос.
type GetPsychologistBoardHandler struct {
	students student.Repository
	store    psychology.Store
	clock    timeutil.Clock
}

// NewGetPsychologistBoardHandler создаёт обработчик.
func NewGetPsychologistBoardHandler(students student.Repository, store psychology.Store, clock timeutil.Clock) *GetPsychologistBoardHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetPsychologistBoardHandler{students: students, store: store, clock: clock}
}

// Handle выполняет запрос.
func (h *GetPsychologistBoardHandler) Handle(ctx context.Context, q GetPsychologistBoardQuery) (*PsychologistBoard, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	students, err := listAll(ctx, h.students, "GetPsychologistBoard", student.ListFilter{})
	if err != nil {
		return nil, err
	}

	referrals, err := h.store.ListReferrals(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetPsychologistBoard", shared.ErrServiceUnavailable, "failed to list referrals", err)
	}
	psychology.SortByUrgency(referrals)

	now := h.clock.Now()
	window := shared.TimeRange{From: now, To: now.Add(time.Duration(q.UpcomingDays) * 24 * time.Hour)}
	upcoming, err := h.store.ListAppointments(ctx, window.From, window.To)
	if err != nil {
		return nil, shared.WrapError("query", "GetPsychologistBoard", shared.ErrServiceUnavailable, "failed to list appointments", err)
	}

	referralCount := make(map[string]int, len(referrals))
	for _, r := range referrals {
		referralCount[r.StudentID]++
	}

	board := &PsychologistBoard{
		Referred:  []BoardEntry{},
		Signals:   []BoardEntry{},
		Referrals: referrals,
		Upcoming:  upcoming,
	}
	locale := shared.ParseLocale(q.Locale)
	for _, sc := range analytics.ScoreAll(students) {
		n := referralCount[sc.Student.ID]
		switch {
		case n > 0:
			board.Referred = append(board.Referred, boardEntry(sc, n, locale))
		case sc.Level.IsAtRisk() && risk.HasPsychSignals(sc.Student):
			board.Signals = append(board.Signals, boardEntry(sc, 0, locale))
		}
	}
	sortBoard(board.Referred)
	sortBoard(board.Signals)
	return board, nil
}

func boardEntry(sc analytics.Scored, referrals int, locale shared.Locale) BoardEntry {
	return BoardEntry{
		StudentID:    sc.Student.ID,
		FullName:     sc.Student.FullName,
		ClassName:    sc.Student.ClassName,
		Score:        sc.Score,
		Level:        sc.Level,
		PsychSignals: risk.DetectPsychSignals(sc.Student, locale),
		Referrals:    referrals,
	}
}

func sortBoard(entries []BoardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].StudentID < entries[j].StudentID
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PSYCHOLOGY RECORD QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListReferralsQuery - направления всей школы или одного ученика.
type ListReferralsQuery struct {
	StudentID string
}

// ListNotesQuery - заметки об одном ученике.
type ListNotesQuery struct {
	StudentID string
}

// Validate проверяет корректность параметров запроса.
func (q *ListNotesQuery) Validate() error {
	q.StudentID = strings.TrimSpace(q.StudentID)
	if q.StudentID == "" {
		return invalidInput("ListNotes", "student_id is required")
	}
	return nil
}

// ListAppointmentsQuery - консультации ученика или интервала [From, To).
// Нулевые границы не ограничивают интервал.
type ListAppointmentsQuery struct {
	StudentID string
	From      time.Time
	To        time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *ListAppointmentsQuery) Validate() error {
	q.StudentID = strings.TrimSpace(q.StudentID)
	if !q.From.IsZero() && !q.To.IsZero() && !(shared.TimeRange{From: q.From, To: q.To}).IsValid() {
		return invalidInput("ListAppointments", "from must not be after to")
	}
	return nil
}

// PsychologyRecordsHandler читает записи психолога.
type PsychologyRecordsHandler struct {
	store psychology.Store
}

// NewPsychologyRecordsHandler создаёт обработчик.
func NewPsychologyRecordsHandler(store psychology.Store) *PsychologyRecordsHandler {
	return &PsychologyRecordsHandler{store: store}
}

// Referrals возвращает направления, новые первыми.
func (h *PsychologyRecordsHandler) Referrals(ctx context.Context, q ListReferralsQuery) ([]psychology.Referral, error) {
	if id := strings.TrimSpace(q.StudentID); id != "" {
		return h.store.ListReferralsByStudent(ctx, id)
	}
	return h.store.ListReferrals(ctx)
}

// Notes возвращает заметки ученика, новые первыми.
func (h *PsychologyRecordsHandler) Notes(ctx context.Context, q ListNotesQuery) ([]psychology.Note, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return h.store.ListNotesByStudent(ctx, q.StudentID)
}

// Appointments возвращает консультации по времени.
func (h *PsychologyRecordsHandler) Appointments(ctx context.Context, q ListAppointmentsQuery) ([]psychology.Appointment, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.StudentID == "" {
		return h.store.ListAppointments(ctx, q.From, q.To)
	}

	all, err := h.store.ListAppointmentsByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	out := make([]psychology.Appointment, 0, len(all))
	for _, a := range all {
		if !q.From.IsZero() && a.Datetime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !a.Datetime.Before(q.To) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
