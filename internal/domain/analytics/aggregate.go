// Package analytics сворачивает оценки риска по набору учеников:
// счётчики уровней, фокус-список, сводки по классам, общая статистика школы
// и тепловые карты по предметам.
//
// Функции пакета не изменяют входные снимки и не возвращают ошибок:
// пустой набор даёт нулевые счётчики и пустые списки.
package analytics

import (
	"sort"

	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORED STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// Scored - ученик вместе с баллом и уровнем риска.
type Scored struct {
	Student student.Student
	Score   float64
	Level   risk.Level
}

// ScoreAll оценивает каждого ученика, сохраняя входной порядок.
func ScoreAll(students []student.Student) []Scored {
	out := make([]Scored, len(students))
	for i, s := range students {
		score := risk.Score(s)
		out[i] = Scored{Student: s, Score: score, Level: risk.Classify(score)}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL COUNTS
// ══════════════════════════════════════════════════════════════════════════════

// LevelCounts - количество учеников на каждом уровне риска.
type LevelCounts struct {
	None   int `json:"none"`
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Add учитывает одного ученика с уровнем l.
func (c *LevelCounts) Add(l risk.Level) {
	switch l {
	case risk.LevelHigh:
		c.High++
	case risk.LevelMedium:
		c.Medium++
	case risk.LevelLow:
		c.Low++
	default:
		c.None++
	}
}

// Total - всего учеников.
func (c LevelCounts) Total() int {
	return c.None + c.Low + c.Medium + c.High
}

// AtRisk - ученики в зоне риска (medium и high).
func (c LevelCounts) AtRisk() int {
	return c.Medium + c.High
}

// Flagged - ученики с любым уровнем выше none.
func (c LevelCounts) Flagged() int {
	return c.Low + c.Medium + c.High
}

// CountLevels считает учеников по уровням риска.
func CountLevels(students []student.Student) LevelCounts {
	return countScored(ScoreAll(students))
}

func countScored(scored []Scored) LevelCounts {
	var c LevelCounts
	for _, s := range scored {
		c.Add(s.Level)
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// FOCUS LIST
// ══════════════════════════════════════════════════════════════════════════════

// FocusEntry - строка фокус-списка.
type FocusEntry struct {
	StudentID string     `json:"studentId"`
	FullName  string     `json:"fullName"`
	ClassName string     `json:"className"`
	Score     float64    `json:"score"`
	Level     risk.Level `json:"level"`
}

// DefaultFocusSize - размер фокус-списка на панели завуча.
const DefaultFocusSize = 5

// FocusList возвращает до n учеников уровня medium и high по убыванию балла.
// При равных баллах сохраняется входной порядок. n <= 0 снимает ограничение.
func FocusList(students []student.Student, n int) []FocusEntry {
	return focusScored(ScoreAll(students), n)
}

func focusScored(scored []Scored, n int) []FocusEntry {
	atRisk := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Level.IsAtRisk() {
			atRisk = append(atRisk, s)
		}
	}

	sort.SliceStable(atRisk, func(i, j int) bool {
		return atRisk[i].Score > atRisk[j].Score
	})

	if n > 0 && len(atRisk) > n {
		atRisk = atRisk[:n]
	}

	out := make([]FocusEntry, len(atRisk))
	for i, s := range atRisk {
		out[i] = FocusEntry{
			StudentID: s.Student.ID,
			FullName:  s.Student.FullName,
			ClassName: s.Student.ClassName,
			Score:     s.Score,
			Level:     s.Level,
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS ROWS
// ══════════════════════════════════════════════════════════════════════════════

// ClassRow - сводка по одному классу.
type ClassRow struct {
	ClassName string      `json:"className"`
	Students  int         `json:"students"`
	AtRisk    int         `json:"atRisk"`
	Counts    LevelCounts `json:"counts"`
}

// ClassRows строит сводку по классам. В AtRisk попадают все уровни кроме none.
// Строки отсортированы по убыванию AtRisk, при равенстве - по имени класса.
func ClassRows(students []student.Student) []ClassRow {
	return classRowsScored(ScoreAll(students))
}

func classRowsScored(scored []Scored) []ClassRow {
	index := make(map[string]int)
	var rows []ClassRow

	for _, s := range scored {
		i, ok := index[s.Student.ClassName]
		if !ok {
			i = len(rows)
			index[s.Student.ClassName] = i
			rows = append(rows, ClassRow{ClassName: s.Student.ClassName})
		}
		row := &rows[i]
		row.Students++
		row.Counts.Add(s.Level)
		if s.Level != risk.LevelNone {
			row.AtRisk++
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AtRisk != rows[j].AtRisk {
			return rows[i].AtRisk > rows[j].AtRisk
		}
		return rows[i].ClassName < rows[j].ClassName
	})

	if rows == nil {
		return []ClassRow{}
	}
	return rows
}
