package risk

import (
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// Level - дискретный уровень риска.
type Level string

const (
	LevelNone   Level = "none"
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Пороги классификации. Граничное значение относится к старшей полосе.
const (
	HighThreshold   = 85.0
	MediumThreshold = 45.0
	LowThreshold    = 25.0
)

// Levels возвращает все уровни по возрастанию.
func Levels() []Level {
	return []Level{LevelNone, LevelLow, LevelMedium, LevelHigh}
}

// Classify переводит балл риска в уровень.
func Classify(score float64) Level {
	switch {
	case score >= HighThreshold:
		return LevelHigh
	case score >= MediumThreshold:
		return LevelMedium
	case score >= LowThreshold:
		return LevelLow
	default:
		return LevelNone
	}
}

// IsAtRisk истинно только для medium и high.
// Уровень low в списки риска не попадает.
func (l Level) IsAtRisk() bool {
	return l == LevelMedium || l == LevelHigh
}

// Rank возвращает порядковый номер уровня: none=0 ... high=3.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast проверяет, что уровень не ниже other.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

// IsValid проверяет, что уровень известен.
func (l Level) IsValid() bool {
	switch l {
	case LevelNone, LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// String возвращает строковое представление.
func (l Level) String() string {
	return string(l)
}

// ParseLevel разбирает имя уровня без учёта регистра.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", shared.NewDomainError("risk", "ParseLevel", shared.ErrInvalidInput, "unknown risk level "+s)
	}
	return l, nil
}

// MarshalText реализует encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler через ParseLevel,
// поэтому неизвестный уровень в JSON или конфигурации - ошибка.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
