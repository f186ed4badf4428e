package risk

import (
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

const (
	signalTrendThreshold     = -0.5
	signalAlertsThreshold    = 2
	signalUnexcusedThreshold = 3
)

// DetectPsychSignals возвращает психологические сигналы в фиксированном порядке
// на языке locale. Список никогда не бывает пустым.
func DetectPsychSignals(s student.Student, locale shared.Locale) []string {
	m := MessagesFor(locale)
	signals := triggeredSignals(s, m)
	if len(signals) == 0 {
		return []string{m.SignalNone}
	}
	return signals
}

// HasPsychSignals сообщает, сработал ли хотя бы один сигнал.
func HasPsychSignals(s student.Student) bool {
	return len(triggeredSignals(s, MessagesFor(shared.DefaultLocale))) > 0
}

func triggeredSignals(s student.Student, m Messages) []string {
	var signals []string
	if s.GradeTrend <= signalTrendThreshold {
		signals = append(signals, m.SignalSharpDecline)
	}
	if s.LowActivity {
		signals = append(signals, m.SignalDisengagement)
	}
	if s.TeacherAlerts >= signalAlertsThreshold {
		signals = append(signals, m.SignalRepeatedConcerns)
	}
	if s.UnexcusedAbsences >= signalUnexcusedThreshold {
		signals = append(signals, m.SignalAttendance)
	}
	return signals
}
