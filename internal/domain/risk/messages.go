package risk

import (
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
)

// Messages - тексты правил на одном языке.
// Поля с глаголами %d, %.2f и %s - шаблоны fmt.
type Messages struct {
	// Причины риска.
	GradeStrong     string
	GradeBorderline string
	TrendDecline    string
	UnexcusedStrong string
	UnexcusedMild   string
	LowActivity     string
	TeacherAlerts   string
	Subjects        string
	NoRiskFactors   string

	// Рекомендации по ролям.
	TeacherAcademicSupport   string
	TeacherEngagement        string
	TeacherFallback          string
	DeputyMonitoring         string
	DeputyCurriculum         string
	DeputyFallback           string
	ParentAttendance         string
	ParentHomework           string
	ParentFallback           string
	PsychologistConversation string
	PsychologistConflicts    string
	PsychologistFallback     string

	// Психологические сигналы.
	SignalSharpDecline     string
	SignalDisengagement    string
	SignalRepeatedConcerns string
	SignalAttendance       string
	SignalNone             string
}

var messagesByLocale = map[shared.Locale]Messages{
	shared.LocaleKazakh: {
		GradeStrong:     "Орташа баға төмен (%.2f): академиялық тәуекел жоғары.",
		GradeBorderline: "Орташа баға шекарада (%.2f): үлгерімге қолдау қажет.",
		TrendDecline:    "Үлгерім төмендеп келеді (орташа бағаның өзгерісі %.2f).",
		UnexcusedStrong: "Себепсіз келмеулер көп (%d).",
		UnexcusedMild:   "Себепсіз келмеулер бар (%d).",
		LowActivity:     "Сабақтағы белсенділігі мен қызығушылығы төмен.",
		TeacherAlerts:   "Мұғалімдер мәселелерді атап өтті (%d).",
		Subjects:        "Қиын пәндер: %s.",
		NoRiskFactors:   "Елеулі тәуекел факторлары анықталған жоқ.",

		TeacherAcademicSupport:   "Қиын пәндер бойынша қосымша академиялық қолдау ұйымдастыру.",
		TeacherEngagement:        "Оқушыны тарту үшін белсенді жұмыс түрлері мен жеке тапсырмалар таңдау.",
		TeacherFallback:          "Оқушының үлгерімін бақылауды жалғастыру.",
		DeputyMonitoring:         "Оқушыны бақылауға алып, ата-анамен кездесу өткізу.",
		DeputyCurriculum:         "Үлгерімі төмендеген пәндер бойынша оқу жүктемесі мен бағдарламаны талдау.",
		DeputyFallback:           "Ерекше шаралар қажет емес.",
		ParentAttendance:         "Баламен сабаққа қатысу мен күн тәртібін талқылау.",
		ParentHomework:           "Үй тапсырмасын күн сайын орындау тәртібін қалыптастыру.",
		ParentFallback:           "Баланың оқуға деген қызығушылығын қолдай беру.",
		PsychologistConversation: "Оқушымен диагностикалық әңгіме өткізу.",
		PsychologistConflicts:    "Сыныпта немесе отбасында жасырын жанжал жоқ па, анықтау.",
		PsychologistFallback:     "Кеңес тек сұраныс бойынша.",

		SignalSharpDecline:     "Үлгерімнің күрт төмендеуі.",
		SignalDisengagement:    "Сабаққа деген қызығушылық пен белсенділіктің жоғалуы.",
		SignalRepeatedConcerns: "Мұғалімдердің қайталанатын ескертулері.",
		SignalAttendance:       "Жүйелі себепсіз келмеулер.",
		SignalNone:             "Қазіргі уақытта айқын психологиялық белгілер жоқ.",
	},
	shared.LocaleRussian: {
		GradeStrong:     "Низкий средний балл (%.2f): высокий академический риск.",
		GradeBorderline: "Средний балл на границе (%.2f): нужна поддержка по успеваемости.",
		TrendDecline:    "Успеваемость снижается (изменение среднего балла %.2f).",
		UnexcusedStrong: "Много пропусков без уважительной причины (%d).",
		UnexcusedMild:   "Есть пропуски без уважительной причины (%d).",
		LowActivity:     "Низкая активность и вовлечённость на уроках.",
		TeacherAlerts:   "Учителя отмечали проблемы (%d).",
		Subjects:        "Проблемные предметы: %s.",
		NoRiskFactors:   "Существенных факторов риска не выявлено.",

		TeacherAcademicSupport:   "Организовать дополнительную академическую поддержку по проблемным предметам.",
		TeacherEngagement:        "Подобрать активные формы работы и индивидуальные задания для вовлечения ученика.",
		TeacherFallback:          "Продолжать наблюдение за успеваемостью ученика.",
		DeputyMonitoring:         "Взять ученика на контроль и провести встречу с родителями.",
		DeputyCurriculum:         "Проанализировать учебную нагрузку и программу по предметам, где снижается успеваемость.",
		DeputyFallback:           "Особых мер не требуется.",
		ParentAttendance:         "Обсудить с ребёнком посещаемость и режим дня.",
		ParentHomework:           "Наладить ежедневный режим выполнения домашних заданий.",
		ParentFallback:           "Продолжать поддерживать интерес ребёнка к учёбе.",
		PsychologistConversation: "Провести диагностическую беседу с учеником.",
		PsychologistConflicts:    "Выяснить, нет ли скрытых конфликтов в классе или в семье.",
		PsychologistFallback:     "Консультация только по запросу.",

		SignalSharpDecline:     "Резкое снижение успеваемости.",
		SignalDisengagement:    "Потеря интереса и вовлечённости на уроках.",
		SignalRepeatedConcerns: "Повторяющиеся замечания учителей.",
		SignalAttendance:       "Систематические пропуски без уважительной причины.",
		SignalNone:             "Явных психологических сигналов сейчас нет.",
	},
}

// MessagesFor возвращает тексты для locale. Неизвестный язык
// заменяется shared.DefaultLocale.
func MessagesFor(locale shared.Locale) Messages {
	if m, ok := messagesByLocale[locale]; ok {
		return m
	}
	return messagesByLocale[shared.DefaultLocale]
}
