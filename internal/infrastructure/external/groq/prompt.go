package groq

import (
	"fmt"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

const systemPromptBase = "Сен мектеп завучысының цифрлық ассистентісің. " +
	"Саған оқушы туралы деректер беріледі. " +
	"Сен завуч пен сынып жетекшіге арналған нақты, қысқа ұсыныстар жазасың. "

const narrativeInstruction = "Ұсыныстар 3–6 тармақтан тұрсын. "

const analysisInstruction = "Жауапты тек JSON объектісі түрінде қайтар: " +
	`{"reasons": [string], "psychSignals": [string], ` +
	`"roleRecs": {"teacher": [string], "deputy": [string], "parent": [string], "psychologist": [string]}}. ` +
	"Әр тізімде 1–4 қысқа сөйлем болсын. JSON-нан тыс мәтін жазба. "

func languageInstruction(locale shared.Locale) string {
	if locale == shared.LocaleRussian {
		return "Пиши на русском языке, просто и понятно."
	}
	return "Қазақ тілінде жаз."
}

// NarrativeMessages builds the free-text recommendation prompt.
func NarrativeMessages(s student.Student, locale shared.Locale) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: systemPromptBase + narrativeInstruction + languageInstruction(locale)},
		{Role: RoleUser, Content: studentPrompt(s) + narrativeTask},
	}
}

// AnalysisMessages builds the structured JSON analysis prompt.
func AnalysisMessages(s student.Student, locale shared.Locale) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: systemPromptBase + analysisInstruction + languageInstruction(locale)},
		{Role: RoleUser, Content: studentPrompt(s) + analysisTask},
	}
}

const narrativeTask = `
Міндет:
- завуч пен сынып жетекшіге арналған ұсыныстар жаз;
- неге назар аудару керек;
- ата-анамен/мұғалімдермен қандай жұмыс жүргізу керек;
- қай пәндерге/құзыреттерге басымдық беру керек.
`

const analysisTask = `
Міндет:
- reasons: тәуекелдің негізгі себептері;
- psychSignals: психологқа арналған белгілер (болмаса бос тізім);
- roleRecs: мұғалім, завуч, ата-ана және психолог үшін ұсыныстар.
`

func studentPrompt(s student.Student) string {
	gender := "қыз"
	if s.Gender == student.GenderMale {
		gender = "ұл"
	}
	activity := "қалыпты немесе жоғары"
	if s.LowActivity {
		activity = "төмен"
	}
	subjects := "жоқ"
	if len(s.SubjectsAtRisk) > 0 {
		subjects = strings.Join(s.SubjectNames(), ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Оқушы: %s, сыныбы: %s.\n", s.FullName, s.ClassName)
	fmt.Fprintf(&b, "Жынысы: %s.\n\n", gender)
	fmt.Fprintf(&b, "Орташа баға: %.2f.\n", s.AvgGrade)
	fmt.Fprintf(&b, "Үлгерім тренді (теріс болса – нашарлау): %.2f.\n\n", s.GradeTrend)
	fmt.Fprintf(&b, "Барлық келмеген күндер: %d.\n", s.Absences)
	fmt.Fprintf(&b, "Себепсіз келмеген: %d.\n\n", s.UnexcusedAbsences)
	fmt.Fprintf(&b, "Үй тапсырмаларын орындау: %.0f%%.\n", s.HomeworkCompletion)
	fmt.Fprintf(&b, "Мұғалім ескертулері: %d.\n", s.TeacherAlerts)
	fmt.Fprintf(&b, "Сабақтағы белсенділік: %s.\n\n", activity)
	fmt.Fprintf(&b, "Қиын пәндер: %s.\n", subjects)
	return b.String()
}
