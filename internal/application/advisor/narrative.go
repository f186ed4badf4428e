package advisor

import (
	"fmt"
	"strings"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

type narrativeTexts struct {
	lowGrade, unstableGrade, decline, unexcused, lowActivity, subjects, calm string
}

var narrativeByLocale = map[shared.Locale]narrativeTexts{
	shared.LocaleKazakh: {
		lowGrade:      "Орташа баға төмен – пән мұғалімдерімен жеке жоспар құру ұсынылады.",
		unstableGrade: "Бағалар тұрақсыз, үлгерімді тұрақтандыру үшін қосымша бақылау қажет.",
		decline:       "Соңғы тоқсандарда үлгерімі төмендеп жатыр – себептерін (мотивация, қиын пәндер, отбасылық жағдай) анықтау керек.",
		unexcused:     "Себепсіз келмеулер бар – сынып жетекшісі мен ата-анамен бірге профилактикалық әңгіме өткізу ұсынылады.",
		lowActivity:   "Сабақтағы белсенділігі төмен – топтық жұмыс, жобалар, сынып ішіндегі рөлдерді беріп көру керек.",
		subjects:      "Қиын пәндер: %s. Репетитор, факультатив немесе консультация сағаттарын ұсыну керек.",
		calm:          "Қазіргі уақытта айқын тәуекелдер жоқ. Динамиканы бақылауды жалғастыру жеткілікті.",
	},
	shared.LocaleRussian: {
		lowGrade:      "Средний балл низкий – рекомендуется составить индивидуальный план с учителями-предметниками.",
		unstableGrade: "Оценки нестабильны, нужен дополнительный контроль для выравнивания успеваемости.",
		decline:       "В последних четвертях успеваемость снижается – нужно выяснить причины (мотивация, трудные предметы, семейная ситуация).",
		unexcused:     "Есть пропуски без уважительной причины – рекомендуется профилактическая беседа с классным руководителем и родителями.",
		lowActivity:   "Низкая активность на уроках – стоит попробовать групповую работу, проекты и роли внутри класса.",
		subjects:      "Трудные предметы: %s. Стоит предложить репетитора, факультатив или консультационные часы.",
		calm:          "Явных рисков сейчас нет. Достаточно продолжать наблюдать за динамикой.",
	},
}

// FallbackNarrative builds numbered recommendations from the snapshot alone.
// The result is never empty.
func FallbackNarrative(s student.Student, locale shared.Locale) string {
	t, ok := narrativeByLocale[locale]
	if !ok {
		t = narrativeByLocale[shared.DefaultLocale]
	}

	recs := make([]string, 0, 5)
	switch {
	case s.AvgGrade < 3.5:
		recs = append(recs, t.lowGrade)
	case s.AvgGrade < 4:
		recs = append(recs, t.unstableGrade)
	}
	if s.GradeTrend < -0.2 {
		recs = append(recs, t.decline)
	}
	if s.UnexcusedAbsences > 0 {
		recs = append(recs, t.unexcused)
	}
	if s.LowActivity {
		recs = append(recs, t.lowActivity)
	}
	if len(s.SubjectsAtRisk) > 0 {
		recs = append(recs, fmt.Sprintf(t.subjects, strings.Join(subjectNames(s.SubjectsAtRisk, locale), ", ")))
	}
	if len(recs) == 0 {
		recs = append(recs, t.calm)
	}

	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, r)
	}
	return b.String()
}

func subjectNames(codes []student.SubjectCode, locale shared.Locale) []string {
	names := make([]string, len(codes))
	for i, code := range codes {
		subj, ok := student.LookupSubject(code)
		switch {
		case !ok:
			names[i] = string(code)
		case locale == shared.LocaleRussian:
			names[i] = subj.NameRu
		default:
			names[i] = subj.NameKk
		}
	}
	return names
}
