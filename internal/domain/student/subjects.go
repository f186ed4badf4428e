package student

// SubjectCode - код школьного предмета.
type SubjectCode string

const (
	SubjectKazakh       SubjectCode = "kazakh"
	SubjectRussian      SubjectCode = "russian"
	SubjectEnglish      SubjectCode = "english"
	SubjectMath         SubjectCode = "math"
	SubjectInformatics  SubjectCode = "informatics"
	SubjectPhysics      SubjectCode = "physics"
	SubjectChemistry    SubjectCode = "chemistry"
	SubjectBiology      SubjectCode = "biology"
	SubjectHistoryKZ    SubjectCode = "historyKZ"
	SubjectWorldHistory SubjectCode = "worldHistory"
	SubjectGeography    SubjectCode = "geography"
)

// Subject - предмет с названиями на русском и казахском.
type Subject struct {
	Code   SubjectCode `json:"code"`
	NameRu string      `json:"nameRu"`
	NameKk string      `json:"nameKk"`
}

// Subjects - каталог предметов в порядке школьного расписания.
var Subjects = []Subject{
	{Code: SubjectKazakh, NameRu: "Казахский язык", NameKk: "Қазақ тілі"},
	{Code: SubjectRussian, NameRu: "Русский язык", NameKk: "Орыс тілі"},
	{Code: SubjectEnglish, NameRu: "Английский язык", NameKk: "Ағылшын тілі"},
	{Code: SubjectMath, NameRu: "Математика", NameKk: "Математика"},
	{Code: SubjectInformatics, NameRu: "Информатика", NameKk: "Информатика"},
	{Code: SubjectPhysics, NameRu: "Физика", NameKk: "Физика"},
	{Code: SubjectChemistry, NameRu: "Химия", NameKk: "Химия"},
	{Code: SubjectBiology, NameRu: "Биология", NameKk: "Биология"},
	{Code: SubjectHistoryKZ, NameRu: "История Казахстана", NameKk: "Қазақстан тарихы"},
	{Code: SubjectWorldHistory, NameRu: "Всемирная история", NameKk: "Дүниежүзі тарихы"},
	{Code: SubjectGeography, NameRu: "География", NameKk: "География"},
}

var subjectIndex = func() map[SubjectCode]Subject {
	m := make(map[SubjectCode]Subject, len(Subjects))
	for _, s := range Subjects {
		m[s.Code] = s
	}
	return m
}()

// IsValid проверяет, что код есть в каталоге.
func (c SubjectCode) IsValid() bool {
	_, ok := subjectIndex[c]
	return ok
}

// LookupSubject возвращает предмет по коду.
func LookupSubject(code SubjectCode) (Subject, bool) {
	s, ok := subjectIndex[code]
	return s, ok
}
