package analytics

import (
	"sort"

	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// SubjectHotspot - сколько учеников испытывают трудности по предмету.
type SubjectHotspot struct {
	Subject student.SubjectCode `json:"subject"`
	Count   int                 `json:"count"`
}

// SubjectHotspots считает учеников по проблемным предметам.
// Повтор предмета у одного ученика учитывается один раз.
// Порядок: по убыванию Count, затем по коду предмета.
func SubjectHotspots(students []student.Student) []SubjectHotspot {
	counts := make(map[student.SubjectCode]int)
	for _, s := range students {
		for _, code := range uniqueSubjects(s.SubjectsAtRisk) {
			counts[code]++
		}
	}

	out := make([]SubjectHotspot, 0, len(counts))
	for code, n := range counts {
		out = append(out, SubjectHotspot{Subject: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// Heatmap - матрица "класс x предмет" с числом учеников в зоне трудностей.
type Heatmap struct {
	Classes  []string                  `json:"classes"`
	Subjects []student.SubjectCode     `json:"subjects"`
	Cells    map[string]map[string]int `json:"cells"`
	Max      int                       `json:"max"`
}

// Count возвращает значение ячейки.
func (h Heatmap) Count(className string, subject student.SubjectCode) int {
	return h.Cells[className][string(subject)]
}

// ClassSubjectHeatmap строит матрицу по классам и предметам.
// Классы идут в лексическом порядке, предметы - в порядке каталога.
func ClassSubjectHeatmap(students []student.Student) Heatmap {
	h := Heatmap{
		Cells: make(map[string]map[string]int),
	}

	used := make(map[student.SubjectCode]struct{})
	for _, s := range students {
		row, ok := h.Cells[s.ClassName]
		if !ok {
			row = make(map[string]int)
			h.Cells[s.ClassName] = row
			h.Classes = append(h.Classes, s.ClassName)
		}
		for _, code := range uniqueSubjects(s.SubjectsAtRisk) {
			row[string(code)]++
			used[code] = struct{}{}
			if row[string(code)] > h.Max {
				h.Max = row[string(code)]
			}
		}
	}
	sort.Strings(h.Classes)

	for _, subj := range student.Subjects {
		if _, ok := used[subj.Code]; ok {
			h.Subjects = append(h.Subjects, subj.Code)
			delete(used, subj.Code)
		}
	}
	// коды вне каталога в конце
	var rest []student.SubjectCode
	for code := range used {
		rest = append(rest, code)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	h.Subjects = append(h.Subjects, rest...)

	return h
}

func uniqueSubjects(codes []student.SubjectCode) []student.SubjectCode {
	if len(codes) < 2 {
		return codes
	}
	seen := make(map[student.SubjectCode]struct{}, len(codes))
	out := make([]student.SubjectCode, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
