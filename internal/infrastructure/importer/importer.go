// Package importer loads student snapshots from JSON, CSV and XLSX rosters
// and writes XLSX risk reports. Every loaded roster is validated before use.
package importer

import (
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

//go:embed seed/students.json
var demoRoster []byte

// Demo returns the built-in demonstration roster.
func Demo() ([]student.Student, error) {
	return ReadJSON(strings.NewReader(string(demoRoster)))
}

// LoadFile reads a roster by extension: .json, .csv or .xlsx.
func LoadFile(path string) ([]student.Student, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON file: %w", err)
		}
		defer f.Close()
		return ReadJSON(f)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		return ParseRows(rows)
	case ".xlsx":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return ParseRows(rows)
	default:
		return nil, shared.NewDomainError("importer", "LoadFile", shared.ErrInvalidFormat,
			"unsupported roster format "+filepath.Ext(path))
	}
}

// ReadJSON decodes a JSON array of students and validates it.
func ReadJSON(r io.Reader) ([]student.Student, error) {
	var students []student.Student
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&students); err != nil {
		return nil, shared.WrapError("importer", "ReadJSON", shared.ErrInvalidFormat, "decode roster", err)
	}
	if err := student.ValidateAll(students); err != nil {
		return nil, err
	}
	return students, nil
}

// readXLSX reads the first sheet of an Excel workbook.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, shared.NewDomainError("importer", "ReadXLSX", shared.ErrInvalidFormat, "XLSX file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX rows: %w", err)
	}
	return rows, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TABULAR ROSTERS
// ══════════════════════════════════════════════════════════════════════════════

// Columns of a tabular roster. Header names are matched case-insensitively
// and may be written in camelCase or snake_case.
const (
	ColID                 = "id"
	ColFullName           = "fullName"
	ColClassName          = "className"
	ColGender             = "gender"
	ColAvgGrade           = "avgGrade"
	ColGradeTrend         = "gradeTrend"
	ColAbsences           = "absences"
	ColUnexcusedAbsences  = "unexcusedAbsences"
	ColLowActivity        = "lowActivity"
	ColHomeworkCompletion = "homeworkCompletion"
	ColTeacherAlerts      = "teacherAlerts"
	ColSubjectsAtRisk     = "subjectsAtRisk"
)

// Columns lists the roster columns in report order.
var Columns = []string{
	ColID, ColFullName, ColClassName, ColGender, ColAvgGrade, ColGradeTrend,
	ColAbsences, ColUnexcusedAbsences, ColLowActivity, ColHomeworkCompletion,
	ColTeacherAlerts, ColSubjectsAtRisk,
}

var required = []string{ColID, ColFullName, ColClassName, ColGender, ColAvgGrade}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.TrimSpace(h)))
}

// ParseRows converts a header row plus data rows into validated students.
// Empty rows are skipped.
func ParseRows(rows [][]string) ([]student.Student, error) {
	if len(rows) == 0 {
		return nil, shared.NewDomainError("importer", "ParseRows", shared.ErrInvalidFormat, "roster is empty")
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	for _, col := range required {
		if _, ok := index[normalizeHeader(col)]; !ok {
			return nil, shared.NewDomainError("importer", "ParseRows", shared.ErrInvalidFormat,
				"missing column "+col)
		}
	}

	students := make([]student.Student, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := n + 2
		cell := func(col string) string {
			i, ok := index[normalizeHeader(col)]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		s, err := parseRow(cell)
		if err != nil {
			return nil, shared.WrapError("importer", "ParseRows", shared.ErrInvalidFormat,
				fmt.Sprintf("row %d", line), err)
		}
		students = append(students, s)
	}

	if err := student.ValidateAll(students); err != nil {
		return nil, err
	}
	return students, nil
}

func parseRow(cell func(string) string) (student.Student, error) {
	var (
		s   student.Student
		err error
	)
	s.ID = cell(ColID)
	s.FullName = cell(ColFullName)
	s.ClassName = cell(ColClassName)
	s.Gender = parseGender(cell(ColGender))

	if s.AvgGrade, err = parseFloat(cell(ColAvgGrade)); err != nil {
		return s, fmt.Errorf("%s: %w", ColAvgGrade, err)
	}
	if s.GradeTrend, err = parseFloat(cell(ColGradeTrend)); err != nil {
		return s, fmt.Errorf("%s: %w", ColGradeTrend, err)
	}
	if s.Absences, err = parseInt(cell(ColAbsences)); err != nil {
		return s, fmt.Errorf("%s: %w", ColAbsences, err)
	}
	if s.UnexcusedAbsences, err = parseInt(cell(ColUnexcusedAbsences)); err != nil {
		return s, fmt.Errorf("%s: %w", ColUnexcusedAbsences, err)
	}
	if s.LowActivity, err = parseBool(cell(ColLowActivity)); err != nil {
		return s, fmt.Errorf("%s: %w", ColLowActivity, err)
	}
	if s.HomeworkCompletion, err = parseFloat(strings.TrimSuffix(cell(ColHomeworkCompletion), "%")); err != nil {
		return s, fmt.Errorf("%s: %w", ColHomeworkCompletion, err)
	}
	if s.TeacherAlerts, err = parseInt(cell(ColTeacherAlerts)); err != nil {
		return s, fmt.Errorf("%s: %w", ColTeacherAlerts, err)
	}
	s.SubjectsAtRisk = parseSubjects(cell(ColSubjectsAtRisk))
	return s, nil
}

func parseGender(v string) student.Gender {
	switch strings.ToLower(v) {
	case "male", "m", "м", "ұл":
		return student.GenderMale
	case "female", "f", "ж", "қыз":
		return student.GenderFemale
	default:
		return student.Gender(strings.ToLower(v))
	}
}

// parseFloat accepts both "3.5" and "3,5".
func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "0", "no", "false", "нет", "жоқ":
		return false, nil
	case "1", "yes", "true", "да", "иә":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// parseSubjects splits "math; physics" or "math,physics".
func parseSubjects(v string) []student.SubjectCode {
	if v == "" {
		return nil
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == ',' })
	codes := make([]student.SubjectCode, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, student.SubjectCode(p))
		}
	}
	return codes
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
