package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mektep-hub/mektep-monitor/internal/domain/analytics"
	"github.com/mektep-hub/mektep-monitor/internal/domain/risk"
	"github.com/mektep-hub/mektep-monitor/internal/domain/shared"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
)

// Sheet names of a risk report workbook.
const (
	SheetRisk    = "Risk"
	SheetClasses = "Classes"
)

var riskHeader = []string{"ID", "Full name", "Class", "Score", "Level", "At risk", "Reasons"}

var classHeader = []string{"Class", "Students", "Flagged", "None", "Low", "Medium", "High"}

// ReportRow is one scored student in a risk report.
type ReportRow struct {
	Student    student.Student
	Assessment risk.Assessment
}

// BuildReport assesses every student with reasons in locale, keeping input order.
func BuildReport(students []student.Student, locale shared.Locale) []ReportRow {
	rows := make([]ReportRow, len(students))
	for i, s := range students {
		rows[i] = ReportRow{Student: s, Assessment: risk.Assess(s, locale)}
	}
	return rows
}

// WriteReport saves an XLSX workbook with a per-student sheet and a per-class sheet.
// Reasons are written in locale.
func WriteReport(path string, students []student.Student, locale shared.Locale) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRisk); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeRow(f, SheetRisk, 1, toCells(riskHeader)); err != nil {
		return err
	}
	for i, r := range BuildReport(students, locale) {
		a := r.Assessment
		cells := []any{
			r.Student.ID,
			r.Student.FullName,
			r.Student.ClassName,
			a.Score,
			string(a.Level),
			a.AtRisk,
			strings.Join(a.Reasons, "; "),
		}
		if err := writeRow(f, SheetRisk, i+2, cells); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetClasses); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeRow(f, SheetClasses, 1, toCells(classHeader)); err != nil {
		return err
	}
	for i, c := range analytics.ClassRows(students) {
		cells := []any{c.ClassName, c.Students, c.AtRisk, c.Counts.None, c.Counts.Low, c.Counts.Medium, c.Counts.High}
		if err := writeRow(f, SheetClasses, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
