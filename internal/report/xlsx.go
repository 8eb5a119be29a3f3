package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pharmetric/rxtrend/internal/adherence"
)

// Sheet names in the exported workbook.
const (
	sheetAdherence     = "Adherence"
	sheetCategories    = "Categories"
	sheetInterventions = "Interventions"
)

// WriteXLSX exports the report as an XLSX workbook, one sheet per table.
func WriteXLSX(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the adherence table
	if err := f.SetSheetName("Sheet1", sheetAdherence); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	if err := writeAdherenceSheet(f, r); err != nil {
		return err
	}
	if err := writeCategorySheet(f, r); err != nil {
		return err
	}
	if err := writeInterventionSheet(f, r); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", path, err)
	}
	return nil
}

func writeAdherenceSheet(f *excelize.File, r Report) error {
	rows := [][]any{{"Patient", "Condition", "Scheduled", "Taken", "Rate %", "Category"}}
	for _, p := range r.Patients {
		rows = append(rows, []any{
			p.PatientID, p.ChronicCondition, p.Scheduled, p.Taken,
			p.MeanPct, string(adherence.CategoryFor(p.MeanPct)),
		})
	}
	return writeRows(f, sheetAdherence, rows)
}

func writeCategorySheet(f *excelize.File, r Report) error {
	if _, err := f.NewSheet(sheetCategories); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}
	rows := [][]any{{"Category", "Patients"}}
	for _, c := range r.Breakdown {
		rows = append(rows, []any{string(c.Category), c.Count})
	}
	return writeRows(f, sheetCategories, rows)
}

func writeInterventionSheet(f *excelize.File, r Report) error {
	if _, err := f.NewSheet(sheetInterventions); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}
	rows := [][]any{{"Patient", "Condition", "Rate %"}}
	for _, p := range r.Candidates {
		rows = append(rows, []any{p.PatientID, p.ChronicCondition, p.MeanPct})
	}
	return writeRows(f, sheetInterventions, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
