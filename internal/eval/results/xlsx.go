package results

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const (
	resultsSheet = "Results"
	fieldsSheet  = "Fields"
)

// SaveXLSX writes a workbook with one row per document and one row per
// field statistic to dir/<BaseName>.xlsx and returns the path.
func (r *Report) SaveXLSX(dir string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return "", err
	}

	headers := []string{"File", "Success", "Seconds", "Confidence", "Invoices", "Field Accuracy", "CER", "WER", "Error"}
	for _, field := range invoice.AllFields() {
		headers = append(headers, string(field))
	}
	writeRow(f, resultsSheet, 1, toAny(headers))

	for i, fr := range r.Files {
		row := []any{fr.Filename, fr.Success, fr.ProcessingSeconds, fr.Confidence, len(fr.Invoices)}
		if fr.Metrics != nil {
			row = append(row, fr.Metrics.FieldAccuracy, fr.Metrics.CER, fr.Metrics.WER)
		} else {
			row = append(row, "", "", "")
		}
		row = append(row, fr.Error)

		ex, _ := fr.Extraction()
		for _, field := range invoice.AllFields() {
			row = append(row, ex.Fields.Get(field))
		}
		writeRow(f, resultsSheet, i+2, row)
	}

	_ = f.SetColWidth(resultsSheet, "A", "A", 28)
	_ = f.SetColWidth(resultsSheet, "B", "H", 12)
	_ = f.SetColWidth(resultsSheet, "I", "I", 40)

	if r.Fields != nil {
		if _, err := f.NewSheet(fieldsSheet); err != nil {
			return "", err
		}
		writeRow(f, fieldsSheet, 1, []any{"Field", "Total", "Correct", "Incorrect", "Missing", "Accuracy"})
		for i, fs := range r.Fields.Fields {
			writeRow(f, fieldsSheet, i+2, []any{fs.Field, fs.Total, fs.Correct, fs.Incorrect, fs.Missing, fs.AccuracyRate})
		}
		_ = f.SetColWidth(fieldsSheet, "A", "A", 28)
	}

	index, _ := f.GetSheetIndex(resultsSheet)
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}
	return writeOutput(dir, r.BaseName()+".xlsx", buf.Bytes())
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
