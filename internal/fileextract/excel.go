package fileextract

import (
	"fmt"
	"strings"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/pipelineerror"

	"github.com/xuri/excelize/v2"
)

// extractExcel reads the first sheet of a workbook. The header row is the
// first row with more than one non-empty cell, which skips the title and
// account-holder banner rows banks place above the transaction table.
func (e *Extractor) extractExcel(path string) (*StructuredFile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: fmt.Sprintf("could not open workbook: %v", err)}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.log.WithError(cerr).Warn("Failed to close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: fmt.Sprintf("could not read sheet %s: %v", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "workbook sheet is empty"}
	}

	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "no header row found in workbook"}
	}

	columns := make([]string, 0, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns = append(columns, h)
	}

	records := make([]Record, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		rec := make(Record, len(columns))
		empty := true
		for i, col := range columns {
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if value != "" {
				empty = false
			}
			rec[col] = value
		}
		if !empty {
			records = append(records, rec)
		}
	}

	e.log.WithFields(
		logging.Field{Key: "sheet", Value: sheet},
		logging.Field{Key: logging.FieldCount, Value: len(records)},
	).Debug("Read workbook sheet")

	return &StructuredFile{
		RawText:  recordsToText(columns, records),
		Records:  records,
		Columns:  columns,
		RowCount: len(records),
		Metadata: map[string]string{
			"format": "excel",
			"sheet":  sheet,
		},
	}, nil
}

func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		filled := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
		if filled > 1 {
			return i
		}
	}
	return -1
}
