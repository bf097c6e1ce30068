package fileextract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"hesapp/extractor/internal/pipelineerror"
)

// extractCSV reads a delimited statement export. Both comma and semicolon
// delimiters are handled; semicolons are common in Turkish bank exports where
// the comma is the decimal separator.
func (e *Extractor) extractCSV(path string) (*StructuredFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: fmt.Sprintf("could not read file: %v", err)}
	}

	content := string(data)
	delimiter := ','
	if firstLine, _, _ := strings.Cut(content, "\n"); strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		delimiter = ';'
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: fmt.Sprintf("malformed CSV: %v", err)}
	}
	if len(rows) == 0 {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "empty CSV file"}
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
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

	return &StructuredFile{
		RawText:  recordsToText(columns, records),
		Records:  records,
		Columns:  columns,
		RowCount: len(records),
		Metadata: map[string]string{
			"format":    "csv",
			"delimiter": string(delimiter),
		},
	}, nil
}
