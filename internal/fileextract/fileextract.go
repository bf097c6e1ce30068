// Package fileextract turns statement files (PDF, XLSX, XLS, CSV) into raw
// text and row records for the extraction engine. These are thin format
// adapters; all interpretation of the content happens downstream.
package fileextract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/pipelineerror"
)

// Record is one row of a structured statement file, keyed by column name.
type Record map[string]string

// StructuredFile is the extractor collaborator's output: raw text plus row
// records when the source format is tabular.
type StructuredFile struct {
	RawText  string
	Records  []Record
	Columns  []string
	RowCount int
	Metadata map[string]string
}

// SupportedExtensions lists the accepted statement file formats.
var SupportedExtensions = []string{".pdf", ".xlsx", ".xls", ".csv"}

// Extractor dispatches a statement file to the adapter for its format.
type Extractor struct {
	pdf PDFTextExtractor
	log logging.Logger
}

// NewExtractor creates an extractor using the production PDF text backend.
func NewExtractor(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{pdf: &PdftotextExtractor{}, log: logger}
}

// NewExtractorWithPDF creates an extractor with an injected PDF text backend,
// used by tests.
func NewExtractorWithPDF(pdf PDFTextExtractor, logger logging.Logger) *Extractor {
	e := NewExtractor(logger)
	e.pdf = pdf
	return e
}

// Extract reads the statement file and returns its structured content.
// Missing files and unsupported extensions fail fast with an InputError,
// before any inference call is made.
func (e *Extractor) Extract(path string) (*StructuredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "file not found"}
	}
	if info.IsDir() {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "path is a directory"}
	}

	ext := strings.ToLower(filepath.Ext(path))
	e.log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: "format", Value: ext},
	).Info("Extracting statement file")

	switch ext {
	case ".csv":
		return e.extractCSV(path)
	case ".xlsx", ".xls":
		return e.extractExcel(path)
	case ".pdf":
		return e.extractPDF(path)
	default:
		return nil, &pipelineerror.InputError{
			FilePath: path,
			Reason:   fmt.Sprintf("unsupported extension %q (supported: %s)", ext, strings.Join(SupportedExtensions, ", ")),
		}
	}
}

// recordsToText renders records as a readable delimited table, used both for
// bank detection and as inference input for non-batched runs.
func recordsToText(columns []string, records []Record) string {
	if len(records) == 0 {
		return ""
	}
	lines := make([]string, 0, len(records)+2)
	header := strings.Join(columns, " | ")
	lines = append(lines, header, strings.Repeat("-", len(header)))
	for _, rec := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = rec[col]
		}
		lines = append(lines, strings.Join(values, " | "))
	}
	return strings.Join(lines, "\n")
}
