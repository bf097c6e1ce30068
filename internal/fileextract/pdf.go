package fileextract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"hesapp/extractor/internal/pipelineerror"
)

// PDFTextExtractor abstracts PDF text extraction so tests can inject canned
// text instead of shelling out.
type PDFTextExtractor interface {
	ExtractText(pdfFile string) (string, error)
}

// PdftotextExtractor extracts text with the pdftotext command-line tool.
// Layout mode preserves the column alignment of the statement table, which
// the extraction model relies on.
type PdftotextExtractor struct{}

// ExtractText runs pdftotext -layout and returns the resulting text.
func (PdftotextExtractor) ExtractText(pdfFile string) (string, error) {
	tempFile := filepath.Join(os.TempDir(), fmt.Sprintf("statement-%d.txt", os.Getpid()))
	defer os.Remove(tempFile)

	cmd := exec.Command("pdftotext", "-layout", pdfFile, tempFile)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("could not read pdftotext output: %w", err)
	}
	return string(data), nil
}

// MockPDFTextExtractor returns canned text, for tests.
type MockPDFTextExtractor struct {
	Text string
	Err  error
}

func (m MockPDFTextExtractor) ExtractText(string) (string, error) {
	return m.Text, m.Err
}

func (e *Extractor) extractPDF(path string) (*StructuredFile, error) {
	text, err := e.pdf.ExtractText(path)
	if err != nil {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: fmt.Sprintf("PDF text extraction failed: %v", err)}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &pipelineerror.InputError{FilePath: path, Reason: "PDF contains no extractable text"}
	}

	return &StructuredFile{
		RawText:  text,
		RowCount: 0,
		Metadata: map[string]string{"format": "pdf"},
	}, nil
}
