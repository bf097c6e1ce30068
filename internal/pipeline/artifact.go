package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/gocarina/gocsv"
)

// WriteArtifact writes the full result as a JSON artifact named
// <stem>_extracted_<timestamp>.json in the output directory and returns its
// path.
func WriteArtifact(result *Result, outputDir string, logger logging.Logger) (string, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(result.SourceFile.Path), filepath.Ext(result.SourceFile.Path))
	name := fmt.Sprintf("%s_extracted_%s.json", stem, time.Now().Format("20060102_150405"))
	path := filepath.Join(outputDir, name)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write artifact: %w", err)
	}

	logger.WithField(logging.FieldOutputFile, path).Info("Saved extraction artifact")
	return path, nil
}

// LedgerRow is the flat CSV form of a final transaction.
type LedgerRow struct {
	TransactionID string `csv:"TransactionID"`
	Date          string `csv:"Date"`
	Description   string `csv:"Description"`
	Amount        string `csv:"Amount"`
	Currency      string `csv:"Currency"`
	Type          string `csv:"Type"`
	BalanceAfter  string `csv:"BalanceAfter"`
	Channel       string `csv:"Channel"`
	Category      string `csv:"Category"`
	Subcategory   string `csv:"Subcategory"`
	Confidence    string `csv:"Confidence"`
	ReCategorized string `csv:"ReCategorized"`
	BankName      string `csv:"BankName"`
}

// WriteLedgerCSV exports the final transactions as a ledger CSV.
func WriteLedgerCSV(transactions []*models.Transaction, path string, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetLogger()
	}

	rows := make([]*LedgerRow, 0, len(transactions))
	for _, txn := range transactions {
		date := txn.RawDate
		if !txn.Date.IsZero() {
			date = txn.Date.Format("2006-01-02")
		}
		balance := ""
		if txn.BalanceAfter != nil {
			balance = txn.BalanceAfter.StringFixed(2)
		}
		recat := ""
		if txn.ReCategorized {
			recat = "yes"
		}
		rows = append(rows, &LedgerRow{
			TransactionID: txn.TransactionID,
			Date:          date,
			Description:   txn.Description,
			Amount:        txn.Amount.StringFixed(2),
			Currency:      string(txn.Currency),
			Type:          string(txn.TransactionType),
			BalanceAfter:  balance,
			Channel:       txn.Channel,
			Category:      txn.Category,
			Subcategory:   txn.Subcategory,
			Confidence:    fmt.Sprintf("%.2f", txn.CategoryConfidence),
			ReCategorized: recat,
			BankName:      txn.BankName,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create CSV file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("could not write CSV: %w", err)
	}

	logger.WithFields(
		logging.Field{Key: logging.FieldOutputFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
	).Info("Saved ledger CSV")
	return nil
}
