package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hesapp/extractor/internal/bankdetect"
	"hesapp/extractor/internal/categorization"
	"hesapp/extractor/internal/extraction"
	"hesapp/extractor/internal/fileextract"
	"hesapp/extractor/internal/income"
	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"
	"hesapp/extractor/internal/periods"
	"hesapp/extractor/internal/pipelineerror"
	"hesapp/extractor/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns one canned completion (or error) per call, in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(context.Context, inference.Request) (string, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return "", c.errs[idx]
	}
	if idx < len(c.responses) {
		return c.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

type noopSleeper struct{}

func (noopSleeper) Sleep(time.Duration) {}

func newTestPipeline(client inference.Client) *Pipeline {
	log := logging.NewMockLogger()
	policy := inference.NewTestBatchPolicy(30, time.Second, noopSleeper{})
	return New(
		fileextract.NewExtractor(log),
		bankdetect.NewDetector(log),
		extraction.NewEngine(client, extraction.Options{Policy: policy}, log),
		income.NewDetector(decimal.NewFromInt(5000), log),
		periods.NewAnalyzer(log),
		categorization.NewEngine(client, categorization.Options{Policy: policy}, log),
		validation.NewValidator(validation.DefaultRatios(), client, log),
		log,
	)
}

func writeStatementCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ziraat_ocak.csv")
	content := "Tarih,Açıklama,Tutar\n" +
		"03.01.2024,T.C. Ziraat Bankası MAAŞ ÖDEMESİ,15000\n" +
		"10.01.2024,MIGROS MARKET,-300\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const extractionResponse = `{
	"bank_name": "Ziraat Bankası",
	"account_number": "TR12 0001",
	"statement_period_start": "2024-01-01",
	"statement_period_end": "2024-01-31",
	"currency": "TRY",
	"transactions": [
		{"transaction_id": "t1", "date": "2024-01-03", "description": "MAAŞ ÖDEMESİ", "amount": 15000, "transaction_type": "credit"},
		{"transaction_id": "t2", "date": "2024-01-10", "description": "MIGROS MARKET", "amount": -300, "transaction_type": "debit"}
	]
}`

const categorizationResponse = `[
	{"transaction_id": "t1", "category": "Income", "subcategory": "Salary", "confidence": 0.95},
	{"transaction_id": "t2", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.9}
]`

func TestProcessEndToEnd(t *testing.T) {
	client := &scriptedClient{responses: []string{extractionResponse, categorizationResponse}}
	p := newTestPipeline(client)

	result, err := p.Process(context.Background(), Request{FilePath: writeStatementCSV(t), UserID: "u1"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "u1", result.SourceFile.UserID)
	assert.Equal(t, "Ziraat Bankası", result.BankDetection.Bank)

	require.NotNil(t, result.Extraction)
	require.Len(t, result.Extraction.Transactions, 2)
	// Extraction metadata is backfilled onto every transaction.
	for _, txn := range result.Extraction.Transactions {
		assert.Equal(t, "Ziraat Bankası", txn.BankName)
		assert.Equal(t, "TR12 0001", txn.AccountNumber)
	}

	require.Len(t, result.IncomeTransactions, 1)
	assert.Equal(t, "t1", result.IncomeTransactions[0].TransactionID)

	require.Len(t, result.Periods, 1)
	period := result.Periods[0]
	assert.Equal(t, "period-1", period.PeriodID)
	assert.True(t, period.TotalExpenses.Equal(decimal.NewFromInt(300)))

	assert.Equal(t, "Income", result.IncomeTransactions[0].Category)

	require.NotNil(t, result.ValidationReport)
	assert.Empty(t, result.ValidationReport.SuspiciousTransactions)

	require.NotNil(t, result.PeriodSummary)
	assert.Equal(t, 1, result.PeriodSummary.TotalPeriods)
	assert.True(t, result.PeriodSummary.TotalIncome.Equal(decimal.NewFromInt(15000)))

	require.NotNil(t, result.CategorizationSummary)
	assert.True(t, result.CategorizationSummary.TotalDebits.Equal(decimal.NewFromInt(300)))
	assert.True(t, result.CategorizationSummary.TotalCredits.Equal(decimal.NewFromInt(15000)))

	// One extraction call and one categorization call; nothing suspicious, so
	// no re-categorization round trip.
	assert.Equal(t, 2, client.calls)
}

func TestProcessSkipCategorization(t *testing.T) {
	client := &scriptedClient{responses: []string{extractionResponse}}
	p := newTestPipeline(client)

	result, err := p.Process(context.Background(), Request{
		FilePath:           writeStatementCSV(t),
		SkipCategorization: true,
	})
	require.NoError(t, err)

	assert.Nil(t, result.ValidationReport)
	assert.Nil(t, result.CategorizationSummary)
	require.NotNil(t, result.PeriodSummary)
	assert.Empty(t, result.Extraction.Transactions[0].Category)
	assert.Equal(t, 1, client.calls)
}

func TestProcessMissingFile(t *testing.T) {
	p := newTestPipeline(&scriptedClient{})

	_, err := p.Process(context.Background(), Request{FilePath: filepath.Join(t.TempDir(), "nope.csv")})
	var inputErr *pipelineerror.InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestProcessExtractionFailure(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("service unavailable")}}
	p := newTestPipeline(client)

	_, err := p.Process(context.Background(), Request{FilePath: writeStatementCSV(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement extraction failed")
}

func TestProcessReCategorizesSuspicious(t *testing.T) {
	// A debit over half the income triggers re-categorization with a third
	// inference call.
	extResp := `{
		"bank_name": "Ziraat Bankası", "currency": "TRY",
		"transactions": [
			{"transaction_id": "t1", "date": "2024-01-03", "description": "MAAŞ ÖDEMESİ", "amount": 10000, "transaction_type": "credit"},
			{"transaction_id": "t2", "date": "2024-01-10", "description": "BÜYÜK HARCAMA", "amount": -8000, "transaction_type": "debit"}
		]
	}`
	catResp := `[
		{"transaction_id": "t1", "category": "Income", "subcategory": "Salary", "confidence": 0.95},
		{"transaction_id": "t2", "category": "Shopping", "subcategory": "Electronics", "confidence": 0.6}
	]`
	recatResp := `[{"transaction_id": "t2", "category": "Transfers", "subcategory": "Payment to Others", "confidence": 0.85, "reasoning": "Likely a transfer given the income"}]`

	client := &scriptedClient{responses: []string{extResp, catResp, recatResp}}
	p := newTestPipeline(client)

	result, err := p.Process(context.Background(), Request{FilePath: writeStatementCSV(t)})
	require.NoError(t, err)

	require.NotNil(t, result.ValidationReport)
	require.Len(t, result.ValidationReport.SuspiciousTransactions, 1)

	var flagged *models.Transaction
	for _, txn := range result.Extraction.Transactions {
		if txn.TransactionID == "t2" {
			flagged = txn
		}
	}
	require.NotNil(t, flagged)
	assert.Equal(t, "Transfers", flagged.Category)
	assert.True(t, flagged.ReCategorized)
	assert.Equal(t, 3, client.calls)
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	result := &Result{
		RunID:      "run-1",
		SourceFile: SourceFile{Path: "/statements/ziraat_ocak.csv", ProcessedAt: time.Now().UTC()},
		Extraction: &models.StatementExtraction{Currency: models.CurrencyTRY},
	}

	path, err := WriteArtifact(result, dir, logging.NewMockLogger())
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "ziraat_ocak_extracted_"), "name %s", base)
	assert.True(t, strings.HasSuffix(base, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
}

func TestWriteLedgerCSV(t *testing.T) {
	balance := decimal.NewFromInt(9700)
	txns := []*models.Transaction{
		{
			TransactionID:   "t1",
			Date:            time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Description:     "MIGROS MARKET",
			Amount:          decimal.NewFromInt(-300),
			Currency:        models.CurrencyTRY,
			TransactionType: models.TypeDebit,
			BalanceAfter:    &balance,
			Category:        "Food & Dining",
			Subcategory:     "Groceries",
			ReCategorized:   true,
		},
	}

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(txns, path, logging.NewMockLogger()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "TransactionID")
	assert.Contains(t, content, "2024-01-10")
	assert.Contains(t, content, "-300.00")
	assert.Contains(t, content, "Food & Dining")
	assert.Contains(t, content, "yes")
}

func TestBuildCategorizationSummaryOrdering(t *testing.T) {
	txns := []*models.Transaction{
		{Amount: decimal.NewFromInt(-100), TransactionType: models.TypeDebit, Category: "Shopping"},
		{Amount: decimal.NewFromInt(-500), TransactionType: models.TypeDebit, Category: "Travel"},
		{Amount: decimal.NewFromInt(-400), TransactionType: models.TypeDebit, Category: "Shopping"},
	}

	summary := BuildCategorizationSummary(txns)
	require.Len(t, summary.Categories, 2)
	// Equal totals sort by name.
	assert.Equal(t, "Shopping", summary.Categories[0].Category)
	assert.Equal(t, 2, summary.Categories[0].Count)
	assert.Equal(t, "Travel", summary.Categories[1].Category)
}
