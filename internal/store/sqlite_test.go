package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "extractor.db"), logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTxns() []*models.Transaction {
	balance := decimal.NewFromInt(9700)
	return []*models.Transaction{
		{
			TransactionID:   "t1",
			Date:            time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Description:     "MAAŞ ÖDEMESİ",
			Amount:          decimal.NewFromInt(15000),
			Currency:        models.CurrencyTRY,
			TransactionType: models.TypeCredit,
			Category:        "Income",
			Subcategory:     "Salary",
		},
		{
			TransactionID:   "t2",
			Date:            time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Description:     "MIGROS MARKET",
			Amount:          decimal.NewFromInt(-300),
			Currency:        models.CurrencyTRY,
			TransactionType: models.TypeDebit,
			BalanceAfter:    &balance,
			Category:        "Food & Dining",
			Subcategory:     "Groceries",
			Tags:            []string{"market", "grocery"},
			ReCategorized:   true,
		},
	}
}

func countRows(t *testing.T, s *SQLiteStore, statementID string) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE statement_id = ?`, statementID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestSaveTransactions(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveTransactions(context.Background(), "u1", "stmt-1", sampleTxns()))
	assert.Equal(t, 2, countRows(t, s, "stmt-1"))

	var amount, tags string
	var recat int
	err := s.db.QueryRow(`SELECT amount, tags, re_categorized FROM transactions WHERE transaction_id = ?`, "t2").
		Scan(&amount, &tags, &recat)
	require.NoError(t, err)
	assert.Equal(t, "-300", amount)
	assert.Equal(t, "market,grocery", tags)
	assert.Equal(t, 1, recat)
}

func TestSaveTransactionsReplacesStatement(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransactions(ctx, "u1", "stmt-1", sampleTxns()))
	// Re-running the same statement replaces its rows instead of duplicating.
	require.NoError(t, s.SaveTransactions(ctx, "u1", "stmt-1", sampleTxns()[:1]))

	assert.Equal(t, 1, countRows(t, s, "stmt-1"))
}

func TestSaveTransactionsIsolatedByStatement(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTransactions(ctx, "u1", "stmt-1", sampleTxns()))
	require.NoError(t, s.SaveTransactions(ctx, "u2", "stmt-2", sampleTxns()))

	assert.Equal(t, 2, countRows(t, s, "stmt-1"))
	assert.Equal(t, 2, countRows(t, s, "stmt-2"))
}

func TestSaveTransactionsEmpty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveTransactions(context.Background(), "u1", "stmt-1", nil))
	assert.Equal(t, 0, countRows(t, s, "stmt-1"))
}
