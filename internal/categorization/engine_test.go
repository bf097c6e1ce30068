package categorization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"
	"hesapp/extractor/internal/pipelineerror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns one canned completion (or error) per call, in order.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (c *scriptedClient) Complete(_ context.Context, req inference.Request) (string, error) {
	idx := c.calls
	c.calls++
	c.prompts = append(c.prompts, req.UserPrompt)
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

func newTestEngine(client inference.Client, batchSize int) *Engine {
	return NewEngine(client, Options{
		Policy: inference.NewTestBatchPolicy(batchSize, time.Second, noopSleeper{}),
	}, logging.NewMockLogger())
}

func makeTxns(n int) []*models.Transaction {
	txns := make([]*models.Transaction, n)
	for i := range txns {
		txns[i] = &models.Transaction{
			TransactionID:   fmt.Sprintf("t%d", i+1),
			Date:            time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
			Description:     fmt.Sprintf("MIGROS %d", i+1),
			Amount:          decimal.NewFromInt(-100),
			Currency:        models.CurrencyTRY,
			TransactionType: models.TypeDebit,
		}
	}
	return txns
}

func categorizationJSON(entries ...map[string]any) string {
	data, _ := json.Marshal(entries)
	return string(data)
}

func TestCategorizeMatchesByID(t *testing.T) {
	client := &scriptedClient{responses: []string{categorizationJSON(
		map[string]any{"transaction_id": "t2", "category": "Shopping", "subcategory": "Electronics", "confidence": 0.9},
		map[string]any{"transaction_id": "t1", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.95, "tags": []string{"market"}},
	)}}

	txns := makeTxns(2)
	newTestEngine(client, 50).Categorize(context.Background(), txns, nil)

	assert.Equal(t, "Food & Dining", txns[0].Category)
	assert.Equal(t, "Groceries", txns[0].Subcategory)
	assert.Equal(t, 0.95, txns[0].CategoryConfidence)
	assert.Equal(t, []string{"market"}, txns[0].Tags)
	assert.Equal(t, "Shopping", txns[1].Category)
}

func TestCategorizePositionalFallback(t *testing.T) {
	// Response lacks transaction ids; positional matching applies.
	client := &scriptedClient{responses: []string{categorizationJSON(
		map[string]any{"category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.8},
		map[string]any{"category": "Transportation", "subcategory": "Gas & Fuel", "confidence": 0.7},
	)}}

	txns := makeTxns(2)
	newTestEngine(client, 50).Categorize(context.Background(), txns, nil)

	assert.Equal(t, "Food & Dining", txns[0].Category)
	assert.Equal(t, "Transportation", txns[1].Category)
}

func TestCategorizeMissingEntryFallsBackToOther(t *testing.T) {
	// Only one entry for two transactions; the second gets the fallback.
	client := &scriptedClient{responses: []string{categorizationJSON(
		map[string]any{"transaction_id": "t1", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.8},
	)}}

	txns := makeTxns(2)
	newTestEngine(client, 50).Categorize(context.Background(), txns, nil)

	assert.Equal(t, "Food & Dining", txns[0].Category)
	assert.Equal(t, models.CategoryOther, txns[1].Category)
	assert.Equal(t, models.SubcategoryUncategorized, txns[1].Subcategory)
	assert.Zero(t, txns[1].CategoryConfidence)
}

func TestCategorizeTaxonomyClosure(t *testing.T) {
	// An invented category collapses to the Other fallback; every final
	// category is a taxonomy member.
	client := &scriptedClient{responses: []string{categorizationJSON(
		map[string]any{"transaction_id": "t1", "category": "Cryptocurrency", "subcategory": "Bitcoin", "confidence": 0.9},
		map[string]any{"transaction_id": "t2", "category": "Shopping", "subcategory": "Electronics", "confidence": 0.9},
	)}}

	txns := makeTxns(2)
	newTestEngine(client, 50).Categorize(context.Background(), txns, nil)

	for _, txn := range txns {
		assert.True(t, models.IsCategory(txn.Category), "category %q", txn.Category)
	}
	assert.Equal(t, models.CategoryOther, txns[0].Category)
}

func TestCategorizeBatchFailureContainment(t *testing.T) {
	// First batch fails at transport level; the second still gets real
	// categories.
	client := &scriptedClient{
		errs: []error{&pipelineerror.TransportError{Operation: "completion", Err: errors.New("boom")}, nil},
		responses: []string{"", categorizationJSON(
			map[string]any{"transaction_id": "t3", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.9},
			map[string]any{"transaction_id": "t4", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.9},
		)},
	}

	txns := makeTxns(4)
	newTestEngine(client, 2).Categorize(context.Background(), txns, nil)

	assert.Equal(t, models.CategoryOther, txns[0].Category)
	assert.Equal(t, models.CategoryOther, txns[1].Category)
	assert.Equal(t, "Food & Dining", txns[2].Category)
	assert.Equal(t, "Food & Dining", txns[3].Category)
	assert.Equal(t, 2, client.calls)
}

func TestCategorizePeriodContextAdvances(t *testing.T) {
	response := categorizationJSON(
		map[string]any{"transaction_id": "t1", "category": "Food & Dining", "subcategory": "Groceries", "confidence": 0.9},
	)
	client := &scriptedClient{responses: []string{response, response}}

	txns := makeTxns(2)
	periodCtx := &PeriodContext{PeriodID: "period-1", IncomeAmount: decimal.NewFromInt(10000)}
	newTestEngine(client, 1).Categorize(context.Background(), txns, periodCtx)

	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[0], "Expenses so far in this period: 0.00 TRY")
	assert.Contains(t, client.prompts[1], "Expenses so far in this period: 100.00 TRY")
	// The caller's context is not advanced by the run.
	assert.True(t, periodCtx.ExpensesSoFar.IsZero())
}

func TestCategorizeEmptyInput(t *testing.T) {
	client := &scriptedClient{}
	newTestEngine(client, 50).Categorize(context.Background(), nil, nil)
	assert.Zero(t, client.calls)
}
