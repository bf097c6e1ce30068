package periods

import (
	"testing"
	"time"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func txn(id string, d int, amount float64, txnType models.TransactionType) *models.Transaction {
	dec := decimal.NewFromFloat(amount)
	if txnType == models.TypeDebit {
		dec = dec.Abs().Neg()
	}
	return &models.Transaction{
		TransactionID:   id,
		Date:            day(d),
		Description:     "txn " + id,
		Amount:          dec,
		Currency:        models.CurrencyTRY,
		TransactionType: txnType,
	}
}

func newAnalyzer() *Analyzer {
	return NewAnalyzer(logging.NewMockLogger())
}

func TestGroupSingleIncomePeriod(t *testing.T) {
	// Income of 15000 on Jan 3, debits of 300 and 5000 afterwards.
	salary := txn("t1", 3, 15000, models.TypeCredit)
	groceries := txn("t2", 10, 300, models.TypeDebit)
	rent := txn("t3", 20, 5000, models.TypeDebit)

	periods := newAnalyzer().GroupIntoPeriods(
		[]*models.Transaction{salary, groceries, rent},
		[]*models.Transaction{salary},
	)

	require.Len(t, periods, 1)
	p := periods[0]
	assert.Equal(t, "period-1", p.PeriodID)
	assert.Equal(t, day(3), p.StartDate)
	assert.Equal(t, day(20), p.EndDate)
	assert.Len(t, p.Transactions, 3)
	assert.True(t, p.IncomeAmount.Equal(decimal.NewFromInt(15000)))
	assert.True(t, p.TotalExpenses.Equal(decimal.NewFromInt(5300)))
	assert.True(t, p.RemainingFromIncome.Equal(decimal.NewFromInt(9700)))
	// No recorded balance: first period estimates from the income amount.
	assert.True(t, p.StartingBalance.Equal(decimal.NewFromInt(15000)))
	assert.True(t, p.EndingBalance.Equal(decimal.NewFromInt(9700)))
}

func TestGroupNoIncome(t *testing.T) {
	a := txn("t1", 5, 300, models.TypeDebit)
	b := txn("t2", 12, 150, models.TypeCredit)

	periods := newAnalyzer().GroupIntoPeriods([]*models.Transaction{a, b}, nil)

	require.Len(t, periods, 1)
	p := periods[0]
	assert.Equal(t, models.PeriodNoIncome, p.PeriodID)
	assert.Len(t, p.Transactions, 2)
	assert.True(t, p.IncomeAmount.IsZero())
	assert.True(t, p.TotalExpenses.Equal(decimal.NewFromInt(300)))
}

func TestGroupPreIncomePeriod(t *testing.T) {
	early := txn("t1", 1, 200, models.TypeDebit)
	salary := txn("t2", 5, 20000, models.TypeCredit)
	later := txn("t3", 10, 400, models.TypeDebit)

	periods := newAnalyzer().GroupIntoPeriods(
		[]*models.Transaction{early, salary, later},
		[]*models.Transaction{salary},
	)

	require.Len(t, periods, 2)
	assert.Equal(t, models.PeriodPreIncome, periods[0].PeriodID)
	assert.Len(t, periods[0].Transactions, 1)
	assert.Equal(t, "period-1", periods[1].PeriodID)
	assert.Len(t, periods[1].Transactions, 2)
}

func TestGroupBalanceFallbackChain(t *testing.T) {
	recorded := decimal.NewFromInt(18000)

	salary1 := txn("t1", 1, 15000, models.TypeCredit)
	salary1.BalanceAfter = &recorded
	spend1 := txn("t2", 10, 2000, models.TypeDebit)
	salary2 := txn("t3", 31, 15000, models.TypeCredit)
	spend2 := txn("t4", 31, 1000, models.TypeDebit)

	periods := newAnalyzer().GroupIntoPeriods(
		[]*models.Transaction{salary1, spend1, salary2, spend2},
		[]*models.Transaction{salary1, salary2},
	)

	require.Len(t, periods, 2)

	// Period 1 uses the recorded balance_after.
	p1 := periods[0]
	assert.True(t, p1.StartingBalance.Equal(decimal.NewFromInt(18000)))
	assert.True(t, p1.EndingBalance.Equal(decimal.NewFromInt(16000)))

	// Period 2 has no recorded balance and inherits the previous ending
	// balance plus its income.
	p2 := periods[1]
	assert.True(t, p2.StartingBalance.Equal(decimal.NewFromInt(31000)))
}

func TestGroupPartitionProperty(t *testing.T) {
	// The union of all periods' transaction lists must equal the input set,
	// each transaction exactly once, including awkward same-date cases.
	salary1 := txn("i1", 3, 15000, models.TypeCredit)
	salary2 := txn("i2", 15, 16000, models.TypeCredit)
	all := []*models.Transaction{
		txn("t1", 1, 100, models.TypeDebit),
		salary1,
		txn("t2", 3, 50, models.TypeDebit), // same date as income 1
		txn("t3", 10, 200, models.TypeDebit),
		salary2,
		txn("t4", 15, 75, models.TypeDebit),  // same date as income 2
		txn("t5", 28, 300, models.TypeDebit), // last transaction
	}

	periods := newAnalyzer().GroupIntoPeriods(all, []*models.Transaction{salary1, salary2})

	seen := make(map[string]int)
	for _, p := range periods {
		for _, txn := range p.Transactions {
			seen[txn.TransactionID]++
		}
	}

	require.Len(t, seen, len(all))
	for _, txn := range all {
		assert.Equal(t, 1, seen[txn.TransactionID], "transaction %s", txn.TransactionID)
	}
}

func TestGroupUnparsableDateSortsEarliest(t *testing.T) {
	// A zero-time date sorts as the earliest possible, landing the
	// transaction in the pre-income period.
	undated := &models.Transaction{
		TransactionID:   "t0",
		RawDate:         "not a date",
		Description:     "undated",
		Amount:          decimal.NewFromInt(-100),
		TransactionType: models.TypeDebit,
	}
	salary := txn("t1", 5, 20000, models.TypeCredit)

	periods := newAnalyzer().GroupIntoPeriods(
		[]*models.Transaction{salary, undated},
		[]*models.Transaction{salary},
	)

	require.Len(t, periods, 2)
	assert.Equal(t, models.PeriodPreIncome, periods[0].PeriodID)
	assert.Equal(t, "t0", periods[0].Transactions[0].TransactionID)
}
