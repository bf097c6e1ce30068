// Package periods partitions the transaction timeline into financial periods
// anchored on income events.
package periods

import (
	"sort"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
)

// Analyzer groups transactions into periods. Grouping is a pure function of
// its inputs; it is re-run wholesale on every pipeline run.
type Analyzer struct {
	log logging.Logger
}

// NewAnalyzer creates a period analyzer.
func NewAnalyzer(logger logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Analyzer{log: logger}
}

// GroupIntoPeriods partitions all transactions into periods anchored on the
// given income events.
//
// With no income events the whole timeline becomes a single "no-income"
// period. Otherwise transactions dated strictly before the first income form
// a "pre-income" period, and each income event i opens "period-i" running
// from its date to the next income date (exclusive), or to the last
// transaction for the final income.
//
// Starting balance of period i follows a fixed fallback chain: the income
// transaction's recorded balance_after; else the previous period's ending
// balance plus this income's amount; else (first period, no recorded balance)
// the income amount itself as an estimate. The chain order is load-bearing
// for historical balance estimates and must not be reordered.
func (a *Analyzer) GroupIntoPeriods(transactions, incomeTransactions []*models.Transaction) []*models.Period {
	a.log.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(transactions)},
		logging.Field{Key: "income_events", Value: len(incomeTransactions)},
	).Info("Grouping transactions into periods")

	sorted := sortByDate(transactions)
	income := sortByDate(incomeTransactions)

	if len(income) == 0 {
		a.log.Warn("No income transactions detected, creating single period")
		return []*models.Period{catchAllPeriod(models.PeriodNoIncome, sorted)}
	}

	var periods []*models.Period

	// Partition pass: every transaction lands in exactly one bucket. Income
	// transactions anchor their own periods; everything else is assigned to
	// the pre-income bucket or to the latest income event at or before its
	// date.
	incomeSet := make(map[*models.Transaction]bool, len(income))
	for _, txn := range income {
		incomeSet[txn] = true
	}

	firstIncomeDate := income[0].SortKey()
	var preIncome []*models.Transaction
	buckets := make([][]*models.Transaction, len(income))
	for _, txn := range sorted {
		if incomeSet[txn] {
			continue
		}
		when := txn.SortKey()
		if when.Before(firstIncomeDate) {
			preIncome = append(preIncome, txn)
			continue
		}
		idx := 0
		for j := len(income) - 1; j >= 0; j-- {
			if !when.Before(income[j].SortKey()) {
				idx = j
				break
			}
		}
		buckets[idx] = append(buckets[idx], txn)
	}

	if len(preIncome) > 0 {
		periods = append(periods, catchAllPeriod(models.PeriodPreIncome, preIncome))
		a.log.WithField(logging.FieldCount, len(preIncome)).Info("Created pre-income period")
	}

	for i, incomeTxn := range income {
		incomeDate := incomeTxn.SortKey()
		incomeAmount := incomeTxn.Magnitude()

		periodEnd := incomeDate
		if i+1 < len(income) {
			periodEnd = income[i+1].SortKey()
		} else if len(sorted) > 0 {
			periodEnd = sorted[len(sorted)-1].SortKey()
		}

		periodTxns := buckets[i]

		totalExpenses := decimal.Zero
		otherCredits := decimal.Zero
		for _, txn := range periodTxns {
			switch {
			case txn.IsDebit():
				totalExpenses = totalExpenses.Add(txn.Magnitude())
			case txn.IsCredit():
				otherCredits = otherCredits.Add(txn.Magnitude())
			}
		}

		// Balance fallback chain.
		var startingBalance decimal.Decimal
		switch {
		case incomeTxn.BalanceAfter != nil:
			startingBalance = *incomeTxn.BalanceAfter
		case i > 0 && len(periods) > 0:
			startingBalance = periods[len(periods)-1].EndingBalance.Add(incomeAmount)
		default:
			startingBalance = incomeAmount
		}

		endingBalance := startingBalance.Sub(totalExpenses).Add(otherCredits)
		remaining := incomeAmount.Sub(totalExpenses)

		all := append([]*models.Transaction{incomeTxn}, periodTxns...)
		all = sortByDate(all)

		period := &models.Period{
			PeriodID:            models.PeriodName(i + 1),
			StartDate:           incomeDate,
			EndDate:             periodEnd,
			IncomeAmount:        incomeAmount,
			IncomeTransaction:   incomeTxn,
			StartingBalance:     startingBalance,
			EndingBalance:       endingBalance,
			TotalExpenses:       totalExpenses,
			OtherCredits:        otherCredits,
			RemainingFromIncome: remaining,
			Transactions:        all,
		}
		periods = append(periods, period)

		a.log.WithFields(
			logging.Field{Key: logging.FieldPeriodID, Value: period.PeriodID},
			logging.Field{Key: logging.FieldCount, Value: len(all)},
			logging.Field{Key: logging.FieldAmount, Value: incomeAmount.String()},
			logging.Field{Key: "expenses", Value: totalExpenses.String()},
		).Info("Created period")
	}

	return periods
}

// catchAllPeriod builds a period with no income anchor over the given
// transactions.
func catchAllPeriod(id string, txns []*models.Transaction) *models.Period {
	p := &models.Period{
		PeriodID:     id,
		Transactions: txns,
	}
	if len(txns) > 0 {
		p.StartDate = txns[0].SortKey()
		p.EndDate = txns[len(txns)-1].SortKey()
	}
	for _, txn := range txns {
		switch {
		case txn.IsDebit():
			p.TotalExpenses = p.TotalExpenses.Add(txn.Magnitude())
		case txn.IsCredit():
			p.OtherCredits = p.OtherCredits.Add(txn.Magnitude())
		}
	}
	return p
}

func sortByDate(txns []*models.Transaction) []*models.Transaction {
	out := make([]*models.Transaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey().Before(out[j].SortKey())
	})
	return out
}
