package pipeline

import (
	"sort"

	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
)

// BuildPeriodSummary derives the read-only period view from the final period
// list.
func BuildPeriodSummary(periods []*models.Period) *models.PeriodSummary {
	summary := &models.PeriodSummary{
		TotalPeriods: len(periods),
	}
	for _, p := range periods {
		summary.TotalIncome = summary.TotalIncome.Add(p.IncomeAmount)
		summary.TotalExpenses = summary.TotalExpenses.Add(p.TotalExpenses)
		summary.Periods = append(summary.Periods, models.PeriodBreakdown{
			PeriodID:            p.PeriodID,
			StartDate:           p.StartDate,
			EndDate:             p.EndDate,
			IncomeAmount:        p.IncomeAmount,
			TotalExpenses:       p.TotalExpenses,
			RemainingFromIncome: p.RemainingFromIncome,
			TransactionCount:    len(p.Transactions),
		})
	}
	return summary
}

// BuildCategorizationSummary derives the read-only category view from the
// final transaction list. Categories are sorted by amount descending.
func BuildCategorizationSummary(transactions []*models.Transaction) *models.CategorizationSummary {
	summary := &models.CategorizationSummary{}

	counts := make(map[string]int)
	amounts := make(map[string]decimal.Decimal)
	for _, txn := range transactions {
		category := txn.Category
		if category == "" {
			category = models.CategoryOther
		}
		counts[category]++
		amounts[category] = amounts[category].Add(txn.Magnitude())

		switch {
		case txn.IsDebit():
			summary.TotalDebits = summary.TotalDebits.Add(txn.Magnitude())
		case txn.IsCredit():
			summary.TotalCredits = summary.TotalCredits.Add(txn.Magnitude())
		}
	}

	for category, count := range counts {
		summary.Categories = append(summary.Categories, models.CategoryTotal{
			Category: category,
			Count:    count,
			Amount:   amounts[category],
		})
	}
	sort.SliceStable(summary.Categories, func(i, j int) bool {
		if summary.Categories[i].Amount.Equal(summary.Categories[j].Amount) {
			return summary.Categories[i].Category < summary.Categories[j].Category
		}
		return summary.Categories[i].Amount.GreaterThan(summary.Categories[j].Amount)
	})
	return summary
}
