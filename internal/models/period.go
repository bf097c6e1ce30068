package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved period identifiers. Income-anchored periods are named
// "period-1", "period-2", ... in income-event order.
const (
	PeriodPreIncome = "pre-income"
	PeriodNoIncome  = "no-income"
)

// Period is a contiguous time window anchored by zero or one income event.
// Periods partition the statement's transaction set: every transaction belongs
// to exactly one period. They are recomputed wholesale on each run.
type Period struct {
	PeriodID          string          `json:"period_id"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	IncomeAmount      decimal.Decimal `json:"income_amount"`
	IncomeTransaction *Transaction    `json:"income_transaction,omitempty"`
	StartingBalance   decimal.Decimal `json:"starting_balance"`
	EndingBalance     decimal.Decimal `json:"ending_balance"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	OtherCredits      decimal.Decimal `json:"other_credits"`
	// RemainingFromIncome is income minus expenses, independent of balance
	// tracking. It diverges from EndingBalance when the opening balance is
	// nonzero.
	RemainingFromIncome decimal.Decimal `json:"remaining_from_income"`
	Transactions        []*Transaction  `json:"transactions"`
}

// PeriodName returns the identifier of the n-th income-anchored period
// (1-indexed).
func PeriodName(n int) string {
	return fmt.Sprintf("period-%d", n)
}

// HasIncome reports whether the period is anchored on an income event.
func (p *Period) HasIncome() bool {
	return p.IncomeTransaction != nil
}
