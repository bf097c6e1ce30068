package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodBreakdown is the per-period slice of a PeriodSummary.
type PeriodBreakdown struct {
	PeriodID            string          `json:"period_id"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	IncomeAmount        decimal.Decimal `json:"income_amount"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	RemainingFromIncome decimal.Decimal `json:"remaining_from_income"`
	TransactionCount    int             `json:"transaction_count"`
}

// PeriodSummary is a derived, read-only view over the final period list,
// suitable for direct exposure to reporting collaborators.
type PeriodSummary struct {
	TotalPeriods  int               `json:"total_periods"`
	TotalIncome   decimal.Decimal   `json:"total_income"`
	TotalExpenses decimal.Decimal   `json:"total_expenses"`
	Periods       []PeriodBreakdown `json:"periods"`
}

// CategoryTotal aggregates one category's transactions.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategorizationSummary is a derived, read-only view over the final
// transaction list.
type CategorizationSummary struct {
	Categories   []CategoryTotal `json:"categories"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}

// ValidationWarning is a data-quality finding from the categorization
// validator. Warnings never block pipeline completion.
type ValidationWarning struct {
	Type          string          `json:"type"`
	PeriodID      string          `json:"period_id"`
	Severity      string          `json:"severity"`
	Category      string          `json:"category,omitempty"`
	IncomeAmount  decimal.Decimal `json:"income_amount"`
	Amount        decimal.Decimal `json:"amount"`
	Excess        decimal.Decimal `json:"excess,omitempty"`
	Ratio         float64         `json:"ratio,omitempty"`
}

// SuspiciousTransaction flags a single transaction as implausible given its
// period's income context, eligible for re-categorization.
type SuspiciousTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	PeriodID        string          `json:"period_id"`
	Amount          decimal.Decimal `json:"amount"`
	IncomeAmount    decimal.Decimal `json:"income_amount"`
	Ratio           float64         `json:"ratio"`
	CurrentCategory string          `json:"current_category"`
	Reason          string          `json:"reason"`
}

// ValidationReport is the validator's output for one run.
type ValidationReport struct {
	Warnings               []ValidationWarning     `json:"warnings"`
	SuspiciousTransactions []SuspiciousTransaction `json:"suspicious_transactions"`
	PeriodIssues           []string                `json:"period_issues,omitempty"`
}
