// Package validation flags statistically implausible categorizations against
// period income and re-categorizes the flagged transactions.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
)

const recatSystemPrompt = "You are an expert in categorizing financial transactions with income context. Always respond with valid JSON only."

// Warning types produced by the validator.
const (
	WarningSpendingExceedsIncome    = "spending_exceeds_income"
	WarningCategoryExceedsThreshold = "category_exceeds_threshold"
)

// Ratios are the validation thresholds, all relative to the period's income.
type Ratios struct {
	// MaxSpending flags a period whose total expenses exceed income times
	// this ratio.
	MaxSpending float64
	// SingleTransaction flags any single debit above income times this
	// ratio.
	SingleTransaction float64
	// Category flags any category's debit total above income times this
	// ratio.
	Category float64
}

// DefaultRatios returns the production thresholds.
func DefaultRatios() Ratios {
	return Ratios{MaxSpending: 1.0, SingleTransaction: 0.5, Category: 0.3}
}

// Validator evaluates the three ratio rules per period and drives the
// re-categorization of flagged transactions.
type Validator struct {
	ratios Ratios
	client inference.Client
	log    logging.Logger
}

// NewValidator creates a validator. The client is used only for
// re-categorization; validation itself makes no inference calls.
func NewValidator(ratios Ratios, client inference.Client, logger logging.Logger) *Validator {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Validator{ratios: ratios, client: client, log: logger}
}

// ValidatePeriods evaluates every period against the ratio rules. Periods
// without income are skipped; spending plausibility is meaningless without a
// reference income.
func (v *Validator) ValidatePeriods(periods []*models.Period) *models.ValidationReport {
	v.log.WithField(logging.FieldCount, len(periods)).Info("Validating categorizations")

	report := &models.ValidationReport{}

	for _, period := range periods {
		if period.PeriodID == models.PeriodPreIncome || period.IncomeAmount.IsZero() {
			continue
		}
		v.validatePeriod(period, report)
	}

	v.log.WithFields(
		logging.Field{Key: "warnings", Value: len(report.Warnings)},
		logging.Field{Key: "suspicious", Value: len(report.SuspiciousTransactions)},
	).Info("Validation complete")
	return report
}

func (v *Validator) validatePeriod(period *models.Period, report *models.ValidationReport) {
	income := period.IncomeAmount

	// Rule 1: total spending exceeds income.
	maxSpending := income.Mul(decimal.NewFromFloat(v.ratios.MaxSpending))
	if period.TotalExpenses.GreaterThan(maxSpending) {
		report.Warnings = append(report.Warnings, models.ValidationWarning{
			Type:         WarningSpendingExceedsIncome,
			PeriodID:     period.PeriodID,
			Severity:     "high",
			IncomeAmount: income,
			Amount:       period.TotalExpenses,
			Excess:       period.TotalExpenses.Sub(income),
		})
		report.PeriodIssues = append(report.PeriodIssues, period.PeriodID)
		v.log.WithFields(
			logging.Field{Key: logging.FieldPeriodID, Value: period.PeriodID},
			logging.Field{Key: "expenses", Value: period.TotalExpenses.String()},
			logging.Field{Key: "income", Value: income.String()},
		).Warn("Spending exceeds income")
	}

	// Rule 2: oversized single debit.
	singleLimit := income.Mul(decimal.NewFromFloat(v.ratios.SingleTransaction))
	for _, txn := range period.Transactions {
		if !txn.IsDebit() {
			continue
		}
		amount := txn.Magnitude()
		if amount.GreaterThan(singleLimit) {
			ratio, _ := amount.Div(income).Float64()
			report.SuspiciousTransactions = append(report.SuspiciousTransactions, models.SuspiciousTransaction{
				TransactionID:   txn.TransactionID,
				PeriodID:        period.PeriodID,
				Amount:          amount,
				IncomeAmount:    income,
				Ratio:           ratio,
				CurrentCategory: txn.Category,
				Reason:          fmt.Sprintf("Single transaction (%s) exceeds %.0f%% of income", amount.StringFixed(2), v.ratios.SingleTransaction*100),
			})
		}
	}

	// Rule 3: oversized category total.
	categoryTotals := make(map[string]decimal.Decimal)
	for _, txn := range period.Transactions {
		if !txn.IsDebit() {
			continue
		}
		category := txn.Category
		if category == "" {
			category = models.CategoryOther
		}
		categoryTotals[category] = categoryTotals[category].Add(txn.Magnitude())
	}

	categories := make([]string, 0, len(categoryTotals))
	for category := range categoryTotals {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	categoryLimit := income.Mul(decimal.NewFromFloat(v.ratios.Category))
	for _, category := range categories {
		total := categoryTotals[category]
		if total.GreaterThan(categoryLimit) {
			ratio, _ := total.Div(income).Float64()
			report.Warnings = append(report.Warnings, models.ValidationWarning{
				Type:         WarningCategoryExceedsThreshold,
				PeriodID:     period.PeriodID,
				Severity:     "medium",
				Category:     category,
				IncomeAmount: income,
				Amount:       total,
				Ratio:        ratio,
			})
			v.log.WithFields(
				logging.Field{Key: logging.FieldPeriodID, Value: period.PeriodID},
				logging.Field{Key: logging.FieldCategory, Value: category},
				logging.Field{Key: logging.FieldAmount, Value: total.String()},
			).Warn("Category total exceeds threshold")
		}
	}
}

// recatResponse is one entry of a re-categorization completion.
type recatResponse struct {
	TransactionID string  `json:"transaction_id"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// ReCategorize re-submits the flagged transactions of one period in a single
// combined request, asking the model to reconsider whether each is really a
// transfer, refund or loan rather than a genuine expense. Results replace the
// category fields in place and set the re-categorized marker. When the
// response cannot be obtained or parsed the original categorization is kept;
// validation never discards data.
func (v *Validator) ReCategorize(ctx context.Context, period *models.Period, suspicious []models.SuspiciousTransaction) {
	if v.client == nil || len(suspicious) == 0 {
		return
	}

	byID := make(map[string]*models.Transaction, len(period.Transactions))
	for _, txn := range period.Transactions {
		byID[txn.TransactionID] = txn
	}

	var flagged []*models.Transaction
	var reasons []string
	for _, s := range suspicious {
		if txn, ok := byID[s.TransactionID]; ok {
			flagged = append(flagged, txn)
			reasons = append(reasons, s.Reason)
		}
	}
	if len(flagged) == 0 {
		return
	}

	v.log.WithFields(
		logging.Field{Key: logging.FieldPeriodID, Value: period.PeriodID},
		logging.Field{Key: logging.FieldCount, Value: len(flagged)},
	).Info("Re-categorizing suspicious transactions")

	completion, err := v.client.Complete(ctx, inference.Request{
		SystemPrompt: recatSystemPrompt,
		UserPrompt:   buildReCategorizationPrompt(period, flagged, reasons),
		Temperature:  0.1,
		MaxTokens:    4096,
	})
	if err != nil {
		v.log.WithError(err).Error("Re-categorization call failed, keeping original categories")
		return
	}

	results, err := inference.DecodeArray[recatResponse]("re-categorization", completion)
	if err != nil {
		v.log.WithError(err).Error("Could not parse re-categorization results, keeping original categories")
		return
	}

	for i, txn := range flagged {
		if i >= len(results) {
			break
		}
		res := results[i]
		if res.Category == "" || !models.IsCategory(res.Category) {
			continue
		}
		previous := txn.Category
		txn.Category = res.Category
		txn.Subcategory = res.Subcategory
		if txn.Subcategory == "" {
			txn.Subcategory = models.SubcategoryUncategorized
		}
		txn.CategoryConfidence = res.Confidence
		txn.ReCategorized = true
		txn.Reasoning = res.Reasoning
		if txn.Reasoning == "" {
			txn.Reasoning = "Re-categorized due to income context"
		}
		v.log.WithFields(
			logging.Field{Key: "transaction_id", Value: txn.TransactionID},
			logging.Field{Key: "from", Value: previous},
			logging.Field{Key: "to", Value: txn.Category},
		).Info("Re-categorized transaction")
	}
}

func buildReCategorizationPrompt(period *models.Period, flagged []*models.Transaction, reasons []string) string {
	var entries []string
	for i, txn := range flagged {
		entries = append(entries, fmt.Sprintf(
			"%d. ID: %s\nDate: %s\nDescription: %s\nAmount: %s %s\nCurrent Category: %s\nCurrent Subcategory: %s\nIssue: %s",
			i+1, txn.TransactionID, dateOrRaw(txn), txn.Description,
			txn.Magnitude().StringFixed(2), txn.Currency,
			orUnknown(txn.Category), orUnknown(txn.Subcategory), reasons[i],
		))
	}

	return fmt.Sprintf(`You are re-categorizing financial transactions that were flagged as suspicious.

CONTEXT:
- Period Income: %s TRY
- Total Expenses in Period: %s TRY
- Issue: Spending exceeds available income or single transaction is unusually large

These transactions were initially categorized, but the categorization seems unrealistic given the available income. Please re-evaluate each transaction considering:
1. The available income in this period
2. Whether the transaction might be a transfer, loan, or refund rather than an expense
3. Whether the category should be changed to better reflect the actual nature of the transaction
4. Common spending patterns (e.g., food typically doesn't exceed 30%% of income)

SUSPICIOUS TRANSACTIONS:
%s

AVAILABLE CATEGORIES:
%s
OUTPUT FORMAT (JSON array):
[
  {
    "transaction_id": "transaction_id_from_input",
    "category": "Revised Category Name",
    "subcategory": "Revised Subcategory Name",
    "confidence": 0.95,
    "reasoning": "Explanation of why this category is more appropriate given the income context"
  }
]

Return ONLY the JSON array, one entry per transaction in the same order.`,
		period.IncomeAmount.StringFixed(2), period.TotalExpenses.StringFixed(2),
		strings.Join(entries, "\n\n"), models.TaxonomyPromptList())
}

func dateOrRaw(txn *models.Transaction) string {
	if !txn.Date.IsZero() {
		return txn.Date.Format("2006-01-02")
	}
	if txn.RawDate != "" {
		return txn.RawDate
	}
	return "N/A"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
