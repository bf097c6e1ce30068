package income

import (
	"context"
	"fmt"
	"strings"

	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/models"
)

const confirmSystemPrompt = "You are an expert in identifying income transactions. Always respond with valid JSON only."

// confirmResponse is one entry of the confirmation completion.
type confirmResponse struct {
	TransactionIndex int     `json:"transaction_index"`
	IsIncome         bool    `json:"is_income"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// DetectWithConfirmation runs rule-based detection and then asks the
// inference service to confirm the candidates. The rule-based path must stand
// alone: any transport or parse failure falls back to the rule-based results
// filtered at confidence 0.7.
func (d *Detector) DetectWithConfirmation(ctx context.Context, client inference.Client, transactions []*models.Transaction) []*models.Transaction {
	ruleBased := d.Detect(transactions)
	if client == nil || len(ruleBased) == 0 {
		return ruleBased
	}

	completion, err := client.Complete(ctx, inference.Request{
		SystemPrompt: confirmSystemPrompt,
		UserPrompt:   buildConfirmPrompt(ruleBased),
		Temperature:  0.1,
		MaxTokens:    2048,
	})
	if err != nil {
		d.log.WithError(err).Warn("Income confirmation call failed, using rule-based results")
		return filterByConfidence(ruleBased, 0.7)
	}

	results, err := inference.DecodeArray[confirmResponse]("income confirmation", completion)
	if err != nil {
		d.log.WithError(err).Warn("Could not parse income confirmation, using rule-based results")
		return filterByConfidence(ruleBased, 0.7)
	}

	var confirmed []*models.Transaction
	for i, txn := range ruleBased {
		if i < len(results) {
			res := results[i]
			if !res.IsIncome {
				continue
			}
			// Average the rule-based and model confidences.
			txn.IncomeConfidence = (txn.IncomeConfidence + res.Confidence) / 2
			reason := res.Reason
			if reason == "" {
				reason = "Confirmed by inference"
			}
			txn.IncomeDetectionReasons = append(txn.IncomeDetectionReasons, reason)
			confirmed = append(confirmed, txn)
		} else if txn.IncomeConfidence >= 0.7 {
			confirmed = append(confirmed, txn)
		}
	}
	return confirmed
}

func buildConfirmPrompt(candidates []*models.Transaction) string {
	var entries []string
	for i, txn := range candidates {
		entries = append(entries, fmt.Sprintf(
			"%d. Date: %s\n   Description: %s\n   Amount: %s %s\n   Type: %s\n   Rule-based confidence: %.2f",
			i+1, dateOrRaw(txn), txn.Description, txn.Magnitude().StringFixed(2), txn.Currency,
			txn.TransactionType, txn.IncomeConfidence,
		))
	}

	return fmt.Sprintf(`You are an expert in identifying income transactions from bank statements.

Analyze the following credit transactions and determine which ones are actual income (salary, freelance payments, investment returns, etc.) vs transfers, refunds, or other non-income credits.

INCOME INDICATORS:
- Salary/payroll payments (MAAŞ, SALARY, PAYROLL)
- Regular income patterns
- Large amounts from known employers
- Investment returns, dividends
- Freelance payments

NON-INCOME INDICATORS:
- Transfers from other accounts (HAVALE, EFT, TRANSFER)
- Refunds (İADE, REFUND)
- Loan disbursements (KREDİ, BORÇ)
- Reversals of previous transactions

TRANSACTIONS TO ANALYZE:
%s

OUTPUT FORMAT (JSON array):
[
  {
    "transaction_index": 1,
    "is_income": true,
    "confidence": 0.95,
    "reason": "Contains MAAŞ keyword and is a regular salary payment"
  }
]

Return ONLY the JSON array, one entry per transaction in the same order.`, strings.Join(entries, "\n"))
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

func filterByConfidence(txns []*models.Transaction, threshold float64) []*models.Transaction {
	var out []*models.Transaction
	for _, txn := range txns {
		if txn.IncomeConfidence >= threshold {
			out = append(out, txn)
		}
	}
	return out
}
