package categorization

import (
	"fmt"
	"strings"

	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
)

const systemPrompt = "You are an expert in categorizing financial transactions. Always respond with valid JSON only."

// PeriodContext carries the income context a batch prompt embeds so the model
// can judge spending plausibility relative to available income.
type PeriodContext struct {
	PeriodID     string
	IncomeAmount decimal.Decimal
	// ExpensesSoFar is the debit total booked in prior batches of the same
	// period, updated by the engine as batches complete.
	ExpensesSoFar decimal.Decimal
}

func buildPrompt(transactions []*models.Transaction, ctx *PeriodContext) string {
	var entries []string
	for i, txn := range transactions {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. Date: %s\n", i+1, dateOrRaw(txn))
		fmt.Fprintf(&b, "   ID: %s\n", txn.TransactionID)
		fmt.Fprintf(&b, "   Description: %s\n", txn.Description)
		fmt.Fprintf(&b, "   Amount: %s %s\n", txn.Amount.StringFixed(2), txn.Currency)
		fmt.Fprintf(&b, "   Type: %s\n", txn.TransactionType)
		if txn.Channel != "" {
			fmt.Fprintf(&b, "   Channel: %s\n", txn.Channel)
		}
		entries = append(entries, b.String())
	}

	contextInfo := ""
	if ctx != nil {
		remaining := ctx.IncomeAmount.Sub(ctx.ExpensesSoFar)
		contextInfo = fmt.Sprintf(`
PERIOD CONTEXT:
- Period ID: %s
- Income for this period: %s TRY
- Expenses so far in this period: %s TRY
- Remaining balance: %s TRY

IMPORTANT: When categorizing, consider the available income. Spending should be realistic relative to the income amount.
`, ctx.PeriodID, ctx.IncomeAmount.StringFixed(2), ctx.ExpensesSoFar.StringFixed(2), remaining.StringFixed(2))
	}

	return fmt.Sprintf(`You are an expert in categorizing financial transactions for personal finance analysis.

Your task is to categorize each transaction into the most appropriate category and subcategory based on the transaction description, amount, and context.
%s
AVAILABLE CATEGORIES AND SUBCATEGORIES:
%s
INSTRUCTIONS:
1. Analyze each transaction's description carefully
2. Consider Turkish language keywords and merchant names
3. For Turkish transactions, look for:
   - "MARKET", "SÜPERMARKET", "MIGROS", "A101", "BIM" → Food & Dining > Groceries
   - "RESTORAN", "CAFE", "KAHVE" → Food & Dining > Restaurants or Coffee & Beverages
   - "AKARYAKIT", "BENZIN", "PETROL" → Transportation > Gas & Fuel
   - "ELEKTRİK", "SU", "DOĞALGAZ" → Bills & Utilities
   - "HASTANE", "ECZANE", "DOKTOR" → Healthcare
   - "KART KOMİSYONU", "BANKA ÜCRETİ" → Financial > Bank Fees
   - "MAAŞ", "MAAŞ ÖDEMESİ" → Income > Salary
   - "HAVALE", "EFT", "TRANSFER" → Transfers
4. Use context clues from merchant names and transaction channels
5. For POS transactions, infer category from merchant name
6. For transfers, determine if it's income, payment, or internal transfer
7. If uncertain, choose the most likely category

TRANSACTIONS TO CATEGORIZE:
%s

OUTPUT FORMAT (JSON array):
[
  {
    "transaction_id": "transaction_id_from_input",
    "category": "Category Name",
    "subcategory": "Subcategory Name",
    "confidence": 0.95,
    "tags": ["tag1", "tag2"]
  }
]

Return ONLY the JSON array, no additional text or explanation. Ensure the array has exactly %d items, one for each transaction.`,
		contextInfo, models.TaxonomyPromptList(), strings.Join(entries, "\n"), len(transactions))
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
