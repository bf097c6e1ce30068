package extraction

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert in extracting structured data from Turkish bank statements. Always respond with valid JSON only."

// buildPrompt assembles the extraction instruction: the raw statement data,
// an optional bank hint, Turkish locale parsing hints and the strict output
// schema the response must follow.
func buildPrompt(rawData, bankHint string) string {
	var b strings.Builder

	b.WriteString("You are an expert in extracting transaction data from Turkish bank statements.\n")
	if bankHint != "" {
		fmt.Fprintf(&b, "\nDetected Bank: %s\n", bankHint)
	}

	b.WriteString(`
Your task is to analyze the following bank statement data and extract ALL transactions in a structured JSON format.

IMPORTANT INSTRUCTIONS:
1. Extract EVERY transaction you can find in the data
2. Parse dates in DD.MM.YYYY or similar Turkish date formats
3. Identify transaction type (debit/credit) based on:
   - Amount sign (negative = debit, positive = credit)
   - Turkish keywords: "Giden" (outgoing/debit), "Gelen" (incoming/credit)
   - "Çekilen" (withdrawn/debit), "Yatan" (deposited/credit)
4. Extract amounts as numbers (remove currency symbols and thousands separators)
5. Currency is usually TRY (Turkish Lira) unless specified otherwise
6. Identify transaction channel from keywords:
   - ATM: ATM transactions
   - POS: Card payments at merchants
   - Transfer: Money transfers (Havale, Transfer, EFT)
   - Online: Online/internet banking
   - Mobile: Mobile banking
7. Generate a unique transaction_id for each transaction (can be row number or reference)
8. Keep original description in Turkish

DATA TO ANALYZE:
`)
	b.WriteString(rawData)
	b.WriteString(`

OUTPUT FORMAT (JSON):
{
  "bank_name": "Bank name from the statement",
  "account_number": "Masked account number if found (e.g., ****1234)",
  "statement_period_start": "YYYY-MM-DD or null",
  "statement_period_end": "YYYY-MM-DD or null",
  "opening_balance": number or null,
  "closing_balance": number or null,
  "currency": "TRY",
  "transactions": [
    {
      "transaction_id": "unique_id",
      "date": "YYYY-MM-DD",
      "description": "Transaction description in Turkish",
      "amount": number (negative for debit, positive for credit),
      "currency": "TRY",
      "transaction_type": "debit" or "credit",
      "balance_after": number or null,
      "reference_number": "reference if available" or null,
      "channel": "ATM" or "POS" or "Transfer" or "Online" or "Mobile" or null
    }
  ]
}

Return ONLY the JSON, no additional text or explanation.`)

	return b.String()
}
