// Package models provides the data structures shared across the extraction
// pipeline: transactions, periods, statement extractions and the category
// taxonomy.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TypeDebit  TransactionType = "debit"
	TypeCredit TransactionType = "credit"
)

// Currency is the statement currency. Turkish statements default to TRY.
type Currency string

const (
	CurrencyTRY   Currency = "TRY"
	CurrencyUSD   Currency = "USD"
	CurrencyEUR   Currency = "EUR"
	CurrencyGBP   Currency = "GBP"
	CurrencyOther Currency = "OTHER"
)

// NormalizeCurrency maps an arbitrary currency string onto the supported set.
func NormalizeCurrency(s string) Currency {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "TRY", "TL":
		return CurrencyTRY
	case "USD":
		return CurrencyUSD
	case "EUR":
		return CurrencyEUR
	case "GBP":
		return CurrencyGBP
	default:
		return CurrencyOther
	}
}

// Transaction channels as they appear on Turkish statements.
const (
	ChannelATM      = "ATM"
	ChannelPOS      = "POS"
	ChannelTransfer = "Transfer"
	ChannelOnline   = "Online"
	ChannelMobile   = "Mobile"
	ChannelBranch   = "Branch"
	ChannelCheck    = "Check"
	ChannelOther    = "Other"
)

// Transaction is the canonical unit of the pipeline. It is created by the
// extraction engine and enriched in place by the income detector, period
// analyzer, categorization engine and validator. Amounts are stored signed:
// debits are negative, credits positive; TransactionType stays authoritative
// for direction.
type Transaction struct {
	TransactionID   string          `json:"transaction_id"`
	Date            time.Time       `json:"date"`
	RawDate         string          `json:"raw_date,omitempty"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        Currency        `json:"currency"`
	TransactionType TransactionType `json:"transaction_type"`
	BalanceAfter    *decimal.Decimal `json:"balance_after,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Channel         string          `json:"channel,omitempty"`
	BankName        string          `json:"bank_name,omitempty"`
	AccountNumber   string          `json:"account_number,omitempty"`

	// Filled by the income detector.
	IncomeConfidence       float64  `json:"income_confidence,omitempty"`
	IncomeDetectionReasons []string `json:"income_detection_reasons,omitempty"`

	// Filled by the categorization engine and validator.
	Category           string   `json:"category,omitempty"`
	Subcategory        string   `json:"subcategory,omitempty"`
	CategoryConfidence float64  `json:"category_confidence,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	ReCategorized      bool     `json:"re_categorized,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// IsDebit reports whether the transaction is a debit (outgoing money).
func (t *Transaction) IsDebit() bool {
	return t.TransactionType == TypeDebit
}

// IsCredit reports whether the transaction is a credit (incoming money).
func (t *Transaction) IsCredit() bool {
	return t.TransactionType == TypeCredit
}

// Magnitude returns the absolute amount regardless of sign convention.
func (t *Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// NormalizeSign rewrites Amount so debits are negative and credits positive.
// The extraction engine calls this once at the model boundary so downstream
// stages never have to guess the sign convention.
func (t *Transaction) NormalizeSign() {
	switch t.TransactionType {
	case TypeDebit:
		t.Amount = t.Amount.Abs().Neg()
	case TypeCredit:
		t.Amount = t.Amount.Abs()
	}
}

// SortKey returns the timestamp used for chronological ordering. Transactions
// with unparsable dates carry a zero time, which sorts them earliest. That is
// a deliberate tie-break, matching the epoch-min sentinel of the data model.
func (t *Transaction) SortKey() time.Time {
	return t.Date
}

// ParseAmount parses a statement amount string into a decimal, tolerating
// currency symbols, thousands separators and Turkish decimal commas.
func ParseAmount(amountStr string) decimal.Decimal {
	amount := strings.TrimSpace(amountStr)
	for _, sym := range []string{"TRY", "TL", "USD", "EUR", "GBP", "₺", "$", "€", "£", " "} {
		amount = strings.ReplaceAll(amount, sym, "")
	}
	// 1.234,56 (Turkish) vs 1,234.56 (US): if both separators appear, the last
	// one is the decimal separator.
	dot := strings.LastIndex(amount, ".")
	comma := strings.LastIndex(amount, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		amount = strings.ReplaceAll(amount, ".", "")
		amount = strings.Replace(amount, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		amount = strings.ReplaceAll(amount, ",", "")
	case comma >= 0:
		amount = strings.Replace(amount, ",", ".", 1)
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return dec
}
