package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "1234.56", "1234.56"},
		{"turkish decimal comma", "1234,56", "1234.56"},
		{"turkish thousands", "1.234,56", "1234.56"},
		{"us thousands", "1,234.56", "1234.56"},
		{"negative turkish", "-1.234,56", "-1234.56"},
		{"currency suffix", "1.234,56 TL", "1234.56"},
		{"currency symbol", "₺1.234,56", "1234.56"},
		{"try suffix", "500,00 TRY", "500"},
		{"integer", "15000", "15000"},
		{"garbage", "abc", "0"},
		{"empty", "", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestNormalizeSign(t *testing.T) {
	debit := &Transaction{Amount: decimal.NewFromInt(300), TransactionType: TypeDebit}
	debit.NormalizeSign()
	assert.True(t, debit.Amount.Equal(decimal.NewFromInt(-300)))

	// Already-negative debits stay negative.
	debit.NormalizeSign()
	assert.True(t, debit.Amount.Equal(decimal.NewFromInt(-300)))

	credit := &Transaction{Amount: decimal.NewFromInt(-15000), TransactionType: TypeCredit}
	credit.NormalizeSign()
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(15000)))
}

func TestMagnitude(t *testing.T) {
	txn := &Transaction{Amount: decimal.NewFromInt(-300)}
	assert.True(t, txn.Magnitude().Equal(decimal.NewFromInt(300)))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, CurrencyTRY, NormalizeCurrency("TRY"))
	assert.Equal(t, CurrencyTRY, NormalizeCurrency("tl"))
	assert.Equal(t, CurrencyTRY, NormalizeCurrency(""))
	assert.Equal(t, CurrencyUSD, NormalizeCurrency(" usd "))
	assert.Equal(t, CurrencyOther, NormalizeCurrency("JPY"))
}
