// Package income identifies income transactions (wages, earnings) among the
// extracted transactions, separating them from transfers, refunds and other
// non-income credits.
package income

import (
	"sort"
	"strings"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/shopspring/decimal"
)

// Turkish keywords that indicate income.
var incomeKeywords = []string{
	"MAAŞ",
	"MAAŞ ÖDEMESİ",
	"MAAŞ ÖDEME",
	"SALARY",
	"PAYROLL",
	"ÜCRET",
	"GELİR",
	"HASILAT",
	"FAİZ GELİRİ",
	"DİVİDEND",
	"YATIRIM GETİRİSİ",
}

// Keywords that indicate a credit is NOT income (transfers, refunds, loans).
var nonIncomeKeywords = []string{
	"HAVALE",
	"EFT",
	"TRANSFER",
	"İADE",
	"REFUND",
	"GERİ ÖDEME",
	"BORÇ",
	"KREDİ",
}

// balanceJumpEpsilon is the rounding tolerance when matching a credit amount
// against the balance delta from the preceding transaction.
var balanceJumpEpsilon = decimal.NewFromInt(1)

// candidate is a credit under evaluation, carrying the running score of the
// rule chain.
type candidate struct {
	txn        *models.Transaction
	amount     decimal.Decimal
	confidence float64
	reasons    []string
}

// Detector scores credit transactions with an ordered rule chain. The chain
// is amount-magnitude primary, keyword secondary; rules run in a fixed,
// documented order because later rules adjust the score earlier rules set.
type Detector struct {
	minAmount decimal.Decimal
	log       logging.Logger
}

// NewDetector creates a detector with the given income floor (the minimum
// credit amount ever considered income).
func NewDetector(minAmount decimal.Decimal, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Detector{minAmount: minAmount, log: logger}
}

// Detect returns the subset of transactions identified as income, each
// annotated in place with a confidence score and the reasons behind it.
//
// Rule chain, in order:
//  1. creditFloor: only credits at or above the floor are candidates.
//  2. magnitudeBand: credits at 2x the floor score 0.80 to 0.95; the top band
//     requires a balance jump from the preceding transaction matching the
//     credit amount within one currency unit.
//  3. incomeKeyword: salary/payroll terms boost the score, capped at 0.98, or
//     start it at 0.7 when magnitude alone said nothing.
//  4. nonIncomeKeyword: transfer/refund/loan terms reduce the score, floored
//     at 0.3, unless the amount is at least 3x the floor.
//
// Final selection: candidates at or above 1.5x the median candidate amount,
// union candidates with confidence at or above 0.9.
func (d *Detector) Detect(transactions []*models.Transaction) []*models.Transaction {
	d.log.WithField(logging.FieldCount, len(transactions)).Info("Detecting income transactions")

	sorted := make([]*models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortKey().Before(sorted[j].SortKey())
	})

	var candidates []*candidate
	for _, txn := range sorted {
		c := d.score(txn, sorted)
		if c != nil {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].amount.GreaterThan(candidates[j].amount)
	})
	d.log.WithField(logging.FieldCount, len(candidates)).Info("Found income candidates")

	confirmed := d.selectIncome(candidates)

	for _, c := range confirmed {
		c.txn.IncomeConfidence = c.confidence
		c.txn.IncomeDetectionReasons = c.reasons
	}

	out := make([]*models.Transaction, len(confirmed))
	for i, c := range confirmed {
		out[i] = c.txn
	}
	d.log.WithField(logging.FieldCount, len(out)).Info("Confirmed income transactions")
	return out
}

// score runs the rule chain for one transaction, returning nil when it is not
// an income candidate.
func (d *Detector) score(txn *models.Transaction, sorted []*models.Transaction) *candidate {
	// Rule 1: creditFloor.
	if !txn.IsCredit() {
		return nil
	}
	amount := txn.Magnitude()
	if amount.LessThan(d.minAmount) {
		return nil
	}

	c := &candidate{txn: txn, amount: amount}
	description := strings.ToUpper(txn.Description)

	// Rule 2: magnitudeBand.
	if amount.GreaterThanOrEqual(d.minAmount.Mul(decimal.NewFromInt(2))) {
		switch {
		case d.hasMatchingBalanceJump(txn, sorted):
			c.confidence = 0.95
			c.reasons = append(c.reasons, "Large credit with matching balance increase")
		case txn.BalanceAfter != nil:
			c.confidence = 0.85
			c.reasons = append(c.reasons, "Large credit")
		default:
			c.confidence = 0.80
			c.reasons = append(c.reasons, "Large credit")
		}
	}

	hasIncome := containsAny(description, incomeKeywords)
	hasNonIncome := containsAny(description, nonIncomeKeywords)

	// Rule 3: incomeKeyword.
	if hasIncome && !hasNonIncome {
		if c.confidence > 0 {
			c.confidence = min(0.98, c.confidence+0.1)
			c.reasons = append(c.reasons, "Also contains income keyword")
		} else {
			c.confidence = 0.7
			c.reasons = append(c.reasons, "Contains income keyword")
		}
	}

	// Rule 4: nonIncomeKeyword. Very large credits (3x the floor) keep their
	// magnitude-based score even with transfer wording.
	if hasNonIncome && amount.LessThan(d.minAmount.Mul(decimal.NewFromInt(3))) {
		c.confidence = max(0.3, c.confidence-0.2)
		c.reasons = append(c.reasons, "Contains non-income keywords")
	}

	if c.confidence <= 0 {
		return nil
	}
	return c
}

// hasMatchingBalanceJump reports whether the balance delta from the latest
// preceding transaction equals the credit amount within the epsilon.
func (d *Detector) hasMatchingBalanceJump(txn *models.Transaction, sorted []*models.Transaction) bool {
	if txn.BalanceAfter == nil {
		return false
	}

	var prev *models.Transaction
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].SortKey().Before(txn.SortKey()) {
			prev = sorted[i]
			break
		}
	}
	if prev == nil || prev.BalanceAfter == nil {
		return false
	}

	increase := txn.BalanceAfter.Sub(*prev.BalanceAfter)
	return increase.Sub(txn.Magnitude()).Abs().LessThan(balanceJumpEpsilon)
}

// selectIncome applies the outlier threshold: income is typically much larger
// than the other candidate credits.
func (d *Detector) selectIncome(candidates []*candidate) []*candidate {
	if len(candidates) == 0 {
		return nil
	}

	threshold := d.minAmount
	if len(candidates) > 1 {
		// Candidates are sorted by amount descending; the median of that
		// ordering scaled by 1.5 separates income from ordinary credits.
		median := candidates[len(candidates)/2].amount
		threshold = median.Mul(decimal.NewFromFloat(1.5))
	}

	var confirmed []*candidate
	for _, c := range candidates {
		if c.amount.GreaterThanOrEqual(threshold) || c.confidence >= 0.9 {
			confirmed = append(confirmed, c)
		}
	}
	return confirmed
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
