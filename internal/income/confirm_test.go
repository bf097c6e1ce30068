package income

import (
	"context"
	"errors"
	"testing"

	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (c *stubClient) Complete(context.Context, inference.Request) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func TestDetectWithConfirmationMergesConfidence(t *testing.T) {
	d := newDetector()
	txns := []*models.Transaction{credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")}

	ruleOnly := d.Detect([]*models.Transaction{credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")})
	require.Len(t, ruleOnly, 1)
	ruleConfidence := ruleOnly[0].IncomeConfidence

	client := &stubClient{response: `[{"transaction_index": 1, "is_income": true, "confidence": 0.99, "reason": "Salary payment"}]`}
	confirmed := d.DetectWithConfirmation(context.Background(), client, txns)

	require.Len(t, confirmed, 1)
	assert.InDelta(t, (ruleConfidence+0.99)/2, confirmed[0].IncomeConfidence, 0.001)
	assert.Contains(t, confirmed[0].IncomeDetectionReasons, "Salary payment")
}

func TestDetectWithConfirmationRejection(t *testing.T) {
	d := newDetector()
	txns := []*models.Transaction{credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")}

	client := &stubClient{response: `[{"transaction_index": 1, "is_income": false, "confidence": 0.9, "reason": "Loan disbursement"}]`}
	confirmed := d.DetectWithConfirmation(context.Background(), client, txns)

	assert.Empty(t, confirmed)
}

func TestDetectWithConfirmationTransportFallback(t *testing.T) {
	// On a failed call the rule-based results stand, filtered at 0.7.
	d := newDetector()
	strong := credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")

	client := &stubClient{err: errors.New("timeout")}
	confirmed := d.DetectWithConfirmation(context.Background(), client, []*models.Transaction{strong})

	require.Len(t, confirmed, 1)
	assert.GreaterOrEqual(t, confirmed[0].IncomeConfidence, 0.7)
}

func TestDetectWithConfirmationParseFallback(t *testing.T) {
	d := newDetector()
	txns := []*models.Transaction{credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")}

	client := &stubClient{response: "I could not analyze these transactions"}
	confirmed := d.DetectWithConfirmation(context.Background(), client, txns)

	require.Len(t, confirmed, 1)
	assert.GreaterOrEqual(t, confirmed[0].IncomeConfidence, 0.7)
}

func TestDetectWithConfirmationNilClient(t *testing.T) {
	d := newDetector()
	txns := []*models.Transaction{credit("t1", 3, 15000, "ACME LTD MAAŞ ÖDEMESİ")}

	confirmed := d.DetectWithConfirmation(context.Background(), nil, txns)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "t1", confirmed[0].TransactionID)
}
