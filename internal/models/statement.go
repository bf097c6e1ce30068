package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionMetadata describes how a statement extraction was produced.
type ExtractionMetadata struct {
	ExtractedAt      time.Time `json:"extracted_at"`
	Provider         string    `json:"ai_provider"`
	Model            string    `json:"ai_model"`
	TransactionCount int       `json:"transaction_count"`
	BatchProcessing  bool      `json:"batch_processing,omitempty"`
	TotalChunks      int       `json:"total_chunks,omitempty"`
	ChunkSize        int       `json:"chunk_size,omitempty"`
	// PartialFailure is set when one or more chunks failed during batch
	// extraction. Transactions from failed chunks are missing from the result.
	PartialFailure bool `json:"partial_failure,omitempty"`
	FailedChunks   int  `json:"failed_chunks,omitempty"`
}

// StatementExtraction is the output of the extraction engine for one
// statement file.
type StatementExtraction struct {
	BankName             string             `json:"bank_name"`
	AccountNumber        string             `json:"account_number,omitempty"`
	StatementPeriodStart time.Time          `json:"statement_period_start,omitempty"`
	StatementPeriodEnd   time.Time          `json:"statement_period_end,omitempty"`
	OpeningBalance       *decimal.Decimal   `json:"opening_balance,omitempty"`
	ClosingBalance       *decimal.Decimal   `json:"closing_balance,omitempty"`
	Currency             Currency           `json:"currency"`
	Transactions         []*Transaction     `json:"transactions"`
	Metadata             ExtractionMetadata `json:"extraction_metadata"`
}

// BankMatch is the per-bank match detail of a detection run.
type BankMatch struct {
	Bank       string   `json:"bank"`
	MatchCount int      `json:"match_count"`
	Patterns   []string `json:"patterns"`
}

// BankDetection is the result of pattern-matching statement text against the
// known institution signatures. Confidence is the best bank's share of all
// pattern matches, not a calibrated probability.
type BankDetection struct {
	Bank       string      `json:"bank"`
	Confidence float64     `json:"confidence"`
	Matches    []BankMatch `json:"matches"`
}
