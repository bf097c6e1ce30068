// Package extraction turns raw statement text or row records into a
// normalized transaction list through prompted inference calls, batching
// large inputs and repairing malformed JSON responses.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"hesapp/extractor/internal/dateutils"
	"hesapp/extractor/internal/fileextract"
	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options tunes the engine. Zero values fall back to the defaults used in
// production config.
type Options struct {
	Temperature    float32
	MaxTokens      int32
	BatchThreshold int
	Policy         inference.BatchPolicy
}

// Engine is the extraction stage. It is safe to reuse across statements but
// not for concurrent runs.
type Engine struct {
	client inference.Client
	opts   Options
	log    logging.Logger
}

// NewEngine creates an extraction engine over the given inference client.
func NewEngine(client inference.Client, opts Options, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 4096
	}
	if opts.BatchThreshold == 0 {
		opts.BatchThreshold = 50
	}
	if opts.Policy.Size == 0 {
		opts.Policy = inference.NewBatchPolicy(30, 2500*time.Millisecond)
	}
	return &Engine{client: client, opts: opts, log: logger}
}

// statementResponse is the wire shape of an extraction completion. Amounts
// and balances arrive as JSON numbers; dates as strings in whatever form the
// model produced.
type statementResponse struct {
	BankName             string                `json:"bank_name"`
	AccountNumber        string                `json:"account_number"`
	StatementPeriodStart string                `json:"statement_period_start"`
	StatementPeriodEnd   string                `json:"statement_period_end"`
	OpeningBalance       *json.Number          `json:"opening_balance"`
	ClosingBalance       *json.Number          `json:"closing_balance"`
	Currency             string                `json:"currency"`
	Transactions         []transactionResponse `json:"transactions"`
}

type transactionResponse struct {
	TransactionID   string       `json:"transaction_id"`
	Date            string       `json:"date"`
	Description     string       `json:"description"`
	Amount          json.Number  `json:"amount"`
	Currency        string       `json:"currency"`
	TransactionType string       `json:"transaction_type"`
	BalanceAfter    *json.Number `json:"balance_after"`
	ReferenceNumber string       `json:"reference_number"`
	Channel         string       `json:"channel"`
}

// Extract runs the extraction stage over a structured file. Batch mode kicks
// in automatically when the file's row-record count exceeds the threshold;
// otherwise the whole raw text goes out in a single completion, whose failure
// aborts the extraction.
func (e *Engine) Extract(ctx context.Context, file *fileextract.StructuredFile, bankHint string) (*models.StatementExtraction, error) {
	if len(file.Records) > e.opts.BatchThreshold {
		return e.extractBatch(ctx, file.Records, bankHint)
	}
	return e.extractSingle(ctx, file.RawText, bankHint)
}

func (e *Engine) extractSingle(ctx context.Context, rawData, bankHint string) (*models.StatementExtraction, error) {
	e.log.WithField(logging.FieldBank, bankHint).Info("Starting transaction extraction")

	resp, err := e.completeChunk(ctx, rawData, bankHint)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	result := e.toExtraction(resp)
	result.Metadata = e.newMetadata(len(result.Transactions))

	e.log.WithField(logging.FieldCount, len(result.Transactions)).Info("Extraction complete")
	return result, nil
}

// extractBatch splits the records into fixed-size chunks and extracts each
// independently. Bank, account, period start and currency come from the first
// chunk; period end and closing balance from the last. A failed chunk is
// logged and skipped, and the result is marked as a partial failure; the
// mandatory inter-chunk pause elapses after failures too.
func (e *Engine) extractBatch(ctx context.Context, records []fileextract.Record, bankHint string) (*models.StatementExtraction, error) {
	chunks := e.opts.Policy.Chunks(len(records))
	totalChunks := len(chunks)

	e.log.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(records)},
		logging.Field{Key: "chunks", Value: totalChunks},
		logging.Field{Key: "chunk_size", Value: e.opts.Policy.Size},
	).Info("Starting batch extraction")

	combined := &models.StatementExtraction{
		BankName: bankHint,
		Currency: models.CurrencyTRY,
	}
	var all []*models.Transaction
	failed := 0

	for i, bounds := range chunks {
		chunkIdx := i + 1
		chunk := records[bounds[0]:bounds[1]]
		chunkText := formatRecordsAsText(chunk)

		log := e.log.WithFields(
			logging.Field{Key: logging.FieldChunk, Value: chunkIdx},
			logging.Field{Key: "total_chunks", Value: totalChunks},
		)
		log.Info("Processing chunk")

		resp, err := e.completeChunk(ctx, chunkText, bankHint)
		if err != nil {
			failed++
			log.WithError(err).Error("Chunk extraction failed, skipping")
			if chunkIdx < totalChunks {
				e.opts.Policy.Pause(ctx)
			}
			continue
		}

		chunkResult := e.toExtraction(resp)
		all = append(all, chunkResult.Transactions...)
		log.WithField(logging.FieldCount, len(chunkResult.Transactions)).Info("Chunk extracted")

		if chunkIdx == 1 {
			if chunkResult.BankName != "" {
				combined.BankName = chunkResult.BankName
			}
			combined.AccountNumber = chunkResult.AccountNumber
			combined.StatementPeriodStart = chunkResult.StatementPeriodStart
			combined.Currency = chunkResult.Currency
		}
		if chunkIdx == totalChunks {
			combined.StatementPeriodEnd = chunkResult.StatementPeriodEnd
			combined.ClosingBalance = chunkResult.ClosingBalance
		}

		if chunkIdx < totalChunks {
			e.opts.Policy.Pause(ctx)
		}
	}

	combined.Transactions = all
	combined.Metadata = e.newMetadata(len(all))
	combined.Metadata.BatchProcessing = true
	combined.Metadata.TotalChunks = totalChunks
	combined.Metadata.ChunkSize = e.opts.Policy.Size
	if failed > 0 {
		combined.Metadata.PartialFailure = true
		combined.Metadata.FailedChunks = failed
		e.log.WithFields(
			logging.Field{Key: "failed_chunks", Value: failed},
			logging.Field{Key: "total_chunks", Value: totalChunks},
		).Warn("Batch extraction completed with failed chunks; their transactions are missing")
	}

	e.log.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(all)},
		logging.Field{Key: "chunks", Value: totalChunks},
	).Info("Batch extraction complete")

	return combined, nil
}

// completeChunk performs one inference round trip and decodes the response
// through the JSON repair chain.
func (e *Engine) completeChunk(ctx context.Context, rawData, bankHint string) (*statementResponse, error) {
	completion, err := e.client.Complete(ctx, inference.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(rawData, bankHint),
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	resp, err := inference.DecodeObject[statementResponse]("extraction", completion)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// toExtraction converts a wire response into the canonical model, normalizing
// signs, currencies and dates at the boundary.
func (e *Engine) toExtraction(resp *statementResponse) *models.StatementExtraction {
	out := &models.StatementExtraction{
		BankName:      strings.TrimSpace(resp.BankName),
		AccountNumber: strings.TrimSpace(resp.AccountNumber),
		Currency:      models.NormalizeCurrency(resp.Currency),
	}

	if t, err := dateutils.Parse(resp.StatementPeriodStart); err == nil {
		out.StatementPeriodStart = t
	}
	if t, err := dateutils.Parse(resp.StatementPeriodEnd); err == nil {
		out.StatementPeriodEnd = t
	}
	out.OpeningBalance = numberToDecimal(resp.OpeningBalance)
	out.ClosingBalance = numberToDecimal(resp.ClosingBalance)

	out.Transactions = make([]*models.Transaction, 0, len(resp.Transactions))
	for i, tr := range resp.Transactions {
		txn := e.toTransaction(tr, i)
		if txn != nil {
			out.Transactions = append(out.Transactions, txn)
		}
	}
	sort.SliceStable(out.Transactions, func(i, j int) bool {
		return out.Transactions[i].SortKey().Before(out.Transactions[j].SortKey())
	})
	return out
}

func (e *Engine) toTransaction(tr transactionResponse, index int) *models.Transaction {
	description := strings.TrimSpace(tr.Description)
	amount := parseNumber(tr.Amount)
	if description == "" || amount.IsZero() {
		e.log.WithField("index", index).Debug("Dropping row without description or amount")
		return nil
	}

	id := strings.TrimSpace(tr.TransactionID)
	if id == "" {
		id = uuid.NewString()
	}

	txn := &models.Transaction{
		TransactionID:   id,
		RawDate:         strings.TrimSpace(tr.Date),
		Description:     description,
		Amount:          amount,
		Currency:        models.NormalizeCurrency(tr.Currency),
		TransactionType: normalizeType(tr.TransactionType, amount),
		BalanceAfter:    numberToDecimal(tr.BalanceAfter),
		ReferenceNumber: strings.TrimSpace(tr.ReferenceNumber),
		Channel:         normalizeChannel(tr.Channel),
	}

	// Unparsable dates keep their raw string and a zero Date, which sorts
	// them earliest.
	if t, err := dateutils.Parse(tr.Date); err == nil {
		txn.Date = t
		txn.RawDate = ""
	}

	txn.NormalizeSign()
	return txn
}

func (e *Engine) newMetadata(count int) models.ExtractionMetadata {
	meta := models.ExtractionMetadata{
		ExtractedAt:      time.Now().UTC(),
		TransactionCount: count,
	}
	if d, ok := e.client.(inference.Describer); ok {
		info := d.Describe()
		meta.Provider = info.Provider
		meta.Model = info.Model
	}
	return meta
}

// formatRecordsAsText renders a record chunk as a delimited text table.
func formatRecordsAsText(records []fileextract.Record) string {
	if len(records) == 0 {
		return ""
	}
	columns := make([]string, 0, len(records[0]))
	for col := range records[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	lines := make([]string, 0, len(records)+2)
	header := strings.Join(columns, " | ")
	lines = append(lines, header, strings.Repeat("-", len(header)))
	for _, rec := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = rec[col]
		}
		lines = append(lines, strings.Join(values, " | "))
	}
	return strings.Join(lines, "\n")
}

func normalizeType(s string, amount decimal.Decimal) models.TransactionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit":
		return models.TypeDebit
	case "credit":
		return models.TypeCredit
	}
	if amount.IsNegative() {
		return models.TypeDebit
	}
	return models.TypeCredit
}

func normalizeChannel(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ATM":
		return models.ChannelATM
	case "POS":
		return models.ChannelPOS
	case "TRANSFER":
		return models.ChannelTransfer
	case "ONLINE":
		return models.ChannelOnline
	case "MOBILE":
		return models.ChannelMobile
	case "BRANCH":
		return models.ChannelBranch
	case "CHECK":
		return models.ChannelCheck
	case "":
		return ""
	default:
		return models.ChannelOther
	}
}

func parseNumber(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return models.ParseAmount(n.String())
	}
	return d
}

func numberToDecimal(n *json.Number) *decimal.Decimal {
	if n == nil || *n == "" {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil
	}
	return &d
}
