// Package categorization assigns category and subcategory labels from the
// fixed taxonomy to transactions, in batches with period-income context.
package categorization

import (
	"context"

	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"
)

// response is one entry of a categorization completion.
type response struct {
	TransactionID string   `json:"transaction_id"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory"`
	Confidence    float64  `json:"confidence"`
	Tags          []string `json:"tags"`
}

// Options tunes the engine.
type Options struct {
	Temperature float32
	MaxTokens   int32
	Policy      inference.BatchPolicy
}

// Engine is the categorization stage.
type Engine struct {
	client inference.Client
	opts   Options
	log    logging.Logger
}

// NewEngine creates a categorization engine over the given inference client.
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
	if opts.Policy.Size == 0 {
		opts.Policy = inference.NewBatchPolicy(50, 0)
	}
	return &Engine{client: client, opts: opts, log: logger}
}

// Categorize annotates the transactions in place with category, subcategory,
// confidence and tags.
//
// Batches are processed one at a time. Each batch prompt embeds the period
// context with the running debit total of the batches already booked, so the
// model can judge plausibility against the remaining income. A failed batch
// never aborts the run: its transactions get the Other/Uncategorized fallback
// at confidence 0, and the mandatory inter-batch pause elapses before the
// next batch regardless of success.
func (e *Engine) Categorize(ctx context.Context, transactions []*models.Transaction, periodCtx *PeriodContext) {
	if len(transactions) == 0 {
		return
	}

	chunks := e.opts.Policy.Chunks(len(transactions))
	totalBatches := len(chunks)
	e.log.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(transactions)},
		logging.Field{Key: "batches", Value: totalBatches},
	).Info("Starting categorization")

	// Work on a copy of the context so the caller's expense counter is not
	// advanced by this run.
	var runCtx *PeriodContext
	if periodCtx != nil {
		c := *periodCtx
		runCtx = &c
	}

	for i, bounds := range chunks {
		batchIdx := i + 1
		batch := transactions[bounds[0]:bounds[1]]
		log := e.log.WithFields(
			logging.Field{Key: logging.FieldBatch, Value: batchIdx},
			logging.Field{Key: "total_batches", Value: totalBatches},
		)
		log.Info("Categorizing batch")

		if err := e.categorizeBatch(ctx, batch, runCtx); err != nil {
			log.WithError(err).Error("Batch categorization failed, applying fallback")
			for _, txn := range batch {
				applyFallback(txn)
			}
		} else {
			log.WithField(logging.FieldCount, len(batch)).Info("Batch categorized")
		}

		if runCtx != nil {
			for _, txn := range batch {
				if txn.IsDebit() {
					runCtx.ExpensesSoFar = runCtx.ExpensesSoFar.Add(txn.Magnitude())
				}
			}
		}

		if batchIdx < totalBatches {
			e.opts.Policy.Pause(ctx)
		}
	}

	e.log.WithField(logging.FieldCount, len(transactions)).Info("Categorization complete")
}

// categorizeBatch runs one inference round trip and matches the results back
// onto the batch: by transaction id first, by position second, and the
// Other/Uncategorized fallback last.
func (e *Engine) categorizeBatch(ctx context.Context, batch []*models.Transaction, periodCtx *PeriodContext) error {
	completion, err := e.client.Complete(ctx, inference.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(batch, periodCtx),
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.MaxTokens,
	})
	if err != nil {
		return err
	}

	results, err := inference.DecodeArray[response]("categorization", completion)
	if err != nil {
		return err
	}

	byID := make(map[string]response, len(results))
	for _, res := range results {
		if res.TransactionID != "" {
			byID[res.TransactionID] = res
		}
	}

	for i, txn := range batch {
		if res, ok := byID[txn.TransactionID]; ok {
			apply(txn, res)
		} else if i < len(results) {
			apply(txn, results[i])
		} else {
			applyFallback(txn)
		}
	}
	return nil
}

// apply writes a categorization result onto a transaction, enforcing taxonomy
// closure: unknown categories collapse to the Other fallback.
func apply(txn *models.Transaction, res response) {
	if !models.IsCategory(res.Category) {
		applyFallback(txn)
		return
	}
	txn.Category = res.Category
	txn.Subcategory = res.Subcategory
	if txn.Subcategory == "" {
		txn.Subcategory = models.SubcategoryUncategorized
	}
	txn.CategoryConfidence = res.Confidence
	txn.Tags = res.Tags
}

func applyFallback(txn *models.Transaction) {
	txn.Category = models.CategoryOther
	txn.Subcategory = models.SubcategoryUncategorized
	txn.CategoryConfidence = 0
	txn.Tags = nil
}
