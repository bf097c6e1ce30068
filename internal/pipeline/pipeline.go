// Package pipeline orchestrates the extraction stages for one statement file:
// bank detection, extraction, income detection, period grouping,
// categorization, validation and re-categorization.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"hesapp/extractor/internal/bankdetect"
	"hesapp/extractor/internal/categorization"
	"hesapp/extractor/internal/extraction"
	"hesapp/extractor/internal/fileextract"
	"hesapp/extractor/internal/income"
	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"
	"hesapp/extractor/internal/periods"
	"hesapp/extractor/internal/validation"

	"github.com/google/uuid"
)

// Request identifies one statement-processing run. User and statement IDs are
// opaque metadata keys written onto output transactions; no pipeline logic
// reads them.
type Request struct {
	FilePath           string
	UserID             string
	StatementID        string
	SkipCategorization bool
}

// Result is the full output of one run.
type Result struct {
	RunID                 string                        `json:"run_id"`
	SourceFile            SourceFile                    `json:"source_file"`
	BankDetection         models.BankDetection          `json:"bank_detection"`
	Extraction            *models.StatementExtraction   `json:"extraction"`
	IncomeTransactions    []*models.Transaction         `json:"income_transactions"`
	Periods               []*models.Period              `json:"income_periods"`
	ValidationReport      *models.ValidationReport      `json:"validation,omitempty"`
	PeriodSummary         *models.PeriodSummary         `json:"period_summary,omitempty"`
	CategorizationSummary *models.CategorizationSummary `json:"categorization_summary,omitempty"`
}

// SourceFile records where a result came from.
type SourceFile struct {
	Path        string    `json:"filepath"`
	UserID      string    `json:"user_id,omitempty"`
	StatementID string    `json:"statement_id,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Pipeline wires the stages together. Stages execute strictly sequentially;
// each one's output is the next one's required input. One Pipeline must not
// be shared across concurrent runs.
type Pipeline struct {
	files      *fileextract.Extractor
	banks      *bankdetect.Detector
	extractor  *extraction.Engine
	incomes    *income.Detector
	periods    *periods.Analyzer
	categories *categorization.Engine
	validator  *validation.Validator
	log        logging.Logger
}

// New assembles a pipeline from its stage components.
func New(
	files *fileextract.Extractor,
	banks *bankdetect.Detector,
	extractor *extraction.Engine,
	incomes *income.Detector,
	periodAnalyzer *periods.Analyzer,
	categories *categorization.Engine,
	validator *validation.Validator,
	logger logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Pipeline{
		files:      files,
		banks:      banks,
		extractor:  extractor,
		incomes:    incomes,
		periods:    periodAnalyzer,
		categories: categories,
		validator:  validator,
		log:        logger,
	}
}

// Process runs the full pipeline over one statement file. Input errors and
// total extraction failures propagate; chunk- and batch-level failures are
// contained inside their stages.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: req.FilePath},
		logging.Field{Key: "run_id", Value: runID},
	)
	log.Info("Starting statement processing")

	file, err := p.files.Extract(req.FilePath)
	if err != nil {
		return nil, err
	}

	detection := p.banks.DetectWithConfidence(file.RawText)
	if detection.Bank != "" {
		log.WithFields(
			logging.Field{Key: logging.FieldBank, Value: detection.Bank},
			logging.Field{Key: logging.FieldConfidence, Value: detection.Confidence},
		).Info("Detected bank")
	} else {
		log.Warn("Could not detect bank, proceeding with generic extraction")
	}

	extracted, err := p.extractor.Extract(ctx, file, detection.Bank)
	if err != nil {
		return nil, fmt.Errorf("statement extraction failed: %w", err)
	}

	for _, txn := range extracted.Transactions {
		if txn.BankName == "" {
			txn.BankName = extracted.BankName
		}
		if txn.AccountNumber == "" {
			txn.AccountNumber = extracted.AccountNumber
		}
	}

	result := &Result{
		RunID: runID,
		SourceFile: SourceFile{
			Path:        req.FilePath,
			UserID:      req.UserID,
			StatementID: req.StatementID,
			ProcessedAt: time.Now().UTC(),
		},
		BankDetection: detection,
		Extraction:    extracted,
	}

	if len(extracted.Transactions) == 0 {
		log.Warn("No transactions extracted")
		return result, nil
	}

	incomeTxns := p.incomes.Detect(extracted.Transactions)
	result.IncomeTransactions = incomeTxns

	periodList := p.periods.GroupIntoPeriods(extracted.Transactions, incomeTxns)
	result.Periods = periodList

	if req.SkipCategorization {
		log.Info("Skipping categorization")
		result.PeriodSummary = BuildPeriodSummary(periodList)
		return result, nil
	}

	for _, period := range periodList {
		if len(period.Transactions) == 0 {
			continue
		}
		p.categories.Categorize(ctx, period.Transactions, &categorization.PeriodContext{
			PeriodID:     period.PeriodID,
			IncomeAmount: period.IncomeAmount,
		})
	}

	report := p.validator.ValidatePeriods(periodList)
	result.ValidationReport = report

	if len(report.SuspiciousTransactions) > 0 {
		suspiciousByPeriod := make(map[string][]models.SuspiciousTransaction)
		for _, s := range report.SuspiciousTransactions {
			suspiciousByPeriod[s.PeriodID] = append(suspiciousByPeriod[s.PeriodID], s)
		}
		for _, period := range periodList {
			if flagged, ok := suspiciousByPeriod[period.PeriodID]; ok {
				p.validator.ReCategorize(ctx, period, flagged)
			}
		}
	}

	result.PeriodSummary = BuildPeriodSummary(periodList)
	result.CategorizationSummary = BuildCategorizationSummary(extracted.Transactions)

	log.WithField(logging.FieldCount, len(extracted.Transactions)).Info("Statement processing complete")
	return result, nil
}
