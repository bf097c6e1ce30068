// Package process contains the end-to-end statement processing command.
package process

import (
	"fmt"
	"time"

	"hesapp/extractor/cmd/root"
	"hesapp/extractor/internal/bankdetect"
	"hesapp/extractor/internal/categorization"
	"hesapp/extractor/internal/extraction"
	"hesapp/extractor/internal/fileextract"
	"hesapp/extractor/internal/income"
	"hesapp/extractor/internal/inference"
	"hesapp/extractor/internal/periods"
	"hesapp/extractor/internal/pipeline"
	"hesapp/extractor/internal/store"
	"hesapp/extractor/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	outputDir          string
	batchSize          int
	batchDelay         float64
	noBatch            bool
	skipCategorization bool
	csvPath            string
	dbPath             string
	userID             string
	statementID        string
)

// Cmd is the process command.
var Cmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process a bank statement file end to end",
	Long: `Process runs the full pipeline over a statement file: bank detection,
transaction extraction, income detection, period grouping, categorization and
validation. The result is written as a JSON artifact, optionally also as a
ledger CSV and into a SQLite database.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	Cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for the JSON artifact (default from config)")
	Cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per extraction chunk (default from config)")
	Cmd.Flags().Float64Var(&batchDelay, "batch-delay", -1, "Seconds to wait between inference batches (default from config)")
	Cmd.Flags().BoolVar(&noBatch, "no-batch", false, "Disable automatic batch processing for large files")
	Cmd.Flags().BoolVar(&skipCategorization, "skip-categorization", false, "Skip the categorization and validation stages")
	Cmd.Flags().StringVar(&csvPath, "csv", "", "Also export the final transactions as a ledger CSV to this path")
	Cmd.Flags().StringVar(&dbPath, "db", "", "Also persist the final transactions into this SQLite database")
	Cmd.Flags().StringVar(&userID, "user-id", "", "User identifier written onto persisted transactions")
	Cmd.Flags().StringVar(&statementID, "statement-id", "", "Statement identifier written onto persisted transactions")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	log := root.Log
	ctx := cmd.Context()

	client, err := inference.NewGeminiClient(
		ctx,
		cfg.AI.APIKey,
		cfg.AI.Model,
		time.Duration(cfg.AI.TimeoutSeconds)*time.Second,
		log,
	)
	if err != nil {
		return err
	}
	defer client.Close()

	chunkSize := cfg.Extraction.ChunkSize
	if batchSize > 0 {
		chunkSize = batchSize
	}
	delay := cfg.Extraction.BatchDelay
	if batchDelay >= 0 {
		delay = batchDelay
	}
	threshold := cfg.Extraction.BatchThreshold
	if noBatch {
		// A threshold no record count reaches keeps everything single-shot.
		threshold = int(^uint(0) >> 1)
	}

	delayDuration := time.Duration(delay * float64(time.Second))

	p := pipeline.New(
		fileextract.NewExtractor(log),
		bankdetect.NewDetector(log),
		extraction.NewEngine(client, extraction.Options{
			Temperature:    cfg.AI.Temperature,
			MaxTokens:      int32(cfg.AI.MaxTokens),
			BatchThreshold: threshold,
			Policy:         inference.NewBatchPolicy(chunkSize, delayDuration),
		}, log),
		income.NewDetector(decimal.NewFromFloat(cfg.Income.MinAmount), log),
		periods.NewAnalyzer(log),
		categorization.NewEngine(client, categorization.Options{
			Temperature: cfg.AI.Temperature,
			MaxTokens:   int32(cfg.AI.MaxTokens),
			Policy:      inference.NewBatchPolicy(cfg.Categorization.BatchSize, time.Duration(cfg.Categorization.BatchDelay*float64(time.Second))),
		}, log),
		validation.NewValidator(validation.Ratios{
			MaxSpending:       cfg.Validation.MaxSpendingRatio,
			SingleTransaction: cfg.Validation.SingleTxnRatio,
			Category:          cfg.Validation.CategoryRatio,
		}, client, log),
		log,
	)

	result, err := p.Process(ctx, pipeline.Request{
		FilePath:           args[0],
		UserID:             userID,
		StatementID:        statementID,
		SkipCategorization: skipCategorization,
	})
	if err != nil {
		return err
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.Output.Directory
	}
	artifactPath, err := pipeline.WriteArtifact(result, dir, log)
	if err != nil {
		return err
	}

	if csvPath != "" {
		if err := pipeline.WriteLedgerCSV(result.Extraction.Transactions, csvPath, log); err != nil {
			return err
		}
	}

	if dbPath != "" {
		db, err := store.NewSQLiteStore(dbPath, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveTransactions(ctx, userID, statementID, result.Extraction.Transactions); err != nil {
			return err
		}
	}

	printSummary(cmd, result, artifactPath)
	return nil
}

func printSummary(cmd *cobra.Command, result *pipeline.Result, artifactPath string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Extraction successful")
	fmt.Fprintf(out, "  Output file:  %s\n", artifactPath)
	fmt.Fprintf(out, "  Bank:         %s\n", orUnknown(result.Extraction.BankName))
	fmt.Fprintf(out, "  Transactions: %d\n", len(result.Extraction.Transactions))
	fmt.Fprintf(out, "  Currency:     %s\n", result.Extraction.Currency)

	meta := result.Extraction.Metadata
	if meta.BatchProcessing {
		fmt.Fprintf(out, "  Batch mode:   yes (%d chunks, %d per chunk)\n", meta.TotalChunks, meta.ChunkSize)
		if meta.PartialFailure {
			fmt.Fprintf(out, "  WARNING:      %d chunk(s) failed; their transactions are missing\n", meta.FailedChunks)
		}
	}

	if ps := result.PeriodSummary; ps != nil {
		fmt.Fprintf(out, "  Periods:      %d (income %s, expenses %s)\n",
			ps.TotalPeriods, ps.TotalIncome.StringFixed(2), ps.TotalExpenses.StringFixed(2))
	}
	if cs := result.CategorizationSummary; cs != nil {
		fmt.Fprintf(out, "  Categories:   %d (debits %s, credits %s)\n",
			len(cs.Categories), cs.TotalDebits.StringFixed(2), cs.TotalCredits.StringFixed(2))
	}
	if vr := result.ValidationReport; vr != nil && len(vr.Warnings) > 0 {
		fmt.Fprintf(out, "  Warnings:     %d\n", len(vr.Warnings))
		for _, w := range vr.Warnings {
			fmt.Fprintf(out, "    - %s in %s\n", w.Type, w.PeriodID)
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
