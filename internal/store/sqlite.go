package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         TEXT NOT NULL,
	statement_id    TEXT NOT NULL,
	transaction_id  TEXT NOT NULL,
	date            TEXT,
	raw_date        TEXT,
	description     TEXT NOT NULL,
	amount          TEXT NOT NULL,
	currency        TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	balance_after   TEXT,
	reference_number TEXT,
	channel         TEXT,
	bank_name       TEXT,
	account_number  TEXT,
	income_confidence REAL,
	category        TEXT,
	subcategory     TEXT,
	category_confidence REAL,
	tags            TEXT,
	re_categorized  INTEGER NOT NULL DEFAULT 0,
	reasoning       TEXT,
	UNIQUE(statement_id, transaction_id)
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_statement ON transactions(statement_id);
`

// SQLiteStore persists transactions in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log logging.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, log: logger}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTransactions writes the transactions of one statement in a single
// database transaction. Re-running a statement replaces its previous rows.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, userID, statementID string, transactions []*models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE statement_id = ?`, statementID); err != nil {
		return fmt.Errorf("could not clear previous rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			user_id, statement_id, transaction_id, date, raw_date, description,
			amount, currency, transaction_type, balance_after, reference_number,
			channel, bank_name, account_number, income_confidence, category,
			subcategory, category_confidence, tags, re_categorized, reasoning
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("could not prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, txn := range transactions {
		var date any
		if !txn.Date.IsZero() {
			date = txn.Date.Format("2006-01-02")
		}
		var balance any
		if txn.BalanceAfter != nil {
			balance = txn.BalanceAfter.String()
		}
		recat := 0
		if txn.ReCategorized {
			recat = 1
		}
		_, err := stmt.ExecContext(ctx,
			userID, statementID, txn.TransactionID, date, txn.RawDate, txn.Description,
			txn.Amount.String(), string(txn.Currency), string(txn.TransactionType), balance,
			txn.ReferenceNumber, txn.Channel, txn.BankName, txn.AccountNumber,
			txn.IncomeConfidence, txn.Category, txn.Subcategory, txn.CategoryConfidence,
			strings.Join(txn.Tags, ","), recat, txn.Reasoning,
		)
		if err != nil {
			return fmt.Errorf("could not insert transaction %s: %w", txn.TransactionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}

	s.log.WithFields(
		logging.Field{Key: logging.FieldStatementID, Value: statementID},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)},
	).Info("Persisted transactions")
	return nil
}
