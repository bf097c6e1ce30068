// Package store is the persistence collaborator: it batch-writes the final
// transactions of a run, keyed by user and statement identifiers.
package store

import (
	"context"

	"hesapp/extractor/internal/models"
)

// Store receives the final transaction set of a statement-processing run as
// one batch write. The pipeline holds no persistent connection or transaction
// scope of its own.
type Store interface {
	SaveTransactions(ctx context.Context, userID, statementID string, transactions []*models.Transaction) error
	Close() error
}
