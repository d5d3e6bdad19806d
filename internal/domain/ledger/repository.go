package ledger

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository defines persistence operations for the append-only ledger
type LedgerRepository interface {
	// AppendPair inserts a balanced pair atomically. Rejects unbalanced input.
	AppendPair(ctx context.Context, entries []Entry) error

	// FindByTransaction returns the entries sharing a transaction ID
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]Entry, error)

	// FindByReference returns all entries posted against a source document
	FindByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]Entry, error)

	// MarkReversed flags a transaction's entries as logically reversed.
	// The rows themselves are never deleted.
	MarkReversed(ctx context.Context, transactionID uuid.UUID) error
}
