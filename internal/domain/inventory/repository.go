package inventory

import (
	"context"

	"github.com/google/uuid"
)

// BalanceRepository defines persistence operations for inventory balances
type BalanceRepository interface {
	// Find returns the balance for a product, or shared.ErrNotFound
	Find(ctx context.Context, productID uuid.UUID) (*Balance, error)

	// GetForUpdate loads the balance row under a write lock, creating a zero
	// balance if the product has never moved. Must run inside a transaction.
	GetForUpdate(ctx context.Context, productID uuid.UUID) (*Balance, error)

	// Save persists the balance
	Save(ctx context.Context, balance *Balance) error
}

// MovementRepository defines persistence operations for the movement log
type MovementRepository interface {
	// Append inserts a movement. Movements are never updated or deleted.
	Append(ctx context.Context, movement *Movement) error

	// FindByReference returns movements caused by a source document
	FindByReference(ctx context.Context, refType string, refID uuid.UUID) ([]Movement, error)

	// FindByProduct returns the most recent movements for a product
	FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]Movement, error)
}
