package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

// ReturnStats aggregates return counts and amounts over a period
type ReturnStats struct {
	TotalCount         int64           `json:"total_count"`
	PendingCount       int64           `json:"pending_count"`
	ProcessedCount     int64           `json:"processed_count"`
	RejectedCount      int64           `json:"rejected_count"`
	CancelledCount     int64           `json:"cancelled_count"`
	SaleCount          int64           `json:"sale_count"`
	PurchaseCount      int64           `json:"purchase_count"`
	TotalRefund        decimal.Decimal `json:"total_refund"`
	TotalRestockingFee decimal.Decimal `json:"total_restocking_fee"`
}

// ReturnRepository defines persistence operations for merchandise returns
type ReturnRepository interface {
	// FindByID finds a return by ID, items included
	FindByID(ctx context.Context, id uuid.UUID) (*MerchandiseReturn, error)

	// FindByIDForUpdate loads a return and locks its row until the surrounding
	// transaction ends, so concurrent writers on the same return serialize and
	// the second observes the first's status. Must run inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*MerchandiseReturn, error)

	// FindByNumber finds a return by its human-readable number
	FindByNumber(ctx context.Context, number string) (*MerchandiseReturn, error)

	// FindAll finds returns matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]MerchandiseReturn, error)

	// Count counts returns matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindByOrder finds all returns raised against an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]MerchandiseReturn, error)

	// Save persists the aggregate and its items
	Save(ctx context.Context, ret *MerchandiseReturn) error

	// SumReturnedForOrderLine sums quantities already claimed against an order
	// line across all returns that are not rejected or cancelled.
	SumReturnedForOrderLine(ctx context.Context, orderLineID uuid.UUID) (decimal.Decimal, error)

	// NextReturnNumber allocates the next sequential return number for the day
	NextReturnNumber(ctx context.Context, day time.Time) (string, error)

	// Stats aggregates return statistics for the period
	Stats(ctx context.Context, from, to time.Time) (*ReturnStats, error)
}
