package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the read-model projection of a single line of the originating
// sales or purchase order, carrying just what return validation needs.
type OrderLine struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	// UnitCost is the order-time valuation; zero when the order did not record one
	UnitCost decimal.Decimal
}

// EffectiveUnitCost falls back to the unit price when no cost was recorded
func (l OrderLine) EffectiveUnitCost() decimal.Decimal {
	if l.UnitCost.IsZero() {
		return l.UnitPrice
	}
	return l.UnitCost
}

// OrderSnapshot is the read-model projection of an originating order
type OrderSnapshot struct {
	ID         uuid.UUID
	Number     string
	Origin     ReturnOrigin
	OrderedAt  time.Time
	CustomerID *uuid.UUID
	SupplierID *uuid.UUID
	Lines      []OrderLine
}

// Line returns the order line with the given ID, or nil
func (o *OrderSnapshot) Line(lineID uuid.UUID) *OrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// OrderLookup resolves originating orders for eligibility validation.
// FindOrder returns shared.ErrNotFound (wrapped) when the order does not
// exist or is not in a returnable state.
type OrderLookup interface {
	FindOrder(ctx context.Context, origin ReturnOrigin, orderID uuid.UUID) (*OrderSnapshot, error)
}

// ProductInfo is the display projection of a product
type ProductInfo struct {
	ID   uuid.UUID
	Name string
	SKU  string
}

// ProductLookup resolves product display data for return lines
type ProductLookup interface {
	FindProduct(ctx context.Context, productID uuid.UUID) (*ProductInfo, error)
}

// PartyBalanceService credits a counterparty account balance. Used for
// store-credit refunds, inside the same transaction as the rest of the
// return pipeline.
type PartyBalanceService interface {
	RecordRefund(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal, originalOrderID uuid.UUID, memo string) error
}
