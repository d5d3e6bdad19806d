package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementReturnIn         MovementType = "RETURN_IN"         // sale return back into sellable
	MovementReturnOut        MovementType = "RETURN_OUT"        // purchase return out to supplier
	MovementReturnQuarantine MovementType = "RETURN_QUARANTINE" // sale return held for disposition
	MovementSaleOut          MovementType = "SALE_OUT"
	MovementPurchaseIn       MovementType = "PURCHASE_IN"
	MovementAdjustment       MovementType = "ADJUSTMENT"
)

// IsValid checks if the type is a valid MovementType
func (m MovementType) IsValid() bool {
	switch m {
	case MovementReturnIn, MovementReturnOut, MovementReturnQuarantine,
		MovementSaleOut, MovementPurchaseIn, MovementAdjustment:
		return true
	}
	return false
}

// String returns the string representation of MovementType
func (m MovementType) String() string {
	return string(m)
}

// Reference source types for movements
const (
	RefSalesReturn    = "SALES_RETURN"
	RefPurchaseReturn = "PURCHASE_RETURN"
	RefSalesOrder     = "SALES_ORDER"
	RefPurchaseOrder  = "PURCHASE_ORDER"
	RefAdjustment     = "ADJUSTMENT"
)

// Movement is one row of the immutable stock movement log. Quantity is signed
// from the perspective of the bucket it touches; the before/after snapshots
// make the log auditable without replaying it.
type Movement struct {
	shared.BaseEntity
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	MovementType     MovementType    `gorm:"type:varchar(30);not null;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SellableBefore   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SellableAfter    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuarantineBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuarantineAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceType    string          `gorm:"type:varchar(30);not null"`
	ReferenceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceNumber  string          `gorm:"type:varchar(50)"`
	OccurredAt       time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "stock_movements"
}

// MovementRef identifies the document that caused a movement
type MovementRef struct {
	Type   string
	ID     uuid.UUID
	Number string
}

// NewMovement records a balance change. The before snapshot is taken from
// prev and the after snapshot from next, so callers apply the bucket change
// to the balance first and log the movement second.
func NewMovement(
	movementType MovementType,
	quantity decimal.Decimal,
	unitCost decimal.Decimal,
	prev, next Balance,
	ref MovementRef,
) (*Movement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("INVALID_MOVEMENT_TYPE", "Unknown movement type: "+string(movementType))
	}
	if quantity.IsZero() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	if prev.ProductID != next.ProductID {
		return nil, shared.NewValidationError("PRODUCT_MISMATCH", "Balance snapshots refer to different products")
	}
	if ref.ID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Movement reference ID cannot be empty")
	}

	return &Movement{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        next.ProductID,
		MovementType:     movementType,
		Quantity:         quantity,
		UnitCost:         unitCost,
		SellableBefore:   prev.Sellable,
		SellableAfter:    next.Sellable,
		QuarantineBefore: prev.Quarantine,
		QuarantineAfter:  next.Quarantine,
		ReferenceType:    ref.Type,
		ReferenceID:      ref.ID,
		ReferenceNumber:  ref.Number,
		OccurredAt:       time.Now(),
	}, nil
}
