package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

// Balance tracks the on-hand quantities of a product, split into a sellable
// bucket and a quarantine bucket for goods awaiting disposition. Balances
// are created lazily at zero the first time a product moves.
type Balance struct {
	ProductID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Sellable   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reserved   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quarantine decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	// LastMovementID points at the movement that produced the current figures
	LastMovementID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (Balance) TableName() string {
	return "inventory_balances"
}

// NewBalance creates a zero balance for a product
func NewBalance(productID uuid.UUID) *Balance {
	now := time.Now()
	return &Balance{
		ProductID:  productID,
		Sellable:   decimal.Zero,
		Reserved:   decimal.Zero,
		Quarantine: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ReceiveSellable adds quantity to the sellable bucket
func (b *Balance) ReceiveSellable(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	b.Sellable = b.Sellable.Add(qty)
	b.UpdatedAt = time.Now()
	return nil
}

// ReleaseSellable removes quantity from the sellable bucket. Fails when the
// bucket holds less than requested; the balance never goes negative.
func (b *Balance) ReleaseSellable(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.Sellable.LessThan(qty) {
		return shared.NewInsufficientStockError("INSUFFICIENT_STOCK",
			"Sellable stock "+b.Sellable.String()+" is less than requested "+qty.String())
	}
	b.Sellable = clampZero(b.Sellable.Sub(qty))
	b.UpdatedAt = time.Now()
	return nil
}

// ReceiveQuarantine adds quantity to the quarantine bucket
func (b *Balance) ReceiveQuarantine(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	b.Quarantine = b.Quarantine.Add(qty)
	b.UpdatedAt = time.Now()
	return nil
}

// ReleaseQuarantine removes quantity from the quarantine bucket after disposition
func (b *Balance) ReleaseQuarantine(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if b.Quarantine.LessThan(qty) {
		return shared.NewInsufficientStockError("INSUFFICIENT_STOCK",
			"Quarantine stock "+b.Quarantine.String()+" is less than requested "+qty.String())
	}
	b.Quarantine = clampZero(b.Quarantine.Sub(qty))
	b.UpdatedAt = time.Now()
	return nil
}

// Touch records the movement that produced the current balance
func (b *Balance) Touch(movementID uuid.UUID) {
	b.LastMovementID = &movementID
	b.UpdatedAt = time.Now()
}

// Total is the overall on-hand quantity across buckets
func (b *Balance) Total() decimal.Decimal {
	return b.Sellable.Add(b.Reserved).Add(b.Quarantine)
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
