package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
)

// customerCreditRow is one append-only store-credit grant. The customer's
// running balance is the sum of their rows.
type customerCreditRow struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID    uuid.UUID       `gorm:"column:customer_id"`
	Amount        decimal.Decimal `gorm:"column:amount"`
	SourceOrderID uuid.UUID       `gorm:"column:source_order_id"`
	Memo          string          `gorm:"column:memo"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
}

func (customerCreditRow) TableName() string {
	return "customer_credits"
}

// GormPartyBalanceService records store-credit refunds against customer
// balances, inside the caller's transaction.
type GormPartyBalanceService struct {
	db *gorm.DB
}

// NewGormPartyBalanceService creates a new GormPartyBalanceService
func NewGormPartyBalanceService(db *gorm.DB) *GormPartyBalanceService {
	return &GormPartyBalanceService{db: db}
}

// RecordRefund appends a store-credit grant for the customer
func (s *GormPartyBalanceService) RecordRefund(ctx context.Context, partyID uuid.UUID, amount decimal.Decimal, originalOrderID uuid.UUID, memo string) error {
	if partyID == uuid.Nil {
		return shared.NewValidationError("INVALID_PARTY", "Party ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_AMOUNT", "Credit amount must be positive")
	}

	row := customerCreditRow{
		ID:            uuid.New(),
		CustomerID:    partyID,
		Amount:        amount,
		SourceOrderID: originalOrderID,
		Memo:          memo,
		CreatedAt:     time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return shared.NewPersistenceError("failed to record store credit", err)
	}
	return nil
}

// BalanceOf returns the customer's current store-credit balance
func (s *GormPartyBalanceService) BalanceOf(ctx context.Context, partyID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := s.db.WithContext(ctx).
		Table("customer_credits").
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("customer_id = ?", partyID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, shared.NewPersistenceError("failed to read store-credit balance", err)
	}
	return result.Total, nil
}

var _ returns.PartyBalanceService = (*GormPartyBalanceService)(nil)
