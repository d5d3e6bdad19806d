package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/shared"
)

// GormLedgerRepository implements LedgerRepository using GORM. The ledger is
// append-only: entries are inserted, never updated, except for the logical
// reversal flag.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// AppendPair inserts a balanced pair atomically
func (r *GormLedgerRepository) AppendPair(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) != 2 {
		return shared.NewValidationError("INVALID_PAIR", "Ledger postings come in debit/credit pairs")
	}
	if !ledger.Balanced(entries) {
		return shared.NewValidationError("UNBALANCED_PAIR", "Ledger pair debits do not equal credits")
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return shared.NewPersistenceError("failed to append ledger pair", err)
	}
	return nil
}

// FindByTransaction returns the entries sharing a transaction ID
func (r *GormLedgerRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("debit DESC").
		Find(&entries).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load ledger transaction", err)
	}
	return entries, nil
}

// FindByReference returns all entries posted against a source document
func (r *GormLedgerRepository) FindByReference(ctx context.Context, refType ledger.ReferenceType, refID uuid.UUID) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load ledger entries for reference", err)
	}
	return entries, nil
}

// MarkReversed flags a transaction's entries as logically reversed
func (r *GormLedgerRepository) MarkReversed(ctx context.Context, transactionID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.Entry{}).
		Where("transaction_id = ?", transactionID).
		Update("status", ledger.EntryStatusReversed)
	if result.Error != nil {
		return shared.NewPersistenceError("failed to mark ledger transaction reversed", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ ledger.LedgerRepository = (*GormLedgerRepository)(nil)
