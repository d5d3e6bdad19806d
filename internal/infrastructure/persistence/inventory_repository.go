package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retailcore/backend/internal/domain/inventory"
	"github.com/retailcore/backend/internal/domain/shared"
)

// GormBalanceRepository implements BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// Find returns the balance for a product
func (r *GormBalanceRepository) Find(ctx context.Context, productID uuid.UUID) (*inventory.Balance, error) {
	var balance inventory.Balance
	if err := r.db.WithContext(ctx).
		First(&balance, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load inventory balance", err)
	}
	return &balance, nil
}

// GetForUpdate loads the balance row under a row-level write lock, creating
// a zero balance lazily on a product's first movement. The lock serializes
// concurrent returns on the same product for the rest of the transaction.
func (r *GormBalanceRepository) GetForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.Balance, error) {
	var balance inventory.Balance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&balance, "product_id = ?", productID).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewPersistenceError("failed to lock inventory balance", err)
	}

	// Lazy creation; DoNothing absorbs the race with a concurrent creator
	fresh := inventory.NewBalance(productID)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to create inventory balance", err)
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&balance, "product_id = ?", productID).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to lock inventory balance", err)
	}
	return &balance, nil
}

// Save persists the balance
func (r *GormBalanceRepository) Save(ctx context.Context, balance *inventory.Balance) error {
	if err := r.db.WithContext(ctx).Save(balance).Error; err != nil {
		return shared.NewPersistenceError("failed to save inventory balance", err)
	}
	return nil
}

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts a movement into the immutable log
func (r *GormMovementRepository) Append(ctx context.Context, movement *inventory.Movement) error {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return shared.NewPersistenceError("failed to append stock movement", err)
	}
	return nil
}

// FindByReference returns movements caused by a source document
func (r *GormMovementRepository) FindByReference(ctx context.Context, refType string, refID uuid.UUID) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("occurred_at ASC").
		Find(&movements).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load movements for reference", err)
	}
	return movements, nil
}

// FindByProduct returns the most recent movements for a product
func (r *GormMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]inventory.Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []inventory.Movement
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load movements for product", err)
	}
	return movements, nil
}

var (
	_ inventory.BalanceRepository  = (*GormBalanceRepository)(nil)
	_ inventory.MovementRepository = (*GormMovementRepository)(nil)
)
