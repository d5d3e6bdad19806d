package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
)

// orderRow is the persistence model of an order header. Orders are owned by
// the order-management subsystem; the return pipeline only reads them, so
// the row is mapped into a returns.OrderSnapshot at this boundary and the
// raw model never leaks further in.
type orderRow struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderNumber string     `gorm:"column:order_number"`
	Origin      string     `gorm:"column:origin"`
	CustomerID  *uuid.UUID `gorm:"column:customer_id"`
	SupplierID  *uuid.UUID `gorm:"column:supplier_id"`
	Status      string     `gorm:"column:status"`
	OrderedAt   time.Time  `gorm:"column:ordered_at"`
}

func (orderRow) TableName() string {
	return "orders"
}

// orderLineRow is the persistence model of an order line
type orderLineRow struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id"`
	ProductID uuid.UUID       `gorm:"column:product_id"`
	Quantity  decimal.Decimal `gorm:"column:quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price"`
	UnitCost  decimal.Decimal `gorm:"column:unit_cost"`
}

func (orderLineRow) TableName() string {
	return "order_lines"
}

// Order statuses that can no longer be returned against
var nonReturnableOrderStatuses = []string{"DRAFT", "CANCELLED"}

// GormOrderLookup resolves originating orders for return eligibility checks
type GormOrderLookup struct {
	db *gorm.DB
}

// NewGormOrderLookup creates a new GormOrderLookup
func NewGormOrderLookup(db *gorm.DB) *GormOrderLookup {
	return &GormOrderLookup{db: db}
}

// FindOrder loads an order and its lines as a read-only snapshot. A missing
// or non-returnable order is reported as not found; a found order with no
// lines comes back with an empty Lines slice.
func (l *GormOrderLookup) FindOrder(ctx context.Context, origin returns.ReturnOrigin, orderID uuid.UUID) (*returns.OrderSnapshot, error) {
	var row orderRow
	err := l.db.WithContext(ctx).
		Where("id = ? AND origin = ?", orderID, string(origin)).
		Where("status NOT IN ?", nonReturnableOrderStatuses).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load order", err)
	}

	var lineRows []orderLineRow
	if err := l.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&lineRows).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load order lines", err)
	}

	lines := make([]returns.OrderLine, 0, len(lineRows))
	for _, lr := range lineRows {
		lines = append(lines, returns.OrderLine{
			ID:        lr.ID,
			ProductID: lr.ProductID,
			Quantity:  lr.Quantity,
			UnitPrice: lr.UnitPrice,
			UnitCost:  lr.UnitCost,
		})
	}

	return &returns.OrderSnapshot{
		ID:         row.ID,
		Number:     row.OrderNumber,
		Origin:     returns.ReturnOrigin(row.Origin),
		OrderedAt:  row.OrderedAt,
		CustomerID: row.CustomerID,
		SupplierID: row.SupplierID,
		Lines:      lines,
	}, nil
}

// productRow is the persistence model of the product catalog projection
type productRow struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"column:name"`
	SKU  string    `gorm:"column:sku"`
}

func (productRow) TableName() string {
	return "products"
}

// GormProductLookup resolves product display data
type GormProductLookup struct {
	db *gorm.DB
}

// NewGormProductLookup creates a new GormProductLookup
func NewGormProductLookup(db *gorm.DB) *GormProductLookup {
	return &GormProductLookup{db: db}
}

// FindProduct returns the product's name and SKU
func (l *GormProductLookup) FindProduct(ctx context.Context, productID uuid.UUID) (*returns.ProductInfo, error) {
	var row productRow
	if err := l.db.WithContext(ctx).First(&row, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load product", err)
	}
	return &returns.ProductInfo{ID: row.ID, Name: row.Name, SKU: row.SKU}, nil
}

var (
	_ returns.OrderLookup   = (*GormOrderLookup)(nil)
	_ returns.ProductLookup = (*GormProductLookup)(nil)
)
