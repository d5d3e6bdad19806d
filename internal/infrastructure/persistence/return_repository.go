package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
)

// GormReturnRepository implements ReturnRepository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// FindByID finds a return by ID with its items
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*returns.MerchandiseReturn, error) {
	var ret returns.MerchandiseReturn
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&ret, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load return", err)
	}
	return &ret, nil
}

// FindByIDForUpdate finds a return by ID with its items, locking the
// aggregate row for the duration of the transaction. The items are loaded
// without a lock; they are only ever mutated through the locked aggregate.
func (r *GormReturnRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*returns.MerchandiseReturn, error) {
	var ret returns.MerchandiseReturn
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&ret, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load return", err)
	}
	return &ret, nil
}

// FindByNumber finds a return by its human-readable number
func (r *GormReturnRepository) FindByNumber(ctx context.Context, number string) (*returns.MerchandiseReturn, error) {
	var ret returns.MerchandiseReturn
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&ret, "return_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load return", err)
	}
	return &ret, nil
}

// FindAll finds returns matching the filter
func (r *GormReturnRepository) FindAll(ctx context.Context, filter shared.Filter) ([]returns.MerchandiseReturn, error) {
	var out []returns.MerchandiseReturn
	query := r.applyFilter(r.db.WithContext(ctx).Model(&returns.MerchandiseReturn{}), filter)
	if err := query.Preload("Items").Find(&out).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to list returns", err)
	}
	return out, nil
}

// Count counts returns matching the filter
func (r *GormReturnRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&returns.MerchandiseReturn{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, shared.NewPersistenceError("failed to count returns", err)
	}
	return count, nil
}

// FindByOrder finds all returns raised against an order
func (r *GormReturnRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]returns.MerchandiseReturn, error) {
	var out []returns.MerchandiseReturn
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load returns for order", err)
	}
	return out, nil
}

// Save creates or updates a return and reconciles its items
func (r *GormReturnRepository) Save(ctx context.Context, ret *returns.MerchandiseReturn) error {
	tx := r.db.WithContext(ctx)

	if err := tx.Omit("Items").Save(ret).Error; err != nil {
		return shared.NewPersistenceError("failed to save return", err)
	}

	currentItemIDs := make([]uuid.UUID, len(ret.Items))
	for i, item := range ret.Items {
		currentItemIDs[i] = item.ID
	}

	// Remove items dropped from the aggregate, then upsert the rest
	itemQuery := tx.Where("return_id = ?", ret.ID)
	if len(currentItemIDs) > 0 {
		itemQuery = itemQuery.Where("id NOT IN ?", currentItemIDs)
	}
	if err := itemQuery.Delete(&returns.ReturnItem{}).Error; err != nil {
		return shared.NewPersistenceError("failed to reconcile return items", err)
	}

	for i := range ret.Items {
		if err := tx.Save(&ret.Items[i]).Error; err != nil {
			return shared.NewPersistenceError("failed to save return item", err)
		}
	}

	return nil
}

// SumReturnedForOrderLine sums quantities claimed against an order line
// across all returns that are not rejected or cancelled.
func (r *GormReturnRepository) SumReturnedForOrderLine(ctx context.Context, orderLineID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("return_items").
		Select("COALESCE(SUM(return_items.quantity), 0) AS total").
		Joins("JOIN merchandise_returns ON merchandise_returns.id = return_items.return_id").
		Where("return_items.order_line_id = ?", orderLineID).
		Where("merchandise_returns.status NOT IN ?", []string{
			string(returns.StatusRejected), string(returns.StatusCancelled),
		}).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, shared.NewPersistenceError("failed to sum returned quantities", err)
	}
	return result.Total, nil
}

// NextReturnNumber allocates the next sequential return number for the day.
// The sequence resets daily; the unique index on return_number catches
// collisions between concurrent writers and the transaction retry resolves them.
func (r *GormReturnRepository) NextReturnNumber(ctx context.Context, day time.Time) (string, error) {
	prefix := fmt.Sprintf("RET-%s-", day.Format("20060102"))

	var lastNumber string
	err := r.db.WithContext(ctx).
		Model(&returns.MerchandiseReturn{}).
		Where("return_number LIKE ?", prefix+"%").
		Select("COALESCE(MAX(return_number), '')").
		Scan(&lastNumber).Error
	if err != nil {
		return "", shared.NewPersistenceError("failed to read last return number", err)
	}

	var next int64 = 1
	if lastNumber != "" {
		parts := strings.Split(lastNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				next = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%04d", prefix, next), nil
}

// Stats aggregates return statistics for the period
func (r *GormReturnRepository) Stats(ctx context.Context, from, to time.Time) (*returns.ReturnStats, error) {
	var stats returns.ReturnStats
	err := r.db.WithContext(ctx).
		Model(&returns.MerchandiseReturn{}).
		Select(`
			COUNT(*) AS total_count,
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count,
			COUNT(*) FILTER (WHERE status = 'PROCESSED') AS processed_count,
			COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected_count,
			COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled_count,
			COUNT(*) FILTER (WHERE origin = 'SALE') AS sale_count,
			COUNT(*) FILTER (WHERE origin = 'PURCHASE') AS purchase_count,
			COALESCE(SUM(net_refund) FILTER (WHERE status = 'PROCESSED'), 0) AS total_refund,
			COALESCE(SUM(total_restocking_fee) FILTER (WHERE status = 'PROCESSED'), 0) AS total_restocking_fee`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&stats).Error
	if err != nil {
		return nil, shared.NewPersistenceError("failed to aggregate return stats", err)
	}
	return &stats, nil
}

// applyFilter applies conditions, ordering and pagination
func (r *GormReturnRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(sortColumn(filter.OrderBy) + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// sortableColumns lists the columns clients may order by. Anything else
// falls back to created_at; order_by comes straight from the query string
// and must never reach the ORDER BY clause unchecked.
var sortableColumns = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"return_number": true,
	"order_number":  true,
	"status":        true,
	"net_refund":    true,
	"total_refund":  true,
	"processed_at":  true,
}

func sortColumn(orderBy string) string {
	if sortableColumns[orderBy] {
		return orderBy
	}
	return "created_at"
}

// applyConditions applies search and field filters without pagination
func (r *GormReturnRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("return_number ILIKE ? OR order_number ILIKE ?", pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "origin":
			query = query.Where("origin = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

var _ returns.ReturnRepository = (*GormReturnRepository)(nil)
