package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
)

func TestSortColumn(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"created_at", "created_at"},
		{"return_number", "return_number"},
		{"net_refund", "net_refund"},
		{"status", "status"},
		{"", "created_at"},
		{"remark", "created_at"},
		{"created_at; DROP TABLE merchandise_returns", "created_at"},
		{"1=1 --", "created_at"},
		{"status, (SELECT 1)", "created_at"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sortColumn(tt.input), "order_by %q", tt.input)
	}
}

func TestGormReturnRepository_ApplyFilterOrdering(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewGormReturnRepository(db)

	buildSQL := func(filter shared.Filter) string {
		session := db.Session(&gorm.Session{DryRun: true}).Model(&returns.MerchandiseReturn{})
		var out []returns.MerchandiseReturn
		return repo.applyFilter(session, filter).Find(&out).Statement.SQL.String()
	}

	t.Run("known column passes through", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "return_number"
		filter.OrderDir = "desc"
		assert.Contains(t, buildSQL(filter), "ORDER BY return_number DESC")
	})

	t.Run("unknown column falls back to created_at", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "return_number; DROP TABLE merchandise_returns; --"
		filter.OrderDir = "desc"

		sql := buildSQL(filter)
		assert.Contains(t, sql, "ORDER BY created_at DESC")
		assert.NotContains(t, sql, "DROP TABLE")
	})
}
