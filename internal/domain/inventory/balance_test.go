package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailcore/backend/internal/domain/shared"
)

func TestBalance_SellableBucket(t *testing.T) {
	t.Run("receive adds to sellable", func(t *testing.T) {
		b := NewBalance(uuid.New())
		require.NoError(t, b.ReceiveSellable(decimal.NewFromInt(5)))
		assert.True(t, b.Sellable.Equal(decimal.NewFromInt(5)))
	})

	t.Run("release subtracts from sellable", func(t *testing.T) {
		b := NewBalance(uuid.New())
		require.NoError(t, b.ReceiveSellable(decimal.NewFromInt(5)))
		require.NoError(t, b.ReleaseSellable(decimal.NewFromInt(3)))
		assert.True(t, b.Sellable.Equal(decimal.NewFromInt(2)))
	})

	t.Run("release fails on insufficient stock", func(t *testing.T) {
		b := NewBalance(uuid.New())
		require.NoError(t, b.ReceiveSellable(decimal.NewFromInt(2)))

		err := b.ReleaseSellable(decimal.NewFromInt(3))
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInsufficientStock))
		assert.True(t, b.Sellable.Equal(decimal.NewFromInt(2)), "balance must be untouched on failure")
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		b := NewBalance(uuid.New())
		assert.Error(t, b.ReceiveSellable(decimal.Zero))
		assert.Error(t, b.ReleaseSellable(decimal.NewFromInt(-1)))
	})
}

func TestBalance_QuarantineBucket(t *testing.T) {
	t.Run("quarantine is tracked separately from sellable", func(t *testing.T) {
		b := NewBalance(uuid.New())
		require.NoError(t, b.ReceiveSellable(decimal.NewFromInt(4)))
		require.NoError(t, b.ReceiveQuarantine(decimal.NewFromInt(3)))

		assert.True(t, b.Sellable.Equal(decimal.NewFromInt(4)))
		assert.True(t, b.Quarantine.Equal(decimal.NewFromInt(3)))
		assert.True(t, b.Total().Equal(decimal.NewFromInt(7)))
	})

	t.Run("release quarantine fails when bucket is short", func(t *testing.T) {
		b := NewBalance(uuid.New())
		require.NoError(t, b.ReceiveQuarantine(decimal.NewFromInt(1)))

		err := b.ReleaseQuarantine(decimal.NewFromInt(2))
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInsufficientStock))
	})
}

func TestNewMovement(t *testing.T) {
	productID := uuid.New()
	ref := MovementRef{Type: RefSalesReturn, ID: uuid.New(), Number: "RET-20260827-0001"}

	t.Run("snapshots before and after figures", func(t *testing.T) {
		prev := *NewBalance(productID)
		next := prev
		require.NoError(t, next.ReceiveSellable(decimal.NewFromInt(2)))

		m, err := NewMovement(MovementReturnIn, decimal.NewFromInt(2), decimal.NewFromInt(30), prev, next, ref)
		require.NoError(t, err)

		assert.Equal(t, productID, m.ProductID)
		assert.True(t, m.SellableBefore.IsZero())
		assert.True(t, m.SellableAfter.Equal(decimal.NewFromInt(2)))
		assert.True(t, m.QuarantineBefore.IsZero())
		assert.True(t, m.QuarantineAfter.IsZero())
		assert.Equal(t, RefSalesReturn, m.ReferenceType)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		prev := *NewBalance(productID)
		_, err := NewMovement(MovementReturnIn, decimal.Zero, decimal.Zero, prev, prev, ref)
		require.Error(t, err)
	})

	t.Run("rejects mismatched product snapshots", func(t *testing.T) {
		prev := *NewBalance(productID)
		next := *NewBalance(uuid.New())
		_, err := NewMovement(MovementReturnIn, decimal.NewFromInt(1), decimal.Zero, prev, next, ref)
		require.Error(t, err)
	})

	t.Run("rejects unknown movement type", func(t *testing.T) {
		prev := *NewBalance(productID)
		_, err := NewMovement(MovementType("TRANSFER"), decimal.NewFromInt(1), decimal.Zero, prev, prev, ref)
		require.Error(t, err)
	})
}
