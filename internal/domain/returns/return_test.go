package returns

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailcore/backend/internal/domain/shared"
)

func saleOrderSnapshot() *OrderSnapshot {
	customerID := uuid.New()
	return &OrderSnapshot{
		ID:         uuid.New(),
		Number:     "SO-20260801-0001",
		Origin:     OriginSale,
		OrderedAt:  time.Now().AddDate(0, 0, -5),
		CustomerID: &customerID,
		Lines: []OrderLine{
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				Quantity:  decimal.NewFromInt(5),
				UnitPrice: decimal.NewFromInt(50),
				UnitCost:  decimal.NewFromInt(30),
			},
		},
	}
}

func purchaseOrderSnapshot() *OrderSnapshot {
	supplierID := uuid.New()
	return &OrderSnapshot{
		ID:         uuid.New(),
		Number:     "PO-20260801-0001",
		Origin:     OriginPurchase,
		OrderedAt:  time.Now().AddDate(0, 0, -5),
		SupplierID: &supplierID,
		Lines: []OrderLine{
			{
				ID:        uuid.New(),
				ProductID: uuid.New(),
				Quantity:  decimal.NewFromInt(10),
				UnitPrice: decimal.NewFromInt(20),
				UnitCost:  decimal.NewFromInt(20),
			},
		},
	}
}

func testProduct(id uuid.UUID) ProductInfo {
	return ProductInfo{ID: id, Name: "Test Product", SKU: "SKU-001"}
}

func newSaleReturn(t *testing.T) (*MerchandiseReturn, *OrderSnapshot) {
	t.Helper()
	order := saleOrderSnapshot()
	ret, err := NewMerchandiseReturn("RET-20260827-0001", order, RefundMethodCash)
	require.NoError(t, err)
	return ret, order
}

func TestNewMerchandiseReturn(t *testing.T) {
	t.Run("creates pending sale return", func(t *testing.T) {
		ret, order := newSaleReturn(t)

		assert.Equal(t, StatusPending, ret.Status)
		assert.Equal(t, OriginSale, ret.Origin)
		assert.Equal(t, order.ID, ret.OrderID)
		assert.Equal(t, order.Number, ret.OrderNumber)
		assert.Equal(t, *order.CustomerID, ret.CounterpartyID())
		assert.True(t, ret.NetRefund.IsZero())

		events := ret.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventReturnRequested, events[0].EventType())
	})

	t.Run("rejects missing counterparty", func(t *testing.T) {
		order := saleOrderSnapshot()
		order.CustomerID = nil

		_, err := NewMerchandiseReturn("RET-20260827-0002", order, RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects both counterparties set", func(t *testing.T) {
		order := saleOrderSnapshot()
		supplierID := uuid.New()
		order.SupplierID = &supplierID

		_, err := NewMerchandiseReturn("RET-20260827-0003", order, RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects supplier on sale origin", func(t *testing.T) {
		order := saleOrderSnapshot()
		supplierID := uuid.New()
		order.CustomerID = nil
		order.SupplierID = &supplierID

		_, err := NewMerchandiseReturn("RET-20260827-0004", order, RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects unknown refund method", func(t *testing.T) {
		order := saleOrderSnapshot()
		_, err := NewMerchandiseReturn("RET-20260827-0005", order, RefundMethod("CHECK"))
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})
}

func TestMerchandiseReturn_AddItem(t *testing.T) {
	policy := DefaultFeePolicy()

	t.Run("computes fee and refund and aggregates totals", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]

		item, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(2),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)

		assert.True(t, item.RestockingFee.Equal(decimal.NewFromInt(15)), "fee was %s", item.RestockingFee)
		assert.True(t, item.RefundAmount.Equal(decimal.NewFromInt(85)), "refund was %s", item.RefundAmount)
		assert.True(t, ret.TotalRefund.Equal(decimal.NewFromInt(85)))
		assert.True(t, ret.TotalRestockingFee.Equal(decimal.NewFromInt(15)))
		assert.True(t, ret.NetRefund.Equal(decimal.NewFromInt(70)))
	})

	t.Run("uses unit price as cost fallback", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]
		line.UnitCost = decimal.Zero

		item, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)
		assert.True(t, item.UnitCost.Equal(line.UnitPrice))
	})

	t.Run("rejects duplicate order line", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]

		_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)

		_, err = ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]

		_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.Zero,
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejects adding items after approval", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]
		_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)
		require.NoError(t, ret.Approve(uuid.New()))

		_, err = ret.AddItem(OrderLine{ID: uuid.New(), ProductID: uuid.New(),
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			testProduct(uuid.New()), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})
}

func TestMerchandiseReturn_StatusTransitions(t *testing.T) {
	policy := DefaultFeePolicy()

	addItem := func(t *testing.T, ret *MerchandiseReturn, order *OrderSnapshot) {
		t.Helper()
		line := order.Lines[0]
		_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)
	}

	t.Run("pending to inspected to approved to processed", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		addItem(t, ret, order)

		require.NoError(t, ret.MarkInspected(uuid.New(), "all good",
			map[uuid.UUID]bool{ret.Items[0].ID: true}))
		assert.Equal(t, StatusInspected, ret.Status)
		assert.NotNil(t, ret.InspectedAt)

		require.NoError(t, ret.Approve(uuid.New()))
		assert.Equal(t, StatusApproved, ret.Status)

		require.NoError(t, ret.BeginProcessing())
		assert.Equal(t, StatusProcessing, ret.Status)

		require.NoError(t, ret.CompleteProcessing(uuid.New()))
		assert.Equal(t, StatusProcessed, ret.Status)
		assert.NotNil(t, ret.ProcessedAt)
	})

	t.Run("processing directly from pending", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		addItem(t, ret, order)

		require.NoError(t, ret.BeginProcessing())
		require.NoError(t, ret.CompleteProcessing(uuid.Nil))
		assert.True(t, ret.IsProcessed())
	})

	t.Run("processing requires items", func(t *testing.T) {
		ret, _ := newSaleReturn(t)
		err := ret.BeginProcessing()
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("processed return cannot be processed again", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		addItem(t, ret, order)
		require.NoError(t, ret.BeginProcessing())
		require.NoError(t, ret.CompleteProcessing(uuid.Nil))

		err := ret.BeginProcessing()
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})

	t.Run("rejected return is terminal", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		addItem(t, ret, order)
		require.NoError(t, ret.Reject(uuid.New(), "fraud suspected"))

		assert.Error(t, ret.Approve(uuid.New()))
		assert.Error(t, ret.BeginProcessing())
		assert.Error(t, ret.Cancel("too late"))
	})

	t.Run("rejection requires a reason", func(t *testing.T) {
		ret, _ := newSaleReturn(t)
		err := ret.Reject(uuid.New(), "")
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("cancel allowed until processing starts", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		addItem(t, ret, order)
		require.NoError(t, ret.Approve(uuid.New()))
		require.NoError(t, ret.Cancel("customer changed plans"))
		assert.Equal(t, StatusCancelled, ret.Status)
	})
}

func TestMerchandiseReturn_MarkRefundPaid(t *testing.T) {
	policy := DefaultFeePolicy()

	processedDeferred := func(t *testing.T) *MerchandiseReturn {
		t.Helper()
		order := saleOrderSnapshot()
		ret, err := NewMerchandiseReturn("RET-20260827-0010", order, RefundMethodDeferred)
		require.NoError(t, err)
		line := order.Lines[0]
		_, err = ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(2),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)
		require.NoError(t, ret.BeginProcessing())
		require.NoError(t, ret.CompleteProcessing(uuid.Nil))
		return ret
	}

	t.Run("pays a deferred refund", func(t *testing.T) {
		ret := processedDeferred(t)
		require.NoError(t, ret.MarkRefundPaid(ret.NetRefund, RefundMethodBank))
		assert.NotNil(t, ret.RefundPaidAt)
		assert.True(t, ret.RefundPaidAmount.Equal(ret.NetRefund))
		assert.Equal(t, RefundMethodBank, ret.RefundPaidMethod)
	})

	t.Run("cannot pay twice", func(t *testing.T) {
		ret := processedDeferred(t)
		require.NoError(t, ret.MarkRefundPaid(ret.NetRefund, RefundMethodCash))
		err := ret.MarkRefundPaid(ret.NetRefund, RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})

	t.Run("cannot exceed net refund", func(t *testing.T) {
		ret := processedDeferred(t)
		err := ret.MarkRefundPaid(ret.NetRefund.Add(decimal.NewFromInt(1)), RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("rejected for non-deferred returns", func(t *testing.T) {
		ret, order := newSaleReturn(t)
		line := order.Lines[0]
		_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(1),
			ConditionGood, DispositionRefund, ReasonOther, policy)
		require.NoError(t, err)
		require.NoError(t, ret.BeginProcessing())
		require.NoError(t, ret.CompleteProcessing(uuid.Nil))

		err = ret.MarkRefundPaid(ret.NetRefund, RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})

	t.Run("rejected for purchase returns", func(t *testing.T) {
		order := purchaseOrderSnapshot()
		ret, err := NewMerchandiseReturn("RET-20260827-0011", order, RefundMethodDeferred)
		require.NoError(t, err)

		err = ret.MarkRefundPaid(decimal.NewFromInt(10), RefundMethodCash)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})
}

func TestMerchandiseReturn_COGSTotal(t *testing.T) {
	policy := DefaultFeePolicy()
	ret, order := newSaleReturn(t)
	line := order.Lines[0]

	_, err := ret.AddItem(line, testProduct(line.ProductID), decimal.NewFromInt(3),
		ConditionGood, DispositionRefund, ReasonOther, policy)
	require.NoError(t, err)

	assert.True(t, ret.COGSTotal().Equal(decimal.NewFromInt(90)), "got %s", ret.COGSTotal())
}
