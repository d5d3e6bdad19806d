package returns

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailcore/backend/internal/domain/inventory"
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
)

// ---- in-memory fakes ----

type fakeReturnRepo struct {
	byID map[uuid.UUID]*returns.MerchandiseReturn
	seq  int
	// lockedLoads counts FindByIDForUpdate calls so tests can assert that
	// mutating flows load the aggregate under lock.
	lockedLoads int
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{byID: make(map[uuid.UUID]*returns.MerchandiseReturn)}
}

func (r *fakeReturnRepo) FindByID(_ context.Context, id uuid.UUID) (*returns.MerchandiseReturn, error) {
	ret, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ret, nil
}

func (r *fakeReturnRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*returns.MerchandiseReturn, error) {
	r.lockedLoads++
	return r.FindByID(ctx, id)
}

func (r *fakeReturnRepo) FindByNumber(_ context.Context, number string) (*returns.MerchandiseReturn, error) {
	for _, ret := range r.byID {
		if ret.ReturnNumber == number {
			return ret, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeReturnRepo) FindAll(_ context.Context, _ shared.Filter) ([]returns.MerchandiseReturn, error) {
	out := make([]returns.MerchandiseReturn, 0, len(r.byID))
	for _, ret := range r.byID {
		out = append(out, *ret)
	}
	return out, nil
}

func (r *fakeReturnRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byID)), nil
}

func (r *fakeReturnRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]returns.MerchandiseReturn, error) {
	out := make([]returns.MerchandiseReturn, 0)
	for _, ret := range r.byID {
		if ret.OrderID == orderID {
			out = append(out, *ret)
		}
	}
	return out, nil
}

func (r *fakeReturnRepo) Save(_ context.Context, ret *returns.MerchandiseReturn) error {
	r.byID[ret.ID] = ret
	return nil
}

func (r *fakeReturnRepo) SumReturnedForOrderLine(_ context.Context, orderLineID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, ret := range r.byID {
		if ret.Status == returns.StatusRejected || ret.Status == returns.StatusCancelled {
			continue
		}
		for _, item := range ret.Items {
			if item.OrderLineID == orderLineID {
				sum = sum.Add(item.Quantity)
			}
		}
	}
	return sum, nil
}

func (r *fakeReturnRepo) NextReturnNumber(_ context.Context, day time.Time) (string, error) {
	r.seq++
	return fmt.Sprintf("RET-%s-%04d", day.Format("20060102"), r.seq), nil
}

func (r *fakeReturnRepo) Stats(_ context.Context, _, _ time.Time) (*returns.ReturnStats, error) {
	stats := &returns.ReturnStats{
		TotalRefund:        decimal.Zero,
		TotalRestockingFee: decimal.Zero,
	}
	for _, ret := range r.byID {
		stats.TotalCount++
		if ret.Status == returns.StatusProcessed {
			stats.ProcessedCount++
			stats.TotalRefund = stats.TotalRefund.Add(ret.NetRefund)
			stats.TotalRestockingFee = stats.TotalRestockingFee.Add(ret.TotalRestockingFee)
		}
	}
	return stats, nil
}

type fakeLedgerRepo struct {
	entries []ledger.Entry
}

func (r *fakeLedgerRepo) AppendPair(_ context.Context, entries []ledger.Entry) error {
	if len(entries) != 2 || !ledger.Balanced(entries) {
		return shared.NewValidationError("UNBALANCED_PAIR", "Ledger pair is not balanced")
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeLedgerRepo) FindByTransaction(_ context.Context, txID uuid.UUID) ([]ledger.Entry, error) {
	out := make([]ledger.Entry, 0)
	for _, e := range r.entries {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) FindByReference(_ context.Context, refType ledger.ReferenceType, refID uuid.UUID) ([]ledger.Entry, error) {
	out := make([]ledger.Entry, 0)
	for _, e := range r.entries {
		if e.ReferenceType == refType && e.ReferenceID == refID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) MarkReversed(_ context.Context, txID uuid.UUID) error {
	for idx := range r.entries {
		if r.entries[idx].TransactionID == txID {
			r.entries[idx].Status = ledger.EntryStatusReversed
		}
	}
	return nil
}

type fakeBalanceRepo struct {
	balances map[uuid.UUID]*inventory.Balance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[uuid.UUID]*inventory.Balance)}
}

func (r *fakeBalanceRepo) Find(_ context.Context, productID uuid.UUID) (*inventory.Balance, error) {
	b, ok := r.balances[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *fakeBalanceRepo) GetForUpdate(_ context.Context, productID uuid.UUID) (*inventory.Balance, error) {
	if b, ok := r.balances[productID]; ok {
		return b, nil
	}
	b := inventory.NewBalance(productID)
	r.balances[productID] = b
	return b, nil
}

func (r *fakeBalanceRepo) Save(_ context.Context, b *inventory.Balance) error {
	r.balances[b.ProductID] = b
	return nil
}

type fakeMovementRepo struct {
	movements []inventory.Movement
}

func (r *fakeMovementRepo) Append(_ context.Context, m *inventory.Movement) error {
	r.movements = append(r.movements, *m)
	return nil
}

func (r *fakeMovementRepo) FindByReference(_ context.Context, refType string, refID uuid.UUID) ([]inventory.Movement, error) {
	out := make([]inventory.Movement, 0)
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ int) ([]inventory.Movement, error) {
	out := make([]inventory.Movement, 0)
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

type storeCredit struct {
	PartyID uuid.UUID
	Amount  decimal.Decimal
	OrderID uuid.UUID
}

type fakePartyBalances struct {
	credits []storeCredit
}

func (p *fakePartyBalances) RecordRefund(_ context.Context, partyID uuid.UUID, amount decimal.Decimal, orderID uuid.UUID, _ string) error {
	p.credits = append(p.credits, storeCredit{PartyID: partyID, Amount: amount, OrderID: orderID})
	return nil
}

type fakeOrderLookup struct {
	orders map[uuid.UUID]*returns.OrderSnapshot
}

func (l *fakeOrderLookup) FindOrder(_ context.Context, origin returns.ReturnOrigin, orderID uuid.UUID) (*returns.OrderSnapshot, error) {
	order, ok := l.orders[orderID]
	if !ok || order.Origin != origin {
		return nil, shared.ErrNotFound
	}
	return order, nil
}

type fakeProductLookup struct{}

func (fakeProductLookup) FindProduct(_ context.Context, productID uuid.UUID) (*returns.ProductInfo, error) {
	return &returns.ProductInfo{ID: productID, Name: "Widget", SKU: "W-100"}, nil
}

// ---- test harness ----

type testEnv struct {
	svc       *ReturnService
	returns   *fakeReturnRepo
	ledger    *fakeLedgerRepo
	balances  *fakeBalanceRepo
	movements *fakeMovementRepo
	parties   *fakePartyBalances
	orders    *fakeOrderLookup
}

func newTestEnv() *testEnv {
	env := &testEnv{
		returns:   newFakeReturnRepo(),
		ledger:    &fakeLedgerRepo{},
		balances:  newFakeBalanceRepo(),
		movements: &fakeMovementRepo{},
		parties:   &fakePartyBalances{},
		orders:    &fakeOrderLookup{orders: make(map[uuid.UUID]*returns.OrderSnapshot)},
	}
	scope := NewNoOpTransactionScope(env.returns, env.ledger, env.balances, env.movements, env.parties)
	policy := returns.FeePolicy{BasePercent: decimal.NewFromInt(10), ReturnWindowDays: 30}
	env.svc = NewReturnService(scope, env.returns, env.orders, fakeProductLookup{},
		policy, DefaultAccountMap(), zap.NewNop())
	return env
}

func (e *testEnv) addSaleOrder(lineQty, unitPrice, unitCost int64) (*returns.OrderSnapshot, returns.OrderLine) {
	customerID := uuid.New()
	line := returns.OrderLine{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  decimal.NewFromInt(lineQty),
		UnitPrice: decimal.NewFromInt(unitPrice),
		UnitCost:  decimal.NewFromInt(unitCost),
	}
	order := &returns.OrderSnapshot{
		ID:         uuid.New(),
		Number:     "SO-20260820-0001",
		Origin:     returns.OriginSale,
		OrderedAt:  time.Now().AddDate(0, 0, -3),
		CustomerID: &customerID,
		Lines:      []returns.OrderLine{line},
	}
	e.orders.orders[order.ID] = order
	return order, line
}

func (e *testEnv) addPurchaseOrder(lineQty, unitPrice int64) (*returns.OrderSnapshot, returns.OrderLine) {
	supplierID := uuid.New()
	line := returns.OrderLine{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  decimal.NewFromInt(lineQty),
		UnitPrice: decimal.NewFromInt(unitPrice),
		UnitCost:  decimal.NewFromInt(unitPrice),
	}
	order := &returns.OrderSnapshot{
		ID:         uuid.New(),
		Number:     "PO-20260820-0001",
		Origin:     returns.OriginPurchase,
		OrderedAt:  time.Now().AddDate(0, 0, -3),
		SupplierID: &supplierID,
		Lines:      []returns.OrderLine{line},
	}
	e.orders.orders[order.ID] = order
	return order, line
}

func itemRequest(line returns.OrderLine, qty int64, condition, reason string) CreateReturnItemRequest {
	return CreateReturnItemRequest{
		OrderLineID: line.ID,
		Quantity:    decimal.NewFromInt(qty),
		Condition:   condition,
		Disposition: "REFUND",
		Reason:      reason,
	}
}

func pairCount(entries []ledger.Entry) int {
	return len(entries) / 2
}

func TestReturnService_Create_SaleReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("cash refund processes immediately", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "CHANGED_MIND")},
		}, uuid.New())
		require.NoError(t, err)

		// base 10% x 1.0 condition x 1.5 changed-mind = 15% of 100
		assert.Equal(t, "PROCESSED", resp.Status)
		assert.True(t, resp.TotalRestockingFee.Equal(decimal.NewFromInt(15)), "fee was %s", resp.TotalRestockingFee)
		assert.True(t, resp.TotalRefund.Equal(decimal.NewFromInt(85)))
		assert.True(t, resp.NetRefund.Equal(decimal.NewFromInt(70)))

		// net pair + cash pair + COGS pair
		require.Equal(t, 3, pairCount(env.ledger.entries))
		assert.True(t, ledger.Balanced(env.ledger.entries))

		balance, err := env.balances.Find(ctx, line.ProductID)
		require.NoError(t, err)
		assert.True(t, balance.Sellable.Equal(decimal.NewFromInt(2)))

		require.Len(t, env.movements.movements, 1)
		movement := env.movements.movements[0]
		assert.Equal(t, inventory.MovementReturnIn, movement.MovementType)
		assert.True(t, movement.SellableBefore.IsZero())
		assert.True(t, movement.SellableAfter.Equal(decimal.NewFromInt(2)))
		assert.True(t, movement.UnitCost.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, resp.ReturnNumber, movement.ReferenceNumber)
	})

	t.Run("store fault waives the fee", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "DAMAGED", "DEFECTIVE")},
		}, uuid.New())
		require.NoError(t, err)

		assert.True(t, resp.TotalRestockingFee.IsZero())
		assert.True(t, resp.NetRefund.Equal(decimal.NewFromInt(100)))
	})

	t.Run("deferred refund posts no cash pair", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "DEFERRED",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, "PROCESSED", resp.Status)
		// net pair + COGS pair only
		assert.Equal(t, 2, pairCount(env.ledger.entries))
	})

	t.Run("store credit goes to the customer balance", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "STORE_CREDIT",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, 2, pairCount(env.ledger.entries))
		require.Len(t, env.parties.credits, 1)
		credit := env.parties.credits[0]
		assert.Equal(t, *order.CustomerID, credit.PartyID)
		assert.Equal(t, order.ID, credit.OrderID)
		assert.True(t, credit.Amount.Equal(resp.NetRefund))
	})

	t.Run("defer flag leaves the return pending", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, "PENDING", resp.Status)
		assert.Empty(t, env.ledger.entries)
		assert.Empty(t, env.movements.movements)
	})

	t.Run("expired window is rejected", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)
		order.OrderedAt = time.Now().AddDate(0, 0, -45)

		_, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 1, "GOOD", "OTHER")},
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindEligibility))
	})

	t.Run("missing order is an eligibility failure", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      uuid.New(),
			RefundMethod: "CASH",
			Items: []CreateReturnItemRequest{{
				OrderLineID: uuid.New(),
				Quantity:    decimal.NewFromInt(1),
				Condition:   "GOOD",
				Disposition: "REFUND",
				Reason:      "OTHER",
			}},
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindEligibility))
	})

	t.Run("over-return is rejected", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		_, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 6, "GOOD", "OTHER")},
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindEligibility))
		assert.Empty(t, env.movements.movements)
	})

	t.Run("partial returns cannot exceed the line quantity across calls", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		_, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 3, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		_, err = env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 3, "GOOD", "OTHER")},
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindEligibility))
	})
}

func TestReturnService_Create_PurchaseReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("moves stock out and posts payable reduction", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addPurchaseOrder(10, 20)

		seeded, err := env.balances.GetForUpdate(ctx, line.ProductID)
		require.NoError(t, err)
		require.NoError(t, seeded.ReceiveSellable(decimal.NewFromInt(10)))

		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "PURCHASE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 4, "GOOD", "QUALITY_ISSUE")},
		}, uuid.New())
		require.NoError(t, err)

		assert.Equal(t, "PROCESSED", resp.Status)

		balance, err := env.balances.Find(ctx, line.ProductID)
		require.NoError(t, err)
		assert.True(t, balance.Sellable.Equal(decimal.NewFromInt(6)))

		require.Len(t, env.movements.movements, 1)
		movement := env.movements.movements[0]
		assert.Equal(t, inventory.MovementReturnOut, movement.MovementType)
		assert.True(t, movement.Quantity.Equal(decimal.NewFromInt(-4)))

		// payable pair + cash-received pair + COGS pair
		assert.Equal(t, 3, pairCount(env.ledger.entries))
		assert.True(t, ledger.Balanced(env.ledger.entries))
	})

	t.Run("insufficient stock fails with no rows written", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addPurchaseOrder(10, 20)

		seeded, err := env.balances.GetForUpdate(ctx, line.ProductID)
		require.NoError(t, err)
		require.NoError(t, seeded.ReceiveSellable(decimal.NewFromInt(4)))

		_, err = env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "PURCHASE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 10, "GOOD", "QUALITY_ISSUE")},
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInsufficientStock))
		assert.Empty(t, env.movements.movements)
		assert.Empty(t, env.ledger.entries)
	})
}

func TestReturnService_Process(t *testing.T) {
	ctx := context.Background()

	createDeferred := func(t *testing.T, env *testEnv) (*ReturnResponse, returns.OrderLine) {
		t.Helper()
		order, line := env.addSaleOrder(5, 50, 30)
		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)
		return resp, line
	}

	t.Run("processes a deferred return", func(t *testing.T) {
		env := newTestEnv()
		created, line := createDeferred(t, env)

		resp, err := env.svc.Process(ctx, created.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "PROCESSED", resp.Status)

		balance, err := env.balances.Find(ctx, line.ProductID)
		require.NoError(t, err)
		assert.True(t, balance.Sellable.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, 3, pairCount(env.ledger.entries))
	})

	t.Run("processing twice is rejected and writes nothing", func(t *testing.T) {
		env := newTestEnv()
		created, _ := createDeferred(t, env)

		_, err := env.svc.Process(ctx, created.ID, uuid.New())
		require.NoError(t, err)
		entriesBefore := len(env.ledger.entries)
		movementsBefore := len(env.movements.movements)

		_, err = env.svc.Process(ctx, created.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
		assert.Len(t, env.ledger.entries, entriesBefore)
		assert.Len(t, env.movements.movements, movementsBefore)
	})

	t.Run("loads the return under lock", func(t *testing.T) {
		// Processing serializes on the aggregate row. The second of two
		// racing processors waits on the lock, then sees the processed
		// status and fails the transition instead of reapplying effects.
		env := newTestEnv()
		created, _ := createDeferred(t, env)

		_, err := env.svc.Process(ctx, created.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 1, env.returns.lockedLoads)

		_, err = env.svc.Process(ctx, created.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
		assert.Equal(t, 2, env.returns.lockedLoads)
	})

	t.Run("processing a rejected return is rejected", func(t *testing.T) {
		env := newTestEnv()
		created, _ := createDeferred(t, env)

		_, err := env.svc.Reject(ctx, created.ID, uuid.New(), RejectReturnRequest{Reason: "suspected abuse"})
		require.NoError(t, err)

		_, err = env.svc.Process(ctx, created.ID, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})

	t.Run("unknown return is not found", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Process(ctx, uuid.New(), uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})
}

func TestReturnService_Inspection(t *testing.T) {
	ctx := context.Background()

	t.Run("non-resellable items land in quarantine", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		created, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "POOR", "QUALITY_ISSUE")},
		}, uuid.New())
		require.NoError(t, err)

		inspected, err := env.svc.MarkInspected(ctx, created.ID, uuid.New(), InspectReturnRequest{
			Notes: "water damage, cannot resell",
			Items: []InspectItemRequest{{ItemID: created.Items[0].ID, Resellable: false}},
		})
		require.NoError(t, err)
		assert.Equal(t, "INSPECTED", inspected.Status)
		assert.False(t, inspected.Items[0].Resellable)

		_, err = env.svc.Process(ctx, created.ID, uuid.New())
		require.NoError(t, err)

		balance, err := env.balances.Find(ctx, line.ProductID)
		require.NoError(t, err)
		assert.True(t, balance.Sellable.IsZero(), "sellable must stay untouched")
		assert.True(t, balance.Quarantine.Equal(decimal.NewFromInt(2)))

		require.Len(t, env.movements.movements, 1)
		assert.Equal(t, inventory.MovementReturnQuarantine, env.movements.movements[0].MovementType)
	})

	t.Run("inspection rejects unknown item IDs", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		created, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 1, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		_, err = env.svc.MarkInspected(ctx, created.ID, uuid.New(), InspectReturnRequest{
			Items: []InspectItemRequest{{ItemID: uuid.New(), Resellable: false}},
		})
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})
}

func TestReturnService_ApproveRejectCancel(t *testing.T) {
	ctx := context.Background()

	createPending := func(t *testing.T, env *testEnv) *ReturnResponse {
		t.Helper()
		order, line := env.addSaleOrder(5, 50, 30)
		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 1, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)
		return resp
	}

	t.Run("approve then cancel", func(t *testing.T) {
		env := newTestEnv()
		created := createPending(t, env)

		approved, err := env.svc.Approve(ctx, created.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", approved.Status)

		cancelled, err := env.svc.Cancel(ctx, created.ID, CancelReturnRequest{Reason: "customer kept the item"})
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", cancelled.Status)
	})

	t.Run("reject records the reason and has no side effects", func(t *testing.T) {
		env := newTestEnv()
		created := createPending(t, env)

		rejected, err := env.svc.Reject(ctx, created.ID, uuid.New(), RejectReturnRequest{Reason: "outside policy"})
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", rejected.Status)
		assert.Equal(t, "outside policy", rejected.RejectionReason)
		assert.Empty(t, env.ledger.entries)
		assert.Empty(t, env.movements.movements)
	})

	t.Run("rejected quantities free up the order line", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addSaleOrder(5, 50, 30)

		first, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Defer:        true,
			Items:        []CreateReturnItemRequest{itemRequest(line, 5, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)

		_, err = env.svc.Reject(ctx, first.ID, uuid.New(), RejectReturnRequest{Reason: "wrong claim"})
		require.NoError(t, err)

		_, err = env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "CASH",
			Items:        []CreateReturnItemRequest{itemRequest(line, 5, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)
	})
}

func TestReturnService_IssueDeferredRefund(t *testing.T) {
	ctx := context.Background()

	createProcessedDeferred := func(t *testing.T, env *testEnv) *ReturnResponse {
		t.Helper()
		order, line := env.addSaleOrder(5, 50, 30)
		resp, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "SALE",
			OrderID:      order.ID,
			RefundMethod: "DEFERRED",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
		}, uuid.New())
		require.NoError(t, err)
		require.Equal(t, "PROCESSED", resp.Status)
		return resp
	}

	t.Run("pays out and posts the cash pair", func(t *testing.T) {
		env := newTestEnv()
		created := createProcessedDeferred(t, env)
		entriesBefore := len(env.ledger.entries)

		resp, err := env.svc.IssueDeferredRefund(ctx, created.ID, IssueRefundRequest{
			Amount: created.NetRefund,
			Method: "BANK_TRANSFER",
		}, uuid.New())
		require.NoError(t, err)

		assert.NotNil(t, resp.RefundPaidAt)
		assert.True(t, resp.RefundPaidAmount.Equal(created.NetRefund))
		assert.Len(t, env.ledger.entries, entriesBefore+2)

		payout, err := env.ledger.FindByReference(ctx, ledger.ReferenceRefundPayment, created.ID)
		require.NoError(t, err)
		require.Len(t, payout, 2)
		assert.True(t, ledger.Balanced(payout))
	})

	t.Run("cannot pay twice", func(t *testing.T) {
		env := newTestEnv()
		created := createProcessedDeferred(t, env)

		_, err := env.svc.IssueDeferredRefund(ctx, created.ID, IssueRefundRequest{
			Amount: created.NetRefund, Method: "CASH",
		}, uuid.New())
		require.NoError(t, err)

		entriesBefore := len(env.ledger.entries)
		_, err = env.svc.IssueDeferredRefund(ctx, created.ID, IssueRefundRequest{
			Amount: created.NetRefund, Method: "CASH",
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
		assert.Len(t, env.ledger.entries, entriesBefore)
	})

	t.Run("amount above the net refund is rejected", func(t *testing.T) {
		env := newTestEnv()
		created := createProcessedDeferred(t, env)

		_, err := env.svc.IssueDeferredRefund(ctx, created.ID, IssueRefundRequest{
			Amount: created.NetRefund.Add(decimal.NewFromInt(1)), Method: "CASH",
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("purchase returns have no deferred refunds", func(t *testing.T) {
		env := newTestEnv()
		order, line := env.addPurchaseOrder(10, 20)

		seeded, err := env.balances.GetForUpdate(ctx, line.ProductID)
		require.NoError(t, err)
		require.NoError(t, seeded.ReceiveSellable(decimal.NewFromInt(10)))

		created, err := env.svc.Create(ctx, CreateReturnRequest{
			Origin:       "PURCHASE",
			OrderID:      order.ID,
			RefundMethod: "DEFERRED",
			Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "QUALITY_ISSUE")},
		}, uuid.New())
		require.NoError(t, err)

		_, err = env.svc.IssueDeferredRefund(ctx, created.ID, IssueRefundRequest{
			Amount: decimal.NewFromInt(1), Method: "CASH",
		}, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindInvalidState))
	})
}

func TestReturnService_Queries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order, line := env.addSaleOrder(5, 50, 30)

	created, err := env.svc.Create(ctx, CreateReturnRequest{
		Origin:       "SALE",
		OrderID:      order.ID,
		RefundMethod: "CASH",
		Items:        []CreateReturnItemRequest{itemRequest(line, 2, "GOOD", "OTHER")},
	}, uuid.New())
	require.NoError(t, err)

	t.Run("get by id and by number", func(t *testing.T) {
		byID, err := env.svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ReturnNumber, byID.ReturnNumber)

		byNumber, err := env.svc.GetByNumber(ctx, created.ReturnNumber)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byNumber.ID)
	})

	t.Run("net refund equals items recomputed", func(t *testing.T) {
		byID, err := env.svc.GetByID(ctx, created.ID)
		require.NoError(t, err)

		refund := decimal.Zero
		fee := decimal.Zero
		for _, item := range byID.Items {
			refund = refund.Add(item.RefundAmount)
			fee = fee.Add(item.RestockingFee)
		}
		assert.True(t, byID.NetRefund.Equal(refund.Sub(fee)))
	})

	t.Run("list and stats", func(t *testing.T) {
		page, err := env.svc.List(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)

		stats, err := env.svc.Stats(ctx, time.Now().AddDate(0, 0, -1), time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.ProcessedCount)
	})
}
