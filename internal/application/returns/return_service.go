package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retailcore/backend/internal/domain/inventory"
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
	"github.com/retailcore/backend/internal/infrastructure/telemetry"
)

// ReturnService orchestrates the merchandise return workflow. It is the only
// component that opens a transaction spanning the return record, the
// inventory balances, the movement log and the ledger; every mutation of a
// return runs through scope.Execute so all effects commit or roll back as one.
type ReturnService struct {
	scope          TransactionScope
	returnRepo     returns.ReturnRepository
	orderLookup    returns.OrderLookup
	productLookup  returns.ProductLookup
	policy         returns.FeePolicy
	accounts       AccountMap
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	scope TransactionScope,
	returnRepo returns.ReturnRepository,
	orderLookup returns.OrderLookup,
	productLookup returns.ProductLookup,
	policy returns.FeePolicy,
	accounts AccountMap,
	logger *zap.Logger,
) *ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReturnService{
		scope:         scope,
		returnRepo:    returnRepo,
		orderLookup:   orderLookup,
		productLookup: productLookup,
		policy:        policy,
		accounts:      accounts,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ReturnService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a merchandise return against an existing order. Unless the
// request defers processing, the inventory and ledger effects are applied in
// the same transaction and the return comes back already processed.
func (s *ReturnService) Create(ctx context.Context, req CreateReturnRequest, actorID uuid.UUID) (*ReturnResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "returns", "create")
	defer span.End()

	origin := returns.ReturnOrigin(req.Origin)
	method := returns.RefundMethod(req.RefundMethod)

	order, err := s.orderLookup.FindOrder(ctx, origin, req.OrderID)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return nil, shared.NewEligibilityError("ORDER_NOT_FOUND",
				"Original order not found: "+req.OrderID.String())
		}
		return nil, err
	}
	if len(order.Lines) == 0 {
		return nil, shared.NewEligibilityError("ORDER_EMPTY", "Original order has no lines")
	}
	if !s.policy.WithinWindow(order.OrderedAt, time.Now()) {
		return nil, shared.NewEligibilityError("RETURN_WINDOW_EXPIRED",
			fmt.Sprintf("Return window of %d days has expired", s.policy.ReturnWindowDays))
	}

	// Product display data is read-only and can be resolved outside the transaction
	products := make(map[uuid.UUID]returns.ProductInfo, len(req.Items))
	for _, itemReq := range req.Items {
		line := order.Line(itemReq.OrderLineID)
		if line == nil {
			return nil, shared.NewEligibilityError("ORDER_LINE_NOT_FOUND",
				"Order line not found on original order: "+itemReq.OrderLineID.String())
		}
		if _, ok := products[line.ProductID]; ok {
			continue
		}
		product, err := s.productLookup.FindProduct(ctx, line.ProductID)
		if err != nil {
			if shared.IsKind(err, shared.KindNotFound) {
				return nil, shared.NewEligibilityError("PRODUCT_NOT_FOUND",
					"Product not found: "+line.ProductID.String())
			}
			return nil, err
		}
		products[line.ProductID] = *product
	}

	var ret *returns.MerchandiseReturn
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		number, err := repos.ReturnRepo().NextReturnNumber(ctx, time.Now())
		if err != nil {
			return err
		}

		ret, err = returns.NewMerchandiseReturn(number, order, method)
		if err != nil {
			return err
		}
		ret.Remark = req.Remark

		for _, itemReq := range req.Items {
			line := order.Line(itemReq.OrderLineID)

			// The over-return check reads prior returns inside the transaction so
			// two concurrent submissions for the same line cannot both pass.
			already, err := repos.ReturnRepo().SumReturnedForOrderLine(ctx, line.ID)
			if err != nil {
				return err
			}
			if already.Add(itemReq.Quantity).GreaterThan(line.Quantity) {
				return shared.NewEligibilityError("QUANTITY_EXCEEDS_ORDER", fmt.Sprintf(
					"Line %s: %s already returned of %s ordered, cannot return %s more",
					line.ID, already, line.Quantity, itemReq.Quantity))
			}

			_, err = ret.AddItem(
				*line,
				products[line.ProductID],
				itemReq.Quantity,
				returns.ItemCondition(itemReq.Condition),
				returns.Disposition(itemReq.Disposition),
				returns.ReturnReason(itemReq.Reason),
				s.policy,
			)
			if err != nil {
				return err
			}
		}

		if !req.Defer {
			if err := s.runMutationPipeline(ctx, repos, ret, actorID); err != nil {
				return err
			}
		}

		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, ret)

	s.logger.Info("merchandise return created",
		zap.String("return_number", ret.ReturnNumber),
		zap.String("origin", string(ret.Origin)),
		zap.String("status", string(ret.Status)),
		zap.String("net_refund", ret.NetRefund.String()))

	return ToReturnResponse(ret), nil
}

// Process runs the mutation pipeline for a previously deferred or approved
// return and transitions it to processed.
func (s *ReturnService) Process(ctx context.Context, returnID, actorID uuid.UUID) (*ReturnResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "returns", "process")
	defer span.End()

	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := s.runMutationPipeline(ctx, repos, ret, actorID); err != nil {
			return err
		}
		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, ret)

	s.logger.Info("merchandise return processed",
		zap.String("return_number", ret.ReturnNumber),
		zap.String("origin", string(ret.Origin)))

	return ToReturnResponse(ret), nil
}

// MarkInspected records the inspection outcome for a pending return
func (s *ReturnService) MarkInspected(ctx context.Context, returnID, inspectorID uuid.UUID, req InspectReturnRequest) (*ReturnResponse, error) {
	resellable := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		resellable[item.ItemID] = item.Resellable
	}

	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		for _, item := range req.Items {
			if ret.GetItem(item.ItemID) == nil {
				return shared.NewValidationError("ITEM_NOT_FOUND",
					"Return item not found: "+item.ItemID.String())
			}
		}
		if err := ret.MarkInspected(inspectorID, req.Notes, resellable); err != nil {
			return err
		}
		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	return ToReturnResponse(ret), nil
}

// Approve approves a return without applying inventory or ledger effects
func (s *ReturnService) Approve(ctx context.Context, returnID, approverID uuid.UUID) (*ReturnResponse, error) {
	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := ret.Approve(approverID); err != nil {
			return err
		}
		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	return ToReturnResponse(ret), nil
}

// Reject rejects a return; rejected returns never touch inventory or ledger
func (s *ReturnService) Reject(ctx context.Context, returnID, rejecterID uuid.UUID, req RejectReturnRequest) (*ReturnResponse, error) {
	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := ret.Reject(rejecterID, req.Reason); err != nil {
			return err
		}
		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	return ToReturnResponse(ret), nil
}

// Cancel cancels a return that has not been processed yet
func (s *ReturnService) Cancel(ctx context.Context, returnID uuid.UUID, req CancelReturnRequest) (*ReturnResponse, error) {
	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if err := ret.Cancel(req.Reason); err != nil {
			return err
		}
		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	return ToReturnResponse(ret), nil
}

// IssueDeferredRefund records the actual cash or bank payout for a processed
// sale return whose refund was deferred, posting the outflow to the ledger.
func (s *ReturnService) IssueDeferredRefund(ctx context.Context, returnID uuid.UUID, req IssueRefundRequest, actorID uuid.UUID) (*ReturnResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "returns", "issue_deferred_refund")
	defer span.End()

	method := returns.RefundMethod(req.Method)

	var ret *returns.MerchandiseReturn
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByIDForUpdate(ctx, returnID)
		if err != nil {
			return err
		}

		if err := ret.MarkRefundPaid(req.Amount, method); err != nil {
			return err
		}

		account := s.accounts.Cash
		if method == returns.RefundMethodBank {
			account = s.accounts.Bank
		}
		pair, err := ledger.NewDoubleEntry(s.accounts.AccountsReceivable, account, req.Amount, ledger.EntryMetadata{
			ReferenceType:   ledger.ReferenceRefundPayment,
			ReferenceID:     ret.ID,
			ReferenceNumber: ret.ReturnNumber,
			CustomerID:      ret.CustomerID,
			Memo:            "Deferred refund payout for " + ret.ReturnNumber,
		})
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendPair(ctx, pair); err != nil {
			return err
		}

		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("deferred refund paid",
		zap.String("return_number", ret.ReturnNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("method", string(method)))

	return ToReturnResponse(ret), nil
}

// GetByID returns a return by its ID
func (s *ReturnService) GetByID(ctx context.Context, returnID uuid.UUID) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	return ToReturnResponse(ret), nil
}

// GetByNumber returns a return by its human-readable number
func (s *ReturnService) GetByNumber(ctx context.Context, number string) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return ToReturnResponse(ret), nil
}

// List returns paginated returns matching the filter
func (s *ReturnService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[ReturnResponse], error) {
	items, err := s.returnRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.returnRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]ReturnResponse, 0, len(items))
	for idx := range items {
		responses = append(responses, *ToReturnResponse(&items[idx]))
	}

	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Stats aggregates return statistics over a period
func (s *ReturnService) Stats(ctx context.Context, from, to time.Time) (*returns.ReturnStats, error) {
	return s.returnRepo.Stats(ctx, from, to)
}

// runMutationPipeline applies the inventory and ledger effects of a return
// and moves it to processed. Must run inside the caller's transaction.
func (s *ReturnService) runMutationPipeline(ctx context.Context, repos TransactionalRepositories, ret *returns.MerchandiseReturn, actorID uuid.UUID) error {
	if err := ret.BeginProcessing(); err != nil {
		return err
	}
	if err := s.applyInventoryEffects(ctx, repos, ret); err != nil {
		return err
	}
	if err := s.postLedgerEntries(ctx, repos, ret); err != nil {
		return err
	}
	return ret.CompleteProcessing(actorID)
}

// applyInventoryEffects moves stock for every return line. Sale returns come
// back into sellable stock (or quarantine when not resellable); purchase
// returns leave sellable stock and fail on insufficient quantity.
func (s *ReturnService) applyInventoryEffects(ctx context.Context, repos TransactionalRepositories, ret *returns.MerchandiseReturn) error {
	refType := inventory.RefSalesReturn
	if ret.IsPurchase() {
		refType = inventory.RefPurchaseReturn
	}
	ref := inventory.MovementRef{Type: refType, ID: ret.ID, Number: ret.ReturnNumber}

	for idx := range ret.Items {
		item := &ret.Items[idx]

		balance, err := repos.BalanceRepo().GetForUpdate(ctx, item.ProductID)
		if err != nil {
			return err
		}
		prev := *balance

		var movementType inventory.MovementType
		var quantity = item.Quantity

		switch {
		case ret.IsPurchase():
			if err := balance.ReleaseSellable(item.Quantity); err != nil {
				return err
			}
			movementType = inventory.MovementReturnOut
			quantity = item.Quantity.Neg()
		case item.Resellable:
			if err := balance.ReceiveSellable(item.Quantity); err != nil {
				return err
			}
			movementType = inventory.MovementReturnIn
		default:
			if err := balance.ReceiveQuarantine(item.Quantity); err != nil {
				return err
			}
			movementType = inventory.MovementReturnQuarantine
		}

		movement, err := inventory.NewMovement(movementType, quantity, item.UnitCost, prev, *balance, ref)
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return err
		}

		balance.Touch(movement.ID)
		if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
			return err
		}
	}

	return nil
}

// postLedgerEntries writes the double-entry postings for a return
func (s *ReturnService) postLedgerEntries(ctx context.Context, repos TransactionalRepositories, ret *returns.MerchandiseReturn) error {
	if ret.IsSale() {
		return s.postSaleReturn(ctx, repos, ret)
	}
	return s.postPurchaseReturn(ctx, repos, ret)
}

// postSaleReturn posts the sale-return pairs: the receivable reduction is
// always recorded, cash moves only for immediate methods, store credit goes
// to the customer's balance, and the COGS pair restores inventory value.
func (s *ReturnService) postSaleReturn(ctx context.Context, repos TransactionalRepositories, ret *returns.MerchandiseReturn) error {
	meta := ledger.EntryMetadata{
		ReferenceType:   ledger.ReferenceSalesReturn,
		ReferenceID:     ret.ID,
		ReferenceNumber: ret.ReturnNumber,
		CustomerID:      ret.CustomerID,
		Memo:            "Sale return " + ret.ReturnNumber,
	}

	if ret.NetRefund.IsPositive() {
		pair, err := ledger.NewDoubleEntry(s.accounts.SalesReturns, s.accounts.AccountsReceivable, ret.NetRefund, meta)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendPair(ctx, pair); err != nil {
			return err
		}

		switch ret.RefundMethod {
		case returns.RefundMethodCash, returns.RefundMethodBank:
			account := s.accounts.Cash
			if ret.RefundMethod == returns.RefundMethodBank {
				account = s.accounts.Bank
			}
			outflow, err := ledger.NewDoubleEntry(s.accounts.AccountsReceivable, account, ret.NetRefund, meta)
			if err != nil {
				return err
			}
			if err := repos.LedgerRepo().AppendPair(ctx, outflow); err != nil {
				return err
			}
		case returns.RefundMethodStoreCredit:
			if err := repos.PartyBalances().RecordRefund(ctx, *ret.CustomerID, ret.NetRefund, ret.OrderID,
				"Store credit for "+ret.ReturnNumber); err != nil {
				return err
			}
		case returns.RefundMethodDeferred:
			// cash pair is posted later by IssueDeferredRefund
		}
	}

	if cogs := ret.COGSTotal(); cogs.IsPositive() {
		pair, err := ledger.NewDoubleEntry(s.accounts.Inventory, s.accounts.COGS, cogs, meta)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendPair(ctx, pair); err != nil {
			return err
		}
	}

	return nil
}

// postPurchaseReturn posts the purchase-return pairs: the payable reduction,
// the optional supplier refund received, and the COGS reversal.
func (s *ReturnService) postPurchaseReturn(ctx context.Context, repos TransactionalRepositories, ret *returns.MerchandiseReturn) error {
	meta := ledger.EntryMetadata{
		ReferenceType:   ledger.ReferencePurchaseReturn,
		ReferenceID:     ret.ID,
		ReferenceNumber: ret.ReturnNumber,
		SupplierID:      ret.SupplierID,
		Memo:            "Purchase return " + ret.ReturnNumber,
	}

	if ret.NetRefund.IsPositive() {
		pair, err := ledger.NewDoubleEntry(s.accounts.AccountsPayable, s.accounts.PurchaseReturns, ret.NetRefund, meta)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendPair(ctx, pair); err != nil {
			return err
		}

		if ret.RefundMethod.IsImmediate() {
			account := s.accounts.Cash
			if ret.RefundMethod == returns.RefundMethodBank {
				account = s.accounts.Bank
			}
			inflow, err := ledger.NewDoubleEntry(account, s.accounts.AccountsPayable, ret.NetRefund, meta)
			if err != nil {
				return err
			}
			if err := repos.LedgerRepo().AppendPair(ctx, inflow); err != nil {
				return err
			}
		}
	}

	if cogs := ret.COGSTotal(); cogs.IsPositive() {
		pair, err := ledger.NewDoubleEntry(s.accounts.COGS, s.accounts.Inventory, cogs, meta)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().AppendPair(ctx, pair); err != nil {
			return err
		}
	}

	return nil
}

// publishEvents publishes pending domain events. Failures are logged and
// ignored; a notification problem must never fail a committed return.
func (s *ReturnService) publishEvents(ctx context.Context, ret *returns.MerchandiseReturn) {
	if s.eventPublisher == nil {
		return
	}
	events := ret.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish return events",
			zap.String("return_number", ret.ReturnNumber),
			zap.Error(err))
	}
	ret.ClearDomainEvents()
}
