package returns

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

// ReturnOrigin distinguishes goods coming back from a customer (sale return)
// from goods going back to a supplier (purchase return).
type ReturnOrigin string

const (
	OriginSale     ReturnOrigin = "SALE"
	OriginPurchase ReturnOrigin = "PURCHASE"
)

// IsValid checks if the origin is a valid ReturnOrigin
func (o ReturnOrigin) IsValid() bool {
	return o == OriginSale || o == OriginPurchase
}

// String returns the string representation of ReturnOrigin
func (o ReturnOrigin) String() string {
	return string(o)
}

// ReturnStatus represents the lifecycle status of a merchandise return
type ReturnStatus string

const (
	StatusPending    ReturnStatus = "PENDING"
	StatusInspected  ReturnStatus = "INSPECTED"
	StatusApproved   ReturnStatus = "APPROVED"
	StatusRejected   ReturnStatus = "REJECTED"
	StatusProcessing ReturnStatus = "PROCESSING"
	StatusProcessed  ReturnStatus = "PROCESSED"
	StatusCancelled  ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInspected, StatusApproved, StatusRejected,
		StatusProcessing, StatusProcessed, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that allow no further transitions
func (s ReturnStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusInspected || target == StatusApproved ||
			target == StatusRejected || target == StatusProcessing || target == StatusCancelled
	case StatusInspected:
		return target == StatusApproved || target == StatusRejected ||
			target == StatusProcessing || target == StatusCancelled
	case StatusApproved:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusProcessed
	case StatusRejected, StatusProcessed, StatusCancelled:
		return false
	}
	return false
}

// ItemCondition grades the physical condition of a returned item
type ItemCondition string

const (
	ConditionNew     ItemCondition = "NEW"
	ConditionLikeNew ItemCondition = "LIKE_NEW"
	ConditionGood    ItemCondition = "GOOD"
	ConditionFair    ItemCondition = "FAIR"
	ConditionPoor    ItemCondition = "POOR"
	ConditionDamaged ItemCondition = "DAMAGED"
)

// IsValid checks if the condition is a valid ItemCondition
func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged:
		return true
	}
	return false
}

// FeeMultiplier returns the restocking-fee multiplier for the condition grade
func (c ItemCondition) FeeMultiplier() decimal.Decimal {
	switch c {
	case ConditionNew, ConditionLikeNew:
		return decimal.NewFromFloat(0.5)
	case ConditionGood:
		return decimal.NewFromInt(1)
	case ConditionFair:
		return decimal.NewFromFloat(1.5)
	case ConditionPoor, ConditionDamaged:
		return decimal.NewFromInt(2)
	}
	return decimal.NewFromInt(1)
}

// ReturnReason encodes why the item is being returned
type ReturnReason string

const (
	ReasonDefective         ReturnReason = "DEFECTIVE"
	ReasonWrongItem         ReturnReason = "WRONG_ITEM"
	ReasonDamagedInShipping ReturnReason = "DAMAGED_IN_SHIPPING"
	ReasonChangedMind       ReturnReason = "CHANGED_MIND"
	ReasonNotAsDescribed    ReturnReason = "NOT_AS_DESCRIBED"
	ReasonQualityIssue      ReturnReason = "QUALITY_ISSUE"
	ReasonNoLongerNeeded    ReturnReason = "NO_LONGER_NEEDED"
	ReasonOther             ReturnReason = "OTHER"
)

// IsValid checks if the reason is a valid ReturnReason
func (r ReturnReason) IsValid() bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonDamagedInShipping, ReasonChangedMind,
		ReasonNotAsDescribed, ReasonQualityIssue, ReasonNoLongerNeeded, ReasonOther:
		return true
	}
	return false
}

// IsStoreFault returns true for reasons that waive the restocking fee
// because the store, not the customer, caused the return.
func (r ReturnReason) IsStoreFault() bool {
	return r == ReasonDefective || r == ReasonWrongItem || r == ReasonDamagedInShipping
}

// Disposition describes what happens to the customer's claim for the item
type Disposition string

const (
	DispositionRefund      Disposition = "REFUND"
	DispositionExchange    Disposition = "EXCHANGE"
	DispositionStoreCredit Disposition = "STORE_CREDIT"
	DispositionRepair      Disposition = "REPAIR"
	DispositionReplace     Disposition = "REPLACE"
)

// IsValid checks if the disposition is a valid Disposition
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionRefund, DispositionExchange, DispositionStoreCredit, DispositionRepair, DispositionReplace:
		return true
	}
	return false
}

// RefundMethod describes how the refund leaves (or stays in) the business
type RefundMethod string

const (
	RefundMethodCash        RefundMethod = "CASH"
	RefundMethodBank        RefundMethod = "BANK_TRANSFER"
	RefundMethodStoreCredit RefundMethod = "STORE_CREDIT"
	RefundMethodDeferred    RefundMethod = "DEFERRED"
)

// IsValid checks if the method is a valid RefundMethod
func (m RefundMethod) IsValid() bool {
	switch m {
	case RefundMethodCash, RefundMethodBank, RefundMethodStoreCredit, RefundMethodDeferred:
		return true
	}
	return false
}

// IsImmediate returns true when the refund moves cash at processing time
func (m RefundMethod) IsImmediate() bool {
	return m == RefundMethodCash || m == RefundMethodBank
}

// ReturnItem is one line of a merchandise return. The OrderLineID ties it
// back to the specific line of the originating order so over-returning can
// be detected across multiple returns.
type ReturnItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderLineID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName   string          `gorm:"type:varchar(255);not null"`
	ProductSKU    string          `gorm:"type:varchar(100)"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // original order valuation, price fallback
	Condition     ItemCondition   `gorm:"type:varchar(20);not null"`
	Disposition   Disposition     `gorm:"type:varchar(20);not null"`
	Reason        ReturnReason    `gorm:"type:varchar(30);not null"`
	RestockingFee decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefundAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Resellable    bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt     time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (ReturnItem) TableName() string {
	return "return_items"
}

// NewReturnItem builds a return item from its originating order line,
// computing the restocking fee and refund amount via the policy.
func NewReturnItem(
	returnID uuid.UUID,
	line OrderLine,
	product ProductInfo,
	quantity decimal.Decimal,
	condition ItemCondition,
	disposition Disposition,
	reason ReturnReason,
	policy FeePolicy,
) (*ReturnItem, error) {
	if line.ID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_ORDER_LINE", "Order line ID cannot be empty")
	}
	if line.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	if !condition.IsValid() {
		return nil, shared.NewValidationError("INVALID_CONDITION", "Unknown item condition: "+string(condition))
	}
	if !disposition.IsValid() {
		return nil, shared.NewValidationError("INVALID_DISPOSITION", "Unknown disposition: "+string(disposition))
	}
	if !reason.IsValid() {
		return nil, shared.NewValidationError("INVALID_REASON", "Unknown return reason: "+string(reason))
	}

	fee, refund := policy.Quote(line.UnitPrice, quantity, condition, reason)
	now := time.Now()

	return &ReturnItem{
		ID:            uuid.New(),
		ReturnID:      returnID,
		OrderLineID:   line.ID,
		ProductID:     line.ProductID,
		ProductName:   product.Name,
		ProductSKU:    product.SKU,
		Quantity:      quantity,
		UnitPrice:     line.UnitPrice,
		UnitCost:      line.EffectiveUnitCost(),
		Condition:     condition,
		Disposition:   disposition,
		Reason:        reason,
		RestockingFee: fee,
		RefundAmount:  refund,
		Resellable:    true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CostTotal returns the original-valuation cost of the returned quantity
func (i *ReturnItem) CostTotal() decimal.Decimal {
	return i.UnitCost.Mul(i.Quantity)
}

// MerchandiseReturn is the return aggregate root. It owns the full lifecycle
// from request to processed; inventory and ledger effects are applied exactly
// once, on the transition into PROCESSED.
type MerchandiseReturn struct {
	shared.BaseAggregateRoot
	ReturnNumber       string       `gorm:"type:varchar(30);not null;uniqueIndex"`
	Origin             ReturnOrigin `gorm:"type:varchar(10);not null;index"`
	OrderID            uuid.UUID    `gorm:"type:uuid;not null;index"`
	OrderNumber        string       `gorm:"type:varchar(50);not null"`
	CustomerID         *uuid.UUID   `gorm:"type:uuid;index"`
	SupplierID         *uuid.UUID   `gorm:"type:uuid;index"`
	Items              []ReturnItem `gorm:"foreignKey:ReturnID"`
	TotalRefund        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalRestockingFee decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetRefund          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status             ReturnStatus    `gorm:"type:varchar(20);not null;index"`
	RefundMethod       RefundMethod    `gorm:"type:varchar(20);not null"`
	RefundPaidAt       *time.Time      `gorm:"type:timestamptz"`
	RefundPaidAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefundPaidMethod   RefundMethod    `gorm:"type:varchar(20)"`
	Remark             string          `gorm:"type:varchar(500)"`
	InspectedAt        *time.Time      `gorm:"type:timestamptz"`
	InspectedBy        *uuid.UUID      `gorm:"type:uuid"`
	InspectionNotes    string          `gorm:"type:varchar(500)"`
	ApprovedAt         *time.Time      `gorm:"type:timestamptz"`
	ApprovedBy         *uuid.UUID      `gorm:"type:uuid"`
	RejectedAt         *time.Time      `gorm:"type:timestamptz"`
	RejectedBy         *uuid.UUID      `gorm:"type:uuid"`
	RejectionReason    string          `gorm:"type:varchar(500)"`
	ProcessedAt        *time.Time      `gorm:"type:timestamptz"`
	ProcessedBy        *uuid.UUID      `gorm:"type:uuid"`
	CancelledAt        *time.Time      `gorm:"type:timestamptz"`
	CancelReason       string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (MerchandiseReturn) TableName() string {
	return "merchandise_returns"
}

// NewMerchandiseReturn creates a return against an existing order snapshot.
// Exactly one of the order's customer/supplier references must be set, and
// it must match the origin.
func NewMerchandiseReturn(
	returnNumber string,
	order *OrderSnapshot,
	refundMethod RefundMethod,
) (*MerchandiseReturn, error) {
	if returnNumber == "" {
		return nil, shared.NewValidationError("INVALID_RETURN_NUMBER", "Return number cannot be empty")
	}
	if order == nil {
		return nil, shared.NewValidationError("INVALID_ORDER", "Order snapshot cannot be nil")
	}
	if !order.Origin.IsValid() {
		return nil, shared.NewValidationError("INVALID_ORIGIN", "Unknown return origin: "+string(order.Origin))
	}
	if !refundMethod.IsValid() {
		return nil, shared.NewValidationError("INVALID_REFUND_METHOD", "Unknown refund method: "+string(refundMethod))
	}
	if (order.CustomerID == nil) == (order.SupplierID == nil) {
		return nil, shared.NewValidationError("INVALID_COUNTERPARTY",
			"Exactly one of customer or supplier must be set")
	}
	if order.Origin == OriginSale && order.CustomerID == nil {
		return nil, shared.NewValidationError("INVALID_COUNTERPARTY", "Sale return requires a customer reference")
	}
	if order.Origin == OriginPurchase && order.SupplierID == nil {
		return nil, shared.NewValidationError("INVALID_COUNTERPARTY", "Purchase return requires a supplier reference")
	}

	r := &MerchandiseReturn{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		ReturnNumber:       returnNumber,
		Origin:             order.Origin,
		OrderID:            order.ID,
		OrderNumber:        order.Number,
		CustomerID:         order.CustomerID,
		SupplierID:         order.SupplierID,
		Items:              make([]ReturnItem, 0),
		TotalRefund:        decimal.Zero,
		TotalRestockingFee: decimal.Zero,
		NetRefund:          decimal.Zero,
		Status:             StatusPending,
		RefundMethod:       refundMethod,
		RefundPaidAmount:   decimal.Zero,
	}

	r.AddDomainEvent(NewReturnRequestedEvent(r))

	return r, nil
}

// AddItem adds a line to the return. Only allowed while PENDING.
func (r *MerchandiseReturn) AddItem(
	line OrderLine,
	product ProductInfo,
	quantity decimal.Decimal,
	condition ItemCondition,
	disposition Disposition,
	reason ReturnReason,
	policy FeePolicy,
) (*ReturnItem, error) {
	if r.Status != StatusPending {
		return nil, shared.NewInvalidStateError("INVALID_STATE", "Cannot add items to a non-pending return")
	}
	for _, item := range r.Items {
		if item.OrderLineID == line.ID {
			return nil, shared.NewValidationError("DUPLICATE_ITEM",
				"Order line already present in return: "+line.ID.String())
		}
	}

	item, err := NewReturnItem(r.ID, line, product, quantity, condition, disposition, reason, policy)
	if err != nil {
		return nil, err
	}

	r.Items = append(r.Items, *item)
	r.recalculateTotals()
	r.UpdatedAt = time.Now()

	return item, nil
}

// MarkInspected records the inspection outcome. resellable overrides the
// per-item resellable flag by item ID; items not present keep their default.
func (r *MerchandiseReturn) MarkInspected(inspectorID uuid.UUID, notes string, resellable map[uuid.UUID]bool) error {
	if !r.Status.CanTransitionTo(StatusInspected) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot inspect return in %s status", r.Status))
	}
	if inspectorID == uuid.Nil {
		return shared.NewValidationError("INVALID_INSPECTOR", "Inspector ID cannot be empty")
	}

	now := time.Now()
	for idx := range r.Items {
		if v, ok := resellable[r.Items[idx].ID]; ok {
			r.Items[idx].Resellable = v
			r.Items[idx].UpdatedAt = now
		}
	}
	r.Status = StatusInspected
	r.InspectedAt = &now
	r.InspectedBy = &inspectorID
	r.InspectionNotes = notes
	r.UpdatedAt = now

	return nil
}

// Approve approves the return without applying inventory or ledger effects
func (r *MerchandiseReturn) Approve(approverID uuid.UUID) error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot approve return in %s status", r.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewValidationError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &approverID
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnApprovedEvent(r))

	return nil
}

// Reject rejects the return; rejected returns never touch inventory or ledger
func (r *MerchandiseReturn) Reject(rejecterID uuid.UUID, reason string) error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot reject return in %s status", r.Status))
	}
	if rejecterID == uuid.Nil {
		return shared.NewValidationError("INVALID_REJECTER", "Rejecter ID cannot be empty")
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	r.Status = StatusRejected
	r.RejectedAt = &now
	r.RejectedBy = &rejecterID
	r.RejectionReason = reason
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnRejectedEvent(r))

	return nil
}

// Cancel cancels the return before it is processed
func (r *MerchandiseReturn) Cancel(reason string) error {
	if !r.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel return in %s status", r.Status))
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.CancelReason = reason
	r.UpdatedAt = now

	return nil
}

// CanProcess reports whether the mutation pipeline may run from the current status
func (r *MerchandiseReturn) CanProcess() bool {
	return r.Status == StatusPending || r.Status == StatusInspected || r.Status == StatusApproved
}

// BeginProcessing moves the return into PROCESSING ahead of the mutation pipeline
func (r *MerchandiseReturn) BeginProcessing() error {
	if !r.CanProcess() {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot process return in %s status", r.Status))
	}
	if len(r.Items) == 0 {
		return shared.NewValidationError("NO_ITEMS", "Cannot process return without items")
	}

	r.Status = StatusProcessing
	r.UpdatedAt = time.Now()

	return nil
}

// CompleteProcessing marks inventory and ledger effects as applied.
// Once PROCESSED they must never be reapplied.
func (r *MerchandiseReturn) CompleteProcessing(actorID uuid.UUID) error {
	if !r.Status.CanTransitionTo(StatusProcessed) {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot complete return in %s status", r.Status))
	}

	now := time.Now()
	r.Status = StatusProcessed
	r.ProcessedAt = &now
	if actorID != uuid.Nil {
		r.ProcessedBy = &actorID
	}
	r.UpdatedAt = now

	r.AddDomainEvent(NewReturnProcessedEvent(r))

	return nil
}

// MarkRefundPaid records the deferred cash/bank payout for a processed sale return
func (r *MerchandiseReturn) MarkRefundPaid(amount decimal.Decimal, method RefundMethod) error {
	if r.Origin != OriginSale {
		return shared.NewInvalidStateError("NOT_SALE_RETURN", "Deferred refunds apply to sale returns only")
	}
	if r.Status != StatusProcessed {
		return shared.NewInvalidStateError("INVALID_STATE",
			fmt.Sprintf("Cannot pay refund for return in %s status", r.Status))
	}
	if r.RefundMethod != RefundMethodDeferred {
		return shared.NewInvalidStateError("NOT_DEFERRED", "Return refund method is not deferred")
	}
	if r.RefundPaidAt != nil {
		return shared.NewInvalidStateError("REFUND_ALREADY_PAID", "Refund has already been paid")
	}
	if !method.IsImmediate() {
		return shared.NewValidationError("INVALID_REFUND_METHOD", "Deferred payout must be cash or bank")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if amount.GreaterThan(r.NetRefund) {
		return shared.NewValidationError("AMOUNT_EXCEEDS_REFUND",
			"Refund amount cannot exceed the computed net refund")
	}

	now := time.Now()
	r.RefundPaidAt = &now
	r.RefundPaidAmount = amount
	r.RefundPaidMethod = method
	r.UpdatedAt = now

	return nil
}

// recalculateTotals recomputes the aggregate refund figures from the items
func (r *MerchandiseReturn) recalculateTotals() {
	refund := decimal.Zero
	fee := decimal.Zero
	for _, item := range r.Items {
		refund = refund.Add(item.RefundAmount)
		fee = fee.Add(item.RestockingFee)
	}
	r.TotalRefund = refund
	r.TotalRestockingFee = fee
	r.NetRefund = refund.Sub(fee)
}

// COGSTotal is the cost-of-goods value of all returned lines at original valuation
func (r *MerchandiseReturn) COGSTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.CostTotal())
	}
	return total
}

// CounterpartyID returns whichever of customer/supplier is set
func (r *MerchandiseReturn) CounterpartyID() uuid.UUID {
	if r.CustomerID != nil {
		return *r.CustomerID
	}
	if r.SupplierID != nil {
		return *r.SupplierID
	}
	return uuid.Nil
}

// IsSale returns true for sale returns
func (r *MerchandiseReturn) IsSale() bool {
	return r.Origin == OriginSale
}

// IsPurchase returns true for purchase returns
func (r *MerchandiseReturn) IsPurchase() bool {
	return r.Origin == OriginPurchase
}

// IsProcessed returns true once inventory and ledger effects are applied
func (r *MerchandiseReturn) IsProcessed() bool {
	return r.Status == StatusProcessed
}

// GetItem returns an item by its ID
func (r *MerchandiseReturn) GetItem(itemID uuid.UUID) *ReturnItem {
	for idx := range r.Items {
		if r.Items[idx].ID == itemID {
			return &r.Items[idx]
		}
	}
	return nil
}
