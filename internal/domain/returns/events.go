package returns

import (
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/shared"
)

const aggregateType = "MerchandiseReturn"

// Event type constants
const (
	EventReturnRequested = "return_requested"
	EventReturnApproved  = "return_approved"
	EventReturnRejected  = "return_rejected"
	EventReturnCompleted = "return_completed"
)

// ReturnRequestedEvent is raised when a return is created
type ReturnRequestedEvent struct {
	shared.BaseDomainEvent
	ReturnNumber string          `json:"return_number"`
	Origin       ReturnOrigin    `json:"origin"`
	OrderNumber  string          `json:"order_number"`
	NetRefund    decimal.Decimal `json:"net_refund"`
}

// NewReturnRequestedEvent creates a new return requested event
func NewReturnRequestedEvent(r *MerchandiseReturn) *ReturnRequestedEvent {
	return &ReturnRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventReturnRequested, aggregateType, r.ID),
		ReturnNumber:    r.ReturnNumber,
		Origin:          r.Origin,
		OrderNumber:     r.OrderNumber,
		NetRefund:       r.NetRefund,
	}
}

// ReturnApprovedEvent is raised when a return is approved
type ReturnApprovedEvent struct {
	shared.BaseDomainEvent
	ReturnNumber string          `json:"return_number"`
	Origin       ReturnOrigin    `json:"origin"`
	NetRefund    decimal.Decimal `json:"net_refund"`
}

// NewReturnApprovedEvent creates a new return approved event
func NewReturnApprovedEvent(r *MerchandiseReturn) *ReturnApprovedEvent {
	return &ReturnApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventReturnApproved, aggregateType, r.ID),
		ReturnNumber:    r.ReturnNumber,
		Origin:          r.Origin,
		NetRefund:       r.NetRefund,
	}
}

// ReturnRejectedEvent is raised when a return is rejected
type ReturnRejectedEvent struct {
	shared.BaseDomainEvent
	ReturnNumber string `json:"return_number"`
	Reason       string `json:"reason"`
}

// NewReturnRejectedEvent creates a new return rejected event
func NewReturnRejectedEvent(r *MerchandiseReturn) *ReturnRejectedEvent {
	return &ReturnRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventReturnRejected, aggregateType, r.ID),
		ReturnNumber:    r.ReturnNumber,
		Reason:          r.RejectionReason,
	}
}

// ReturnProcessedEvent is raised after inventory and ledger effects are applied
type ReturnProcessedEvent struct {
	shared.BaseDomainEvent
	ReturnNumber string          `json:"return_number"`
	Origin       ReturnOrigin    `json:"origin"`
	RefundMethod RefundMethod    `json:"refund_method"`
	NetRefund    decimal.Decimal `json:"net_refund"`
}

// NewReturnProcessedEvent creates a new return processed event
func NewReturnProcessedEvent(r *MerchandiseReturn) *ReturnProcessedEvent {
	return &ReturnProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventReturnCompleted, aggregateType, r.ID),
		ReturnNumber:    r.ReturnNumber,
		Origin:          r.Origin,
		RefundMethod:    r.RefundMethod,
		NetRefund:       r.NetRefund,
	}
}
