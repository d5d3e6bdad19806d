package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailcore/backend/internal/domain/returns"
)

// CreateReturnItemRequest is one requested return line
type CreateReturnItemRequest struct {
	OrderLineID uuid.UUID       `json:"order_line_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Condition   string          `json:"condition" binding:"required,oneof=NEW LIKE_NEW GOOD FAIR POOR DAMAGED"`
	Disposition string          `json:"disposition" binding:"required,oneof=REFUND EXCHANGE STORE_CREDIT REPAIR REPLACE"`
	Reason      string          `json:"reason" binding:"required,oneof=DEFECTIVE WRONG_ITEM DAMAGED_IN_SHIPPING CHANGED_MIND NOT_AS_DESCRIBED QUALITY_ISSUE NO_LONGER_NEEDED OTHER"`
}

// CreateReturnRequest is the request to create a merchandise return
type CreateReturnRequest struct {
	Origin       string                    `json:"origin" binding:"required,oneof=SALE PURCHASE"`
	OrderID      uuid.UUID                 `json:"order_id" binding:"required"`
	RefundMethod string                    `json:"refund_method" binding:"required,oneof=CASH BANK_TRANSFER STORE_CREDIT DEFERRED"`
	Defer        bool                      `json:"defer"`
	Remark       string                    `json:"remark" binding:"max=500"`
	Items        []CreateReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// InspectItemRequest carries the resellable verdict for one return item
type InspectItemRequest struct {
	ItemID     uuid.UUID `json:"item_id" binding:"required"`
	Resellable bool      `json:"resellable"`
}

// InspectReturnRequest is the request to record an inspection outcome
type InspectReturnRequest struct {
	Notes string               `json:"notes" binding:"max=500"`
	Items []InspectItemRequest `json:"items" binding:"dive"`
}

// RejectReturnRequest is the request to reject a return
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CancelReturnRequest is the request to cancel a return
type CancelReturnRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// IssueRefundRequest is the request to pay out a deferred refund
type IssueRefundRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER"`
}

// ReturnItemResponse represents a return line in responses
type ReturnItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderLineID   uuid.UUID       `json:"order_line_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductSKU    string          `json:"product_sku"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Condition     string          `json:"condition"`
	Disposition   string          `json:"disposition"`
	Reason        string          `json:"reason"`
	RestockingFee decimal.Decimal `json:"restocking_fee"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	Resellable    bool            `json:"resellable"`
}

// ReturnResponse represents a merchandise return in responses
type ReturnResponse struct {
	ID                 uuid.UUID            `json:"id"`
	ReturnNumber       string               `json:"return_number"`
	Origin             string               `json:"origin"`
	OrderID            uuid.UUID            `json:"order_id"`
	OrderNumber        string               `json:"order_number"`
	CustomerID         *uuid.UUID           `json:"customer_id,omitempty"`
	SupplierID         *uuid.UUID           `json:"supplier_id,omitempty"`
	Items              []ReturnItemResponse `json:"items"`
	TotalRefund        decimal.Decimal      `json:"total_refund"`
	TotalRestockingFee decimal.Decimal      `json:"total_restocking_fee"`
	NetRefund          decimal.Decimal      `json:"net_refund"`
	Status             string               `json:"status"`
	RefundMethod       string               `json:"refund_method"`
	RefundPaidAt       *time.Time           `json:"refund_paid_at,omitempty"`
	RefundPaidAmount   decimal.Decimal      `json:"refund_paid_amount"`
	Remark             string               `json:"remark,omitempty"`
	InspectedAt        *time.Time           `json:"inspected_at,omitempty"`
	InspectionNotes    string               `json:"inspection_notes,omitempty"`
	ApprovedAt         *time.Time           `json:"approved_at,omitempty"`
	RejectedAt         *time.Time           `json:"rejected_at,omitempty"`
	RejectionReason    string               `json:"rejection_reason,omitempty"`
	ProcessedAt        *time.Time           `json:"processed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// ToReturnResponse converts a domain return to a response DTO
func ToReturnResponse(r *returns.MerchandiseReturn) *ReturnResponse {
	items := make([]ReturnItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, ReturnItemResponse{
			ID:            item.ID,
			OrderLineID:   item.OrderLineID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			ProductSKU:    item.ProductSKU,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Condition:     string(item.Condition),
			Disposition:   string(item.Disposition),
			Reason:        string(item.Reason),
			RestockingFee: item.RestockingFee,
			RefundAmount:  item.RefundAmount,
			Resellable:    item.Resellable,
		})
	}

	return &ReturnResponse{
		ID:                 r.ID,
		ReturnNumber:       r.ReturnNumber,
		Origin:             string(r.Origin),
		OrderID:            r.OrderID,
		OrderNumber:        r.OrderNumber,
		CustomerID:         r.CustomerID,
		SupplierID:         r.SupplierID,
		Items:              items,
		TotalRefund:        r.TotalRefund,
		TotalRestockingFee: r.TotalRestockingFee,
		NetRefund:          r.NetRefund,
		Status:             string(r.Status),
		RefundMethod:       string(r.RefundMethod),
		RefundPaidAt:       r.RefundPaidAt,
		RefundPaidAmount:   r.RefundPaidAmount,
		Remark:             r.Remark,
		InspectedAt:        r.InspectedAt,
		InspectionNotes:    r.InspectionNotes,
		ApprovedAt:         r.ApprovedAt,
		RejectedAt:         r.RejectedAt,
		RejectionReason:    r.RejectionReason,
		ProcessedAt:        r.ProcessedAt,
		CancelledAt:        r.CancelledAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
