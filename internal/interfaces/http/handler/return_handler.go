package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appreturns "github.com/retailcore/backend/internal/application/returns"
	"github.com/retailcore/backend/internal/domain/shared"
	"github.com/retailcore/backend/internal/interfaces/http/dto"
)

// ReturnHandler handles merchandise return API endpoints
type ReturnHandler struct {
	BaseHandler
	returnService *appreturns.ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returnService *appreturns.ReturnService) *ReturnHandler {
	return &ReturnHandler{returnService: returnService}
}

// ReturnListQuery represents list filter parameters
type ReturnListQuery struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=PENDING INSPECTED APPROVED REJECTED PROCESSING PROCESSED CANCELLED"`
	Origin     string `form:"origin" binding:"omitempty,oneof=SALE PURCHASE"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	OrderID    string `form:"order_id" binding:"omitempty,uuid"`
	StartDate  string `form:"start_date" binding:"omitempty"`
	EndDate    string `form:"end_date" binding:"omitempty"`
}

// Create handles POST /returns
func (h *ReturnHandler) Create(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	var req appreturns.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.returnService.Create(c.Request.Context(), req, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID handles GET /returns/:id
func (h *ReturnHandler) GetByID(c *gin.Context) {
	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	resp, err := h.returnService.GetByID(c.Request.Context(), returnID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByNumber handles GET /returns/number/:return_number
func (h *ReturnHandler) GetByNumber(c *gin.Context) {
	number := c.Param("return_number")
	if number == "" {
		h.BadRequest(c, "Return number is required")
		return
	}

	resp, err := h.returnService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /returns
func (h *ReturnHandler) List(c *gin.Context) {
	var query ReturnListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	if query.OrderBy != "" {
		filter.OrderBy = query.OrderBy
	}
	if query.OrderDir != "" {
		filter.OrderDir = query.OrderDir
	}
	filter.Search = query.Search

	if query.Status != "" {
		filter.Filters["status"] = query.Status
	}
	if query.Origin != "" {
		filter.Filters["origin"] = query.Origin
	}
	if query.CustomerID != "" {
		filter.Filters["customer_id"] = query.CustomerID
	}
	if query.SupplierID != "" {
		filter.Filters["supplier_id"] = query.SupplierID
	}
	if query.OrderID != "" {
		filter.Filters["order_id"] = query.OrderID
	}
	if query.StartDate != "" {
		start, err := time.Parse(time.RFC3339, query.StartDate)
		if err != nil {
			h.BadRequest(c, "Invalid start_date, expected RFC 3339")
			return
		}
		filter.Filters["start_date"] = start
	}
	if query.EndDate != "" {
		end, err := time.Parse(time.RFC3339, query.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end_date, expected RFC 3339")
			return
		}
		filter.Filters["end_date"] = end
	}

	page, err := h.returnService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Stats handles GET /returns/stats
func (h *ReturnHandler) Stats(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid from, expected RFC 3339")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid to, expected RFC 3339")
			return
		}
		to = parsed
	}

	stats, err := h.returnService.Stats(c.Request.Context(), from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// Process handles POST /returns/:id/process
func (h *ReturnHandler) Process(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	resp, err := h.returnService.Process(c.Request.Context(), returnID, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Inspect handles POST /returns/:id/inspect
func (h *ReturnHandler) Inspect(c *gin.Context) {
	inspectorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	var req appreturns.InspectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.returnService.MarkInspected(c.Request.Context(), returnID, inspectorID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve handles POST /returns/:id/approve
func (h *ReturnHandler) Approve(c *gin.Context) {
	approverID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	resp, err := h.returnService.Approve(c.Request.Context(), returnID, approverID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject handles POST /returns/:id/reject
func (h *ReturnHandler) Reject(c *gin.Context) {
	rejecterID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	var req appreturns.RejectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.returnService.Reject(c.Request.Context(), returnID, rejecterID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /returns/:id/cancel
func (h *ReturnHandler) Cancel(c *gin.Context) {
	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	var req appreturns.CancelReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.returnService.Cancel(c.Request.Context(), returnID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// IssueRefund handles POST /returns/:id/refund
func (h *ReturnHandler) IssueRefund(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid or missing X-User-ID header")
		return
	}

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid return ID format")
		return
	}

	var req appreturns.IssueRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.returnService.IssueDeferredRefund(c.Request.Context(), returnID, req, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes mounts the return endpoints on the given router group
func (h *ReturnHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/returns", h.Create)
	rg.GET("/returns", h.List)
	rg.GET("/returns/stats", h.Stats)
	rg.GET("/returns/number/:return_number", h.GetByNumber)
	rg.GET("/returns/:id", h.GetByID)
	rg.POST("/returns/:id/inspect", h.Inspect)
	rg.POST("/returns/:id/approve", h.Approve)
	rg.POST("/returns/:id/reject", h.Reject)
	rg.POST("/returns/:id/cancel", h.Cancel)
	rg.POST("/returns/:id/process", h.Process)
	rg.POST("/returns/:id/refund", h.IssueRefund)
}
