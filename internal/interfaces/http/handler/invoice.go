package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/agency/backend/internal/application/billing"
	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/interfaces/http/dto"
)

// dateLayout is the wire format for date-only fields
const dateLayout = "2006-01-02"

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// LineItemRequest represents one line item in a create or update request
type LineItemRequest struct {
	Description string `json:"description" binding:"required,max=500"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
	SortOrder   int    `json:"sort_order"`
}

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	ClientID       string            `json:"client_id" binding:"required,uuid"`
	ProjectID      *string           `json:"project_id" binding:"omitempty,uuid"`
	IssueDate      string            `json:"issue_date" binding:"required"`
	DueDate        string            `json:"due_date" binding:"required"`
	TaxRate        string            `json:"tax_rate"`
	DiscountAmount string            `json:"discount_amount"`
	Notes          string            `json:"notes"`
	LineItems      []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest represents a request to update a draft invoice
type UpdateInvoiceRequest struct {
	IssueDate      string            `json:"issue_date" binding:"required"`
	DueDate        string            `json:"due_date" binding:"required"`
	TaxRate        string            `json:"tax_rate"`
	DiscountAmount string            `json:"discount_amount"`
	Notes          string            `json:"notes"`
	LineItems      []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// ListInvoicesRequest represents invoice list query parameters
type ListInvoicesRequest struct {
	dto.ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=DRAFT SENT VIEWED PAID CANCELLED"`
	ClientID  string `form:"client_id" binding:"omitempty,uuid"`
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// Create creates a new draft invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, err := h.toCreateRequest(c, req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Get returns an invoice by ID
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber returns an invoice by its document number
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "invoice number is required")
		return
	}

	invoice, err := h.invoiceService.GetInvoiceByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List returns a paginated list of invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	req := ListInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := h.toInvoiceFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update updates a draft invoice
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, err := h.toUpdateRequest(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Delete deletes a draft invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Send transitions a draft invoice to sent
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.transition(c, h.invoiceService.SendInvoice)
}

// MarkViewed records that the client viewed the invoice
func (h *InvoiceHandler) MarkViewed(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkInvoiceViewed)
}

// MarkPaid marks an invoice as paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.invoiceService.MarkInvoicePaid)
}

// Cancel cancels an invoice. The acting user is recorded on the invoice.
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "acting user is required to cancel an invoice")
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Statistics returns aggregate invoice statistics
func (h *InvoiceHandler) Statistics(c *gin.Context) {
	req := ListInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := h.toInvoiceFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stats, err := h.invoiceService.GetStatistics(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/billing/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/statistics", h.Statistics)
		invoices.GET("/by-number/:number", h.GetByNumber)
		invoices.GET("/:id", h.Get)
		invoices.PUT("/:id", h.Update)
		invoices.DELETE("/:id", h.Delete)
		invoices.POST("/:id/send", h.Send)
		invoices.POST("/:id/view", h.MarkViewed)
		invoices.POST("/:id/pay", h.MarkPaid)
		invoices.POST("/:id/cancel", h.Cancel)
	}
}

func (h *InvoiceHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid invoice ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *InvoiceHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*billing.Invoice, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	invoice, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

func (h *InvoiceHandler) toCreateRequest(c *gin.Context, req CreateInvoiceRequest) (appbilling.CreateInvoiceRequest, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return appbilling.CreateInvoiceRequest{}, err
	}

	var projectID *uuid.UUID
	if req.ProjectID != nil {
		id, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			return appbilling.CreateInvoiceRequest{}, err
		}
		projectID = &id
	}

	issueDate, dueDate, err := parseDateRange(req.IssueDate, req.DueDate)
	if err != nil {
		return appbilling.CreateInvoiceRequest{}, err
	}

	taxRate, err := parseOptionalDecimal(req.TaxRate)
	if err != nil {
		return appbilling.CreateInvoiceRequest{}, err
	}
	discount, err := parseOptionalDecimal(req.DiscountAmount)
	if err != nil {
		return appbilling.CreateInvoiceRequest{}, err
	}

	items, err := toLineItemInputs(req.LineItems)
	if err != nil {
		return appbilling.CreateInvoiceRequest{}, err
	}

	appReq := appbilling.CreateInvoiceRequest{
		ClientID:       clientID,
		ProjectID:      projectID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		TaxRate:        taxRate,
		DiscountAmount: discount,
		Notes:          req.Notes,
		LineItems:      items,
	}

	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	return appReq, nil
}

func (h *InvoiceHandler) toUpdateRequest(req UpdateInvoiceRequest) (appbilling.UpdateInvoiceRequest, error) {
	issueDate, dueDate, err := parseDateRange(req.IssueDate, req.DueDate)
	if err != nil {
		return appbilling.UpdateInvoiceRequest{}, err
	}

	taxRate, err := parseOptionalDecimal(req.TaxRate)
	if err != nil {
		return appbilling.UpdateInvoiceRequest{}, err
	}
	discount, err := parseOptionalDecimal(req.DiscountAmount)
	if err != nil {
		return appbilling.UpdateInvoiceRequest{}, err
	}

	items, err := toLineItemInputs(req.LineItems)
	if err != nil {
		return appbilling.UpdateInvoiceRequest{}, err
	}

	return appbilling.UpdateInvoiceRequest{
		IssueDate:      issueDate,
		DueDate:        dueDate,
		TaxRate:        taxRate,
		DiscountAmount: discount,
		Notes:          req.Notes,
		LineItems:      items,
	}, nil
}

func (h *InvoiceHandler) toInvoiceFilter(req ListInvoicesRequest) (billing.InvoiceFilter, error) {
	filter := billing.InvoiceFilter{}
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search

	if req.Status != "" {
		status := billing.InvoiceStatus(req.Status)
		filter.Status = &status
	}
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			return filter, err
		}
		filter.ClientID = &id
	}
	if req.ProjectID != "" {
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			return filter, err
		}
		filter.ProjectID = &id
	}
	if req.DateFrom != "" {
		from, err := time.Parse(dateLayout, req.DateFrom)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse(dateLayout, req.DateTo)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &to
	}

	return filter, nil
}

func toLineItemInputs(items []LineItemRequest) ([]appbilling.LineItemInput, error) {
	inputs := make([]appbilling.LineItemInput, len(items))
	for i, item := range items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			return nil, err
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		inputs[i] = appbilling.LineItemInput{
			Description: item.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			SortOrder:   item.SortOrder,
		}
	}
	return inputs, nil
}

func parseDateRange(issue, due string) (time.Time, time.Time, error) {
	issueDate, err := time.Parse(dateLayout, issue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	dueDate, err := time.Parse(dateLayout, due)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return issueDate, dueDate, nil
}

func parseOptionalDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
