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

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest represents a request to record a payment
type CreatePaymentRequest struct {
	InvoiceID       string  `json:"invoice_id" binding:"required,uuid"`
	ClientID        *string `json:"client_id" binding:"omitempty,uuid"`
	Amount          string  `json:"amount" binding:"required"`
	PaymentMethod   string  `json:"payment_method" binding:"required,oneof=BANK_TRANSFER CREDIT_CARD PAYPAL STRIPE CASH CHECK OTHER"`
	PaymentDate     string  `json:"payment_date" binding:"required"`
	ReferenceNumber string  `json:"reference_number" binding:"max=100"`
	Notes           string  `json:"notes"`
}

// FailPaymentRequest represents a request to mark a payment as failed
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListPaymentsRequest represents payment list query parameters
type ListPaymentsRequest struct {
	dto.ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED CANCELLED REFUNDED"`
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	ClientID  string `form:"client_id" binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// Create records a pending payment against an invoice
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq, err := h.toCreateRequest(c, req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// Get returns a payment by ID
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// List returns a paginated list of payments
func (h *PaymentHandler) List(c *gin.Context) {
	req := ListPaymentsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := h.toPaymentFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Process completes a pending payment. When completed payments cover the
// invoice total, the invoice is settled in the same transaction.
func (h *PaymentHandler) Process(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "acting user is required to process a payment")
		return
	}

	payment, err := h.paymentService.ProcessPayment(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Refund refunds a completed payment. A refund that breaks full settlement
// reverts the invoice to sent.
func (h *PaymentHandler) Refund(c *gin.Context) {
	h.transition(c, h.paymentService.RefundPayment)
}

// Fail marks a pending payment as failed
func (h *PaymentHandler) Fail(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.FailPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Cancel cancels a pending payment
func (h *PaymentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.paymentService.CancelPayment)
}

// Statistics returns aggregate payment statistics
func (h *PaymentHandler) Statistics(c *gin.Context) {
	req := ListPaymentsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := h.toPaymentFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stats, err := h.paymentService.GetStatistics(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/billing/payments")
	{
		payments.POST("", h.Create)
		payments.GET("", h.List)
		payments.GET("/statistics", h.Statistics)
		payments.GET("/:id", h.Get)
		payments.POST("/:id/process", h.Process)
		payments.POST("/:id/refund", h.Refund)
		payments.POST("/:id/fail", h.Fail)
		payments.POST("/:id/cancel", h.Cancel)
	}
}

func (h *PaymentHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid payment ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *PaymentHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*billing.Payment, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	payment, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

func (h *PaymentHandler) toCreateRequest(c *gin.Context, req CreatePaymentRequest) (appbilling.CreatePaymentRequest, error) {
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		return appbilling.CreatePaymentRequest{}, err
	}

	var clientID *uuid.UUID
	if req.ClientID != nil {
		id, err := uuid.Parse(*req.ClientID)
		if err != nil {
			return appbilling.CreatePaymentRequest{}, err
		}
		clientID = &id
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return appbilling.CreatePaymentRequest{}, err
	}

	paymentDate, err := time.Parse(dateLayout, req.PaymentDate)
	if err != nil {
		return appbilling.CreatePaymentRequest{}, err
	}

	appReq := appbilling.CreatePaymentRequest{
		InvoiceID:       invoiceID,
		ClientID:        clientID,
		Amount:          amount,
		PaymentMethod:   billing.PaymentMethod(req.PaymentMethod),
		PaymentDate:     paymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}

	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	return appReq, nil
}

func (h *PaymentHandler) toPaymentFilter(req ListPaymentsRequest) (billing.PaymentFilter, error) {
	filter := billing.PaymentFilter{}
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search

	if req.Status != "" {
		status := billing.PaymentStatus(req.Status)
		filter.Status = &status
	}
	if req.InvoiceID != "" {
		id, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			return filter, err
		}
		filter.InvoiceID = &id
	}
	if req.ClientID != "" {
		id, err := uuid.Parse(req.ClientID)
		if err != nil {
			return filter, err
		}
		filter.ClientID = &id
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
