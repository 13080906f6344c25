package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
)

// Invoice event types
const (
	EventInvoiceCreated   = "invoice.created"
	EventInvoiceSent      = "invoice.sent"
	EventInvoiceViewed    = "invoice.viewed"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceCancelled = "invoice.cancelled"
	EventInvoiceReverted  = "invoice.reverted_to_sent"
)

const invoiceAggregateType = "Invoice"

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceCreatedEvent creates a new invoice created event
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceSentEvent is raised when an invoice is issued to the client
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      uuid.UUID `json:"client_id"`
	SentAt        time.Time `json:"sent_at"`
}

// NewInvoiceSentEvent creates a new invoice sent event
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceSent, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		SentAt:          *inv.SentAt,
	}
}

// InvoiceViewedEvent is raised when the client opens the invoice
type InvoiceViewedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string    `json:"invoice_number"`
	ViewedAt      time.Time `json:"viewed_at"`
}

// NewInvoiceViewedEvent creates a new invoice viewed event
func NewInvoiceViewedEvent(inv *Invoice) *InvoiceViewedEvent {
	return &InvoiceViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceViewed, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		ViewedAt:        *inv.ViewedAt,
	}
}

// InvoicePaidEvent is raised when an invoice is settled
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewInvoicePaidEvent creates a new invoice paid event
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaid, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		ClientID:        inv.ClientID,
		TotalAmount:     inv.TotalAmount,
		PaidAt:          *inv.PaidAt,
	}
}

// InvoiceCancelledEvent is raised when an invoice is withdrawn
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber  string        `json:"invoice_number"`
	PreviousStatus InvoiceStatus `json:"previous_status"`
}

// NewInvoiceCancelledEvent creates a new invoice cancelled event
func NewInvoiceCancelledEvent(inv *Invoice, previousStatus InvoiceStatus) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCancelled, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousStatus:  previousStatus,
	}
}

// InvoiceRevertedEvent is raised when a paid invoice rolls back to SENT
type InvoiceRevertedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceRevertedEvent creates a new invoice reverted event
func NewInvoiceRevertedEvent(inv *Invoice) *InvoiceRevertedEvent {
	return &InvoiceRevertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceReverted, invoiceAggregateType, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}
