package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
)

// Payment event types
const (
	EventPaymentCreated   = "payment.created"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentRefunded  = "payment.refunded"
)

const paymentAggregateType = "Payment"

// PaymentCreatedEvent is raised when a pending payment is recorded
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
}

// NewPaymentCreatedEvent creates a new payment created event
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentCreated, paymentAggregateType, p.ID),
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Method:          p.PaymentMethod,
	}
}

// PaymentCompletedEvent is raised when funds are received
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	ProcessedAt   time.Time       `json:"processed_at"`
	ProcessedBy   uuid.UUID       `json:"processed_by"`
}

// NewPaymentCompletedEvent creates a new payment completed event
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentCompleted, paymentAggregateType, p.ID),
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		ProcessedAt:     *p.ProcessedAt,
		ProcessedBy:     *p.ProcessedBy,
	}
}

// PaymentFailedEvent is raised when processing fails
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
	Reason        string `json:"reason"`
}

// NewPaymentFailedEvent creates a new payment failed event
func NewPaymentFailedEvent(p *Payment, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentFailed, paymentAggregateType, p.ID),
		PaymentNumber:   p.PaymentNumber,
		Reason:          reason,
	}
}

// PaymentCancelledEvent is raised when a pending payment is withdrawn
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
}

// NewPaymentCancelledEvent creates a new payment cancelled event
func NewPaymentCancelledEvent(p *Payment) *PaymentCancelledEvent {
	return &PaymentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentCancelled, paymentAggregateType, p.ID),
		PaymentNumber:   p.PaymentNumber,
	}
}

// PaymentRefundedEvent is raised when a completed payment is returned
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	RefundedAt    time.Time       `json:"refunded_at"`
}

// NewPaymentRefundedEvent creates a new payment refunded event
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRefunded, paymentAggregateType, p.ID),
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		RefundedAt:      *p.RefundedAt,
	}
}
