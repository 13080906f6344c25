package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/domain/shared/valueobject"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // Recorded, not yet processed
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // Funds received
	PaymentStatusFailed    PaymentStatus = "FAILED"    // Processing failed
	PaymentStatusCancelled PaymentStatus = "CANCELLED" // Withdrawn before processing
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"  // Completed payment returned
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payment is in a terminal state
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusCancelled || s == PaymentStatusRefunded
}

// CanComplete returns true if the payment can be completed
func (s PaymentStatus) CanComplete() bool {
	return s == PaymentStatusPending
}

// CanFail returns true if the payment can be marked failed
func (s PaymentStatus) CanFail() bool {
	return s == PaymentStatusPending
}

// CanCancel returns true if the payment can be cancelled
func (s PaymentStatus) CanCancel() bool {
	return s == PaymentStatusPending
}

// CanRefund returns true if the payment can be refunded
func (s PaymentStatus) CanRefund() bool {
	return s == PaymentStatusCompleted
}

// PaymentMethod represents how the client paid
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodPaypal       PaymentMethod = "PAYPAL"
	PaymentMethodStripe       PaymentMethod = "STRIPE"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodPaypal,
		PaymentMethodStripe, PaymentMethodCash, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is a ledger entry recording money received against an invoice
type Payment struct {
	shared.AuditedAggregateRoot
	PaymentNumber   string          `json:"payment_number"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	ClientID        uuid.UUID       `json:"client_id"` // Denormalized from the invoice
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	Status          PaymentStatus   `json:"status"`
	ReferenceNumber string          `json:"reference_number"` // External processor reference
	Notes           string          `json:"notes"`
	ProcessedAt     *time.Time      `json:"processed_at"`
	ProcessedBy     *uuid.UUID      `json:"processed_by"`
	RefundedAt      *time.Time      `json:"refunded_at"`
}

// NewPayment creates a pending payment against an invoice
func NewPayment(
	paymentNumber string,
	invoiceID uuid.UUID,
	clientID uuid.UUID,
	amount valueobject.Money,
	method PaymentMethod,
	paymentDate time.Time,
	createdBy *uuid.UUID,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	p := &Payment{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		PaymentNumber:        paymentNumber,
		InvoiceID:            invoiceID,
		ClientID:             clientID,
		Amount:               amount.Amount().Round(2),
		PaymentMethod:        method,
		PaymentDate:          paymentDate,
		Status:               PaymentStatusPending,
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// Complete marks the payment as received
func (p *Payment) Complete(processedBy uuid.UUID) error {
	if !p.Status.CanComplete() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete payment in %s status", p.Status))
	}
	if processedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Processing user ID is required")
	}

	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.ProcessedAt = &now
	p.ProcessedBy = &processedBy
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCompletedEvent(p))

	return nil
}

// Fail marks the payment as failed
func (p *Payment) Fail(reason string) error {
	if !p.Status.CanFail() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}

	p.Status = PaymentStatusFailed
	if reason != "" {
		p.Notes = reason
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentFailedEvent(p, reason))

	return nil
}

// Cancel withdraws a pending payment
func (p *Payment) Cancel() error {
	if !p.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s status", p.Status))
	}

	p.Status = PaymentStatusCancelled
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCancelledEvent(p))

	return nil
}

// Refund returns a completed payment to the client
func (p *Payment) Refund() error {
	if !p.Status.CanRefund() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusRefunded
	p.RefundedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentRefundedEvent(p))

	return nil
}

// SetReferenceNumber records the external processor reference
func (p *Payment) SetReferenceNumber(referenceNumber string) error {
	if len(referenceNumber) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE_NUMBER", "Reference number cannot exceed 100 characters")
	}

	p.ReferenceNumber = referenceNumber
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetNotes sets free-form notes on the payment
func (p *Payment) SetNotes(notes string) {
	p.Notes = notes
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// GetAmountMoney returns the amount as a Money value object
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}

// IsCompleted returns true if the payment was received
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// IsPending returns true if the payment awaits processing
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsRefunded returns true if the payment was returned
func (p *Payment) IsRefunded() bool {
	return p.Status == PaymentStatusRefunded
}
