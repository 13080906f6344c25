package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Editable, not yet issued
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Issued to the client
	InvoiceStatusViewed    InvoiceStatus = "VIEWED"    // Client opened the invoice
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Settled in full
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Withdrawn
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanSend returns true if the invoice can be issued in this status
func (s InvoiceStatus) CanSend() bool {
	return s == InvoiceStatusDraft
}

// CanMarkViewed returns true if the invoice can be marked viewed
func (s InvoiceStatus) CanMarkViewed() bool {
	return s == InvoiceStatusSent
}

// CanMarkPaid returns true if the invoice can be settled in this status
func (s InvoiceStatus) CanMarkPaid() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusViewed
}

// CanCancel returns true if the invoice can be cancelled in this status
func (s InvoiceStatus) CanCancel() bool {
	return !s.IsTerminal()
}

// CanEdit returns true if line items and terms may still change
func (s InvoiceStatus) CanEdit() bool {
	return s == InvoiceStatusDraft
}

// Invoice is the aggregate root of the settlement subsystem. It owns its
// line items and derives all monetary totals from them.
type Invoice struct {
	shared.AuditedAggregateRoot
	InvoiceNumber  string          `json:"invoice_number"`
	ClientID       uuid.UUID       `json:"client_id"`
	ProjectID      *uuid.UUID      `json:"project_id"`
	Status         InvoiceStatus   `json:"status"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxRate        decimal.Decimal `json:"tax_rate"` // percentage, e.g. 15 for 15%
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Notes          string          `json:"notes"`
	LineItems      []LineItem      `json:"line_items"`
	SentAt         *time.Time      `json:"sent_at"`
	ViewedAt       *time.Time      `json:"viewed_at"`
	PaidAt         *time.Time      `json:"paid_at"`
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CancelledBy    *uuid.UUID      `json:"cancelled_by"`
}

// NewInvoice creates a draft invoice with no line items
func NewInvoice(
	invoiceNumber string,
	clientID uuid.UUID,
	projectID *uuid.UUID,
	issueDate time.Time,
	dueDate time.Time,
	taxRate decimal.Decimal,
	discountAmount decimal.Decimal,
	createdBy *uuid.UUID,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if discountAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount amount cannot be negative")
	}

	inv := &Invoice{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		InvoiceNumber:        invoiceNumber,
		ClientID:             clientID,
		ProjectID:            projectID,
		Status:               InvoiceStatusDraft,
		IssueDate:            issueDate,
		DueDate:              dueDate,
		TaxRate:              taxRate,
		Subtotal:             decimal.Zero,
		TaxAmount:            decimal.Zero,
		DiscountAmount:       discountAmount,
		TotalAmount:          decimal.Zero,
		LineItems:            make([]LineItem, 0),
	}
	inv.RecalculateTotals()

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// RecalculateTotals rederives subtotal, tax and total from the line items.
// Idempotent: calling it twice in a row yields identical amounts.
func (inv *Invoice) RecalculateTotals() {
	subtotal := decimal.Zero
	for i := range inv.LineItems {
		inv.LineItems[i].Recalculate()
		subtotal = subtotal.Add(inv.LineItems[i].Amount)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
}

// NewLineItemInput carries the caller-supplied fields for one line item
type NewLineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	SortOrder   int
}

// ReplaceLineItems swaps the full line item set and recalculates totals once.
// Only draft invoices can be edited.
func (inv *Invoice) ReplaceLineItems(inputs []NewLineItemInput) error {
	if !inv.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit line items of invoice in %s status", inv.Status))
	}

	items := make([]LineItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := NewLineItem(inv.ID, in.Description, in.Quantity, in.UnitPrice, in.SortOrder)
		if err != nil {
			return err
		}
		items = append(items, *item)
	}

	inv.LineItems = items
	inv.RecalculateTotals()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// UpdateTerms changes the billing terms of a draft invoice and recalculates
func (inv *Invoice) UpdateTerms(issueDate, dueDate time.Time, taxRate, discountAmount decimal.Decimal, notes string) error {
	if !inv.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update invoice in %s status", inv.Status))
	}
	if issueDate.IsZero() {
		return shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if dueDate.Before(issueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	if taxRate.IsNegative() {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}
	if discountAmount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount amount cannot be negative")
	}

	inv.IssueDate = issueDate
	inv.DueDate = dueDate
	inv.TaxRate = taxRate
	inv.DiscountAmount = discountAmount
	inv.Notes = notes
	inv.RecalculateTotals()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Send issues the invoice to the client
func (inv *Invoice) Send() error {
	if !inv.Status.CanSend() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send invoice in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// MarkViewed records that the client opened the invoice
func (inv *Invoice) MarkViewed() error {
	if !inv.Status.CanMarkViewed() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice viewed in %s status", inv.Status))
	}

	now := time.Now()
	inv.Status = InvoiceStatusViewed
	inv.ViewedAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceViewedEvent(inv))

	return nil
}

// MarkPaid settles the invoice. PaidAt is set exactly once per settlement;
// a reverted invoice settles again with a fresh timestamp.
func (inv *Invoice) MarkPaid(paidAt time.Time) error {
	if !inv.Status.CanMarkPaid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice paid in %s status", inv.Status))
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &paidAt
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaidEvent(inv))

	return nil
}

// Cancel withdraws a non-terminal invoice
func (inv *Invoice) Cancel(cancelledBy uuid.UUID) error {
	if !inv.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}

	now := time.Now()
	previousStatus := inv.Status
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelledBy = &cancelledBy
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, previousStatus))

	return nil
}

// RevertToSent rolls a paid invoice back to SENT, clearing the settlement
// timestamp. Used when a completed payment is refunded.
func (inv *Invoice) RevertToSent() error {
	if inv.Status != InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot revert invoice in %s status", inv.Status))
	}

	inv.Status = InvoiceStatusSent
	inv.PaidAt = nil
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceRevertedEvent(inv))

	return nil
}

// IsOverdue reports whether the invoice is past due as of the given date.
// Overdue is derived, never stored: paid and cancelled invoices are never
// overdue regardless of due date.
func (inv *Invoice) IsOverdue(today time.Time) bool {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusCancelled {
		return false
	}
	due := inv.DueDate.Truncate(24 * time.Hour)
	day := today.Truncate(24 * time.Hour)
	return due.Before(day)
}

// GetTotalMoney returns the total as a Money value object
func (inv *Invoice) GetTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(inv.TotalAmount)
}

// IsDraft returns true if the invoice is still editable
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is withdrawn
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}
