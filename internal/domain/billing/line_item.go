package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
)

// LineItem is a billed position on an invoice. It is owned exclusively by
// its invoice and never referenced from outside the aggregate.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"` // quantity * unit_price, 2 dp
	SortOrder   int             `json:"sort_order"`
}

// NewLineItem creates a line item and derives its amount
func NewLineItem(invoiceID uuid.UUID, description string, quantity, unitPrice decimal.Decimal, sortOrder int) (*LineItem, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line item description cannot be empty")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Line item description cannot exceed 500 characters")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}

	return &LineItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice).Round(2),
		SortOrder:   sortOrder,
	}, nil
}

// Recalculate rederives the amount from quantity and unit price
func (li *LineItem) Recalculate() {
	li.Amount = li.Quantity.Mul(li.UnitPrice).Round(2)
}
