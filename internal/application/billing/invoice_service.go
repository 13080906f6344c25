package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
)

// InvoiceService orchestrates invoice lifecycle operations
type InvoiceService struct {
	scope     TransactionScope
	numbering *NumberingService
	now       func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(scope TransactionScope) *InvoiceService {
	return &InvoiceService{
		scope:     scope,
		numbering: NewNumberingService(),
		now:       time.Now,
	}
}

// LineItemInput carries one line item of a create or update request
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	SortOrder   int
}

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	ClientID       uuid.UUID
	ProjectID      *uuid.UUID
	IssueDate      time.Time
	DueDate        time.Time
	TaxRate        decimal.Decimal
	DiscountAmount decimal.Decimal
	Notes          string
	LineItems      []LineItemInput
	CreatedBy      *uuid.UUID
}

// UpdateInvoiceRequest represents a request to update a draft invoice
type UpdateInvoiceRequest struct {
	IssueDate      time.Time
	DueDate        time.Time
	TaxRate        decimal.Decimal
	DiscountAmount decimal.Decimal
	Notes          string
	LineItems      []LineItemInput
}

// CreateInvoice creates a draft invoice with a freshly allocated number.
// Number allocation and the insert run in one transaction. The insert goes
// through a savepoint so a collision on the unique number index rolls back
// only the insert, and the retry draws a fresh number from the still-live
// transaction.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	var created *billing.Invoice

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		year := req.IssueDate.Year()

		for attempt := 0; attempt < 2; attempt++ {
			number, err := s.numbering.NextNumber(ctx, repos.SequenceRepo(), billing.DocumentKindInvoice, year)
			if err != nil {
				return err
			}

			inv, err := billing.NewInvoice(number, req.ClientID, req.ProjectID,
				req.IssueDate, req.DueDate, req.TaxRate, req.DiscountAmount, req.CreatedBy)
			if err != nil {
				return err
			}
			inv.Notes = req.Notes
			if err := inv.ReplaceLineItems(toDomainItems(req.LineItems)); err != nil {
				return err
			}

			saveErr := repos.Savepoint(ctx, func(sp TransactionalRepositories) error {
				return sp.InvoiceRepo().Save(ctx, inv)
			})
			if saveErr == nil {
				created = inv
				return nil
			}
			if !isDuplicateNumber(saveErr) {
				return fmt.Errorf("failed to save invoice: %w", saveErr)
			}
		}

		return shared.NewDomainErrorWithCause("NUMBER_ALLOCATION_CONFLICT",
			"Could not allocate a unique invoice number", shared.ErrConcurrencyConflict)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var inv *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		inv = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoiceByNumber returns an invoice by its document number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var inv *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.InvoiceRepo().FindByNumber(ctx, number)
		if err != nil {
			return err
		}
		inv = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns a filtered, paginated invoice list
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) (shared.Paginated[billing.Invoice], error) {
	var page shared.Paginated[billing.Invoice]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		result, err := repos.InvoiceRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = result
		return nil
	})
	return page, err
}

// UpdateInvoice updates the terms and line items of a draft invoice
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*billing.Invoice, error) {
	var updated *billing.Invoice

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		expectedVersion := inv.GetVersion()
		if err := inv.UpdateTerms(req.IssueDate, req.DueDate, req.TaxRate, req.DiscountAmount, req.Notes); err != nil {
			return err
		}
		if err := inv.ReplaceLineItems(toDomainItems(req.LineItems)); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv, expectedVersion); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteInvoice removes a draft invoice. Issued invoices are cancelled, not
// deleted, to preserve the numbering trail.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot delete invoice in %s status", inv.Status))
		}
		return repos.InvoiceRepo().Delete(ctx, id)
	})
}

// SendInvoice issues a draft invoice to the client
func (s *InvoiceService) SendInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, func(inv *billing.Invoice) error {
		return inv.Send()
	})
}

// MarkInvoiceViewed records that the client opened the invoice
func (s *InvoiceService) MarkInvoiceViewed(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, func(inv *billing.Invoice) error {
		return inv.MarkViewed()
	})
}

// MarkInvoicePaid manually settles an invoice outside the payment ledger
func (s *InvoiceService) MarkInvoicePaid(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, func(inv *billing.Invoice) error {
		return inv.MarkPaid(s.now())
	})
}

// CancelInvoice withdraws a non-terminal invoice
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID, cancelledBy uuid.UUID) (*billing.Invoice, error) {
	return s.transition(ctx, id, func(inv *billing.Invoice) error {
		return inv.Cancel(cancelledBy)
	})
}

// GetStatistics returns aggregate invoice counts and amounts
func (s *InvoiceService) GetStatistics(ctx context.Context, filter billing.InvoiceFilter) (*billing.InvoiceStatistics, error) {
	var stats *billing.InvoiceStatistics
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		result, err := repos.InvoiceRepo().Statistics(ctx, filter)
		if err != nil {
			return err
		}
		stats = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// transition loads an invoice, applies a state change and saves it with an
// optimistic version check
func (s *InvoiceService) transition(ctx context.Context, id uuid.UUID, fn func(inv *billing.Invoice) error) (*billing.Invoice, error) {
	var result *billing.Invoice

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		expectedVersion := inv.GetVersion()
		if err := fn(inv); err != nil {
			return err
		}

		if err := repos.InvoiceRepo().SaveWithLock(ctx, inv, expectedVersion); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func toDomainItems(inputs []LineItemInput) []billing.NewLineItemInput {
	items := make([]billing.NewLineItemInput, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, billing.NewLineItemInput{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			SortOrder:   in.SortOrder,
		})
	}
	return items
}
