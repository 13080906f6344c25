package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/domain/shared/valueobject"
)

// PaymentService orchestrates the payment ledger and drives invoice
// settlement from completed payments
type PaymentService struct {
	scope     TransactionScope
	numbering *NumberingService
	now       func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope) *PaymentService {
	return &PaymentService{
		scope:     scope,
		numbering: NewNumberingService(),
		now:       time.Now,
	}
}

// CreatePaymentRequest represents a request to record a pending payment
type CreatePaymentRequest struct {
	InvoiceID       uuid.UUID
	ClientID        *uuid.UUID // Defaults to the invoice client when nil
	Amount          decimal.Decimal
	PaymentMethod   billing.PaymentMethod
	PaymentDate     time.Time
	ReferenceNumber string
	Notes           string
	CreatedBy       *uuid.UUID
}

// CreatePayment records a pending payment against an invoice. The payment
// number allocation and the insert run in one transaction; the insert goes
// through a savepoint so a collision on the unique number index is retried
// once with a fresh allocation.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*billing.Payment, error) {
	var created *billing.Payment

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if inv.IsCancelled() {
			return shared.NewDomainError("INVALID_STATE", "Cannot record a payment against a cancelled invoice")
		}

		clientID := inv.ClientID
		if req.ClientID != nil {
			clientID = *req.ClientID
		}

		amount, err := valueobject.NewMoney(req.Amount, valueobject.DefaultCurrency)
		if err != nil {
			return shared.NewDomainErrorWithCause("INVALID_AMOUNT", "Invalid payment amount", err)
		}

		year := req.PaymentDate.Year()
		for attempt := 0; attempt < 2; attempt++ {
			number, err := s.numbering.NextNumber(ctx, repos.SequenceRepo(), billing.DocumentKindPayment, year)
			if err != nil {
				return err
			}

			payment, err := billing.NewPayment(number, req.InvoiceID, clientID,
				amount, req.PaymentMethod, req.PaymentDate, req.CreatedBy)
			if err != nil {
				return err
			}
			if req.ReferenceNumber != "" {
				if err := payment.SetReferenceNumber(req.ReferenceNumber); err != nil {
					return err
				}
			}
			if req.Notes != "" {
				payment.SetNotes(req.Notes)
			}

			saveErr := repos.Savepoint(ctx, func(sp TransactionalRepositories) error {
				return sp.PaymentRepo().Save(ctx, payment)
			})
			if saveErr == nil {
				created = payment
				return nil
			}
			if !isDuplicateNumber(saveErr) {
				return fmt.Errorf("failed to save payment: %w", saveErr)
			}
		}

		return shared.NewDomainErrorWithCause("NUMBER_ALLOCATION_CONFLICT",
			"Could not allocate a unique payment number", shared.ErrConcurrencyConflict)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ProcessPayment completes a pending payment and, when the completed
// payments of the invoice cover its total, settles the invoice. Both writes
// happen in one transaction so the ledger and invoice never disagree.
// Overpayment is permitted.
func (s *PaymentService) ProcessPayment(ctx context.Context, paymentID uuid.UUID, processedBy uuid.UUID) (*billing.Payment, error) {
	var processed *billing.Payment

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		expectedVersion := payment.GetVersion()
		if err := payment.Complete(processedBy); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment, expectedVersion); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		// Lock the invoice row before summing so a concurrent settlement of
		// the same invoice waits here and sees this payment once committed.
		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}

		completedSum, err := repos.PaymentRepo().SumCompletedByInvoice(ctx, payment.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to sum completed payments: %w", err)
		}
		if completedSum.GreaterThanOrEqual(inv.TotalAmount) && inv.Status.CanMarkPaid() {
			invoiceVersion := inv.GetVersion()
			if err := inv.MarkPaid(s.now()); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv, invoiceVersion); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
		}

		processed = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}

// RefundPayment returns a completed payment and, if the invoice was settled,
// reverts it to SENT with its settlement timestamp cleared. Both writes
// happen in one transaction.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	var refunded *billing.Payment

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		expectedVersion := payment.GetVersion()
		if err := payment.Refund(); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment, expectedVersion); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			invoiceVersion := inv.GetVersion()
			if err := inv.RevertToSent(); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().SaveWithLock(ctx, inv, invoiceVersion); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
		}

		refunded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

// FailPayment marks a pending payment as failed
func (s *PaymentService) FailPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*billing.Payment, error) {
	return s.transition(ctx, paymentID, func(p *billing.Payment) error {
		return p.Fail(reason)
	})
}

// CancelPayment withdraws a pending payment
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*billing.Payment, error) {
	return s.transition(ctx, paymentID, func(p *billing.Payment) error {
		return p.Cancel()
	})
}

// GetPayment returns a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var payment *billing.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		payment = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPayments returns a filtered, paginated payment list
func (s *PaymentService) ListPayments(ctx context.Context, filter billing.PaymentFilter) (shared.Paginated[billing.Payment], error) {
	var page shared.Paginated[billing.Payment]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		result, err := repos.PaymentRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = result
		return nil
	})
	return page, err
}

// GetStatistics returns aggregate payment counts and amounts
func (s *PaymentService) GetStatistics(ctx context.Context, filter billing.PaymentFilter) (*billing.PaymentStatistics, error) {
	var stats *billing.PaymentStatistics
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		result, err := repos.PaymentRepo().Statistics(ctx, filter)
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

// transition loads a payment, applies a state change and saves it with an
// optimistic version check
func (s *PaymentService) transition(ctx context.Context, id uuid.UUID, fn func(p *billing.Payment) error) (*billing.Payment, error) {
	var result *billing.Payment

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		expectedVersion := payment.GetVersion()
		if err := fn(payment); err != nil {
			return err
		}

		if err := repos.PaymentRepo().SaveWithLock(ctx, payment, expectedVersion); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
