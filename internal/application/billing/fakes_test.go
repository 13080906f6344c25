package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/domain/shared/valueobject"
)

// In-memory repositories backing the service tests.

type memInvoiceRepo struct {
	invoices map[uuid.UUID]*billing.Invoice
	// lockedFinds counts reads taken through the locking variant, so tests
	// can assert settlement goes through the row lock.
	lockedFinds int
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *memInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
	}
	return inv, nil
}

func (r *memInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.lockedFinds++
	return r.FindByID(ctx, id)
}

func (r *memInvoiceRepo) FindByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
}

func (r *memInvoiceRepo) FindAll(_ context.Context, filter billing.InvoiceFilter) (shared.Paginated[billing.Invoice], error) {
	items := make([]billing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		items = append(items, *inv)
	}
	return shared.NewPaginated(items, int64(len(items)), 1, 20), nil
}

func (r *memInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	for id, existing := range r.invoices {
		if id != inv.ID && existing.InvoiceNumber == inv.InvoiceNumber {
			return shared.NewDomainErrorWithCause("DUPLICATE_NUMBER", "Invoice number already exists", shared.ErrAlreadyExists)
		}
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice, expectedVersion int) error {
	existing, ok := r.invoices[inv.ID]
	if !ok {
		return shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
	}
	// The aggregate already incremented past expectedVersion; a concurrent
	// writer is detected when the stored copy moved further.
	if existing != inv && existing.GetVersion() != expectedVersion {
		return shared.NewDomainErrorWithCause("OPTIMISTIC_LOCK", "Invoice was modified concurrently", shared.ErrConcurrencyConflict)
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.invoices[id]; !ok {
		return shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
	}
	delete(r.invoices, id)
	return nil
}

func (r *memInvoiceRepo) Statistics(_ context.Context, _ billing.InvoiceFilter) (*billing.InvoiceStatistics, error) {
	stats := &billing.InvoiceStatistics{
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
	}
	for _, inv := range r.invoices {
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
		switch inv.Status {
		case billing.InvoiceStatusDraft:
			stats.DraftCount++
		case billing.InvoiceStatusSent:
			stats.SentCount++
		case billing.InvoiceStatusViewed:
			stats.ViewedCount++
		case billing.InvoiceStatusPaid:
			stats.PaidCount++
			stats.PaidAmount = stats.PaidAmount.Add(inv.TotalAmount)
		case billing.InvoiceStatusCancelled:
			stats.CancelledCount++
		}
	}
	stats.OutstandingAmount = stats.TotalAmount.Sub(stats.PaidAmount)
	return stats, nil
}

type memPaymentRepo struct {
	payments map[uuid.UUID]*billing.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]*billing.Payment)}
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
	}
	return p, nil
}

func (r *memPaymentRepo) FindByNumber(_ context.Context, number string) (*billing.Payment, error) {
	for _, p := range r.payments {
		if p.PaymentNumber == number {
			return p, nil
		}
	}
	return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
}

func (r *memPaymentRepo) FindAll(_ context.Context, filter billing.PaymentFilter) (shared.Paginated[billing.Payment], error) {
	items := make([]billing.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.InvoiceID != nil && p.InvoiceID != *filter.InvoiceID {
			continue
		}
		items = append(items, *p)
	}
	return shared.NewPaginated(items, int64(len(items)), 1, 20), nil
}

func (r *memPaymentRepo) Save(_ context.Context, p *billing.Payment) error {
	for id, existing := range r.payments {
		if id != p.ID && existing.PaymentNumber == p.PaymentNumber {
			return shared.NewDomainErrorWithCause("DUPLICATE_NUMBER", "Payment number already exists", shared.ErrAlreadyExists)
		}
	}
	r.payments[p.ID] = p
	return nil
}

func (r *memPaymentRepo) SaveWithLock(_ context.Context, p *billing.Payment, expectedVersion int) error {
	existing, ok := r.payments[p.ID]
	if !ok {
		return shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
	}
	if existing != p && existing.GetVersion() != expectedVersion {
		return shared.NewDomainErrorWithCause("OPTIMISTIC_LOCK", "Payment was modified concurrently", shared.ErrConcurrencyConflict)
	}
	r.payments[p.ID] = p
	return nil
}

func (r *memPaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.payments[id]; !ok {
		return shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
	}
	delete(r.payments, id)
	return nil
}

func (r *memPaymentRepo) SumCompletedByInvoice(_ context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID && p.Status == billing.PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *memPaymentRepo) Statistics(_ context.Context, _ billing.PaymentFilter) (*billing.PaymentStatistics, error) {
	stats := &billing.PaymentStatistics{
		CompletedAmount: decimal.Zero,
		PendingAmount:   decimal.Zero,
		RefundedAmount:  decimal.Zero,
	}
	for _, p := range r.payments {
		stats.TotalCount++
		switch p.Status {
		case billing.PaymentStatusPending:
			stats.PendingCount++
			stats.PendingAmount = stats.PendingAmount.Add(p.Amount)
		case billing.PaymentStatusCompleted:
			stats.CompletedCount++
			stats.CompletedAmount = stats.CompletedAmount.Add(p.Amount)
		case billing.PaymentStatusFailed:
			stats.FailedCount++
		case billing.PaymentStatusRefunded:
			stats.RefundedCount++
			stats.RefundedAmount = stats.RefundedAmount.Add(p.Amount)
		}
	}
	return stats, nil
}

type memSequenceRepo struct {
	values map[string]int64
}

func newMemSequenceRepo() *memSequenceRepo {
	return &memSequenceRepo{values: make(map[string]int64)}
}

func (r *memSequenceRepo) Next(_ context.Context, kind billing.DocumentKind, year int) (int64, error) {
	key := fmt.Sprintf("%s-%d", kind, year)
	r.values[key]++
	return r.values[key], nil
}

// mustMoney builds a USD Money from a decimal string, panicking on bad input
func mustMoney(amount string) valueobject.Money {
	m, err := valueobject.NewMoneyUSDFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// savepointRecordingScope counts nested-transaction usage while delegating
// to the in-memory repositories.
type savepointRecordingScope struct {
	*NoOpTransactionScope
	savepoints int
}

func (s *savepointRecordingScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *savepointRecordingScope) Savepoint(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.savepoints++
	return fn(s)
}

type testEnv struct {
	invoices  *memInvoiceRepo
	payments  *memPaymentRepo
	sequences *memSequenceRepo
	scope     *NoOpTransactionScope
}

func newTestEnv() *testEnv {
	invoices := newMemInvoiceRepo()
	payments := newMemPaymentRepo()
	sequences := newMemSequenceRepo()
	return &testEnv{
		invoices:  invoices,
		payments:  payments,
		sequences: sequences,
		scope:     NewNoOpTransactionScope(invoices, payments, sequences),
	}
}

var (
	_ billing.InvoiceRepository        = (*memInvoiceRepo)(nil)
	_ billing.PaymentRepository        = (*memPaymentRepo)(nil)
	_ billing.NumberSequenceRepository = (*memSequenceRepo)(nil)
)
