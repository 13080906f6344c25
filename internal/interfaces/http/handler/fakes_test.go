package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/agency/backend/internal/application/billing"
	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
)

// In-memory repositories backing real services in handler tests.

type stubInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*billing.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invoices[id]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
}

func (r *stubInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *stubInvoiceRepo) FindByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
}

func (r *stubInvoiceRepo) FindAll(_ context.Context, filter billing.InvoiceFilter) (shared.Paginated[billing.Invoice], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]billing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		items = append(items, *inv)
	}
	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return shared.NewPaginated(items, int64(len(items)), page, pageSize), nil
}

func (r *stubInvoiceRepo) Save(_ context.Context, invoice *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invoice
	r.invoices[invoice.ID] = &copied
	return nil
}

func (r *stubInvoiceRepo) SaveWithLock(_ context.Context, invoice *billing.Invoice, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *invoice
	r.invoices[invoice.ID] = &copied
	return nil
}

func (r *stubInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
	}
	delete(r.invoices, id)
	return nil
}

func (r *stubInvoiceRepo) Statistics(_ context.Context, _ billing.InvoiceFilter) (*billing.InvoiceStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &billing.InvoiceStatistics{TotalCount: int64(len(r.invoices))}
	for _, inv := range r.invoices {
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
	}
	return stats, nil
}

type stubPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*billing.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: make(map[uuid.UUID]*billing.Payment)}
}

func (r *stubPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
}

func (r *stubPaymentRepo) FindByNumber(_ context.Context, number string) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.PaymentNumber == number {
			copied := *p
			return &copied, nil
		}
	}
	return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
}

func (r *stubPaymentRepo) FindAll(_ context.Context, filter billing.PaymentFilter) (shared.Paginated[billing.Payment], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]billing.Payment, 0, len(r.payments))
	for _, p := range r.payments {
		items = append(items, *p)
	}
	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return shared.NewPaginated(items, int64(len(items)), page, pageSize), nil
}

func (r *stubPaymentRepo) Save(_ context.Context, payment *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

func (r *stubPaymentRepo) SaveWithLock(_ context.Context, payment *billing.Payment, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

func (r *stubPaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payments, id)
	return nil
}

func (r *stubPaymentRepo) SumCompletedByInvoice(_ context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID && p.Status == billing.PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *stubPaymentRepo) Statistics(_ context.Context, _ billing.PaymentFilter) (*billing.PaymentStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &billing.PaymentStatistics{TotalCount: int64(len(r.payments))}, nil
}

type stubSequenceRepo struct {
	mu   sync.Mutex
	last map[string]int64
}

func newStubSequenceRepo() *stubSequenceRepo {
	return &stubSequenceRepo{last: make(map[string]int64)}
}

func (r *stubSequenceRepo) Next(_ context.Context, kind billing.DocumentKind, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s-%d", kind, year)
	r.last[key]++
	return r.last[key], nil
}

// handlerTestEnv wires real services over in-memory repositories
type handlerTestEnv struct {
	invoices *stubInvoiceRepo
	payments *stubPaymentRepo
	invoice  *appbilling.InvoiceService
	payment  *appbilling.PaymentService
}

func newHandlerTestEnv() *handlerTestEnv {
	invoices := newStubInvoiceRepo()
	payments := newStubPaymentRepo()
	scope := appbilling.NewNoOpTransactionScope(invoices, payments, newStubSequenceRepo())
	return &handlerTestEnv{
		invoices: invoices,
		payments: payments,
		invoice:  appbilling.NewInvoiceService(scope),
		payment:  appbilling.NewPaymentService(scope),
	}
}

func mustDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

var (
	_ billing.InvoiceRepository        = (*stubInvoiceRepo)(nil)
	_ billing.PaymentRepository        = (*stubPaymentRepo)(nil)
	_ billing.NumberSequenceRepository = (*stubSequenceRepo)(nil)
)
