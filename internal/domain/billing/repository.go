package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/shared"
)

// InvoiceFilter holds the supported invoice list filters
type InvoiceFilter struct {
	shared.Filter
	Status    *InvoiceStatus
	ClientID  *uuid.UUID
	ProjectID *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
}

// PaymentFilter holds the supported payment list filters
type PaymentFilter struct {
	shared.Filter
	Status    *PaymentStatus
	InvoiceID *uuid.UUID
	ClientID  *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
}

// InvoiceStatistics aggregates invoice counts and amounts by bucket
type InvoiceStatistics struct {
	TotalCount        int64           `json:"total_count"`
	DraftCount        int64           `json:"draft_count"`
	SentCount         int64           `json:"sent_count"`
	ViewedCount       int64           `json:"viewed_count"`
	PaidCount         int64           `json:"paid_count"`
	CancelledCount    int64           `json:"cancelled_count"`
	OverdueCount      int64           `json:"overdue_count"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

// PaymentStatistics aggregates payment counts and amounts by bucket
type PaymentStatistics struct {
	TotalCount      int64           `json:"total_count"`
	PendingCount    int64           `json:"pending_count"`
	CompletedCount  int64           `json:"completed_count"`
	FailedCount     int64           `json:"failed_count"`
	RefundedCount   int64           `json:"refunded_count"`
	CompletedAmount decimal.Decimal `json:"completed_amount"`
	PendingAmount   decimal.Decimal `json:"pending_amount"`
	RefundedAmount  decimal.Decimal `json:"refunded_amount"`
}

// InvoiceRepository provides persistence for invoice aggregates.
// FindByIDForUpdate locks the invoice row for the rest of the transaction;
// settlement reads through it so concurrent payment processing against the
// same invoice serializes on the row.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) (shared.Paginated[Invoice], error)
	Save(ctx context.Context, invoice *Invoice) error
	SaveWithLock(ctx context.Context, invoice *Invoice, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context, filter InvoiceFilter) (*InvoiceStatistics, error)
}

// PaymentRepository provides persistence for payment aggregates
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByNumber(ctx context.Context, number string) (*Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) (shared.Paginated[Payment], error)
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumCompletedByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	Statistics(ctx context.Context, filter PaymentFilter) (*PaymentStatistics, error)
}

// NumberSequenceRepository allocates monotonic per-kind, per-year sequence
// values. Implementations must serialize concurrent calls for the same
// (kind, year) pair so no value is handed out twice.
type NumberSequenceRepository interface {
	Next(ctx context.Context, kind DocumentKind, year int) (int64, error)
}
