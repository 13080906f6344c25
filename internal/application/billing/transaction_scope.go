package billing

import (
	"context"

	"github.com/agency/backend/internal/domain/billing"
)

// TransactionScope provides transactional access to the settlement repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll back
// atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the settlement repositories
// within a transaction. All repositories returned share the same underlying
// database transaction.
//
// Aggregate boundary notes:
//   - InvoiceRepo: Repository for the Invoice aggregate root. Line items are
//     child entities persisted through the aggregate, never independently.
//   - PaymentRepo: Repository for the Payment aggregate root.
//   - SequenceRepo: Allocates document numbers. Sequence rows are locked for
//     the duration of the transaction, which serializes concurrent allocations
//     of the same (kind, year) pair.
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the current transaction
	InvoiceRepo() billing.InvoiceRepository
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() billing.PaymentRepository
	// SequenceRepo returns the number sequence repository scoped to the current transaction
	SequenceRepo() billing.NumberSequenceRepository
	// Savepoint runs fn inside a nested transaction. When fn fails, only the
	// work since the savepoint is rolled back and the outer transaction stays
	// usable. Postgres aborts the whole transaction after a statement error,
	// so any write that may violate a constraint and then be retried has to
	// go through here.
	Savepoint(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	invoiceRepo  billing.InvoiceRepository
	paymentRepo  billing.PaymentRepository
	sequenceRepo billing.NumberSequenceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	sequenceRepo billing.NumberSequenceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		sequenceRepo: sequenceRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Savepoint runs the function directly; there is no transaction to nest.
func (s *NoOpTransactionScope) Savepoint(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InvoiceRepo returns the invoice repository.
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository {
	return s.invoiceRepo
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() billing.PaymentRepository {
	return s.paymentRepo
}

// SequenceRepo returns the number sequence repository.
func (s *NoOpTransactionScope) SequenceRepo() billing.NumberSequenceRepository {
	return s.sequenceRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
