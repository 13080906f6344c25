package persistence

import (
	"context"

	"gorm.io/gorm"

	appbilling "github.com/agency/backend/internal/application/billing"
	"github.com/agency/backend/internal/domain/billing"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution across the settlement repositories.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// InvoiceRepo returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvoiceRepo() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// SequenceRepo returns the number sequence repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SequenceRepo() billing.NumberSequenceRepository {
	return NewGormNumberSequenceRepository(r.tx)
}

// Savepoint runs fn inside a nested transaction. GORM emits SAVEPOINT /
// ROLLBACK TO SAVEPOINT here, which clears the aborted state Postgres puts
// the transaction into after a constraint violation.
func (r *gormTransactionalRepositories) Savepoint(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return r.tx.WithContext(ctx).Transaction(func(nested *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: nested})
	})
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
