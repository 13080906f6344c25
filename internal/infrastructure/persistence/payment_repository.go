package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/infrastructure/persistence/models"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a payment by its document number
func (r *GormPaymentRepository) FindByNumber(ctx context.Context, number string) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("payment_number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds payments matching the filter, paginated
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter billing.PaymentFilter) (shared.Paginated[billing.Payment], error) {
	var total int64
	countQuery := r.applyPaymentFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return shared.Paginated[billing.Payment]{}, err
	}

	var paymentModels []models.PaymentModel
	query := r.applyPaymentFilter(
		r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := query.Find(&paymentModels).Error; err != nil {
		return shared.Paginated[billing.Payment]{}, err
	}

	payments := make([]billing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return shared.NewPaginated(payments, total, page, pageSize), nil
}

// Save creates or updates a payment. A unique index violation on the
// payment number is reported as a duplicate-number domain error.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return translateSaveError(err, "Payment number already exists")
	}
	return nil
}

// SaveWithLock saves with optimistic locking against the expected version
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment, expectedVersion int) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, expectedVersion).
		Select("*").Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return translateSaveError(result.Error, "Payment number already exists")
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorWithCause("OPTIMISTIC_LOCK",
			"The payment has been modified by another transaction", shared.ErrConcurrencyConflict)
	}
	return nil
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorWithCause("PAYMENT_NOT_FOUND", "Payment not found", shared.ErrNotFound)
	}
	return nil
}

// SumCompletedByInvoice sums the completed payments recorded for an invoice
func (r *GormPaymentRepository) SumCompletedByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("invoice_id = ? AND status = ?", invoiceID, billing.PaymentStatusCompleted).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Statistics aggregates payment counts and amounts in a single query
func (r *GormPaymentRepository) Statistics(ctx context.Context, filter billing.PaymentFilter) (*billing.PaymentStatistics, error) {
	var stats billing.PaymentStatistics
	query := r.applyPaymentFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)

	err := query.Select(
		"COUNT(*) AS total_count, " +
			"COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count, " +
			"COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_count, " +
			"COUNT(*) FILTER (WHERE status = 'FAILED') AS failed_count, " +
			"COUNT(*) FILTER (WHERE status = 'REFUNDED') AS refunded_count, " +
			"COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0) AS completed_amount, " +
			"COALESCE(SUM(amount) FILTER (WHERE status = 'PENDING'), 0) AS pending_amount, " +
			"COALESCE(SUM(amount) FILTER (WHERE status = 'REFUNDED'), 0) AS refunded_amount").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// applyPaymentFilter applies filter options to the query
func (r *GormPaymentRepository) applyPaymentFilter(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	query = r.applyPaymentFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyPaymentFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyPaymentFilterWithoutPagination(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR reference_number ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("payment_date <= ?", *filter.DateTo)
	}
	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
