package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
	"github.com/agency/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID, line items included
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_line_items.sort_order ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads an invoice under a FOR UPDATE row lock. Must run
// inside a transaction; the lock is held until it commits or rolls back so
// concurrent settlement of the same invoice serializes here.
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_line_items.sort_order ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its document number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_line_items.sort_order ASC")
		}).
		Where("invoice_number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter, paginated
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) (shared.Paginated[billing.Invoice], error) {
	var total int64
	countQuery := r.applyInvoiceFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return shared.Paginated[billing.Invoice]{}, err
	}

	var invoiceModels []models.InvoiceModel
	query := r.applyInvoiceFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_line_items.sort_order ASC")
		})
	if err := query.Find(&invoiceModels).Error; err != nil {
		return shared.Paginated[billing.Invoice]{}, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}

	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return shared.NewPaginated(invoices, total, page, pageSize), nil
}

// Save creates or updates an invoice and replaces its line items.
// A unique index violation on the invoice number is reported as a
// duplicate-number domain error so callers can retry the allocation.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Omit("LineItems").Save(model).Error; err != nil {
		return translateSaveError(err, "Invoice number already exists")
	}
	return r.replaceLineItems(ctx, model)
}

// SaveWithLock saves with optimistic locking against the expected version
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice, expectedVersion int) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, expectedVersion).
		Select("*").Omit("LineItems", "id", "created_at").
		Updates(model)

	if result.Error != nil {
		return translateSaveError(result.Error, "Invoice number already exists")
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorWithCause("OPTIMISTIC_LOCK",
			"The invoice has been modified by another transaction", shared.ErrConcurrencyConflict)
	}
	return r.replaceLineItems(ctx, model)
}

// Delete removes an invoice; line items cascade at the database level
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorWithCause("INVOICE_NOT_FOUND", "Invoice not found", shared.ErrNotFound)
	}
	return nil
}

// Statistics aggregates invoice counts and amounts in a single query.
// Overdue is derived from due date and status, never read from a column.
func (r *GormInvoiceRepository) Statistics(ctx context.Context, filter billing.InvoiceFilter) (*billing.InvoiceStatistics, error) {
	var stats billing.InvoiceStatistics
	query := r.applyInvoiceFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	err := query.Select(
		"COUNT(*) AS total_count, "+
			"COUNT(*) FILTER (WHERE status = 'DRAFT') AS draft_count, "+
			"COUNT(*) FILTER (WHERE status = 'SENT') AS sent_count, "+
			"COUNT(*) FILTER (WHERE status = 'VIEWED') AS viewed_count, "+
			"COUNT(*) FILTER (WHERE status = 'PAID') AS paid_count, "+
			"COUNT(*) FILTER (WHERE status = 'CANCELLED') AS cancelled_count, "+
			"COUNT(*) FILTER (WHERE due_date < ? AND status NOT IN ('PAID','CANCELLED')) AS overdue_count, "+
			"COALESCE(SUM(total_amount), 0) AS total_amount, "+
			"COALESCE(SUM(total_amount) FILTER (WHERE status = 'PAID'), 0) AS paid_amount, "+
			"COALESCE(SUM(total_amount) FILTER (WHERE status NOT IN ('PAID','CANCELLED')), 0) AS outstanding_amount",
		time.Now()).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// replaceLineItems swaps the stored line item set for the aggregate's set
func (r *GormInvoiceRepository) replaceLineItems(ctx context.Context, model *models.InvoiceModel) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.InvoiceLineItemModel{}, "invoice_id = ?", model.ID).Error; err != nil {
		return err
	}
	if len(model.LineItems) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&model.LineItems).Error
}

// applyInvoiceFilter applies filter options to the query
func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

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

// applyInvoiceFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyInvoiceFilterWithoutPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.DateFrom != nil {
		query = query.Where("issue_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("issue_date <= ?", *filter.DateTo)
	}
	return query
}

// translateSaveError maps database-level errors to domain errors
func translateSaveError(err error, duplicateMessage string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainErrorWithCause("DUPLICATE_NUMBER", duplicateMessage, shared.ErrAlreadyExists)
	}
	return err
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
