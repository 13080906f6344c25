package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agency/backend/internal/domain/billing"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AuditedAggregateModel
	InvoiceNumber  string                 `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoices_number"`
	ClientID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	ProjectID      *uuid.UUID             `gorm:"type:uuid;index"`
	Status         billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IssueDate      time.Time              `gorm:"type:date;not null"`
	DueDate        time.Time              `gorm:"type:date;not null;index"`
	Subtotal       decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	TaxRate        decimal.Decimal        `gorm:"type:decimal(5,2);not null"`
	TaxAmount      decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	TotalAmount    decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	Notes          string                 `gorm:"type:text"`
	LineItems      []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID;constraint:OnDelete:CASCADE"`
	SentAt         *time.Time
	ViewedAt       *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineItemModel is the persistence model for invoice line items.
// Line items are child entities of the invoice aggregate.
type InvoiceLineItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SortOrder   int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	items := make([]billing.LineItem, len(m.LineItems))
	for i, li := range m.LineItems {
		items[i] = billing.LineItem{
			ID:          li.ID,
			InvoiceID:   li.InvoiceID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
			SortOrder:   li.SortOrder,
		}
	}
	return &billing.Invoice{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		InvoiceNumber:        m.InvoiceNumber,
		ClientID:             m.ClientID,
		ProjectID:            m.ProjectID,
		Status:               m.Status,
		IssueDate:            m.IssueDate,
		DueDate:              m.DueDate,
		Subtotal:             m.Subtotal,
		TaxRate:              m.TaxRate,
		TaxAmount:            m.TaxAmount,
		DiscountAmount:       m.DiscountAmount,
		TotalAmount:          m.TotalAmount,
		Notes:                m.Notes,
		LineItems:            items,
		SentAt:               m.SentAt,
		ViewedAt:             m.ViewedAt,
		PaidAt:               m.PaidAt,
		CancelledAt:          m.CancelledAt,
		CancelledBy:          m.CancelledBy,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAuditedAggregateRoot(inv.AuditedAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ClientID = inv.ClientID
	m.ProjectID = inv.ProjectID
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Subtotal = inv.Subtotal
	m.TaxRate = inv.TaxRate
	m.TaxAmount = inv.TaxAmount
	m.DiscountAmount = inv.DiscountAmount
	m.TotalAmount = inv.TotalAmount
	m.Notes = inv.Notes
	m.SentAt = inv.SentAt
	m.ViewedAt = inv.ViewedAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelledBy = inv.CancelledBy

	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i, li := range inv.LineItems {
		m.LineItems[i] = InvoiceLineItemModel{
			ID:          li.ID,
			InvoiceID:   inv.ID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
			SortOrder:   li.SortOrder,
		}
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AuditedAggregateModel
	PaymentNumber   string                `gorm:"type:varchar(30);not null;uniqueIndex:idx_payments_number"`
	InvoiceID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Invoice         *InvoiceModel         `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	ClientID        uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	PaymentMethod   billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	PaymentDate     time.Time             `gorm:"type:date;not null;index"`
	Status          billing.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	Notes           string                `gorm:"type:text"`
	ProcessedAt     *time.Time
	ProcessedBy     *uuid.UUID `gorm:"type:uuid"`
	RefundedAt      *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		PaymentNumber:        m.PaymentNumber,
		InvoiceID:            m.InvoiceID,
		ClientID:             m.ClientID,
		Amount:               m.Amount,
		PaymentMethod:        m.PaymentMethod,
		PaymentDate:          m.PaymentDate,
		Status:               m.Status,
		ReferenceNumber:      m.ReferenceNumber,
		Notes:                m.Notes,
		ProcessedAt:          m.ProcessedAt,
		ProcessedBy:          m.ProcessedBy,
		RefundedAt:           m.RefundedAt,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.InvoiceID = p.InvoiceID
	m.ClientID = p.ClientID
	m.Amount = p.Amount
	m.PaymentMethod = p.PaymentMethod
	m.PaymentDate = p.PaymentDate
	m.Status = p.Status
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
	m.ProcessedAt = p.ProcessedAt
	m.ProcessedBy = p.ProcessedBy
	m.RefundedAt = p.RefundedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// NumberSequenceModel is the persistence model for the document number
// counter. One row per (kind, year); the row is locked FOR UPDATE while a
// number is allocated.
type NumberSequenceModel struct {
	Kind      string `gorm:"type:varchar(10);primaryKey"`
	Year      int    `gorm:"primaryKey"`
	LastValue int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (NumberSequenceModel) TableName() string {
	return "number_sequences"
}
