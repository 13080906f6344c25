package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/infrastructure/persistence/models"
)

// GormNumberSequenceRepository implements NumberSequenceRepository over the
// number_sequences counter table. The row for a (kind, year) pair is locked
// FOR UPDATE while a value is allocated, which serializes concurrent
// allocations of the same series without giving out duplicates.
type GormNumberSequenceRepository struct {
	db *gorm.DB
}

// NewGormNumberSequenceRepository creates a new GormNumberSequenceRepository
func NewGormNumberSequenceRepository(db *gorm.DB) *GormNumberSequenceRepository {
	return &GormNumberSequenceRepository{db: db}
}

// Next allocates the next sequence value for the given kind and year.
// Must run inside the transaction that consumes the value; the row lock is
// held until that transaction commits or rolls back.
func (r *GormNumberSequenceRepository) Next(ctx context.Context, kind billing.DocumentKind, year int) (int64, error) {
	var model models.NumberSequenceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND year = ?", kind, year).
		First(&model).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First allocation of this series. The insert may race with another
		// writer, so conflicts are ignored and the row re-read under lock.
		if err := r.db.WithContext(ctx).Exec(
			"INSERT INTO number_sequences (kind, year, last_value) VALUES (?, ?, 0) ON CONFLICT (kind, year) DO NOTHING",
			kind, year).Error; err != nil {
			return 0, err
		}
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("kind = ? AND year = ?", kind, year).
			First(&model).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	next := model.LastValue + 1
	if err := r.db.WithContext(ctx).
		Model(&models.NumberSequenceModel{}).
		Where("kind = ? AND year = ?", kind, year).
		Update("last_value", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// Ensure GormNumberSequenceRepository implements NumberSequenceRepository
var _ billing.NumberSequenceRepository = (*GormNumberSequenceRepository)(nil)
