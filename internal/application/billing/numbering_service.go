package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/agency/backend/internal/domain/billing"
	"github.com/agency/backend/internal/domain/shared"
)

// NumberingService allocates document numbers from the row-locked sequence
// table. The unique index on the document number column acts as a backstop:
// when an insert still collides, the caller allocates once more and retries.
type NumberingService struct{}

// NewNumberingService creates a new NumberingService
func NewNumberingService() *NumberingService {
	return &NumberingService{}
}

// NextNumber allocates and formats the next document number for the given
// kind and year. Must be called inside the same transaction as the insert
// that consumes the number.
func (s *NumberingService) NextNumber(ctx context.Context, repo billing.NumberSequenceRepository, kind billing.DocumentKind, year int) (string, error) {
	seq, err := repo.Next(ctx, kind, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s sequence: %w", kind, err)
	}
	number, err := billing.FormatDocumentNumber(kind, year, seq)
	if err != nil {
		return "", err
	}
	return number, nil
}

// isDuplicateNumber reports whether err indicates a document number collision
func isDuplicateNumber(err error) bool {
	if errors.Is(err, shared.ErrAlreadyExists) {
		return true
	}
	if domainErr, ok := shared.IsDomainError(err); ok {
		return domainErr.Code == "DUPLICATE_NUMBER"
	}
	return false
}
