package billing

import (
	"fmt"

	"github.com/agency/backend/internal/domain/shared"
)

// DocumentKind identifies a numbered document series
type DocumentKind string

const (
	DocumentKindInvoice DocumentKind = "INV"
	DocumentKindPayment DocumentKind = "PAY"
)

// IsValid checks if the document kind is valid
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindInvoice || k == DocumentKindPayment
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// FormatDocumentNumber renders a document number such as INV-2026-00042.
// The sequence resets per kind and calendar year.
func FormatDocumentNumber(kind DocumentKind, year int, seq int64) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewDomainError("INVALID_DOCUMENT_KIND", fmt.Sprintf("Unknown document kind %q", kind))
	}
	if year < 2000 || year > 9999 {
		return "", shared.NewDomainError("INVALID_YEAR", fmt.Sprintf("Year %d is out of range", year))
	}
	if seq <= 0 {
		return "", shared.NewDomainError("INVALID_SEQUENCE", fmt.Sprintf("Sequence value %d must be positive", seq))
	}
	return fmt.Sprintf("%s-%d-%05d", kind, year, seq), nil
}
