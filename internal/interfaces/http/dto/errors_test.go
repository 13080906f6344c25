package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"duplicate number maps to 409", ErrCodeDuplicateNumber, http.StatusConflict},
		{"concurrency conflict maps to 409", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"invalid state maps to 422", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"validation maps to 400", ErrCodeValidation, http.StatusBadRequest},
		{"unauthorized maps to 401", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"internal maps to 500", ErrCodeInternal, http.StatusInternalServerError},
		{"unknown code defaults to 500", "SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"invoice not found", "INVOICE_NOT_FOUND", ErrCodeNotFound},
		{"payment not found", "PAYMENT_NOT_FOUND", ErrCodeNotFound},
		{"duplicate number", "DUPLICATE_NUMBER", ErrCodeDuplicateNumber},
		{"optimistic lock", "OPTIMISTIC_LOCK", ErrCodeConcurrencyConflict},
		{"allocation conflict", "NUMBER_ALLOCATION_CONFLICT", ErrCodeConflict},
		{"invalid state", "INVALID_STATE", ErrCodeInvalidState},
		{"invalid quantity", "INVALID_QUANTITY", ErrCodeValidation},
		{"invalid unit price", "INVALID_UNIT_PRICE", ErrCodeValidation},
		{"invalid amount", "INVALID_AMOUNT", ErrCodeValidation},
		{"invalid due date", "INVALID_DUE_DATE", ErrCodeValidation},
		{"already normalized", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown passes through", "CUSTOM_CODE", "CUSTOM_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-1")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
