package dto

import (
	"net/http"

	"github.com/xborder/backend/internal/domain/shared"
)

// Error codes raised by the HTTP layer itself. Decision errors reuse the
// codes carried in results.
const (
	ErrCodeValidation        = shared.CodeValidationError
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeDuplicateRequest  = "DUPLICATE_REQUEST"
	ErrCodeMissingIdemKey    = "IDEMPOTENCY_KEY_REQUIRED"
	ErrCodeQuoteExpired      = "QUOTE_EXPIRED"
	ErrCodeNotCancellable    = "SHIPMENT_NOT_CANCELLABLE"
	ErrCodeStorageRequired   = "DOCUMENT_STORAGE_REQUIRED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable       = "SERVICE_UNAVAILABLE"
	ErrCodeInternal          = shared.CodeSystemError
	ErrCodeProvider          = shared.CodeProviderError
	ErrCodeNoQuotes          = shared.CodeNoQuotes
	ErrCodeAccumulationStore = shared.CodeAccumulationLookup
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Validation errors -> 400 Bad Request
	ErrCodeValidation:              http.StatusBadRequest,
	ErrCodeBadRequest:              http.StatusBadRequest,
	ErrCodeMissingIdemKey:          http.StatusBadRequest,
	shared.CodeEmptyItems:          http.StatusBadRequest,
	shared.CodeInvalidItem:         http.StatusBadRequest,
	shared.CodeInvalidDestination:  http.StatusBadRequest,
	shared.CodeInvalidDeliveryMode: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeDuplicateRequest: http.StatusConflict,
	ErrCodeNotCancellable:   http.StatusConflict,
	ErrCodeQuoteExpired:     http.StatusGone,

	// Decisions that ran but produced nothing usable -> 422
	ErrCodeNoQuotes:               http.StatusUnprocessableEntity,
	shared.CodeRateNotFound:       http.StatusUnprocessableEntity,
	shared.CodePolicyNotFound:     http.StatusUnprocessableEntity,
	shared.CodeTaxCalculation:     http.StatusUnprocessableEntity,
	shared.CodeCurrencyConversion: http.StatusUnprocessableEntity,

	// Upstream failures
	ErrCodeProvider:          http.StatusBadGateway,
	ErrCodeAccumulationStore: http.StatusServiceUnavailable,
	ErrCodeUnavailable:       http.StatusServiceUnavailable,
	ErrCodeStorageRequired:   http.StatusNotImplemented,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForCalculationErrors picks the response code and status for a failed
// result. Validation errors win over provider errors, which win over the rest.
func StatusForCalculationErrors(errs []shared.CalculationError) (string, int) {
	if len(errs) == 0 {
		return ErrCodeInternal, http.StatusInternalServerError
	}
	for _, cat := range []shared.ErrorCategory{shared.CategoryValidation, shared.CategoryData} {
		for _, e := range errs {
			if e.Category == cat {
				if status, ok := ErrorCodeHTTPStatus[e.Code]; ok {
					return e.Code, status
				}
				if cat == shared.CategoryValidation {
					return e.Code, http.StatusBadRequest
				}
				return e.Code, http.StatusUnprocessableEntity
			}
		}
	}
	for _, e := range errs {
		if e.Code == ErrCodeNoQuotes {
			return e.Code, http.StatusUnprocessableEntity
		}
	}
	for _, e := range errs {
		if e.Category == shared.CategoryProvider {
			return ErrCodeProvider, http.StatusBadGateway
		}
	}
	return errs[0].Code, GetHTTPStatus(errs[0].Code)
}
