package logistics

import (
	"context"
	"errors"
	"fmt"

	"github.com/xborder/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Logistics Errors
// ---------------------------------------------------------------------------

var (
	// Provider errors
	ErrProviderNotFound        = errors.New("logistics: provider not found")
	ErrProviderNotConfigured   = errors.New("logistics: provider not configured")
	ErrProviderAlreadyExists   = errors.New("logistics: provider already registered")
	ErrProviderUnavailable     = errors.New("logistics: provider temporarily unavailable")
	ErrProviderRateLimited     = errors.New("logistics: provider rate limited")
	ErrProviderRequestFailed   = errors.New("logistics: provider request failed")
	ErrProviderInvalidResponse = errors.New("logistics: invalid provider response")
	ErrProviderAuthFailed      = errors.New("logistics: provider authentication failed")
	ErrProviderTimeout         = errors.New("logistics: provider call timed out")

	// Request errors
	ErrInvalidRequest          = errors.New("logistics: invalid request")
	ErrUnsupportedDestination  = errors.New("logistics: destination not served")
	ErrServiceNotAvailable     = errors.New("logistics: service not available")
	ErrNoProviders             = errors.New("logistics: no eligible providers")
	ErrQuoteExpired            = errors.New("logistics: quote has expired")
	ErrShipmentNotFound        = errors.New("logistics: shipment not found")
	ErrShipmentNotCancellable  = errors.New("logistics: shipment can no longer be cancelled")
	ErrTrackingNumberNotFound  = errors.New("logistics: tracking number not found")
	ErrDocumentStorageRequired = errors.New("logistics: document storage not configured")
)

// Provider error codes
const (
	CodeUnavailable     = "PROVIDER_UNAVAILABLE"
	CodeRateLimited     = "PROVIDER_RATE_LIMITED"
	CodeRequestFailed   = "PROVIDER_REQUEST_FAILED"
	CodeInvalidResponse = "PROVIDER_INVALID_RESPONSE"
	CodeAuthFailed      = "PROVIDER_AUTH_FAILED"
	CodeTimeout         = "PROVIDER_TIMEOUT"
	CodeNotConfigured   = "PROVIDER_NOT_CONFIGURED"
	CodeUnsupported     = "PROVIDER_UNSUPPORTED_DESTINATION"
)

// ProviderError is a failure of a named carrier integration
type ProviderError struct {
	ProviderID string
	Code       string
	Err        error
	// Retryable marks transient failures (rate limits, outages, timeouts).
	Retryable bool
}

// NewProviderError wraps err as a failure of providerID
func NewProviderError(providerID, code string, err error, retryable bool) *ProviderError {
	return &ProviderError{ProviderID: providerID, Code: code, Err: err, Retryable: retryable}
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.ProviderID, e.Code, e.Err)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AsProviderError classifies any error returned by a provider call.
// Errors that are not ProviderErrors are mapped from the sentinels above,
// context deadlines become retryable timeouts.
func AsProviderError(providerID string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.ProviderID == "" {
			pe.ProviderID = providerID
		}
		return pe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrProviderTimeout):
		return NewProviderError(providerID, CodeTimeout, err, true)
	case errors.Is(err, ErrProviderRateLimited):
		return NewProviderError(providerID, CodeRateLimited, err, true)
	case errors.Is(err, ErrProviderUnavailable):
		return NewProviderError(providerID, CodeUnavailable, err, true)
	case errors.Is(err, ErrProviderAuthFailed):
		return NewProviderError(providerID, CodeAuthFailed, err, false)
	case errors.Is(err, ErrProviderNotConfigured):
		return NewProviderError(providerID, CodeNotConfigured, err, false)
	case errors.Is(err, ErrUnsupportedDestination):
		return NewProviderError(providerID, CodeUnsupported, err, false)
	case errors.Is(err, ErrProviderInvalidResponse):
		return NewProviderError(providerID, CodeInvalidResponse, err, false)
	default:
		return NewProviderError(providerID, CodeRequestFailed, err, false)
	}
}

// IsRetryable reports whether err is a transient provider failure.
// Validation and data errors are never retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrProviderTimeout)
}

// ToCalculationError projects a provider failure into a result error entry
func ToCalculationError(providerID string, err error) shared.CalculationError {
	pe := AsProviderError(providerID, err)
	return shared.CalculationError{
		Code:       pe.Code,
		Category:   shared.CategoryProvider,
		Message:    pe.Err.Error(),
		ProviderID: pe.ProviderID,
	}
}
