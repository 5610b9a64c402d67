package shared

import "fmt"

// ErrorCategory classifies a failure by how callers must react to it.
type ErrorCategory string

const (
	// CategoryValidation is malformed or incomplete input. Terminal for the call, never retried.
	CategoryValidation ErrorCategory = "VALIDATION"
	// CategoryData is missing reference data (rates, policies). Recorded; the calculation continues.
	CategoryData ErrorCategory = "DATA"
	// CategoryProvider is a failure of a named external dependency.
	CategoryProvider ErrorCategory = "PROVIDER"
	// CategorySystem is an unexpected internal failure.
	CategorySystem ErrorCategory = "SYSTEM"
)

// IsValid checks if the category is one of the known values
func (c ErrorCategory) IsValid() bool {
	switch c {
	case CategoryValidation, CategoryData, CategoryProvider, CategorySystem:
		return true
	}
	return false
}

// Retryable reports whether errors of this category may be retried.
// Only provider failures qualify; validation and data errors never do.
func (c ErrorCategory) Retryable() bool {
	return c == CategoryProvider
}

// Well-known error codes surfaced in results
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeEmptyItems          = "EMPTY_ITEMS"
	CodeInvalidItem         = "INVALID_ITEM"
	CodeInvalidDestination  = "INVALID_DESTINATION"
	CodeInvalidDeliveryMode = "INVALID_DELIVERY_MODE"
	CodeRateNotFound        = "RATE_NOT_FOUND"
	CodePolicyNotFound      = "POLICY_NOT_FOUND"
	CodeCurrencyConversion  = "CURRENCY_CONVERSION_FAILED"
	CodeAccumulationLookup  = "ACCUMULATION_LOOKUP_FAILED"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeNoQuotes            = "NO_QUOTES_AVAILABLE"
	CodeTaxCalculation      = "TAX_CALCULATION_FAILED"
	CodeSystemError         = "SYSTEM_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code     string        `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(category ErrorCategory, code, message string) *DomainError {
	return &DomainError{
		Code:     code,
		Category: category,
		Message:  message,
	}
}

// CalculationError is a structured error carried inside a result object.
// Entry points never return these as Go errors for expected conditions.
type CalculationError struct {
	Code       string        `json:"code"`
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Field      string        `json:"field,omitempty"`
	ProviderID string        `json:"providerId,omitempty"`
}

// Error implements the error interface
func (e CalculationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a validation error bound to a request field
func NewValidationError(code, field, message string) CalculationError {
	return CalculationError{Code: code, Category: CategoryValidation, Field: field, Message: message}
}

// NewDataError creates a non-fatal data error
func NewDataError(code, message string) CalculationError {
	return CalculationError{Code: code, Category: CategoryData, Message: message}
}

// NewSystemError converts an unexpected failure into a SYSTEM_ERROR entry
func NewSystemError(cause any) CalculationError {
	return CalculationError{
		Code:     CodeSystemError,
		Category: CategorySystem,
		Message:  fmt.Sprintf("unexpected internal failure: %v", cause),
	}
}

// Warning is a non-fatal advisory attached to a result
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
