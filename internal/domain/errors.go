package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Configuration errors (CONFIG_*) - fatal before any network call
	ErrorCodeUnsupportedCurrency ErrorCode = "CONFIG_UNSUPPORTED_CURRENCY"
	ErrorCodeMissingField        ErrorCode = "CONFIG_MISSING_FIELD"
	ErrorCodeMissingCredentials  ErrorCode = "CONFIG_MISSING_CREDENTIALS"

	// Transport errors (TRANSPORT_*) - recovered locally, never escape raw
	ErrorCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	ErrorCodeTransportTimeout ErrorCode = "TRANSPORT_TIMEOUT"

	// Callback errors (CALLBACK_*)
	ErrorCodeCallbackMalformed ErrorCode = "CALLBACK_MALFORMED"
	ErrorCodeCallbackAmbiguous ErrorCode = "CALLBACK_AMBIGUOUS"

	// Transaction errors (TXN_*)
	ErrorCodeTxnNotFound     ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnInvalidState ErrorCode = "TXN_INVALID_STATE"

	// Gateway business errors (GATEWAY_*)
	ErrorCodeGatewayDeclined ErrorCode = "GATEWAY_DECLINED"
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"

	// Advisory signals
	ErrorCodeParameterMismatch ErrorCode = "PARAM_MISMATCH"

	// Internal errors (INTERNAL_*)
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsConfigurationError checks if an error aborts request construction
func IsConfigurationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeUnsupportedCurrency ||
		code == ErrorCodeMissingField ||
		code == ErrorCodeMissingCredentials
}

// IsTransportError checks if an error is a transport-level failure
func IsTransportError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTransportFailure || code == ErrorCodeTransportTimeout
}

// IsCallbackRejection checks if an error rejected a callback before any state change
func IsCallbackRejection(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeCallbackMalformed ||
		code == ErrorCodeCallbackAmbiguous ||
		code == ErrorCodeTxnNotFound
}

// Structured error instances
var (
	ErrUnsupportedCurrency = NewDomainError(ErrorCodeUnsupportedCurrency, "invalid currency for gateway")
	ErrMissingField        = NewDomainError(ErrorCodeMissingField, "required transaction field missing")
	ErrMissingCredentials  = NewDomainError(ErrorCodeMissingCredentials, "gateway credentials not configured")

	ErrTransportFailure = NewDomainError(ErrorCodeTransportFailure, "gateway transport failure")
	ErrTransportTimeout = NewDomainError(ErrorCodeTransportTimeout, "gateway request timed out")

	ErrCallbackMalformed = NewDomainError(ErrorCodeCallbackMalformed, "callback is missing required fields")
	ErrCallbackAmbiguous = NewDomainError(ErrorCodeCallbackAmbiguous, "callback matches multiple transactions")

	ErrTxnNotFound     = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")
	ErrTxnInvalidState = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")

	ErrGatewayDeclined = NewDomainError(ErrorCodeGatewayDeclined, "payment declined by gateway")
	ErrGatewayError    = NewDomainError(ErrorCodeGatewayError, "payment gateway error")

	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
