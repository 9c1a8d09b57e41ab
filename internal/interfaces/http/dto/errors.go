package dto

import (
	"net/http"

	"github.com/stockledger/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for unexpected failures
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeTransactionFailure is used when a unit of work could not commit
	ErrCodeTransactionFailure = "ERR_TRANSACTION_FAILURE"
)

// Input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Authentication and authorization error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
)

// Resource and business rule error codes
const (
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeTransactionFailure: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeInvariantViolation: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps domain error codes to API error codes
var domainErrorCodes = map[string]string{
	shared.CodeNotFound:           ErrCodeNotFound,
	shared.CodeInvalidInput:       ErrCodeInvalidInput,
	shared.CodeInvariantViolation: ErrCodeInvariantViolation,
	shared.CodeForbidden:          ErrCodeForbidden,
	shared.CodeUnauthorized:       ErrCodeUnauthorized,
	shared.CodeTransactionFailure: ErrCodeTransactionFailure,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, and unknown codes, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}
