package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Ledger error codes
const (
	// ErrCodeNoActivePeriod is used when a movement needs the running period and none is running
	ErrCodeNoActivePeriod = "ERR_NO_ACTIVE_PERIOD"
	// ErrCodePeriodClosed is used when a movement targets a closed period or an ended card
	ErrCodePeriodClosed = "ERR_PERIOD_CLOSED"
	// ErrCodePeriodNotFound is used when the target month was never registered
	ErrCodePeriodNotFound = "ERR_PERIOD_NOT_FOUND"
	// ErrCodePeriodAlreadyRunning is used when starting a second running period
	ErrCodePeriodAlreadyRunning = "ERR_PERIOD_ALREADY_RUNNING"
	// ErrCodeAlreadyPosted is used when a document line was already posted
	ErrCodeAlreadyPosted = "ERR_ALREADY_POSTED"
	// ErrCodeAccountNotOpen is used when the product has no open stock card in the target period
	ErrCodeAccountNotOpen = "ERR_ACCOUNT_NOT_OPEN"
	// ErrCodeProjectionDrift is used when current stock disagrees with its stock card
	ErrCodeProjectionDrift = "ERR_PROJECTION_DRIFT"
	// ErrCodeInvalidMovement is used for malformed movements
	ErrCodeInvalidMovement = "ERR_INVALID_MOVEMENT"
	// ErrCodeNoConversionPath is used when a unit cannot be converted to the requested one
	ErrCodeNoConversionPath = "ERR_NO_CONVERSION_PATH"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	// ErrCodeUnknownEvent is used when the event intake receives an unregistered event type
	ErrCodeUnknownEvent = "ERR_UNKNOWN_EVENT"
	// ErrCodePayloadTooLarge is used when the request body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	// Ledger errors
	ErrCodeNoActivePeriod:       http.StatusConflict,
	ErrCodePeriodClosed:         http.StatusUnprocessableEntity,
	ErrCodePeriodNotFound:       http.StatusNotFound,
	ErrCodePeriodAlreadyRunning: http.StatusConflict,
	ErrCodeAlreadyPosted:        http.StatusConflict,
	ErrCodeAccountNotOpen:       http.StatusUnprocessableEntity,
	ErrCodeProjectionDrift:      http.StatusUnprocessableEntity,
	ErrCodeInvalidMovement:      http.StatusBadRequest,
	ErrCodeNoConversionPath:     http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeUnknownEvent:    http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"INTERNAL_ERROR":         ErrCodeInternal,
	"NO_ACTIVE_PERIOD":       ErrCodeNoActivePeriod,
	"PERIOD_CLOSED":          ErrCodePeriodClosed,
	"PERIOD_NOT_FOUND":       ErrCodePeriodNotFound,
	"PERIOD_ALREADY_RUNNING": ErrCodePeriodAlreadyRunning,
	"ALREADY_POSTED":         ErrCodeAlreadyPosted,
	"ACCOUNT_NOT_OPEN":       ErrCodeAccountNotOpen,
	"PROJECTION_DRIFT":       ErrCodeProjectionDrift,
	"INVALID_MOVEMENT":       ErrCodeInvalidMovement,
	"NO_CONVERSION_PATH":     ErrCodeNoConversionPath,
	// Entity constructors reject bad arguments with these codes
	"INVALID_PERIOD":  ErrCodeInvalidInput,
	"INVALID_PRODUCT": ErrCodeInvalidInput,
	"INVALID_UNIT":    ErrCodeInvalidInput,
	"INVALID_STATUS":  ErrCodeInvalidInput,
	"INVALID_CODE":    ErrCodeInvalidInput,
	"INVALID_NAME":    ErrCodeInvalidInput,
	// A conversion factor must be positive
	"INVALID_CONVERSION_RATE": ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes that are already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
