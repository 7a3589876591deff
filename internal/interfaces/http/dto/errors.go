package dto

import (
	"net/http"

	"github.com/erp/settlement/internal/domain/shared"
)

// Error codes in response bodies. Domain codes pass through unchanged.
const (
	CodeValidation             = shared.CodeValidation
	CodeNotFound               = shared.CodeNotFound
	CodeAlreadyExists          = shared.CodeAlreadyExists
	CodeInvalidState           = shared.CodeInvalidState
	CodeOverpayment            = shared.CodeOverpayment
	CodeReconciliationMismatch = shared.CodeReconciliationMismatch
	CodeConcurrencyConflict    = shared.CodeConcurrencyConflict
	CodeIdempotencyConflict    = shared.CodeIdempotencyConflict
	CodeUnknownRate            = shared.CodeUnknownRate
	CodeUnexpected             = shared.CodeUnexpected

	// CodeBadRequest is used for malformed path, query or header values
	CodeBadRequest = "BAD_REQUEST"
	// CodeRouteNotFound is used when no route matches
	CodeRouteNotFound = "ROUTE_NOT_FOUND"
	// CodeRequestTooLarge is used when the body exceeds the configured limit
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// client input -> 400
	CodeValidation:  http.StatusBadRequest,
	CodeUnknownRate: http.StatusBadRequest,
	CodeBadRequest:  http.StatusBadRequest,

	// missing resources -> 404
	CodeNotFound:      http.StatusNotFound,
	CodeRouteNotFound: http.StatusNotFound,

	// state conflicts -> 409
	CodeInvalidState:           http.StatusConflict,
	CodeOverpayment:            http.StatusConflict,
	CodeReconciliationMismatch: http.StatusConflict,
	CodeConcurrencyConflict:    http.StatusConflict,
	CodeIdempotencyConflict:    http.StatusConflict,
	CodeAlreadyExists:          http.StatusConflict,

	CodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	CodeUnexpected:      http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
