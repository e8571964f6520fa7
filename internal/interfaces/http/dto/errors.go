package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	ErrCodeTimeout  = "ERR_TIMEOUT"
)

// Validation and input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeInvalidRange = "ERR_INVALID_DATE_RANGE"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Account error codes
const (
	// ErrCodeNotConnected means the user has not stored marketplace credentials yet
	ErrCodeNotConnected = "ERR_NOT_CONNECTED"
	// ErrCodeConfiguration means stored credentials lack material the call needs
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	ErrCodeShopNotFound  = "ERR_SHOP_NOT_AUTHORIZED"
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeNoWaybills    = "ERR_NO_WAYBILLS"
)

// Marketplace error codes
const (
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamHTTP        = "ERR_UPSTREAM_HTTP"
	ErrCodeUpstreamBusiness    = "ERR_UPSTREAM_BUSINESS"
	ErrCodeSignatureMismatch   = "ERR_SIGNATURE_MISMATCH"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeTimeout:  http.StatusGatewayTimeout,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeInvalidRange: http.StatusBadRequest,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotConnected:  http.StatusNotFound,
	ErrCodeConfiguration: http.StatusUnprocessableEntity,
	ErrCodeShopNotFound:  http.StatusUnprocessableEntity,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeNoWaybills:    http.StatusUnprocessableEntity,

	// The marketplace failed, not the caller
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamHTTP:        http.StatusBadGateway,
	ErrCodeUpstreamBusiness:    http.StatusUnprocessableEntity,
	ErrCodeSignatureMismatch:   http.StatusBadGateway,

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
