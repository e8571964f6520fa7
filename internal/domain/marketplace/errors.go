package marketplace

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ---------------------------------------------------------------------------
// Marketplace Errors
// ---------------------------------------------------------------------------

var (
	// Kind sentinels, matched by *Error through errors.Is
	ErrConfiguration     = errors.New("marketplace: configuration error")
	ErrTransport         = errors.New("marketplace: transport error")
	ErrUpstreamHTTP      = errors.New("marketplace: upstream http error")
	ErrBusiness          = errors.New("marketplace: business error")
	ErrSignatureMismatch = errors.New("marketplace: signature mismatch")

	// Configuration errors
	ErrMissingAppKey      = errors.New("marketplace: app key is required")
	ErrMissingAppSecret   = errors.New("marketplace: app secret is required")
	ErrMissingEndpoint    = errors.New("marketplace: endpoint is required")
	ErrMissingShopCipher  = errors.New("marketplace: shop cipher is required")
	ErrMissingAccessToken = errors.New("marketplace: access token is required")
	ErrMissingAuthCode    = errors.New("marketplace: auth code is required")
	ErrMissingRefresh     = errors.New("marketplace: refresh token is required")
	ErrInvalidEndpoint    = errors.New("marketplace: endpoint must be a path without host or query")
	ErrInvalidMethod      = errors.New("marketplace: unsupported http method")
	ErrAdsNotConfigured   = errors.New("marketplace: ads credentials not configured")

	// Store errors
	ErrCredentialsNotFound = errors.New("marketplace: credentials not found")
	ErrOrderRecordNotFound = errors.New("marketplace: order record not found")

	// Value errors
	ErrInvalidOrderStatus    = errors.New("marketplace: invalid order status")
	ErrInvalidHandoverMethod = errors.New("marketplace: invalid handover method")
	ErrInvalidDocumentType   = errors.New("marketplace: invalid document type")
	ErrInvalidOrderIDs       = errors.New("marketplace: between 1 and 50 order IDs are required")
	ErrInvalidPackageID      = errors.New("marketplace: package ID is required")
)

// ErrorKind labels a failure so callers can branch on it without string matching.
type ErrorKind string

const (
	// KindConfiguration means required material was missing before any call was attempted
	KindConfiguration ErrorKind = "configuration"
	// KindTransport means the upstream could not be reached or its payload could not be read
	KindTransport ErrorKind = "transport"
	// KindUpstreamHTTP means the upstream answered with a non-2xx status
	KindUpstreamHTTP ErrorKind = "upstream_http"
	// KindBusiness means HTTP succeeded but the embedded result code was non-zero
	KindBusiness ErrorKind = "business"
	// KindSignatureMismatch is a business failure the upstream attributed to the signature
	KindSignatureMismatch ErrorKind = "signature_mismatch"
	// KindInternal covers failures that did not come from the marketplace protocol
	KindInternal ErrorKind = "internal"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	case KindUpstreamHTTP:
		return ErrUpstreamHTTP
	case KindBusiness:
		return ErrBusiness
	case KindSignatureMismatch:
		return ErrSignatureMismatch
	default:
		return nil
	}
}

// Error is the tagged failure returned by every marketplace operation.
type Error struct {
	Kind ErrorKind
	// Message is safe to show to the operator; it never contains secrets
	Message string
	// HTTPStatus is the upstream status when one was received
	HTTPStatus int
	// Code is the marketplace business result code
	Code int
	// RequestID is the upstream request_id for support tickets
	RequestID string
	// Body is the raw upstream payload for UpstreamHTTP failures
	Body  []byte
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	switch e.Kind {
	case KindBusiness, KindSignatureMismatch:
		return fmt.Sprintf("marketplace: %s: %d - %s", e.Kind, e.Code, e.Message)
	case KindUpstreamHTTP:
		return fmt.Sprintf("marketplace: %s: HTTP %d", e.Kind, e.HTTPStatus)
	default:
		return fmt.Sprintf("marketplace: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind. A signature mismatch also
// matches ErrBusiness since the upstream reports it through the result code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	return e.Kind == KindSignatureMismatch && target == ErrBusiness
}

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindUpstreamHTTP:
		return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= http.StatusInternalServerError
	default:
		return false
	}
}

// NewConfigurationError wraps a missing-material error
func NewConfigurationError(cause error) *Error {
	return &Error{Kind: KindConfiguration, Message: cause.Error(), Cause: cause}
}

// NewTransportError builds a transport failure. message must already be secret-free.
func NewTransportError(message string, cause error) *Error {
	return &Error{Kind: KindTransport, Message: message, Cause: cause}
}

// NewUpstreamHTTPError builds a failure for a non-2xx upstream answer
func NewUpstreamHTTPError(status int, body []byte) *Error {
	return &Error{
		Kind:       KindUpstreamHTTP,
		Message:    http.StatusText(status),
		HTTPStatus: status,
		Body:       body,
	}
}

// NewBusinessError builds a failure from a non-zero embedded result code.
// Codes whose message blames the signature are tagged KindSignatureMismatch.
func NewBusinessError(code int, message, requestID string) *Error {
	kind := KindBusiness
	if strings.Contains(strings.ToLower(message), "signature") {
		kind = KindSignatureMismatch
	}
	return &Error{
		Kind:       kind,
		Message:    message,
		HTTPStatus: http.StatusOK,
		Code:       code,
		RequestID:  requestID,
	}
}

// AsError extracts a *Error from an error chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}
