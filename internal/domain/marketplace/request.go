package marketplace

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Request is the logical shape of one call through the dispatcher.
// Every call carries its own secret and token; nothing is read from shared state.
type Request struct {
	Method   string
	Endpoint string
	// Params holds scalar query parameters; structured values are never signed
	Params map[string]any
	// Body is sent as JSON for POST/PUT; nil and empty are equivalent
	Body map[string]any

	AppSecret   string
	AccessToken string
}

// NormalizedMethod returns the upper-cased method, GET when empty
func (r *Request) NormalizedMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Validate checks the request before anything is signed or sent
func (r *Request) Validate() error {
	if r.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if !strings.HasPrefix(r.Endpoint, "/") || strings.ContainsAny(r.Endpoint, "?#") {
		return ErrInvalidEndpoint
	}
	if r.AppSecret == "" {
		return ErrMissingAppSecret
	}
	switch r.NormalizedMethod() {
	case http.MethodGet, http.MethodPost, http.MethodPut:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMethod, r.Method)
	}
}

// Response is the relayed upstream answer. Payload is the body exactly as received.
type Response struct {
	HTTPStatus int
	Code       int
	Message    string
	RequestID  string
	Data       json.RawMessage
	Payload    json.RawMessage
}

// IsSuccess returns true if the embedded result code signals success
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// Decode unmarshals the data section into v
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return NewTransportError("invalid data section in upstream response", err)
	}
	return nil
}
