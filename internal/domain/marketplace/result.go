package marketplace

import "encoding/json"

// Result is a tagged outcome: either Ok with a value or Err with a kind and message.
// Bulk operations return one Result per item so a failed item never hides the others.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps a failure. A nil err is treated as an internal failure.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = &Error{Kind: KindInternal, Message: "unknown failure"}
	}
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the wrapped value (zero value on failure)
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure, nil on success
func (r Result[T]) Err() error {
	return r.err
}

// Kind returns the failure kind, empty on success
func (r Result[T]) Kind() ErrorKind {
	if r.err == nil {
		return ""
	}
	return KindOf(r.err)
}

// Get unpacks the result into Go's usual value/error pair
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

type resultJSON[T any] struct {
	OK    bool         `json:"ok"`
	Data  *T           `json:"data,omitempty"`
	Error *resultError `json:"error,omitempty"`
}

type resultError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Code      int       `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// MarshalJSON renders {"ok":true,"data":...} or {"ok":false,"error":{...}}
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.err == nil {
		v := r.value
		return json.Marshal(resultJSON[T]{OK: true, Data: &v})
	}
	re := &resultError{Kind: KindOf(r.err), Message: r.err.Error()}
	if e, ok := AsError(r.err); ok {
		re.Message = e.Message
		re.Code = e.Code
		re.RequestID = e.RequestID
	}
	return json.Marshal(resultJSON[T]{OK: false, Error: re})
}
