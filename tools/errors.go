package tools

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned before any network I/O when the query
// parameters fail validation.
var ErrInvalidQuery = errors.New("invalid query parameters")

// TransportError reports a failed request or a non-success HTTP status.
type TransportError struct {
	Endpoint   string
	StatusCode int // zero when the request never got a response
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s returned %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("transport error: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SchemaError reports a response body that violates the documented shape.
// Body carries the raw payload for diagnosis.
type SchemaError struct {
	Endpoint string
	Field    string
	Body     string
	Err      error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error: %s response", e.Endpoint)
	if e.Field != "" {
		msg += fmt.Sprintf(" missing %q", e.Field)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg + fmt.Sprintf(". Raw response: %s", e.Body)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
