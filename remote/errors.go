package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when an operation needs a user session.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrOffline is returned when the backend cannot be reached.
	ErrOffline = errors.New("backend unreachable")
)

// Error codes exchanged in the error body of the HTTP API:
//
//	{"error":{"code":"missing_field","field":"amount","message":"..."}}
const (
	CodeMissingField   = "missing_field"
	CodeUnknownColumn  = "unknown_column"
	CodeNotFound       = "not_found"
	CodeAuthRequired   = "auth_required"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal"
)

// SchemaError reports data that does not fit the schema of a collection: a
// required field is missing or a field is not a column. It is actionable,
// unlike a transient failure.
type SchemaError struct {
	Collection string
	Field      string
	Code       string // CodeMissingField or CodeUnknownColumn
}

func (e *SchemaError) Error() string {
	switch e.Code {
	case CodeMissingField:
		return fmt.Sprintf("%s: missing required field %q", e.Collection, e.Field)
	case CodeUnknownColumn:
		return fmt.Sprintf("%s: unknown column %q", e.Collection, e.Field)
	default:
		return fmt.Sprintf("%s: invalid field %q (%s)", e.Collection, e.Field, e.Code)
	}
}

// StatusError is any other error answered by the backend.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("backend error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsSchemaError reports whether err is, or wraps, a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
