package ports

import "fmt"

// Typed error kinds carrying context, with Error()/Unwrap() so callers
// can errors.As/errors.Is against them.

// ValidationError is surfaced to the caller — malformed input.
type ValidationError struct {
	Field      string
	Reason     string
	Underlying error
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("validation error for %s: %s: %v", e.Field, e.Reason, e.Underlying)
	}
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Underlying }

// NotFoundError is surfaced — function not found in IR, required cache miss.
type NotFoundError struct {
	Subject string
	Key     string
}

func NewNotFoundError(subject, key string) *NotFoundError {
	return &NotFoundError{Subject: subject, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Subject, e.Key)
}

// ResourceError is surfaced — Span Pool / taint rule / trigram index at
// capacity.
type ResourceError struct {
	Resource string
	Limit    int
}

func NewResourceError(resource string, limit int) *ResourceError {
	return &ResourceError{Resource: resource, Limit: limit}
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s at capacity (limit %d)", e.Resource, e.Limit)
}

// TimeoutError is locally recovered: caller proceeds with reduced
// information (LSP hover, regex match timeouts).
type TimeoutError struct {
	Operation string
}

func NewTimeoutError(op string) *TimeoutError {
	return &TimeoutError{Operation: op}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

// ExternalError is locally recovered with fallback: LSP subprocess crash,
// Redis/PG connectivity loss.
type ExternalError struct {
	Collaborator string
	Underlying   error
}

func NewExternalError(collaborator string, err error) *ExternalError {
	return &ExternalError{Collaborator: collaborator, Underlying: err}
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external collaborator %s failed: %v", e.Collaborator, e.Underlying)
}

func (e *ExternalError) Unwrap() error { return e.Underlying }

// SchemaError is surfaced — Node/Edge missing a required field during
// deserialization. (ir.SchemaError is the IR-internal sibling of this type;
// this one is for the port boundary — e.g. a malformed wire document.)
type SchemaError struct {
	Field string
}

func NewSchemaError(field string) *SchemaError {
	return &SchemaError{Field: field}
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing required field %s", e.Field)
}
