// Package errs defines the error taxonomy shared by the pipeline stages.
// Provider failures degrade to fallback paths, validation failures are
// retried up to a bound, and database failures surface to the caller as-is.
package errs

import (
	"errors"
	"fmt"
)

// ProviderError wraps a failure from an external provider (embedding, LLM,
// vector store). Stages that receive one fall back rather than fail.
type ProviderError struct {
	Provider string // e.g. "embedding", "llm", "milvus"
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a provider failure.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// IsProvider reports whether err is (or wraps) a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// ValidationError reports that a generated query failed syntax or keyword
// checks. It is never propagated past the generator; after retries are
// exhausted it is recorded on the GeneratedQuery instead.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query validation: %s", e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DBError wraps a relational backend failure. It is surfaced to the caller
// and never retried automatically.
type DBError struct {
	Op  string // "query", "exec", "connect"
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db %s: %v", e.Op, e.Err)
}

func (e *DBError) Unwrap() error { return e.Err }

// NewDBError wraps err as a database failure for the given operation.
func NewDBError(op string, err error) *DBError {
	return &DBError{Op: op, Err: err}
}

// IsDB reports whether err is (or wraps) a DBError.
func IsDB(err error) bool {
	var de *DBError
	return errors.As(err, &de)
}
