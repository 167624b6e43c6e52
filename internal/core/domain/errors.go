package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Every ValidationError matches it through errors.Is.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient indicates a provider call failed in a way that may succeed on retry.
	// Every TransientProviderError matches it through errors.Is.
	ErrTransient = errors.New("transient provider failure")

	// ErrConsistency indicates an invariant violation inside the core.
	// Every ConsistencyError matches it through errors.Is.
	ErrConsistency = errors.New("consistency violation")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a provider call did not complete in time.
	ErrTimeout = errors.New("timeout")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Summarization is deferred while it is missing.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ValidationError reports bad input. It is fatal to the call and never retried.
type ValidationError struct {
	// Field names the offending input.
	Field string

	// Reason describes what is wrong with it.
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// TransientProviderError reports a timeout or rate-limit failure from an
// external provider (embedding or summarization). Callers retry it with
// bounded backoff and degrade once retries are exhausted.
type TransientProviderError struct {
	// Provider is the name of the external service (e.g. "ollama").
	Provider string

	// Op is the operation that failed (e.g. "embed", "chat").
	Op string

	// Err is the underlying cause.
	Err error
}

// NewTransientError wraps err as a TransientProviderError.
func NewTransientError(provider, op string, err error) *TransientProviderError {
	return &TransientProviderError{Provider: provider, Op: op, Err: err}
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("%s %s: transient failure: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransientProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransient.
// Wrapped sentinels such as ErrRateLimited are matched through Unwrap.
func (e *TransientProviderError) Is(target error) bool {
	return target == ErrTransient
}

// ConsistencyError reports an invariant violation: a chunk index gap, an
// overlapping summary range or a turn present in two tiers. It signals a bug;
// the operation aborts without committing anything.
type ConsistencyError struct {
	// Invariant names the violated rule.
	Invariant string

	// Detail describes the offending data.
	Detail string
}

// NewConsistencyError creates a ConsistencyError.
func NewConsistencyError(invariant, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation (%s): %s", e.Invariant, e.Detail)
}

// Is reports whether target is ErrConsistency.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
