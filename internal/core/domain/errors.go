package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a rejected upload or malformed request.
	// Nothing is created or enqueued when this is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptDocument indicates an unreadable or encrypted PDF.
	// This is terminal for the document and never retried.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrTransientProvider indicates a retryable remote provider failure
	// (rate limit, timeout, 5xx). Surfacing it means retries were exhausted.
	ErrTransientProvider = errors.New("transient provider failure")

	// ErrNotReady indicates chat was requested against a document that has
	// not reached the completed state.
	ErrNotReady = errors.New("document not ready")

	// ErrConflict indicates a compare-and-set status transition lost to a
	// concurrent transition. The caller's view of the state is stale.
	ErrConflict = errors.New("status conflict")

	// ErrAlreadyQueued indicates a processing job for the document id is
	// already active; a second job is not created.
	ErrAlreadyQueued = errors.New("job already queued")

	// ErrDimensionMismatch indicates the embedding dimension does not match
	// the vector collection configuration.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
