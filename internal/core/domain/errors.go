package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles a MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDecode indicates document bytes could not be opened as their type.
	ErrDecode = errors.New("document decode failed")

	// ErrNoUsableText indicates no page or slide produced text.
	ErrNoUsableText = errors.New("no usable text")

	// Embedding Errors.

	// ErrEmbeddingMismatch indicates the provider returned the wrong number
	// of vectors or a vector of the wrong width.
	ErrEmbeddingMismatch = errors.New("embedding count or dimension mismatch")

	// ErrRateLimited indicates the provider rejected a request for rate reasons.
	// Retried with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates a transient provider failure
	// (network error or 5xx). Retried with backoff.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// Run-level Errors.

	// ErrDimensionMismatch indicates the configured embedding width differs
	// from the store schema or the embedding provider.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrSchemaMissing indicates the store has not been provisioned.
	ErrSchemaMissing = errors.New("schema not provisioned")

	// ErrStoreUnavailable indicates the store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSourceUnavailable indicates the file source listing failed.
	ErrSourceUnavailable = errors.New("file source unavailable")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
