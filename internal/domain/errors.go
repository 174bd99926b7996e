package domain

import "errors"

var (
	// ErrProductNotFound signals a missing catalog document.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidProduct signals a product record that failed validation.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidEvent signals a malformed user event.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrInvalidQuery signals search criteria that cannot form a query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a local rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingUnavailable signals that the embedding circuit is open.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)
