package docdex

import "github.com/kailas-cloud/docdex/internal/domain"

// Sentinel errors returned by Client methods. Match with errors.Is.
var (
	ErrCollectionNotFound = domain.ErrNotFound
	ErrDocumentNotFound   = domain.ErrDocumentNotFound
	ErrNoActiveCollection = domain.ErrNoActiveCollection
	ErrEmptyIndex         = domain.ErrEmptyIndex
	ErrDimensionMismatch  = domain.ErrDimensionMismatch
	ErrZeroVector         = domain.ErrZeroVector
)
