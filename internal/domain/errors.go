package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing collection.
	ErrNotFound = errors.New("collection not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDimensionMismatch signals an embedding whose length disagrees with the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrZeroVector signals a zero-norm vector; cosine similarity of the zero vector is undefined.
	ErrZeroVector = errors.New("zero-norm vector")
	// ErrNoActiveCollection signals a search before any collection was selected.
	ErrNoActiveCollection = errors.New("no active collection: select a collection first")
	// ErrEmptyIndex signals a search against a collection with zero vectors loaded.
	ErrEmptyIndex = errors.New("collection index is empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// LoadWarning describes a document whose vectors were dropped during a rebuild.
// A blob/row count disagreement degrades the load, it does not fail it.
type LoadWarning struct {
	DocumentID string
	Modality   Modality
	BlobRows   int
	RecordRows int
}

func (w LoadWarning) String() string {
	return fmt.Sprintf(
		"document %s (%s): blob has %d rows, system of record has %d; vectors skipped",
		w.DocumentID, w.Modality, w.BlobRows, w.RecordRows,
	)
}
