package document

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Records is the system-of-record contract the ingestion service depends on.
type Records interface {
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	CreateDocument(ctx context.Context, collectionID, name string, chunks []domain.NewChunk, images []domain.NewImage) (domain.Document, error)
	GetDocument(ctx context.Context, collectionID, id string) (domain.Document, error)
	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, collectionID, id string) error
	ChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	ImagesByDocument(ctx context.Context, documentID string) ([]domain.ImageRecord, error)
}

// Blobs persists per-document embedding matrices.
type Blobs interface {
	Write(collectionID, documentID string, modality domain.Modality, vectors [][]float32) error
	DeleteDocument(collectionID, documentID string) error
}

// Refresher rebuilds the active projection after document mutations.
type Refresher interface {
	Refresh(ctx context.Context, collectionID string) error
}
