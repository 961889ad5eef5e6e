package collection

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Records is the system-of-record contract the manager depends on.
type Records interface {
	CreateCollection(ctx context.Context, title string) (domain.Collection, error)
	GetCollection(ctx context.Context, id string) (domain.Collection, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	UpdateCollectionTitle(ctx context.Context, id, title string) error
	DeleteCollection(ctx context.Context, id string) error

	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, collectionID, id string) error

	ChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	ImagesByDocument(ctx context.Context, documentID string) ([]domain.ImageRecord, error)
}

// Blobs is the persisted embedding blob contract.
type Blobs interface {
	Read(collectionID, documentID string, modality domain.Modality) ([][]float32, error)
	DeleteDocument(collectionID, documentID string) error
	DeleteCollection(collectionID string) error
}
