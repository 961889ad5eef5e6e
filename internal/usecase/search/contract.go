package search

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
)

// Projector hands out the active collection's projection snapshot.
type Projector interface {
	Snapshot() (collectionID string, proj *index.Projection, err error)
}

// Records resolves vector hits back to their persistent rows.
type Records interface {
	ChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error)
	ImagesByIDs(ctx context.Context, ids []string) (map[string]domain.ImageRecord, error)
	DocumentsByIDs(ctx context.Context, ids []string) (map[string]domain.Document, error)
}
