// Package collection owns the collection lifecycle and the in-memory
// projection of the currently selected collection.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// LoadReport summarizes a projection rebuild.
type LoadReport struct {
	CollectionID string
	Documents    int
	Vectors      int
	Warnings     []domain.LoadWarning
}

// Manager coordinates collection CRUD and the active projection.
//
// Mutations (Select, Refresh, DeleteDocument, DeleteCollection) are
// serialized by the write lock. Searches read a snapshot pointer under the
// read lock; a swapped-out projection is never appended to again, so the
// snapshot stays valid after the lock is released.
type Manager struct {
	records Records
	blobs   Blobs
	dim     int
	logger  *zap.Logger

	mu       sync.RWMutex
	activeID string
	proj     *index.Projection
}

// NewManager creates a collection manager. dim is the embedding dimension
// every loaded blob must match.
func NewManager(records Records, blobs Blobs, dim int, logger *zap.Logger) *Manager {
	return &Manager{
		records: records,
		blobs:   blobs,
		dim:     dim,
		logger:  logger,
	}
}

// Create creates a new collection row. The projection is untouched; a new
// collection becomes searchable only after Select.
func (m *Manager) Create(ctx context.Context, title string) (domain.Collection, error) {
	col, err := m.records.CreateCollection(ctx, title)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("create collection: %w", err)
	}
	m.logger.Info("Collection created", zap.String("collection_id", col.ID), zap.String("title", col.Title))
	return col, nil
}

// Get returns a collection by id.
func (m *Manager) Get(ctx context.Context, id string) (domain.Collection, error) {
	col, err := m.records.GetCollection(ctx, id)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns all collections, newest first.
func (m *Manager) List(ctx context.Context) ([]domain.Collection, error) {
	cols, err := m.records.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Rename updates a collection title. Metadata only, no rebuild.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	if err := m.records.UpdateCollectionTitle(ctx, id, title); err != nil {
		return fmt.Errorf("rename collection: %w", err)
	}
	return nil
}

// Select rebuilds the projection for the given collection and, on success,
// swaps it in as the active one. On failure the previous active projection
// is left untouched.
func (m *Manager) Select(ctx context.Context, collectionID string) (LoadReport, error) {
	if _, err := m.records.GetCollection(ctx, collectionID); err != nil {
		return LoadReport{}, fmt.Errorf("select collection: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	report, proj, err := m.build(ctx, collectionID)
	if err != nil {
		return LoadReport{}, err
	}

	m.activeID = collectionID
	m.proj = proj
	metrics.RebuildVectors.Set(float64(proj.Len()))

	m.logger.Info("Collection selected",
		zap.String("collection_id", collectionID),
		zap.Int("documents", report.Documents),
		zap.Int("vectors", report.Vectors),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

// Refresh rebuilds the active projection if collectionID is currently
// selected. Called after mutations of the selected collection's documents.
// No-op for inactive collections.
func (m *Manager) Refresh(ctx context.Context, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID != collectionID {
		return nil
	}

	report, proj, err := m.build(ctx, collectionID)
	if err != nil {
		return err
	}

	m.proj = proj
	metrics.RebuildVectors.Set(float64(proj.Len()))

	m.logger.Info("Projection refreshed",
		zap.String("collection_id", collectionID),
		zap.Int("documents", report.Documents),
		zap.Int("vectors", report.Vectors),
		zap.Int("warnings", len(report.Warnings)))
	return nil
}

// DeleteDocument removes a document's records and blobs, then rebuilds the
// projection if the document's collection is active.
func (m *Manager) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	if err := m.records.DeleteDocument(ctx, collectionID, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := m.blobs.DeleteDocument(collectionID, documentID); err != nil {
		m.logger.Warn("Failed to delete embedding blobs",
			zap.String("collection_id", collectionID),
			zap.String("document_id", documentID),
			zap.Error(err))
	}
	return m.Refresh(ctx, collectionID)
}

// DeleteCollection removes a collection with all its documents and blobs.
// If the collection was active, the projection is cleared and no collection
// is selected afterwards.
func (m *Manager) DeleteCollection(ctx context.Context, collectionID string) error {
	if err := m.records.DeleteCollection(ctx, collectionID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if err := m.blobs.DeleteCollection(collectionID); err != nil {
		m.logger.Warn("Failed to delete collection blobs",
			zap.String("collection_id", collectionID),
			zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == collectionID {
		m.activeID = ""
		m.proj = nil
		metrics.RebuildVectors.Set(0)
	}
	return nil
}

// Snapshot returns the active collection id and its projection.
// Returns domain.ErrNoActiveCollection when nothing is selected.
func (m *Manager) Snapshot() (string, *index.Projection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.activeID == "" || m.proj == nil {
		return "", nil, domain.ErrNoActiveCollection
	}
	return m.activeID, m.proj, nil
}

// ActiveID returns the selected collection id, or "" when none is selected.
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// build loads every document of the collection into a fresh projection.
// Documents whose blob row count disagrees with the record rows are skipped
// with a warning instead of failing the whole rebuild.
func (m *Manager) build(ctx context.Context, collectionID string) (LoadReport, *index.Projection, error) {
	start := time.Now()

	docs, err := m.records.ListDocuments(ctx, collectionID)
	if err != nil {
		return LoadReport{}, nil, fmt.Errorf("list documents: %w", err)
	}

	proj := index.NewProjection(m.dim)
	report := LoadReport{CollectionID: collectionID, Documents: len(docs)}

	for _, doc := range docs {
		if err := m.loadDocument(ctx, proj, &report, collectionID, doc.ID); err != nil {
			return LoadReport{}, nil, err
		}
	}

	metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	report.Vectors = proj.Len()

	for _, w := range report.Warnings {
		m.logger.Warn("Skipped document during rebuild",
			zap.String("collection_id", collectionID),
			zap.String("warning", w.String()))
	}
	return report, proj, nil
}

// loadDocument appends a document's text and image vectors to the projection.
func (m *Manager) loadDocument(ctx context.Context, proj *index.Projection, report *LoadReport, collectionID, documentID string) error {
	chunks, err := m.records.ChunksByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ID
	}
	if err := m.appendModality(proj, report, collectionID, documentID, domain.ModalityText, chunkIDs); err != nil {
		return err
	}

	images, err := m.records.ImagesByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}
	imageIDs := make([]string, len(images))
	for i, img := range images {
		imageIDs[i] = img.ID
	}
	return m.appendModality(proj, report, collectionID, documentID, domain.ModalityImage, imageIDs)
}

func (m *Manager) appendModality(proj *index.Projection, report *LoadReport, collectionID, documentID string, modality domain.Modality, ids []string) error {
	vectors, err := m.blobs.Read(collectionID, documentID, modality)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			vectors = nil
		} else {
			return fmt.Errorf("read %s blob for %s: %w", modality, documentID, err)
		}
	}

	if len(vectors) != len(ids) {
		report.Warnings = append(report.Warnings, domain.LoadWarning{
			DocumentID: documentID,
			Modality:   modality,
			BlobRows:   len(vectors),
			RecordRows: len(ids),
		})
		return nil
	}
	if len(vectors) == 0 {
		return nil
	}

	refs := make([]domain.VectorRef, len(ids))
	for i, id := range ids {
		refs[i] = domain.VectorRef{Modality: modality, ID: id}
	}
	if err := proj.Append(vectors, refs); err != nil {
		return fmt.Errorf("append %s vectors for %s: %w", modality, documentID, err)
	}
	return nil
}
