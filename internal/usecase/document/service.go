// Package document implements document ingestion: chunking, embedding and
// persistence of the record rows and vector blobs.
package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/splitter"
)

// ImageInput is one extracted image with its pre-computed embedding.
// Image vectors come from a separate vision pipeline, so ingestion accepts
// them ready-made instead of embedding image content itself.
type ImageInput struct {
	ImagePath  string
	PageNumber int
	Metadata   map[string]string
	Embedding  []float32
}

// IngestStats reports what a single ingestion produced.
type IngestStats struct {
	Chunks       int
	Images       int
	PromptTokens int
	TotalTokens  int
}

// Service ingests documents into a collection.
type Service struct {
	records      Records
	blobs        Blobs
	embedder     domain.Embedder
	refresher    Refresher
	maxWords     int
	overlapWords int
	logger       *zap.Logger
}

// New creates an ingestion service. maxWords and overlapWords parameterize
// the chunk splitter.
func New(
	records Records,
	blobs Blobs,
	embedder domain.Embedder,
	refresher Refresher,
	maxWords, overlapWords int,
	logger *zap.Logger,
) *Service {
	return &Service{
		records:      records,
		blobs:        blobs,
		embedder:     embedder,
		refresher:    refresher,
		maxWords:     maxWords,
		overlapWords: overlapWords,
		logger:       logger,
	}
}

// Ingest splits the pages into chunks, embeds them, persists record rows and
// embedding blobs, and refreshes the projection if the target collection is
// the selected one. Chunk embeddings and record rows are written in the same
// order, so ordinal i of the blob always belongs to chunk ordinal i.
func (s *Service) Ingest(
	ctx context.Context, collectionID, name string, pages []splitter.Page, images []ImageInput,
) (domain.Document, IngestStats, error) {
	if _, err := s.records.GetCollection(ctx, collectionID); err != nil {
		return domain.Document{}, IngestStats{}, fmt.Errorf("ingest: %w", err)
	}

	chunks := splitter.Split(pages, s.maxWords, s.overlapWords)

	texts := make([]string, len(chunks))
	newChunks := make([]domain.NewChunk, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		newChunks[i] = domain.NewChunk{Text: c.Text, PageNumber: c.PageNumber}
	}

	var textVectors [][]float32
	var stats IngestStats
	if len(texts) > 0 {
		res, err := s.batchEmbed(ctx, texts)
		if err != nil {
			return domain.Document{}, IngestStats{}, fmt.Errorf("embed chunks: %w", err)
		}
		textVectors = res.Embeddings
		stats.PromptTokens = res.PromptTokens
		stats.TotalTokens = res.TotalTokens
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	}

	newImages := make([]domain.NewImage, len(images))
	imageVectors := make([][]float32, len(images))
	for i, img := range images {
		if len(img.Embedding) == 0 {
			return domain.Document{}, IngestStats{}, fmt.Errorf("image %d has no embedding", i)
		}
		newImages[i] = domain.NewImage{
			ImagePath:  img.ImagePath,
			PageNumber: img.PageNumber,
			Metadata:   img.Metadata,
		}
		imageVectors[i] = img.Embedding
	}

	doc, err := s.persist(ctx, collectionID, name, newChunks, newImages, textVectors, imageVectors)
	if err != nil {
		return domain.Document{}, IngestStats{}, err
	}

	stats.Chunks = len(chunks)
	stats.Images = len(images)

	if err := s.refresher.Refresh(ctx, collectionID); err != nil {
		return domain.Document{}, IngestStats{}, fmt.Errorf("refresh projection: %w", err)
	}

	s.logger.Info("Document ingested",
		zap.String("collection_id", collectionID),
		zap.String("document_id", doc.ID),
		zap.String("name", name),
		zap.Int("chunks", stats.Chunks),
		zap.Int("images", stats.Images))
	return doc, stats, nil
}

// IngestChunks stores pre-chunked text with caller-supplied embeddings,
// bypassing the splitter and the embedding provider. Row i of embeddings must
// belong to chunks[i].
func (s *Service) IngestChunks(
	ctx context.Context, collectionID, name string,
	chunks []domain.NewChunk, embeddings [][]float32, images []ImageInput,
) (domain.Document, IngestStats, error) {
	if _, err := s.records.GetCollection(ctx, collectionID); err != nil {
		return domain.Document{}, IngestStats{}, fmt.Errorf("ingest: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return domain.Document{}, IngestStats{}, fmt.Errorf(
			"chunks (%d) and embeddings (%d) must have equal length", len(chunks), len(embeddings))
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return domain.Document{}, IngestStats{}, fmt.Errorf("chunk %d has an empty embedding", i)
		}
	}

	newImages := make([]domain.NewImage, len(images))
	imageVectors := make([][]float32, len(images))
	for i, img := range images {
		if len(img.Embedding) == 0 {
			return domain.Document{}, IngestStats{}, fmt.Errorf("image %d has no embedding", i)
		}
		newImages[i] = domain.NewImage{
			ImagePath:  img.ImagePath,
			PageNumber: img.PageNumber,
			Metadata:   img.Metadata,
		}
		imageVectors[i] = img.Embedding
	}

	doc, err := s.persist(ctx, collectionID, name, chunks, newImages, embeddings, imageVectors)
	if err != nil {
		return domain.Document{}, IngestStats{}, err
	}

	if err := s.refresher.Refresh(ctx, collectionID); err != nil {
		return domain.Document{}, IngestStats{}, fmt.Errorf("refresh projection: %w", err)
	}

	s.logger.Info("Pre-chunked document ingested",
		zap.String("collection_id", collectionID),
		zap.String("document_id", doc.ID),
		zap.String("name", name),
		zap.Int("chunks", len(chunks)),
		zap.Int("images", len(images)))
	return doc, IngestStats{Chunks: len(chunks), Images: len(images)}, nil
}

// persist writes the record rows and both blobs. If a blob write fails the
// document row is removed again so records and blobs cannot drift apart.
func (s *Service) persist(
	ctx context.Context, collectionID, name string,
	chunks []domain.NewChunk, images []domain.NewImage,
	textVectors, imageVectors [][]float32,
) (domain.Document, error) {
	doc, err := s.records.CreateDocument(ctx, collectionID, name, chunks, images)
	if err != nil {
		return domain.Document{}, fmt.Errorf("create document: %w", err)
	}

	if len(textVectors) > 0 {
		if err := s.blobs.Write(collectionID, doc.ID, domain.ModalityText, textVectors); err != nil {
			s.rollback(ctx, collectionID, doc.ID)
			return domain.Document{}, fmt.Errorf("write text blob: %w", err)
		}
	}
	if len(imageVectors) > 0 {
		if err := s.blobs.Write(collectionID, doc.ID, domain.ModalityImage, imageVectors); err != nil {
			s.rollback(ctx, collectionID, doc.ID)
			return domain.Document{}, fmt.Errorf("write image blob: %w", err)
		}
	}
	return doc, nil
}

func (s *Service) rollback(ctx context.Context, collectionID, documentID string) {
	if err := s.records.DeleteDocument(ctx, collectionID, documentID); err != nil {
		s.logger.Error("Failed to roll back document after blob write error",
			zap.String("collection_id", collectionID),
			zap.String("document_id", documentID),
			zap.Error(err))
	}
	if err := s.blobs.DeleteDocument(collectionID, documentID); err != nil {
		s.logger.Warn("Failed to remove partial blobs",
			zap.String("collection_id", collectionID),
			zap.String("document_id", documentID),
			zap.Error(err))
	}
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}

// Get returns a document scoped to its collection.
func (s *Service) Get(ctx context.Context, collectionID, documentID string) (domain.Document, error) {
	doc, err := s.records.GetDocument(ctx, collectionID, documentID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns the collection's documents in creation order.
func (s *Service) List(ctx context.Context, collectionID string) ([]domain.Document, error) {
	if _, err := s.records.GetCollection(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs, err := s.records.ListDocuments(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Chunks returns a document's chunks in ordinal order.
func (s *Service) Chunks(ctx context.Context, collectionID, documentID string) ([]domain.Chunk, error) {
	if _, err := s.records.GetDocument(ctx, collectionID, documentID); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	chunks, err := s.records.ChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}
