// Package search runs hybrid retrieval over the selected collection: vector
// candidates from the projection, re-ranked with lexical scores.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
	"github.com/kailas-cloud/docdex/internal/metrics"
	"github.com/kailas-cloud/docdex/internal/ranker"
)

// TextHit is one ranked text chunk.
type TextHit struct {
	ChunkID       string
	DocumentID    string
	DocumentName  string
	PageNumber    int
	Text          string
	VectorScore   float64
	LexicalScore  float64
	CombinedScore float64
}

// ImageHit is one ranked image, scored by vector similarity only.
type ImageHit struct {
	ImageID      string
	DocumentID   string
	DocumentName string
	ImagePath    string
	PageNumber   int
	Metadata     map[string]string
	Score        float64
}

// Response is a full hybrid search result.
type Response struct {
	CollectionID string
	Query        string
	Texts        []TextHit
	Images       []ImageHit
}

// Service executes hybrid searches.
type Service struct {
	projector Projector
	records   Records
	embedder  domain.Embedder
	ranker    *ranker.Ranker
	topK      int
	maxImages int
	logger    *zap.Logger
}

// New creates a search service with default result limits.
func New(
	projector Projector,
	records Records,
	embedder domain.Embedder,
	rk *ranker.Ranker,
	topK, maxImages int,
	logger *zap.Logger,
) *Service {
	return &Service{
		projector: projector,
		records:   records,
		embedder:  embedder,
		ranker:    rk,
		topK:      topK,
		maxImages: maxImages,
		logger:    logger,
	}
}

// Search embeds the query, scans the active projection and fuses vector and
// lexical scores. topK <= 0 uses the configured default. Returns
// domain.ErrNoActiveCollection when no collection is selected and
// domain.ErrEmptyIndex when the selected collection holds no vectors.
func (s *Service) Search(ctx context.Context, query string, topK int) (Response, error) {
	start := time.Now()

	if topK <= 0 {
		topK = s.topK
	}

	collectionID, proj, err := s.projector.Snapshot()
	if err != nil {
		return Response{}, err
	}
	if proj.Len() == 0 {
		return Response{}, domain.ErrEmptyIndex
	}

	embRes, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Response{}, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(embRes.TotalTokens)

	// Over-fetch so image hits cannot crowd text hits out of the candidate set.
	candidates, err := s.collectCandidates(ctx, proj, embRes.Embedding, topK+s.maxImages)
	if err != nil {
		return Response{}, err
	}

	texts, images := s.ranker.Fuse(query, candidates, topK, s.maxImages)

	resp, err := s.resolve(ctx, collectionID, query, texts, images)
	if err != nil {
		return Response{}, err
	}

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("Search completed",
		zap.String("collection_id", collectionID),
		zap.Int("text_hits", len(resp.Texts)),
		zap.Int("image_hits", len(resp.Images)))
	return resp, nil
}

// collectCandidates scans the projection and resolves ordinals to records.
func (s *Service) collectCandidates(
	ctx context.Context, proj *index.Projection, queryVec []float32, k int,
) ([]ranker.Candidate, error) {
	ordinals, scores, err := proj.Search([][]float32{queryVec}, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	type hit struct {
		ref   domain.VectorRef
		score float64
	}
	var hits []hit
	var chunkIDs, imageIDs []string
	for i, ord := range ordinals[0] {
		if ord == index.NoHit {
			continue
		}
		ref, ok := proj.Resolve(ord)
		if !ok {
			return nil, fmt.Errorf("ordinal %d outside identity map (%d entries)", ord, proj.Len())
		}
		hits = append(hits, hit{ref: ref, score: float64(scores[0][i])})
		if ref.Modality == domain.ModalityImage {
			imageIDs = append(imageIDs, ref.ID)
		} else {
			chunkIDs = append(chunkIDs, ref.ID)
		}
	}

	chunks, err := s.records.ChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve chunks: %w", err)
	}
	imgs, err := s.records.ImagesByIDs(ctx, imageIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve images: %w", err)
	}

	candidates := make([]ranker.Candidate, 0, len(hits))
	for _, h := range hits {
		switch h.ref.Modality {
		case domain.ModalityImage:
			img, ok := imgs[h.ref.ID]
			if !ok {
				s.logger.Warn("Search hit references missing image row", zap.String("image_id", h.ref.ID))
				continue
			}
			candidates = append(candidates, ranker.Candidate{
				ID:          img.ID,
				Modality:    domain.ModalityImage,
				VectorScore: h.score,
				PageNumber:  img.PageNumber,
				DocumentID:  img.DocumentID,
			})
		default:
			c, ok := chunks[h.ref.ID]
			if !ok {
				s.logger.Warn("Search hit references missing chunk row", zap.String("chunk_id", h.ref.ID))
				continue
			}
			candidates = append(candidates, ranker.Candidate{
				ID:          c.ID,
				Modality:    domain.ModalityText,
				VectorScore: h.score,
				Text:        c.Text,
				PageNumber:  c.PageNumber,
				DocumentID:  c.DocumentID,
			})
		}
	}
	return candidates, nil
}

// resolve joins ranked results with their document rows.
func (s *Service) resolve(
	ctx context.Context, collectionID, query string, texts, images []ranker.Result,
) (Response, error) {
	docIDs := make([]string, 0, len(texts)+len(images))
	seen := make(map[string]bool)
	for _, r := range texts {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			docIDs = append(docIDs, r.DocumentID)
		}
	}
	for _, r := range images {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			docIDs = append(docIDs, r.DocumentID)
		}
	}

	docs, err := s.records.DocumentsByIDs(ctx, docIDs)
	if err != nil {
		return Response{}, fmt.Errorf("resolve documents: %w", err)
	}

	resp := Response{CollectionID: collectionID, Query: query}
	for _, r := range texts {
		resp.Texts = append(resp.Texts, TextHit{
			ChunkID:       r.ID,
			DocumentID:    r.DocumentID,
			DocumentName:  docs[r.DocumentID].Name,
			PageNumber:    r.PageNumber,
			Text:          r.Text,
			VectorScore:   r.VectorScore,
			LexicalScore:  r.LexicalScore,
			CombinedScore: r.CombinedScore,
		})
	}

	if len(images) == 0 {
		return resp, nil
	}

	imgRows, err := s.records.ImagesByIDs(ctx, imageIDsOf(images))
	if err != nil {
		return Response{}, fmt.Errorf("resolve images: %w", err)
	}
	for _, r := range images {
		row := imgRows[r.ID]
		resp.Images = append(resp.Images, ImageHit{
			ImageID:      r.ID,
			DocumentID:   r.DocumentID,
			DocumentName: docs[r.DocumentID].Name,
			ImagePath:    row.ImagePath,
			PageNumber:   r.PageNumber,
			Metadata:     row.Metadata,
			Score:        r.CombinedScore,
		})
	}
	return resp, nil
}

func imageIDsOf(results []ranker.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
