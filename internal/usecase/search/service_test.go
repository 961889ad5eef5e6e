package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
	"github.com/kailas-cloud/docdex/internal/ranker"
)

// --- Mocks ---

type fakeProjector struct {
	collectionID string
	proj         *index.Projection
	err          error
}

func (f *fakeProjector) Snapshot() (string, *index.Projection, error) {
	return f.collectionID, f.proj, f.err
}

type fakeRecords struct {
	chunks map[string]domain.Chunk
	images map[string]domain.ImageRecord
	docs   map[string]domain.Document
}

func (f *fakeRecords) ChunksByIDs(_ context.Context, ids []string) (map[string]domain.Chunk, error) {
	out := make(map[string]domain.Chunk)
	for _, id := range ids {
		if c, ok := f.chunks[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeRecords) ImagesByIDs(_ context.Context, ids []string) (map[string]domain.ImageRecord, error) {
	out := make(map[string]domain.ImageRecord)
	for _, id := range ids {
		if img, ok := f.images[id]; ok {
			out[id] = img
		}
	}
	return out, nil
}

func (f *fakeRecords) DocumentsByIDs(_ context.Context, ids []string) (map[string]domain.Document, error) {
	out := make(map[string]domain.Document)
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	vector []float32
	tokens int
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vector, TotalTokens: f.tokens}, nil
}

// --- Fixtures ---

// buildFixture assembles a 2-dim projection with two chunks and one image,
// plus the records that resolve them.
func buildFixture(t *testing.T) (*fakeProjector, *fakeRecords) {
	t.Helper()

	proj := index.NewProjection(2)
	err := proj.Append(
		[][]float32{{1, 0}, {0.8, 0.6}, {0, 1}},
		[]domain.VectorRef{
			{Modality: domain.ModalityText, ID: "c1"},
			{Modality: domain.ModalityText, ID: "c2"},
			{Modality: domain.ModalityImage, ID: "i1"},
		},
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	records := &fakeRecords{
		chunks: map[string]domain.Chunk{
			"c1": {ID: "c1", DocumentID: "doc1", PageNumber: 1, Text: "quarterly revenue breakdown"},
			"c2": {ID: "c2", DocumentID: "doc1", PageNumber: 2, Text: "refund policy and returns"},
		},
		images: map[string]domain.ImageRecord{
			"i1": {ID: "i1", DocumentID: "doc2", ImagePath: "img/chart.png", PageNumber: 3,
				Metadata: map[string]string{"caption": "sales chart"}},
		},
		docs: map[string]domain.Document{
			"doc1": {ID: "doc1", CollectionID: "col1", Name: "handbook.pdf"},
			"doc2": {ID: "doc2", CollectionID: "col1", Name: "report.pdf"},
		},
	}
	return &fakeProjector{collectionID: "col1", proj: proj}, records
}

func newTestService(projector Projector, records Records, embedder domain.Embedder) *Service {
	return New(projector, records, embedder, ranker.New(ranker.DefaultK1, ranker.DefaultB), 3, 1, zap.NewNop())
}

// --- Tests ---

func TestSearch_NoActiveCollection(t *testing.T) {
	projector := &fakeProjector{err: domain.ErrNoActiveCollection}
	s := newTestService(projector, &fakeRecords{}, &fakeEmbedder{vector: []float32{1, 0}})

	_, err := s.Search(context.Background(), "query", 3)
	if !errors.Is(err, domain.ErrNoActiveCollection) {
		t.Errorf("err = %v, want ErrNoActiveCollection", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	projector := &fakeProjector{collectionID: "col1", proj: index.NewProjection(2)}
	s := newTestService(projector, &fakeRecords{}, &fakeEmbedder{vector: []float32{1, 0}})

	_, err := s.Search(context.Background(), "query", 3)
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Errorf("err = %v, want ErrEmptyIndex", err)
	}
}

func TestSearch_EmbedFailurePropagates(t *testing.T) {
	projector, records := buildFixture(t)
	embedErr := errors.New("provider down")
	s := newTestService(projector, records, &fakeEmbedder{err: embedErr})

	_, err := s.Search(context.Background(), "query", 3)
	if !errors.Is(err, embedErr) {
		t.Errorf("err = %v, want wrapped %v", err, embedErr)
	}
}

func TestSearch_ResolvesHitsToRecords(t *testing.T) {
	projector, records := buildFixture(t)
	s := newTestService(projector, records, &fakeEmbedder{vector: []float32{1, 0}})

	resp, err := s.Search(context.Background(), "unrelated words", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.CollectionID != "col1" {
		t.Errorf("CollectionID = %q", resp.CollectionID)
	}
	if len(resp.Texts) != 2 {
		t.Fatalf("got %d text hits, want 2", len(resp.Texts))
	}
	// No lexical overlap, so pure vector order: c1 is closest to the query.
	if resp.Texts[0].ChunkID != "c1" {
		t.Errorf("rank 0 = %s, want c1", resp.Texts[0].ChunkID)
	}
	if resp.Texts[0].DocumentName != "handbook.pdf" {
		t.Errorf("DocumentName = %q", resp.Texts[0].DocumentName)
	}
	if resp.Texts[0].Text != "quarterly revenue breakdown" {
		t.Errorf("Text = %q", resp.Texts[0].Text)
	}

	if len(resp.Images) != 1 {
		t.Fatalf("got %d image hits, want 1", len(resp.Images))
	}
	img := resp.Images[0]
	if img.ImageID != "i1" || img.ImagePath != "img/chart.png" || img.DocumentName != "report.pdf" {
		t.Errorf("image hit = %+v", img)
	}
	if img.Metadata["caption"] != "sales chart" {
		t.Errorf("image metadata = %v", img.Metadata)
	}
}

func TestSearch_LexicalOverlapReranks(t *testing.T) {
	projector, records := buildFixture(t)
	s := newTestService(projector, records, &fakeEmbedder{vector: []float32{1, 0}})

	// c1 wins on vector score, but only c2 mentions the query terms.
	resp, err := s.Search(context.Background(), "refund policy", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(resp.Texts) != 2 {
		t.Fatalf("got %d text hits, want 2", len(resp.Texts))
	}
	if resp.Texts[0].ChunkID != "c2" {
		t.Errorf("rank 0 = %s, want c2 (lexical rerank)", resp.Texts[0].ChunkID)
	}
	if resp.Texts[0].LexicalScore <= 0 {
		t.Errorf("LexicalScore = %f, want > 0", resp.Texts[0].LexicalScore)
	}
	if got := resp.Texts[0]; got.CombinedScore != got.VectorScore+got.LexicalScore {
		t.Errorf("CombinedScore = %f, want vector+lexical", got.CombinedScore)
	}
}

func TestSearch_NonPositiveTopKUsesDefault(t *testing.T) {
	projector, records := buildFixture(t)
	s := newTestService(projector, records, &fakeEmbedder{vector: []float32{1, 0}})

	resp, err := s.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// Default topK is 3, the fixture holds 2 chunks.
	if len(resp.Texts) != 2 {
		t.Errorf("got %d text hits, want 2", len(resp.Texts))
	}
}

func TestSearch_TopKCapsTextHits(t *testing.T) {
	projector, records := buildFixture(t)
	s := newTestService(projector, records, &fakeEmbedder{vector: []float32{1, 0}})

	resp, err := s.Search(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Texts) != 1 {
		t.Fatalf("got %d text hits, want 1", len(resp.Texts))
	}
	if resp.Texts[0].ChunkID != "c1" {
		t.Errorf("hit = %s, want c1", resp.Texts[0].ChunkID)
	}
}

func TestSearch_AccumulatesUsageTokens(t *testing.T) {
	projector, records := buildFixture(t)
	s := newTestService(projector, records, &fakeEmbedder{vector: []float32{1, 0}, tokens: 7})

	ctx, usage := domain.NewContextWithUsage(context.Background())

	if _, err := s.Search(ctx, "query", 3); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if usage.TotalTokens != 7 || !usage.Used {
		t.Errorf("usage = %+v, want 7 tokens and Used", usage)
	}
}
