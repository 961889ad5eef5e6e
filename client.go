// Package docdex embeds the document retrieval engine in-process: page-tagged
// chunking, exact vector search over a selected collection and BM25 lexical
// re-ranking, persisted in a local data directory.
package docdex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/db"
	dbRedis "github.com/kailas-cloud/docdex/internal/db/redis"
	"github.com/kailas-cloud/docdex/internal/ranker"
	blobrepo "github.com/kailas-cloud/docdex/internal/repository/blob"
	"github.com/kailas-cloud/docdex/internal/repository/embcache"
	recordrepo "github.com/kailas-cloud/docdex/internal/repository/record"
	"github.com/kailas-cloud/docdex/internal/splitter"
	openaiEmb "github.com/kailas-cloud/docdex/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

const defaultCacheReadiness = 10 * time.Second

// Client is the docdex SDK entry point.
type Client struct {
	records   *recordrepo.Store
	cache     db.Store
	manager   *collectionuc.Manager
	documents *documentuc.Service
	search    *searchuc.Service
}

// New creates a docdex Client over a local data directory.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		maxWords:     1000,
		overlapWords: 200,
		topK:         3,
		maxImages:    1,
		bm25K1:       ranker.DefaultK1,
		bm25B:        ranker.DefaultB,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if cfg.dataDir == "" {
		return nil, errors.New("docdex: data directory required (use WithDataDir)")
	}
	if cfg.embedder == nil && cfg.openai == nil {
		return nil, errors.New("docdex: embedder required (use WithEmbedder or WithOpenAI)")
	}
	if cfg.dimensions <= 0 {
		return nil, errors.New("docdex: embedding dimensions must be positive")
	}
	if cfg.overlapWords >= cfg.maxWords {
		return nil, fmt.Errorf("docdex: overlap (%d) must be less than window (%d) words",
			cfg.overlapWords, cfg.maxWords)
	}

	records, err := recordrepo.NewStore(filepath.Join(cfg.dataDir, "records"))
	if err != nil {
		return nil, fmt.Errorf("docdex: open record store: %w", err)
	}
	blobs, err := blobrepo.NewStore(filepath.Join(cfg.dataDir, "blobs"))
	if err != nil {
		_ = records.Close()
		return nil, fmt.Errorf("docdex: open blob store: %w", err)
	}

	embedder := cfg.embedder
	if embedder == nil {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.openai.APIKey,
			BaseURL:    cfg.openai.BaseURL,
			Model:      cfg.openai.Model,
			Dimensions: cfg.openai.Dimensions,
			Provider:   "openai",
			Logger:     cfg.logger,
		})
	}

	var cache db.Store
	if len(cfg.cacheAddrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Username: cfg.cacheUsername,
			Password: cfg.cachePassword,
			DB:       cfg.cacheDB,
		})
		if err != nil {
			_ = records.Close()
			return nil, fmt.Errorf("docdex: create cache store: %w", err)
		}
		if err := cache.WaitForReady(context.Background(), defaultCacheReadiness); err != nil {
			cache.Close()
			_ = records.Close()
			return nil, fmt.Errorf("docdex: cache not ready: %w", err)
		}
		embedder = embcache.New(embedder, cache, nil, cfg.logger)
	}

	manager := collectionuc.NewManager(records, blobs, cfg.dimensions, cfg.logger)
	docSvc := documentuc.New(records, blobs, embedder, manager,
		cfg.maxWords, cfg.overlapWords, cfg.logger)
	searchSvc := searchuc.New(manager, records, embedder,
		ranker.New(cfg.bm25K1, cfg.bm25B), cfg.topK, cfg.maxImages, cfg.logger)

	return &Client{
		records:   records,
		cache:     cache,
		manager:   manager,
		documents: docSvc,
		search:    searchSvc,
	}, nil
}

// Close releases the underlying stores.
func (c *Client) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	if err := c.records.Close(); err != nil {
		return fmt.Errorf("docdex: close record store: %w", err)
	}
	return nil
}

// CreateCollection creates a new empty collection.
func (c *Client) CreateCollection(ctx context.Context, title string) (Collection, error) {
	col, err := c.manager.Create(ctx, title)
	if err != nil {
		return Collection{}, err
	}
	return collectionFromDomain(col), nil
}

// Collections lists all collections, newest first.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	cols, err := c.manager.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Collection, len(cols))
	for i, col := range cols {
		out[i] = collectionFromDomain(col)
	}
	return out, nil
}

// RenameCollection updates a collection title.
func (c *Client) RenameCollection(ctx context.Context, id, title string) error {
	return c.manager.Rename(ctx, id, title)
}

// DeleteCollection removes a collection with all its documents.
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.manager.DeleteCollection(ctx, id)
}

// SelectCollection makes a collection the target of subsequent searches,
// loading its vectors into memory.
func (c *Client) SelectCollection(ctx context.Context, id string) (LoadReport, error) {
	report, err := c.manager.Select(ctx, id)
	if err != nil {
		return LoadReport{}, err
	}
	return reportFromUsecase(report), nil
}

// ActiveCollection returns the selected collection id, or "" if none.
func (c *Client) ActiveCollection() string {
	return c.manager.ActiveID()
}

// IngestDocument chunks, embeds and stores a document. If the target
// collection is selected, it becomes searchable immediately.
func (c *Client) IngestDocument(
	ctx context.Context, collectionID, name string, pages []Page, images []Image,
) (IngestResult, error) {
	sp := make([]splitter.Page, len(pages))
	for i, p := range pages {
		sp[i] = splitter.Page{Number: p.Number, Text: p.Text}
	}
	in := make([]documentuc.ImageInput, len(images))
	for i, img := range images {
		in[i] = documentuc.ImageInput{
			ImagePath:  img.ImagePath,
			PageNumber: img.PageNumber,
			Metadata:   img.Metadata,
			Embedding:  img.Embedding,
		}
	}

	doc, stats, err := c.documents.Ingest(ctx, collectionID, name, sp, in)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{
		Document: documentFromDomain(doc),
		Chunks:   stats.Chunks,
		Images:   stats.Images,
	}, nil
}

// Documents lists a collection's documents in creation order.
func (c *Client) Documents(ctx context.Context, collectionID string) ([]Document, error) {
	docs, err := c.documents.List(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = documentFromDomain(d)
	}
	return out, nil
}

// Chunks returns a document's chunks in ordinal order.
func (c *Client) Chunks(ctx context.Context, collectionID, documentID string) ([]Chunk, error) {
	chunks, err := c.documents.Chunks(ctx, collectionID, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = chunkFromDomain(ch)
	}
	return out, nil
}

// DeleteDocument removes a document; the active projection is rebuilt if the
// document's collection is selected.
func (c *Client) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	return c.manager.DeleteDocument(ctx, collectionID, documentID)
}

// Search runs a hybrid search over the selected collection. topK <= 0 uses
// the configured default.
func (c *Client) Search(ctx context.Context, query string, topK int) (SearchResult, error) {
	res, err := c.search.Search(ctx, query, topK)
	if err != nil {
		return SearchResult{}, err
	}
	return searchResultFromUsecase(res), nil
}
