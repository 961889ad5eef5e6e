package docdex

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Embedder turns text into a vector. Implement it to plug in any embedding
// model; WithOpenAI covers the common OpenAI-compatible case.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIConfig configures the built-in OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the OpenAI default
	Model      string
	Dimensions int
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	dataDir      string
	dimensions   int
	maxWords     int
	overlapWords int
	topK         int
	maxImages    int
	bm25K1       float64
	bm25B        float64

	embedder domain.Embedder
	openai   *OpenAIConfig

	cacheAddrs    []string
	cacheUsername string
	cachePassword string
	cacheDB       int

	logger *zap.Logger
}

// WithDataDir sets the root directory for record and blob storage. Required.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) { c.dataDir = dir }
}

// WithEmbedder plugs in a custom embedding model of the given dimension.
func WithEmbedder(e Embedder, dimensions int) Option {
	return func(c *clientConfig) {
		c.embedder = &embedderAdapter{inner: e}
		c.dimensions = dimensions
	}
}

// WithOpenAI uses an OpenAI-compatible embeddings API.
func WithOpenAI(cfg OpenAIConfig) Option {
	return func(c *clientConfig) {
		cp := cfg
		c.openai = &cp
		c.dimensions = cfg.Dimensions
	}
}

// WithChunking overrides the chunk window size and overlap, in words.
func WithChunking(maxWords, overlapWords int) Option {
	return func(c *clientConfig) {
		c.maxWords = maxWords
		c.overlapWords = overlapWords
	}
}

// WithRanking overrides the BM25 parameters used for lexical re-ranking.
func WithRanking(k1, b float64) Option {
	return func(c *clientConfig) {
		c.bm25K1 = k1
		c.bm25B = b
	}
}

// WithSearchLimits overrides the default number of text results and the
// image result cap.
func WithSearchLimits(topK, maxImages int) Option {
	return func(c *clientConfig) {
		c.topK = topK
		c.maxImages = maxImages
	}
}

// WithCache enables the Redis-backed embedding cache.
func WithCache(addrs ...string) Option {
	return func(c *clientConfig) { c.cacheAddrs = addrs }
}

// WithCacheAuth sets credentials for the embedding cache.
func WithCacheAuth(username, password string, db int) Option {
	return func(c *clientConfig) {
		c.cacheUsername = username
		c.cachePassword = password
		c.cacheDB = db
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// embedderAdapter lifts the public Embedder onto the internal contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}
