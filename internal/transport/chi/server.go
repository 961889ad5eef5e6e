// Package chi exposes the HTTP API over a go-chi router.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/splitter"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

const (
	maxPagesPerDocument    = 5000
	defaultCollectionTitle = "New Collection"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to HTTP handlers.
type Server struct {
	collections   *collectionuc.Manager
	documents     *documentuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Manager,
	documents *documentuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		documents:   documents,
		search:      search,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNoActiveCollection, http.StatusConflict, codeNoActiveCollection),
		sentinelHandler(domain.ErrEmptyIndex, http.StatusConflict, codeEmptyIndex),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch),
		sentinelHandler(domain.ErrZeroVector, http.StatusBadRequest, codeZeroVector),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Mount registers all routes on the router. /health and /metrics live outside
// the API prefix so the auth middleware can exempt them by path.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", s.ListCollections)
			r.Post("/", s.CreateCollection)
			r.Route("/{collectionID}", func(r chi.Router) {
				r.Get("/", s.GetCollection)
				r.Patch("/title", s.RenameCollection)
				r.Delete("/", s.DeleteCollection)
				r.Post("/select", s.SelectCollection)
				r.Route("/documents", func(r chi.Router) {
					r.Get("/", s.ListDocuments)
					r.Post("/", s.IngestDocument)
					r.Route("/{documentID}", func(r chi.Router) {
						r.Get("/", s.GetDocument)
						r.Delete("/", s.DeleteDocument)
						r.Get("/chunks", s.ListChunks)
					})
				})
			})
		})
		r.Post("/search", s.Search)
	})
}

// CreateCollection handles POST /api/v1/collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		req.Title = defaultCollectionTitle
	}

	col, err := s.collections.Create(r.Context(), req.Title)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.collectionToDTO(col))
}

// ListCollections handles GET /api/v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]collectionResponse, len(cols))
	for i, c := range cols {
		items[i] = s.collectionToDTO(c)
	}
	writeJSON(w, http.StatusOK, collectionListResponse{Items: items, Total: len(items)})
}

// GetCollection handles GET /api/v1/collections/{collectionID}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.collections.Get(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.collectionToDTO(col))
}

// RenameCollection handles PATCH /api/v1/collections/{collectionID}/title.
func (s *Server) RenameCollection(w http.ResponseWriter, r *http.Request) {
	var req renameCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Collection title is required")
		return
	}

	id := chi.URLParam(r, "collectionID")
	if err := s.collections.Rename(r.Context(), id, req.Title); err != nil {
		s.handleDomainError(w, err)
		return
	}

	col, err := s.collections.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.collectionToDTO(col))
}

// DeleteCollection handles DELETE /api/v1/collections/{collectionID}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.DeleteCollection(r.Context(), chi.URLParam(r, "collectionID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectCollection handles POST /api/v1/collections/{collectionID}/select.
func (s *Server) SelectCollection(w http.ResponseWriter, r *http.Request) {
	report, err := s.collections.Select(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	docs, err := s.documents.List(r.Context(), report.CollectionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := selectCollectionResponse{
		CollectionID: report.CollectionID,
		Documents:    make([]documentResponse, len(docs)),
		Vectors:      report.Vectors,
	}
	for i, d := range docs {
		resp.Documents[i] = documentToDTO(d)
	}
	for _, warn := range report.Warnings {
		resp.Warnings = append(resp.Warnings, loadWarningResponse{
			DocumentID: warn.DocumentID,
			Modality:   string(warn.Modality),
			BlobRows:   warn.BlobRows,
			RecordRows: warn.RecordRows,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// IngestDocument handles POST /api/v1/collections/{collectionID}/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Document name is required")
		return
	}
	if len(req.Pages) > 0 && len(req.Chunks) > 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"Document must carry either pages or pre-chunked text, not both")
		return
	}
	if len(req.Pages) == 0 && len(req.Chunks) == 0 && len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Document must have pages, chunks or images")
		return
	}
	if len(req.Pages) > maxPagesPerDocument {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Too many pages")
		return
	}
	if len(req.Chunks) != 0 && len(req.Embeddings) != len(req.Chunks) {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"Pre-chunked documents need one embedding per chunk")
		return
	}

	images := make([]documentuc.ImageInput, len(req.Images))
	for i, img := range req.Images {
		images[i] = documentuc.ImageInput{
			ImagePath:  img.ImagePath,
			PageNumber: img.PageNumber,
			Metadata:   img.Metadata,
			Embedding:  img.Embedding,
		}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	collectionID := chi.URLParam(r, "collectionID")

	var (
		doc   domain.Document
		stats documentuc.IngestStats
		err   error
	)
	if len(req.Chunks) > 0 {
		chunks := make([]domain.NewChunk, len(req.Chunks))
		for i, c := range req.Chunks {
			chunks[i] = domain.NewChunk{Text: c.Text, PageNumber: c.PageNumber}
		}
		doc, stats, err = s.documents.IngestChunks(ctx, collectionID, req.Name, chunks, req.Embeddings, images)
	} else {
		pages := make([]splitter.Page, len(req.Pages))
		for i, p := range req.Pages {
			pages[i] = splitter.Page{Number: p.Number, Text: p.Text}
		}
		doc, stats, err = s.documents.Ingest(ctx, collectionID, req.Name, pages, images)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, ingestResponse{
		Document: documentToDTO(doc),
		Chunks:   stats.Chunks,
		Images:   stats.Images,
	})
}

// ListDocuments handles GET /api/v1/collections/{collectionID}/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToDTO(d)
	}
	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Total: len(items)})
}

// GetDocument handles GET /api/v1/collections/{collectionID}/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToDTO(doc))
}

// DeleteDocument handles DELETE /api/v1/collections/{collectionID}/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.collections.DeleteDocument(r.Context(),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListChunks handles GET /api/v1/collections/{collectionID}/documents/{documentID}/chunks.
func (s *Server) ListChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.documents.Chunks(r.Context(),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]chunkResponse, len(chunks))
	for i, c := range chunks {
		items[i] = chunkResponse{
			ID:         c.ID,
			Ordinal:    c.Ordinal,
			PageNumber: c.PageNumber,
			Text:       c.Text,
		}
	}
	writeJSON(w, http.StatusOK, chunkListResponse{Items: items, Total: len(items)})
}

// Search handles POST /api/v1/search. Searches the selected collection.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Query is required")
		return
	}
	topK := 0
	if req.TopK != nil {
		if *req.TopK <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "top_k must be positive")
			return
		}
		topK = *req.TopK
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.search.Search(ctx, req.Query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := searchResponse{
		CollectionID: res.CollectionID,
		Query:        res.Query,
		Texts:        make([]textHitResponse, len(res.Texts)),
	}
	for i, h := range res.Texts {
		resp.Texts[i] = textHitResponse{
			ChunkID:       h.ChunkID,
			DocumentID:    h.DocumentID,
			DocumentName:  h.DocumentName,
			PageNumber:    h.PageNumber,
			Text:          h.Text,
			VectorScore:   h.VectorScore,
			LexicalScore:  h.LexicalScore,
			CombinedScore: h.CombinedScore,
		}
	}
	if !req.IncludeImages {
		res.Images = nil
	}
	for _, h := range res.Images {
		resp.Images = append(resp.Images, imageHitResponse{
			ImageID:      h.ImageID,
			DocumentID:   h.DocumentID,
			DocumentName: h.DocumentName,
			ImagePath:    h.ImagePath,
			PageNumber:   h.PageNumber,
			Metadata:     h.Metadata,
			Score:        h.Score,
		})
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) collectionToDTO(c domain.Collection) collectionResponse {
	return collectionResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Active:    s.collections.ActiveID() == c.ID,
	}
}

func documentToDTO(d domain.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		CollectionID: d.CollectionID,
		Name:         d.Name,
		CreatedAt:    d.CreatedAt,
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrNoActiveCollection,
		domain.ErrEmptyIndex,
		domain.ErrDimensionMismatch,
		domain.ErrZeroVector,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
