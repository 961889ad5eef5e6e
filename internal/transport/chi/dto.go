package chi

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeCollectionNotFound     = "collection_not_found"
	codeDocumentNotFound       = "document_not_found"
	codeNoActiveCollection     = "no_active_collection"
	codeEmptyIndex             = "empty_index"
	codeDimensionMismatch      = "vector_dim_mismatch"
	codeZeroVector             = "zero_vector"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type collectionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
	Active    bool   `json:"active"`
}

type collectionListResponse struct {
	Items []collectionResponse `json:"items"`
	Total int                  `json:"total"`
}

type createCollectionRequest struct {
	Title string `json:"title"`
}

type renameCollectionRequest struct {
	Title string `json:"title"`
}

type loadWarningResponse struct {
	DocumentID string `json:"document_id"`
	Modality   string `json:"modality"`
	BlobRows   int    `json:"blob_rows"`
	RecordRows int    `json:"record_rows"`
}

type selectCollectionResponse struct {
	CollectionID string                `json:"collection_id"`
	Documents    []documentResponse    `json:"documents"`
	Vectors      int                   `json:"vectors"`
	Warnings     []loadWarningResponse `json:"warnings,omitempty"`
}

type pageRequest struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type imageRequest struct {
	ImagePath  string            `json:"image_path"`
	PageNumber int               `json:"page_number"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Embedding  []float32         `json:"embedding"`
}

type chunkRequest struct {
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
}

// ingestRequest carries either raw pages (split and embedded server-side) or
// pre-chunked text with caller-supplied embeddings, not both.
type ingestRequest struct {
	Name       string         `json:"name"`
	Pages      []pageRequest  `json:"pages,omitempty"`
	Chunks     []chunkRequest `json:"chunks,omitempty"`
	Embeddings [][]float32    `json:"embeddings,omitempty"`
	Images     []imageRequest `json:"images,omitempty"`
}

type ingestResponse struct {
	Document documentResponse `json:"document"`
	Chunks   int              `json:"chunks"`
	Images   int              `json:"images"`
}

type documentResponse struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
	CreatedAt    int64  `json:"created_at"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

type chunkResponse struct {
	ID         string `json:"id"`
	Ordinal    int    `json:"ordinal"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

type chunkListResponse struct {
	Items []chunkResponse `json:"items"`
	Total int             `json:"total"`
}

type searchRequest struct {
	Query         string `json:"query"`
	TopK          *int   `json:"top_k,omitempty"`
	IncludeImages bool   `json:"include_images,omitempty"`
}

type textHitResponse struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	PageNumber    int     `json:"page_number"`
	Text          string  `json:"text"`
	VectorScore   float64 `json:"vector_score"`
	LexicalScore  float64 `json:"lexical_score"`
	CombinedScore float64 `json:"combined_score"`
}

type imageHitResponse struct {
	ImageID      string            `json:"image_id"`
	DocumentID   string            `json:"document_id"`
	DocumentName string            `json:"document_name"`
	ImagePath    string            `json:"image_path"`
	PageNumber   int               `json:"page_number"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Score        float64           `json:"score"`
}

type searchResponse struct {
	CollectionID string             `json:"collection_id"`
	Query        string             `json:"query"`
	Texts        []textHitResponse  `json:"texts"`
	Images       []imageHitResponse `json:"images,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
