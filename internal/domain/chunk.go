package domain

// Modality distinguishes text chunks from image records in the identity map.
type Modality string

const (
	// ModalityText marks a text chunk vector.
	ModalityText Modality = "text"
	// ModalityImage marks an image record vector.
	ModalityImage Modality = "image"
)

// Chunk is a word-bounded, page-tagged text window persisted by the system of
// record. Immutable once created; destroyed with its owning document.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int // ordinal_index: creation order within the document
	PageNumber int
	Text       string
}

// ImageRecord is an extracted image belonging to a document.
type ImageRecord struct {
	ID         string
	DocumentID string
	ImagePath  string
	PageNumber int
	Metadata   map[string]string
}

// NewChunk is one chunk to persist; ids and ordinals are assigned on insert.
type NewChunk struct {
	Text       string
	PageNumber int
}

// NewImage is one image record to persist.
type NewImage struct {
	ImagePath  string
	PageNumber int
	Metadata   map[string]string
}

// VectorRef resolves a vector index ordinal back to its persistent record.
// Entry i of the identity map describes vector i of the index at all times.
type VectorRef struct {
	Modality Modality
	ID       string
}
