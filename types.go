package docdex

import (
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	collectionuc "github.com/kailas-cloud/docdex/internal/usecase/collection"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

// Collection is a named set of documents.
type Collection struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Document is one ingested source file.
type Document struct {
	ID           string
	CollectionID string
	Name         string
	CreatedAt    time.Time
}

// Chunk is a page-tagged text window of a document.
type Chunk struct {
	ID         string
	Ordinal    int
	PageNumber int
	Text       string
}

// Page is one page of extracted text to ingest, in page order.
type Page struct {
	Number int
	Text   string
}

// Image is one extracted image with its pre-computed embedding.
type Image struct {
	ImagePath  string
	PageNumber int
	Metadata   map[string]string
	Embedding  []float32
}

// IngestResult reports what a document ingestion produced.
type IngestResult struct {
	Document Document
	Chunks   int
	Images   int
}

// LoadWarning flags a document skipped during projection rebuild because its
// persisted embedding rows disagree with its record rows.
type LoadWarning struct {
	DocumentID string
	Modality   string
	BlobRows   int
	RecordRows int
}

// LoadReport summarizes a collection selection.
type LoadReport struct {
	CollectionID string
	Documents    int
	Vectors      int
	Warnings     []LoadWarning
}

// TextResult is one ranked text chunk.
type TextResult struct {
	ChunkID       string
	DocumentID    string
	DocumentName  string
	PageNumber    int
	Text          string
	VectorScore   float64
	LexicalScore  float64
	CombinedScore float64
}

// ImageResult is one ranked image, scored by vector similarity only.
type ImageResult struct {
	ImageID      string
	DocumentID   string
	DocumentName string
	ImagePath    string
	PageNumber   int
	Metadata     map[string]string
	Score        float64
}

// SearchResult is a full hybrid search result.
type SearchResult struct {
	CollectionID string
	Query        string
	Texts        []TextResult
	Images       []ImageResult
}

func collectionFromDomain(c domain.Collection) Collection {
	return Collection{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: time.UnixMilli(c.CreatedAt).UTC(),
	}
}

func documentFromDomain(d domain.Document) Document {
	return Document{
		ID:           d.ID,
		CollectionID: d.CollectionID,
		Name:         d.Name,
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
	}
}

func chunkFromDomain(c domain.Chunk) Chunk {
	return Chunk{
		ID:         c.ID,
		Ordinal:    c.Ordinal,
		PageNumber: c.PageNumber,
		Text:       c.Text,
	}
}

func reportFromUsecase(r collectionuc.LoadReport) LoadReport {
	out := LoadReport{
		CollectionID: r.CollectionID,
		Documents:    r.Documents,
		Vectors:      r.Vectors,
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, LoadWarning{
			DocumentID: w.DocumentID,
			Modality:   string(w.Modality),
			BlobRows:   w.BlobRows,
			RecordRows: w.RecordRows,
		})
	}
	return out
}

func searchResultFromUsecase(r searchuc.Response) SearchResult {
	out := SearchResult{
		CollectionID: r.CollectionID,
		Query:        r.Query,
	}
	for _, h := range r.Texts {
		out.Texts = append(out.Texts, TextResult{
			ChunkID:       h.ChunkID,
			DocumentID:    h.DocumentID,
			DocumentName:  h.DocumentName,
			PageNumber:    h.PageNumber,
			Text:          h.Text,
			VectorScore:   h.VectorScore,
			LexicalScore:  h.LexicalScore,
			CombinedScore: h.CombinedScore,
		})
	}
	for _, h := range r.Images {
		out.Images = append(out.Images, ImageResult{
			ImageID:      h.ImageID,
			DocumentID:   h.DocumentID,
			DocumentName: h.DocumentName,
			ImagePath:    h.ImagePath,
			PageNumber:   h.PageNumber,
			Metadata:     h.Metadata,
			Score:        h.Score,
		})
	}
	return out
}
