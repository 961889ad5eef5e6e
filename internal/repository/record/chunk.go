package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// ChunksByDocument returns the document's chunks ordered by ordinal_index.
// This order must equal the row order of the document's text embedding blob.
func (s *Store) ChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, ordinal_index, page_number, text FROM chunks
		 WHERE document_id = ? ORDER BY ordinal_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.PageNumber, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return chunks, nil
}

// ChunksByIDs resolves chunks by stable id.
func (s *Store) ChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	out := make(map[string]domain.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, document_id, ordinal_index, page_number, text FROM chunks WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select chunks by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.PageNumber, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// ImagesByDocument returns the document's image records in creation order.
func (s *Store) ImagesByDocument(ctx context.Context, documentID string) ([]domain.ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, image_path, page_number, metadata FROM images
		 WHERE document_id = ? ORDER BY ordinal_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// ImagesByIDs resolves image records by stable id.
func (s *Store) ImagesByIDs(ctx context.Context, ids []string) (map[string]domain.ImageRecord, error) {
	out := make(map[string]domain.ImageRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, document_id, image_path, page_number, metadata FROM images WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select images by ids: %w", err)
	}
	defer rows.Close()

	imgs, err := scanImages(rows)
	if err != nil {
		return nil, err
	}
	for _, img := range imgs {
		out[img.ID] = img
	}
	return out, nil
}

type imageRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanImages(rows imageRows) ([]domain.ImageRecord, error) {
	var imgs []domain.ImageRecord
	for rows.Next() {
		var (
			img  domain.ImageRecord
			meta string
		)
		if err := rows.Scan(&img.ID, &img.DocumentID, &img.ImagePath, &img.PageNumber, &meta); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &img.Metadata); err != nil {
			return nil, fmt.Errorf("parse image metadata: %w", err)
		}
		imgs = append(imgs, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return imgs, nil
}
