package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// CreateDocument inserts a document together with its chunk and image rows in
// one transaction. Row insertion order defines ordinal_index, which must match
// the row order of the corresponding embedding blob.
func (s *Store) CreateDocument(
	ctx context.Context, collectionID, name string, chunks []domain.NewChunk, images []domain.NewImage,
) (domain.Document, error) {
	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		Name:         name,
		CreatedAt:    time.Now().UnixMilli(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, collection_id, name, created_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.CollectionID, doc.Name, doc.CreatedAt,
	)
	if err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}

	for i, c := range chunks {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, ordinal_index, page_number, text) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), doc.ID, i, c.PageNumber, c.Text,
		)
		if err != nil {
			return domain.Document{}, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	for i, img := range images {
		meta, err := json.Marshal(img.Metadata)
		if err != nil {
			return domain.Document{}, fmt.Errorf("marshal image metadata %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO images (id, document_id, ordinal_index, image_path, page_number, metadata)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), doc.ID, i, img.ImagePath, img.PageNumber, string(meta),
		)
		if err != nil {
			return domain.Document{}, fmt.Errorf("insert image %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Document{}, fmt.Errorf("commit document: %w", err)
	}
	return doc, nil
}

// GetDocument retrieves a document scoped to a collection.
func (s *Store) GetDocument(ctx context.Context, collectionID, id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, collection_id, name, created_at FROM documents WHERE id = ? AND collection_id = ?`,
		id, collectionID,
	).Scan(&doc.ID, &doc.CollectionID, &doc.Name, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the collection's documents in a query-stable order.
// Rebuilds rely on this ordering staying identical between calls.
func (s *Store) ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection_id, name, created_at FROM documents
		 WHERE collection_id = ? ORDER BY created_at, id`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.CollectionID, &doc.Name, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its cascading chunk/image rows.
func (s *Store) DeleteDocument(ctx context.Context, collectionID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND collection_id = ?`, id, collectionID,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// DocumentsByIDs resolves documents by id, unscoped to a collection.
func (s *Store) DocumentsByIDs(ctx context.Context, ids []string) (map[string]domain.Document, error) {
	out := make(map[string]domain.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT id, collection_id, name, created_at FROM documents WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select documents by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.CollectionID, &doc.Name, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}
