package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// CreateCollection inserts a new collection and returns it.
func (s *Store) CreateCollection(ctx context.Context, title string) (domain.Collection, error) {
	col := domain.Collection{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UnixMilli(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, title, created_at) VALUES (?, ?, ?)`,
		col.ID, col.Title, col.CreatedAt,
	)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("insert collection: %w", err)
	}
	return col, nil
}

// GetCollection retrieves a collection by id.
func (s *Store) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	var col domain.Collection
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM collections WHERE id = ?`, id,
	).Scan(&col.ID, &col.Title, &col.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Collection{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Collection{}, fmt.Errorf("select collection: %w", err)
	}
	return col, nil
}

// ListCollections returns all collections, newest first.
func (s *Store) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM collections ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer rows.Close()

	var cols []domain.Collection
	for rows.Next() {
		var col domain.Collection
		if err := rows.Scan(&col.ID, &col.Title, &col.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return cols, nil
}

// UpdateCollectionTitle renames a collection.
func (s *Store) UpdateCollectionTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE collections SET title = ? WHERE id = ?`, title, id,
	)
	if err != nil {
		return fmt.Errorf("update collection title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteCollection removes a collection; chunks, images and documents cascade.
// Reports ErrNotFound for unknown ids rather than succeeding silently.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
