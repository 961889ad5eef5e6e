// Package blob persists embedding vectors as one dense 2-D float32 file per
// (document, modality). Row order equals the creation order of the
// corresponding chunk/image rows; that equality is what binds vector index
// ordinals to database rows after a rebuild.
package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// File layout: magic, uint32 dim, uint32 rows, rows*dim little-endian float32.
var magic = [4]byte{'D', 'X', 'B', '1'}

const headerSize = 12

// Store reads and writes embedding blobs under a data directory.
type Store struct {
	dataDir string
}

// NewStore creates a blob store rooted at dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) path(collectionID, documentID string, modality domain.Modality) string {
	return filepath.Join(s.dataDir, collectionID, fmt.Sprintf("%s.%s.vec", documentID, modality))
}

// Write persists the vectors for one (document, modality), atomically via a
// temp file and rename. All rows must share the same dimension.
func (s *Store) Write(collectionID, documentID string, modality domain.Modality, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("refusing to write empty blob for document %s", documentID)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("row %d has %d components, row 0 has %d: %w",
				i, len(v), dim, domain.ErrDimensionMismatch)
		}
	}

	buf := make([]byte, headerSize+len(vectors)*dim*4)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[4:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(vectors)))
	off := headerSize
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}

	dir := filepath.Join(s.dataDir, collectionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating collection blob directory: %w", err)
	}

	path := s.path(collectionID, documentID, modality)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming blob: %w", err)
	}
	return nil
}

// Read loads the vectors for one (document, modality). A missing file is
// reported as fs.ErrNotExist; an absent modality is normal for documents
// without images.
func (s *Store) Read(collectionID, documentID string, modality domain.Modality) ([][]float32, error) {
	data, err := os.ReadFile(s.path(collectionID, documentID, modality))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob for document %s (%s): %w", documentID, modality, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	if len(data) < headerSize || [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("blob for document %s (%s): bad header", documentID, modality)
	}
	dim := int(binary.LittleEndian.Uint32(data[4:]))
	rowCount := int(binary.LittleEndian.Uint32(data[8:]))
	if len(data) != headerSize+rowCount*dim*4 {
		return nil, fmt.Errorf("blob for document %s (%s): truncated (%d bytes for %d x %d)",
			documentID, modality, len(data), rowCount, dim)
	}

	vectors := make([][]float32, rowCount)
	off := headerSize
	for i := range vectors {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = row
	}
	return vectors, nil
}

// DeleteDocument removes every modality blob for the document. Missing files
// are not an error; the document may never have had that modality.
func (s *Store) DeleteDocument(collectionID, documentID string) error {
	for _, m := range []domain.Modality{domain.ModalityText, domain.ModalityImage} {
		if err := os.Remove(s.path(collectionID, documentID, m)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s blob: %w", m, err)
		}
	}
	return nil
}

// DeleteCollection removes the collection's entire blob directory.
func (s *Store) DeleteCollection(collectionID string) error {
	if err := os.RemoveAll(filepath.Join(s.dataDir, collectionID)); err != nil {
		return fmt.Errorf("removing collection blobs: %w", err)
	}
	return nil
}
