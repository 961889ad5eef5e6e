package blob

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestWriteRead_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	vectors := [][]float32{
		{0.1, -0.2, 0.3},
		{1.5, 0, -42},
	}

	if err := s.Write("col1", "doc1", domain.ModalityText, vectors); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read("col1", "doc1", domain.ModalityText)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, vectors) {
		t.Errorf("Read = %v, want %v", got, vectors)
	}
}

func TestWrite_ModalitiesAreSeparateFiles(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1, 2}}); err != nil {
		t.Fatalf("Write text: %v", err)
	}
	if err := s.Write("col1", "doc1", domain.ModalityImage, [][]float32{{3, 4}, {5, 6}}); err != nil {
		t.Fatalf("Write image: %v", err)
	}

	text, err := s.Read("col1", "doc1", domain.ModalityText)
	if err != nil {
		t.Fatalf("Read text: %v", err)
	}
	images, err := s.Read("col1", "doc1", domain.ModalityImage)
	if err != nil {
		t.Fatalf("Read image: %v", err)
	}
	if len(text) != 1 || len(images) != 2 {
		t.Errorf("rows = %d text, %d image; want 1, 2", len(text), len(images))
	}
}

func TestWrite_RejectsEmptyAndRagged(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write("col1", "doc1", domain.ModalityText, nil); err == nil {
		t.Error("empty blob write should fail")
	}

	err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1, 2}, {1, 2, 3}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("ragged rows err = %v, want ErrDimensionMismatch", err)
	}
}

func TestRead_MissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read("col1", "nope", domain.ModalityText)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestRead_CorruptHeader(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "col1"), 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "col1", "doc1.text.vec")
	if err := os.WriteFile(path, []byte("not a blob"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Read("col1", "doc1", domain.ModalityText); err == nil {
		t.Error("corrupt blob should fail to read")
	}
}

func TestRead_TruncatedBody(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1, 2, 3}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(s.dataDir, "col1", "doc1.text.vec")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-4], 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Read("col1", "doc1", domain.ModalityText); err == nil {
		t.Error("truncated blob should fail to read")
	}
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := s.DeleteDocument("col1", "doc1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := s.Read("col1", "doc1", domain.ModalityText); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("blob still readable after delete: %v", err)
	}

	// Deleting a document with no blobs is fine.
	if err := s.DeleteDocument("col1", "never-existed"); err != nil {
		t.Errorf("DeleteDocument(missing) = %v, want nil", err)
	}
}

func TestDeleteCollection(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("col1", "doc2", domain.ModalityImage, [][]float32{{2}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := s.DeleteCollection("col1"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if _, err := s.Read("col1", "doc1", domain.ModalityText); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("doc1 blob survived collection delete: %v", err)
	}
	if _, err := s.Read("col1", "doc2", domain.ModalityImage); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("doc2 blob survived collection delete: %v", err)
	}
}

func TestWrite_OverwriteReplacesContent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{1, 2}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("col1", "doc1", domain.ModalityText, [][]float32{{9, 8}, {7, 6}}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, err := s.Read("col1", "doc1", domain.ModalityText)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := [][]float32{{9, 8}, {7, 6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read = %v, want %v", got, want)
	}
}
