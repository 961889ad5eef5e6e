package index

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func TestFlat_AddAndSelfSearch(t *testing.T) {
	f := NewFlat(3)
	vectors := [][]float32{
		{1, 0, 0},
		{0, 2, 0}, // non-unit input, must be normalized on add
		{0, 0, 5},
	}
	if err := f.Add(vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if f.Size() != 3 {
		t.Fatalf("Size = %d, want 3", f.Size())
	}

	// Each vector must find itself at rank 0 with score ~1.
	for i, q := range vectors {
		ordinals, scores, err := f.Search([][]float32{q}, 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if ordinals[0][0] != i {
			t.Errorf("query %d: rank 0 ordinal = %d, want %d", i, ordinals[0][0], i)
		}
		if math.Abs(float64(scores[0][0])-1) > 1e-5 {
			t.Errorf("query %d: self score = %f, want ~1", i, scores[0][0])
		}
	}
}

func TestFlat_SearchOrdering(t *testing.T) {
	f := NewFlat(2)
	err := f.Add([][]float32{
		{1, 0},     // ordinal 0: aligned with query
		{0, 1},     // ordinal 1: orthogonal
		{0.9, 0.1}, // ordinal 2: near-aligned
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ordinals, scores, err := f.Search([][]float32{{1, 0}}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []int{0, 2, 1}
	for i, ord := range ordinals[0] {
		if ord != want[i] {
			t.Errorf("rank %d ordinal = %d, want %d", i, ord, want[i])
		}
	}
	for i := 1; i < len(scores[0]); i++ {
		if scores[0][i] > scores[0][i-1] {
			t.Errorf("scores not descending: %v", scores[0])
		}
	}
}

func TestFlat_TieBrokenByLowestOrdinal(t *testing.T) {
	f := NewFlat(2)
	// Duplicate vectors score identically against any query.
	err := f.Add([][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ordinals, _, err := f.Search([][]float32{{1, 0}}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ordinals[0][0] != 1 || ordinals[0][1] != 2 {
		t.Errorf("tied ordinals = %v, want [1 2]", ordinals[0])
	}
}

func TestFlat_PadsWithNoHit(t *testing.T) {
	f := NewFlat(2)
	if err := f.Add([][]float32{{1, 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ordinals, _, err := f.Search([][]float32{{1, 0}}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if ordinals[0][0] != 0 {
		t.Errorf("rank 0 = %d, want 0", ordinals[0][0])
	}
	for i := 1; i < 4; i++ {
		if ordinals[0][i] != NoHit {
			t.Errorf("rank %d = %d, want NoHit", i, ordinals[0][i])
		}
	}
}

func TestFlat_AddDimensionMismatchIsAtomic(t *testing.T) {
	f := NewFlat(3)

	err := f.Add([][]float32{
		{1, 0, 0},
		{1, 0}, // wrong dimension
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if f.Size() != 0 {
		t.Errorf("Size = %d after failed batch, want 0", f.Size())
	}
}

func TestFlat_AddZeroVectorIsAtomic(t *testing.T) {
	f := NewFlat(2)

	err := f.Add([][]float32{
		{1, 1},
		{0, 0},
	})
	if !errors.Is(err, domain.ErrZeroVector) {
		t.Fatalf("err = %v, want ErrZeroVector", err)
	}
	if f.Size() != 0 {
		t.Errorf("Size = %d after failed batch, want 0", f.Size())
	}
}

func TestFlat_SearchQueryValidation(t *testing.T) {
	f := NewFlat(2)
	if err := f.Add([][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, _, err := f.Search([][]float32{{1, 0, 0}}, 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("wrong-dim query err = %v, want ErrDimensionMismatch", err)
	}
	if _, _, err := f.Search([][]float32{{0, 0}}, 1); !errors.Is(err, domain.ErrZeroVector) {
		t.Errorf("zero query err = %v, want ErrZeroVector", err)
	}
	if _, _, err := f.Search([][]float32{{1, 0}}, 0); err == nil {
		t.Error("topK=0 should error")
	}
}

func TestFlat_MultiQuery(t *testing.T) {
	f := NewFlat(2)
	if err := f.Add([][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ordinals, _, err := f.Search([][]float32{{1, 0}, {0, 1}}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ordinals) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(ordinals))
	}
	if ordinals[0][0] != 0 || ordinals[1][0] != 1 {
		t.Errorf("ordinals = %v, want [[0] [1]]", ordinals)
	}
}
