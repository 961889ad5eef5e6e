package index

import (
	"fmt"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Projection couples a Flat index with its identity map. Append is the only
// mutator, so ordinal i of the index and entry i of the map always describe
// the same embedding. Projections are built fresh on every rebuild and
// swapped in whole; they are never the source of truth.
type Projection struct {
	flat *Flat
	refs []domain.VectorRef
}

// NewProjection creates an empty projection of the given dimension.
func NewProjection(dim int) *Projection {
	return &Projection{flat: NewFlat(dim)}
}

// Append adds vectors and their refs as a single atomic step. On any error
// neither structure is modified.
func (p *Projection) Append(vectors [][]float32, refs []domain.VectorRef) error {
	if len(vectors) != len(refs) {
		return fmt.Errorf("vectors (%d) and refs (%d) must have equal length", len(vectors), len(refs))
	}
	if err := p.flat.Add(vectors); err != nil {
		return err
	}
	p.refs = append(p.refs, refs...)
	return nil
}

// Search delegates to the underlying index.
func (p *Projection) Search(queries [][]float32, topK int) ([][]int, [][]float32, error) {
	return p.flat.Search(queries, topK)
}

// Resolve maps an ordinal to its identity entry.
func (p *Projection) Resolve(ordinal int) (domain.VectorRef, bool) {
	if ordinal < 0 || ordinal >= len(p.refs) {
		return domain.VectorRef{}, false
	}
	return p.refs[ordinal], true
}

// Len returns the number of entries; always equal to Size.
func (p *Projection) Len() int { return len(p.refs) }

// Size returns the number of stored vectors.
func (p *Projection) Size() int { return p.flat.Size() }

// Dim returns the vector dimension.
func (p *Projection) Dim() int { return p.flat.Dim() }
