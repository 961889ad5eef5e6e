// Package ranker fuses vector-similarity scores with lexical relevance
// computed over the retrieved candidate set. Restricting lexical scoring to
// the candidates is a re-ranking step, not a second retrieval stage: it trades
// lexical recall for speed.
package ranker

import (
	"sort"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Candidate is one vector-search hit with its resolved record.
type Candidate struct {
	ID          string
	Modality    domain.Modality
	VectorScore float64
	Text        string // empty for image candidates
	PageNumber  int
	DocumentID  string
}

// Result is a fused, ranked hit. For image candidates LexicalScore is zero and
// CombinedScore equals VectorScore.
type Result struct {
	Candidate
	LexicalScore  float64
	CombinedScore float64
}

// Ranker fuses vector and BM25 scores.
type Ranker struct {
	k1 float64
	b  float64
}

// New creates a Ranker. Non-positive parameters fall back to the defaults.
func New(k1, b float64) *Ranker {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	return &Ranker{k1: k1, b: b}
}

// Fuse ranks the candidate set for the query. Text candidates are capped to
// topK before fusion and scored with BM25 over the candidate texts; combined
// score is the unweighted sum of the vector and lexical scores, sorted
// descending with a stable sort so ties preserve vector-search order. Image
// candidates carry no text, are ranked purely by vector score, and at most
// maxImages of them are returned.
func (r *Ranker) Fuse(query string, candidates []Candidate, topK, maxImages int) (texts, images []Result) {
	var textCands, imageCands []Candidate
	for _, c := range candidates {
		if c.Modality == domain.ModalityImage {
			imageCands = append(imageCands, c)
		} else {
			textCands = append(textCands, c)
		}
	}

	if topK > 0 && len(textCands) > topK {
		textCands = textCands[:topK]
	}

	passages := make([]string, len(textCands))
	for i, c := range textCands {
		passages[i] = c.Text
	}
	scorer := newBM25(passages, r.k1, r.b)
	queryTokens := Tokenize(query)

	texts = make([]Result, len(textCands))
	for i, c := range textCands {
		lex := scorer.score(queryTokens, i)
		texts[i] = Result{
			Candidate:     c,
			LexicalScore:  lex,
			CombinedScore: c.VectorScore + lex,
		}
	}

	sort.SliceStable(texts, func(a, b int) bool {
		return texts[a].CombinedScore > texts[b].CombinedScore
	})

	sort.SliceStable(imageCands, func(a, b int) bool {
		return imageCands[a].VectorScore > imageCands[b].VectorScore
	})
	if maxImages >= 0 && len(imageCands) > maxImages {
		imageCands = imageCands[:maxImages]
	}
	images = make([]Result, len(imageCands))
	for i, c := range imageCands {
		images[i] = Result{Candidate: c, CombinedScore: c.VectorScore}
	}

	return texts, images
}
