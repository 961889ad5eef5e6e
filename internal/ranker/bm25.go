package ranker

import (
	"math"
	"regexp"
	"strings"
)

// Default BM25 free parameters (Robertson et al.).
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lower-cases the input and extracts word tokens. The same tokenizer
// is applied to queries and passages so term overlap is symmetric.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// bm25Scorer scores a query against a small candidate corpus. Corpus
// statistics (document frequency, average length) are computed over the
// candidate set only, not the full collection.
type bm25Scorer struct {
	k1     float64
	b      float64
	docs   [][]string
	df     map[string]int
	avgLen float64
}

func newBM25(texts []string, k1, b float64) *bm25Scorer {
	s := &bm25Scorer{
		k1:   k1,
		b:    b,
		docs: make([][]string, len(texts)),
		df:   make(map[string]int),
	}

	var totalLen int
	for i, text := range texts {
		tokens := Tokenize(text)
		s.docs[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			s.df[tok]++
		}
	}
	if len(texts) > 0 {
		s.avgLen = float64(totalLen) / float64(len(texts))
	}
	return s
}

// score computes the BM25 score of queryTokens against candidate doc i.
func (s *bm25Scorer) score(queryTokens []string, i int) float64 {
	doc := s.docs[i]
	if len(doc) == 0 || s.avgLen == 0 {
		return 0
	}

	tf := make(map[string]int, len(doc))
	for _, tok := range doc {
		tf[tok]++
	}

	n := float64(len(s.docs))
	lenNorm := 1 - s.b + s.b*float64(len(doc))/s.avgLen

	var total float64
	for _, q := range queryTokens {
		f := float64(tf[q])
		if f == 0 {
			continue
		}
		idf := math.Log(1 + (n-float64(s.df[q])+0.5)/(float64(s.df[q])+0.5))
		total += idf * f * (s.k1 + 1) / (f + s.k1*lenNorm)
	}
	return total
}
