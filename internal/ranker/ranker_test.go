package ranker

import (
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain"
)

func textCand(id, text string, vectorScore float64) Candidate {
	return Candidate{ID: id, Modality: domain.ModalityText, VectorScore: vectorScore, Text: text}
}

func imageCand(id string, vectorScore float64) Candidate {
	return Candidate{ID: id, Modality: domain.ModalityImage, VectorScore: vectorScore}
}

func TestFuse_LexicalOverlapReordersVectorRanking(t *testing.T) {
	r := New(DefaultK1, DefaultB)

	// Vector search preferred c1, but only c2 mentions the query terms.
	candidates := []Candidate{
		textCand("c1", "the quarterly report covers revenue and expenses", 0.80),
		textCand("c2", "our refund policy allows returns within fourteen days", 0.78),
	}

	texts, _ := r.Fuse("refund policy", candidates, 2, 1)

	if len(texts) != 2 {
		t.Fatalf("got %d text results, want 2", len(texts))
	}
	if texts[0].ID != "c2" {
		t.Errorf("rank 0 = %s, want c2 (lexical match should win)", texts[0].ID)
	}
	if texts[0].LexicalScore <= 0 {
		t.Errorf("winner lexical score = %f, want > 0", texts[0].LexicalScore)
	}
	if texts[1].LexicalScore != 0 {
		t.Errorf("loser lexical score = %f, want 0", texts[1].LexicalScore)
	}
}

func TestFuse_CombinedIsVectorPlusLexical(t *testing.T) {
	r := New(DefaultK1, DefaultB)
	candidates := []Candidate{
		textCand("c1", "refund refund refund", 0.5),
	}

	texts, _ := r.Fuse("refund", candidates, 1, 0)

	got := texts[0]
	if want := got.VectorScore + got.LexicalScore; got.CombinedScore != want {
		t.Errorf("CombinedScore = %f, want %f", got.CombinedScore, want)
	}
}

func TestFuse_TiesPreserveVectorOrder(t *testing.T) {
	r := New(DefaultK1, DefaultB)

	// Identical texts and scores: stable sort must keep input order.
	candidates := []Candidate{
		textCand("first", "identical words", 0.5),
		textCand("second", "identical words", 0.5),
	}

	texts, _ := r.Fuse("unrelated query", candidates, 2, 0)

	if texts[0].ID != "first" || texts[1].ID != "second" {
		t.Errorf("tie order = [%s %s], want [first second]", texts[0].ID, texts[1].ID)
	}
}

func TestFuse_TextCappedToTopKBeforeFusion(t *testing.T) {
	r := New(DefaultK1, DefaultB)

	// c3 has the strongest lexical match but sits outside the top-2 vector
	// candidates, so it never enters the fusion pool.
	candidates := []Candidate{
		textCand("c1", "nothing relevant here", 0.9),
		textCand("c2", "still nothing relevant", 0.8),
		textCand("c3", "refund refund refund refund", 0.1),
	}

	texts, _ := r.Fuse("refund", candidates, 2, 0)

	if len(texts) != 2 {
		t.Fatalf("got %d text results, want 2", len(texts))
	}
	for _, res := range texts {
		if res.ID == "c3" {
			t.Error("c3 should have been cut before fusion")
		}
	}
}

func TestFuse_ImagesRankedByVectorAndCapped(t *testing.T) {
	r := New(DefaultK1, DefaultB)
	candidates := []Candidate{
		imageCand("i1", 0.4),
		textCand("c1", "refund policy details", 0.7),
		imageCand("i2", 0.9),
		imageCand("i3", 0.6),
	}

	texts, images := r.Fuse("refund", candidates, 3, 2)

	if len(texts) != 1 {
		t.Fatalf("got %d text results, want 1", len(texts))
	}
	if len(images) != 2 {
		t.Fatalf("got %d image results, want 2", len(images))
	}
	if images[0].ID != "i2" || images[1].ID != "i3" {
		t.Errorf("image order = [%s %s], want [i2 i3]", images[0].ID, images[1].ID)
	}
	if images[0].LexicalScore != 0 {
		t.Errorf("image lexical score = %f, want 0", images[0].LexicalScore)
	}
	if images[0].CombinedScore != images[0].VectorScore {
		t.Errorf("image combined = %f, want vector score %f",
			images[0].CombinedScore, images[0].VectorScore)
	}
}

func TestFuse_ZeroMaxImagesDropsAllImages(t *testing.T) {
	r := New(DefaultK1, DefaultB)
	candidates := []Candidate{
		imageCand("i1", 0.99),
		textCand("c1", "some text", 0.5),
	}

	_, images := r.Fuse("query", candidates, 3, 0)

	if len(images) != 0 {
		t.Errorf("got %d images, want 0", len(images))
	}
}

func TestFuse_EmptyCandidates(t *testing.T) {
	r := New(DefaultK1, DefaultB)

	texts, images := r.Fuse("query", nil, 3, 1)

	if len(texts) != 0 || len(images) != 0 {
		t.Errorf("got %d texts, %d images, want 0, 0", len(texts), len(images))
	}
}

func TestNew_DefaultsOnNonPositiveParams(t *testing.T) {
	r := New(0, -1)
	if r.k1 != DefaultK1 || r.b != DefaultB {
		t.Errorf("New(0, -1) = {k1: %f, b: %f}, want defaults", r.k1, r.b)
	}
}
