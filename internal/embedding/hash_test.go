package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i] * b[i])
	}
	return s
}

func TestHashEmbedder_deterministicUnitLength(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Fever, cough and fatigue")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "fever cough AND fatigue")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if math.Abs(dot(a, a)-1) > 1e-5 {
		t.Errorf("expected unit length, got %f", dot(a, a))
	}
	if math.Abs(dot(a, b)-1) > 1e-5 {
		t.Errorf("same words should give the same vector, similarity %f", dot(a, b))
	}
}

func TestHashEmbedder_overlapScoresHigher(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "flu symptoms fever")
	related, _ := e.Embed(ctx, "common flu symptoms include fever")
	unrelated, _ := e.Embed(ctx, "broken bone treatment")
	if dot(q, related) <= dot(q, unrelated) {
		t.Errorf("overlapping text should score higher: %f <= %f", dot(q, related), dot(q, unrelated))
	}
}

func TestHashEmbedder_textWithoutWords(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
	ctx := context.Background()
	for _, text := range []string{"", "  ,, ", "---", "•"} {
		v, err := e.Embed(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(dot(v, v)-1) > 1e-5 {
			t.Errorf("Embed(%q): expected unit length, got %f", text, dot(v, v))
		}
	}
	a, _ := e.Embed(ctx, " ,, ")
	b, _ := e.Embed(ctx, ",,")
	if math.Abs(dot(a, b)-1) > 1e-5 {
		t.Errorf("surrounding space should not change the vector, similarity %f", dot(a, b))
	}
}

func TestHashEmbedder_selfRetrievalWithoutWords(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()
	texts := []string{"---", "fever and cough", "***", "rest and fluids", "..."}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i], _ = e.Embed(ctx, text)
	}
	for i := range texts {
		best := -1
		bestScore := math.Inf(-1)
		for j := range texts {
			if s := dot(vecs[i], vecs[j]); s > bestScore {
				best, bestScore = j, s
			}
		}
		if best != i {
			t.Errorf("%q retrieved %q first", texts[i], texts[best])
		}
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	long := "a very long string that will overflow the int hash several times over and over"
	if HashString(long) < 0 {
		t.Error("hash should be non-negative")
	}
}

func TestHashEmbedder_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).Embed(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}
