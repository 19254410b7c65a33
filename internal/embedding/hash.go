package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/medrag/pkg/utils"
)

// HashEmbedder is a deterministic, dependency-free embedder. Each lowercased word is
// hashed into a signed bucket, so texts sharing words have positive cosine similarity.
// It backs the "hash" provider and tests.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder producing unit-length vectors of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the feature-hashed embedding of text. Text without letters or digits is
// hashed whole (trimmed) into a single bucket, so every text embeds to a unit vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := hashWords(text)
	if len(words) == 0 {
		words = []string{strings.TrimSpace(text)}
	}
	for _, word := range words {
		h := HashString(word)
		sign := float32(1)
		if (h/e.dimensions)%2 == 1 {
			sign = -1
		}
		emb[h%e.dimensions] += sign
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}

func hashWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		// -MinInt overflows back to MinInt
		h = 0
	}
	return h
}
