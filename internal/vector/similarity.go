package vector

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It returns 0 when lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type candidate struct {
	id       string
	vector   []float32
	metadata map[string]string
}

// rankTopK scores candidates (given in insertion order) against query and returns the best k.
// The sort is stable so equal scores keep insertion order.
func rankTopK(query []float32, candidates []candidate, k int) []*Match {
	if k <= 0 || len(candidates) == 0 {
		return []*Match{}
	}
	matches := make([]*Match, len(candidates))
	for i, c := range candidates {
		matches[i] = &Match{ID: c.id, Score: CosineSimilarity(query, c.vector), Metadata: copyMetadata(c.metadata)}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
