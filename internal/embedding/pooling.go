package embedding

// Pooling selects how an ONNX graph's output becomes one sentence embedding.
type Pooling string

const (
	// PoolingMean averages last_hidden_state [1, seq, dims] over attended tokens.
	PoolingMean Pooling = "mean"
	// PoolingNone reads an already pooled [1, dims] output.
	PoolingNone Pooling = "none"
)

// meanPool averages the token vectors of hidden (seq x dims, row-major) whose mask is set.
// With no attended token the result is the zero vector.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
