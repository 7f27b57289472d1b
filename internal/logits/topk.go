package logits

import (
	"fmt"

	"github.com/samcharles93/beam/internal/tensor"
)

// TopK returns the k largest values of row and their indices, ordered from
// largest to smallest. Equal values keep their original order, so the lower
// index wins a tie and the result is a pure function of the input. NaN never
// outranks a number.
//
// This is an O(n*k) insertion selection, suitable for the small k used by
// beam search.
func TopK(row []float32, k int) ([]float32, []int32) {
	vals := make([]float32, k)
	idx := make([]int32, k)
	topKInto(vals, idx, row)
	return vals, idx
}

// topKInto fills vals and idx (both of length k <= len(row)) with the
// selection described on TopK.
func topKInto(vals []float32, idx []int32, row []float32) {
	k := len(vals)
	if k > len(row) {
		panic(fmt.Sprintf("logits: top-%d of %d values", k, len(row)))
	}
	n := 0
	for i, v := range row {
		pos := n
		for pos > 0 && less(vals[pos-1], v) {
			pos--
		}
		if pos >= k {
			continue
		}
		end := min(n, k-1)
		copy(vals[pos+1:end+1], vals[pos:end])
		copy(idx[pos+1:end+1], idx[pos:end])
		vals[pos] = v
		idx[pos] = int32(i)
		if n < k {
			n++
		}
	}
}

// less orders NaN below every number.
func less(a, b float32) bool {
	if b != b {
		return false
	}
	if a != a {
		return true
	}
	return a < b
}

// BatchedTopK selects the top k entries of every row of a [b, n] tensor.
// Rows are independent and processed identically; see TopK for the order
// and tie-break rule.
func BatchedTopK(t tensor.Float, k int) (tensor.Float, tensor.Int) {
	if t.Rank() != 2 {
		panic(fmt.Sprintf("logits: BatchedTopK needs a [batch, n] tensor, got shape %v", t.Shape))
	}
	b := t.Dim(0)
	vals := tensor.New[float32](b, k)
	idx := tensor.New[int32](b, k)
	for i := range b {
		topKInto(vals.Row(i), idx.Row(i), t.Row(i))
	}
	return vals, idx
}

// Argmax returns the index of the largest value, preferring the lowest index
// on ties. It panics on an empty slice.
func Argmax(x []float32) int {
	if len(x) == 0 {
		panic("logits: argmax of empty slice")
	}
	best := 0
	for i := 1; i < len(x); i++ {
		if less(x[best], x[i]) {
			best = i
		}
	}
	return best
}
