package logits

import (
	"fmt"
	"math"

	"github.com/samcharles93/beam/internal/tensor"
)

// LogSoftmax writes log(softmax(x)) into dst. dst and x may be the same
// slice. The maximum is subtracted before exponentiation and the partition
// sum is accumulated in float64. A row whose entries are all -Inf stays -Inf.
func LogSoftmax(dst, x []float32) {
	if len(dst) != len(x) {
		panic(fmt.Sprintf("logits: LogSoftmax length mismatch: dst %d, x %d", len(dst), len(x)))
	}
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for _, v := range x[1:] {
		if v > maxv {
			maxv = v
		}
	}
	if math.IsInf(float64(maxv), -1) {
		for i := range dst {
			dst[i] = maxv
		}
		return
	}
	var sum float64
	for _, v := range x {
		sum += math.Exp(float64(v - maxv))
	}
	logZ := float64(maxv) + math.Log(sum)
	for i, v := range x {
		dst[i] = float32(float64(v) - logZ)
	}
}

// LogSoftmaxRows applies LogSoftmax over the last axis of t and returns a
// new tensor of the same shape.
func LogSoftmaxRows(t tensor.Float) tensor.Float {
	out := tensor.New[float32](t.Shape...)
	n := t.Dim(-1)
	if n == 0 {
		return out
	}
	for off := 0; off < len(t.Data); off += n {
		LogSoftmax(out.Data[off:off+n], t.Data[off:off+n])
	}
	return out
}
