package tensor

import (
	"fmt"
	"math"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Scale multiplies x by s in place.
func Scale(x []float32, s float32) {
	for i := range x {
		x[i] *= s
	}
}

// Tanh applies tanh to x in place.
func Tanh(x []float32) {
	for i, v := range x {
		x[i] = float32(math.Tanh(float64(v)))
	}
}

// VecMat computes dst = x * w + bias for a row vector x and a [len(x),
// len(dst)] matrix w. A nil bias is treated as zero.
func VecMat(dst, x []float32, w Float, bias []float32) {
	if w.Rank() != 2 || w.Dim(0) != len(x) || w.Dim(1) != len(dst) {
		panic(fmt.Sprintf("tensor: vecmat shape mismatch: x %d, w %v, dst %d", len(x), w.Shape, len(dst)))
	}
	if bias != nil {
		copy(dst, bias)
	} else {
		clear(dst)
	}
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		row := w.Row(i)
		for j := range dst {
			dst[j] += xi * row[j]
		}
	}
}
