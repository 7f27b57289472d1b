package tensor

import (
	"fmt"
	"slices"
)

// Tile repeats every entry of the leading axis n times, turning [b, ...]
// into [b, n, ...]. Row j of the copy at batch i equals row i of t.
func Tile[T Elem](t Tensor[T], n int) Tensor[T] {
	if len(t.Shape) == 0 {
		panic("tensor: Tile needs rank >= 1")
	}
	b := t.Shape[0]
	row := t.RowSize()
	shape := append([]int{b, n}, t.Shape[1:]...)
	out := New[T](shape...)
	for i := range b {
		src := t.Row(i)
		for j := range n {
			off := (i*n + j) * row
			copy(out.Data[off:off+row], src)
		}
	}
	return out
}

// Gather2D selects entries along the second axis independently for each
// batch element: out[i, j, ...] = params[i, idx[i, j], ...].
//
// params has shape [b, m, ...] and idx has shape [b, k]; the result has shape
// [b, k, ...] and never shares storage with params. An index outside [0, m)
// panics.
func Gather2D[T Elem](params Tensor[T], idx Int) Tensor[T] {
	if len(params.Shape) < 2 || len(idx.Shape) != 2 || idx.Shape[0] != params.Shape[0] {
		panic(fmt.Sprintf("tensor: Gather2D shape mismatch: params %v, indices %v", params.Shape, idx.Shape))
	}
	b, m, k := params.Shape[0], params.Shape[1], idx.Shape[1]
	inner := numElements(params.Shape[2:])
	shape := append([]int{b, k}, params.Shape[2:]...)
	out := New[T](shape...)
	for i := range b {
		for j := range k {
			src := int(idx.Data[i*k+j])
			if src < 0 || src >= m {
				panic(fmt.Sprintf("tensor: Gather2D index %d out of range [0, %d)", src, m))
			}
			from := (i*m + src) * inner
			to := (i*k + j) * inner
			copy(out.Data[to:to+inner], params.Data[from:from+inner])
		}
	}
	return out
}

// Concat joins tensors along axis. All other dimensions must agree.
func Concat[T Elem](axis int, ts ...Tensor[T]) Tensor[T] {
	if len(ts) == 0 {
		panic("tensor: Concat of nothing")
	}
	rank := len(ts[0].Shape)
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		panic(fmt.Sprintf("tensor: Concat axis %d out of range for rank %d", axis, rank))
	}
	shape := slices.Clone(ts[0].Shape)
	shape[axis] = 0
	for _, t := range ts {
		if len(t.Shape) != rank {
			panic(fmt.Sprintf("tensor: Concat rank mismatch: %v vs %v", ts[0].Shape, t.Shape))
		}
		for d := range rank {
			if d != axis && t.Shape[d] != ts[0].Shape[d] {
				panic(fmt.Sprintf("tensor: Concat shape mismatch on axis %d: %v vs %v", d, ts[0].Shape, t.Shape))
			}
		}
		shape[axis] += t.Shape[axis]
	}

	outer := numElements(shape[:axis])
	out := Tensor[T]{Shape: shape, Data: make([]T, 0, numElements(shape))}
	for o := range outer {
		for _, t := range ts {
			chunk := numElements(t.Shape[axis:])
			out.Data = append(out.Data, t.Data[o*chunk:(o+1)*chunk]...)
		}
	}
	return out
}
