package tensor

import (
	"fmt"
	"slices"
)

// Elem is the set of element types a Tensor can hold.
type Elem interface {
	~int32 | ~float32 | ~bool
}

// Tensor is a dense row-major array of elements with an explicit shape.
//
// The zero value is an empty rank-0 tensor with no data. Shape-only
// operations (Reshape, MergeFirstTwo, SplitFirst, ExpandDims) share Data with
// the receiver; every other operation returns freshly allocated storage, so a
// tensor produced by Gather2D, Tile or Concat never aliases its inputs.
type Tensor[T Elem] struct {
	Shape []int
	Data  []T
}

type (
	// Float holds scores, log-probabilities and model state.
	Float = Tensor[float32]
	// Int holds token ids and gather indices.
	Int = Tensor[int32]
	// Bool holds per-slot flags.
	Bool = Tensor[bool]
)

// New allocates a zeroed tensor with the given shape.
func New[T Elem](shape ...int) Tensor[T] {
	return Tensor[T]{
		Shape: slices.Clone(shape),
		Data:  make([]T, numElements(shape)),
	}
}

// FromData wraps data in a tensor of the given shape. It panics when the
// data length does not match the shape.
func FromData[T Elem](data []T, shape ...int) Tensor[T] {
	if n := numElements(shape); n != len(data) {
		panic(fmt.Sprintf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, n))
	}
	return Tensor[T]{Shape: slices.Clone(shape), Data: data}
}

// Full allocates a tensor of the given shape with every element set to v.
func Full[T Elem](v T, shape ...int) Tensor[T] {
	t := New[T](shape...)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("tensor: negative dimension in shape %v", shape))
		}
		n *= d
	}
	return n
}

// Rank returns the number of axes.
func (t Tensor[T]) Rank() int { return len(t.Shape) }

// Size returns the number of elements.
func (t Tensor[T]) Size() int { return len(t.Data) }

// Dim returns the size of axis i. Negative axes count from the end.
func (t Tensor[T]) Dim(i int) int {
	if i < 0 {
		i += len(t.Shape)
	}
	return t.Shape[i]
}

// RowSize is the number of elements under one index of the leading axis.
func (t Tensor[T]) RowSize() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return numElements(t.Shape[1:])
}

// Row returns a view of the i-th entry along the leading axis.
func (t Tensor[T]) Row(i int) []T {
	n := t.RowSize()
	return t.Data[i*n : (i+1)*n : (i+1)*n]
}

// Clone returns a deep copy.
func (t Tensor[T]) Clone() Tensor[T] {
	return Tensor[T]{Shape: slices.Clone(t.Shape), Data: slices.Clone(t.Data)}
}

// At returns the element at the given index.
func (t Tensor[T]) At(idx ...int) T {
	return t.Data[t.offset(idx)]
}

// Set stores v at the given index.
func (t Tensor[T]) Set(v T, idx ...int) {
	t.Data[t.offset(idx)] = v
}

func (t Tensor[T]) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: index %v has rank %d, tensor has shape %v", idx, len(idx), t.Shape))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.Shape))
		}
		off = off*t.Shape[i] + x
	}
	return off
}

// Reshape returns a tensor sharing the receiver's data with a new shape.
// At most one dimension may be -1, in which case it is inferred.
func (t Tensor[T]) Reshape(shape ...int) Tensor[T] {
	shape = slices.Clone(shape)
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("tensor: reshape %v has more than one inferred dimension", shape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || len(t.Data)%known != 0 {
			panic(fmt.Sprintf("tensor: cannot reshape %v into %v", t.Shape, shape))
		}
		shape[infer] = len(t.Data) / known
	}
	if numElements(shape) != len(t.Data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v into %v", t.Shape, shape))
	}
	return Tensor[T]{Shape: shape, Data: t.Data}
}

// MergeFirstTwo folds [a, b, ...] into [a*b, ...].
func (t Tensor[T]) MergeFirstTwo() Tensor[T] {
	if len(t.Shape) < 2 {
		panic(fmt.Sprintf("tensor: MergeFirstTwo needs rank >= 2, got shape %v", t.Shape))
	}
	shape := append([]int{t.Shape[0] * t.Shape[1]}, t.Shape[2:]...)
	return Tensor[T]{Shape: shape, Data: t.Data}
}

// SplitFirst unfolds [d0*d1, ...] into [d0, d1, ...].
func (t Tensor[T]) SplitFirst(d0, d1 int) Tensor[T] {
	if len(t.Shape) < 1 || t.Shape[0] != d0*d1 {
		panic(fmt.Sprintf("tensor: cannot split leading axis of %v into [%d, %d]", t.Shape, d0, d1))
	}
	shape := append([]int{d0, d1}, t.Shape[1:]...)
	return Tensor[T]{Shape: shape, Data: t.Data}
}

// ExpandDims inserts a unit axis at the given position.
func (t Tensor[T]) ExpandDims(axis int) Tensor[T] {
	if axis < 0 {
		axis += len(t.Shape) + 1
	}
	shape := make([]int, 0, len(t.Shape)+1)
	shape = append(shape, t.Shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.Shape[axis:]...)
	return Tensor[T]{Shape: shape, Data: t.Data}
}
