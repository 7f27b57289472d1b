package tensor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReshapeInfersDimension(t *testing.T) {
	x := FromData([]int32{1, 2, 3, 4, 5, 6}, 2, 3)
	y := x.Reshape(-1, 2)
	if diff := cmp.Diff([]int{3, 2}, y.Shape); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
	y.Data[0] = 9
	if x.Data[0] != 9 {
		t.Fatalf("reshape should share storage")
	}
}

func TestMergeSplitRoundTrip(t *testing.T) {
	x := New[float32](2, 3, 4)
	m := x.MergeFirstTwo()
	if diff := cmp.Diff([]int{6, 4}, m.Shape); diff != "" {
		t.Fatalf("merged shape (-want +got):\n%s", diff)
	}
	s := m.SplitFirst(2, 3)
	if diff := cmp.Diff(x.Shape, s.Shape); diff != "" {
		t.Fatalf("split shape (-want +got):\n%s", diff)
	}
}

func TestSplitFirstPanicsOnMismatch(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		if !strings.Contains(r.(string), "cannot split") {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	New[int32](5, 2).SplitFirst(2, 3)
}

func TestTile(t *testing.T) {
	x := FromData([]int32{1, 2, 3, 4}, 2, 2)
	got := Tile(x, 3)
	want := []int32{1, 2, 1, 2, 1, 2, 3, 4, 3, 4, 3, 4}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("tile data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 2}, got.Shape); diff != "" {
		t.Fatalf("tile shape (-want +got):\n%s", diff)
	}
}

func TestGather2D(t *testing.T) {
	// [2, 3, 2]
	params := FromData([]float32{
		0, 1, 10, 11, 20, 21,
		100, 101, 110, 111, 120, 121,
	}, 2, 3, 2)
	idx := FromData([]int32{2, 2, 0, 1, 0, 0}, 2, 3)
	got := Gather2D(params, idx)

	want := []float32{
		20, 21, 20, 21, 0, 1,
		110, 111, 100, 101, 100, 101,
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("gather data (-want +got):\n%s", diff)
	}

	got.Data[0] = -1
	if params.Data[4] != 20 {
		t.Fatalf("gather must not alias params")
	}
}

func TestGather2DPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Gather2D(New[int32](1, 2, 1), FromData([]int32{2}, 1, 1))
}

func TestConcat(t *testing.T) {
	a := FromData([]int32{1, 2, 3, 4}, 2, 1, 2)
	b := FromData([]int32{5, 6, 7, 8, 9, 10, 11, 12}, 2, 2, 2)

	got := Concat(1, a, b)
	want := []int32{1, 2, 5, 6, 7, 8, 3, 4, 9, 10, 11, 12}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("concat axis 1 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 2}, got.Shape); diff != "" {
		t.Fatalf("concat shape (-want +got):\n%s", diff)
	}

	last := Concat(-1, a, FromData([]int32{0, 0}, 2, 1, 1))
	if diff := cmp.Diff([]int32{1, 2, 0, 3, 4, 0}, last.Data); diff != "" {
		t.Fatalf("concat last axis (-want +got):\n%s", diff)
	}
}

func TestAtAndSet(t *testing.T) {
	x := New[bool](2, 3)
	x.Set(true, 1, 2)
	if !x.At(1, 2) || x.Data[5] != true {
		t.Fatalf("Set/At disagree with row-major layout")
	}
	if x.Row(1)[2] != true {
		t.Fatalf("Row view disagrees with At")
	}
}

func TestVecMat(t *testing.T) {
	w := FromData([]float32{
		1, 2, 3,
		4, 5, 6,
	}, 2, 3)
	dst := make([]float32, 3)
	VecMat(dst, []float32{1, 0.5}, w, []float32{0, 0, 1})
	if diff := cmp.Diff([]float32{3, 4.5, 7}, dst); diff != "" {
		t.Fatalf("vecmat (-want +got):\n%s", diff)
	}
	VecMat(dst, []float32{0, 1}, w, nil)
	if diff := cmp.Diff([]float32{4, 5, 6}, dst); diff != "" {
		t.Fatalf("vecmat without bias (-want +got):\n%s", diff)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on shape mismatch")
		}
	}()
	VecMat(make([]float32, 2), []float32{1, 1}, w, nil)
}

func TestVectorOps(t *testing.T) {
	x := []float32{1, 2, 3}
	Add(x, []float32{1, 1, 1})
	Scale(x, 0.5)
	if diff := cmp.Diff([]float32{1, 1.5, 2}, x); diff != "" {
		t.Fatalf("add/scale (-want +got):\n%s", diff)
	}
	y := []float32{0, 100, -100}
	Tanh(y)
	if y[0] != 0 || y[1] != 1 || y[2] != -1 {
		t.Fatalf("tanh = %v", y)
	}
}
