package ensemble

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/samcharles93/beam/internal/logits"
	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
	"github.com/samcharles93/beam/internal/toy"
)

func stepInput(n int) model.StepInput {
	src := tensor.New[int32](n, 2)
	tgt := tensor.New[int32](n, 1)
	return model.StepInput{Source: src, Target: tgt}
}

func TestNewRejectsEmptyEnsemble(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyEnsemble) {
		t.Fatalf("expected ErrEmptyEnsemble, got %v", err)
	}
}

func TestNewRejectsNilMember(t *testing.T) {
	_, err := New([]model.Scorer{toy.Fixed{Logits: []float32{0, 1}}, nil})
	if !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

// Two models preferring disjoint tokens: the ensemble output must be the
// arithmetic mean of the members' log-probabilities at every position.
func TestStepAveragesLogProbabilities(t *testing.T) {
	a := toy.Fixed{Logits: []float32{4, 0, 0, -1}}
	b := toy.Fixed{Logits: []float32{0, 0, 5, 2}}
	ens, err := New([]model.Scorer{a, b})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	states, err := ens.Encode(tensor.New[int32](3, 2))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, next, err := ens.Step(stepInput(3), states)
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	la := make([]float32, 4)
	lb := make([]float32, 4)
	logits.LogSoftmax(la, a.Logits)
	logits.LogSoftmax(lb, b.Logits)
	for r := range 3 {
		for j := range 4 {
			want := (la[j] + lb[j]) / 2
			if math.Abs(float64(got.At(r, j)-want)) > 1e-6 {
				t.Fatalf("row %d token %d: got %f, want %f", r, j, got.At(r, j), want)
			}
		}
	}
	for i, s := range next {
		if !nest.IsEmpty(s) {
			t.Fatalf("stateless member %d returned state %v", i, s)
		}
	}
}

func TestStepCarriesStatefulMembers(t *testing.T) {
	rec := toy.NewRecurrentLM(5, 3, 7)
	bag := toy.NewBagLM(5, 3, 7)
	ens, err := New([]model.Scorer{rec, bag})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	src := tensor.FromData([]int32{1, 2, 3, 4}, 2, 2)
	states, err := ens.Encode(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	in := model.StepInput{Source: src, Target: tensor.New[int32](2, 1)}
	_, next, err := ens.Step(in, states)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if nest.IsEmpty(next[0]) {
		t.Fatalf("recurrent member lost its state")
	}
	if !nest.IsEmpty(next[1]) {
		t.Fatalf("stateless member should keep an empty placeholder")
	}
}

type failingScorer struct{ panics bool }

func (failingScorer) Encode(tensor.Int) (nest.Node, error) { return nest.Record{}, nil }

func (f failingScorer) Decode(model.StepInput, nest.Node) (tensor.Float, nest.Node, error) {
	if f.panics {
		panic("boom")
	}
	return tensor.Float{}, nil, errors.New("forced decode failure")
}

func TestStepPropagatesMemberErrors(t *testing.T) {
	cases := []struct {
		name string
		m    failingScorer
		want string
	}{
		{name: "error", m: failingScorer{}, want: "forced decode failure"},
		{name: "panic", m: failingScorer{panics: true}, want: "panic in Decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ens, err := New([]model.Scorer{toy.Fixed{Logits: []float32{0, 0}}, tc.m})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			_, _, err = ens.Step(stepInput(1), []nest.Node{nest.Record{}, nest.Record{}})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) || !strings.Contains(err.Error(), "model 1") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStepRejectsVocabMismatch(t *testing.T) {
	ens, err := New([]model.Scorer{
		toy.Fixed{Logits: []float32{0, 0}},
		toy.Fixed{Logits: []float32{0, 0, 0}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, _, err = ens.Step(stepInput(1), []nest.Node{nest.Record{}, nest.Record{}})
	if err == nil || !strings.Contains(err.Error(), "model 1") {
		t.Fatalf("expected shape error for model 1, got %v", err)
	}
}
