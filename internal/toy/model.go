// Package toy provides small deterministic scorers used for testing and for
// running the decoder end to end without a trained model.
package toy

import (
	"fmt"

	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// BagLM is a stateless scorer. For each hypothesis it averages the embeddings
// of the source tokens, adds the embedding of the last target token and
// projects the result back onto the vocabulary.
type BagLM struct {
	Vocab  int
	Hidden int

	SrcEmb tensor.Float // [Vocab, Hidden]
	TgtEmb tensor.Float // [Vocab, Hidden]
	W      tensor.Float // [Hidden, Vocab]
	Bias   []float32    // [Vocab]
}

// NewBagLM builds a model with weights derived from seed.
func NewBagLM(vocab, hidden int, seed int64) *BagLM {
	m := &BagLM{
		Vocab:  vocab,
		Hidden: hidden,
		SrcEmb: tensor.New[float32](vocab, hidden),
		TgtEmb: tensor.New[float32](vocab, hidden),
		W:      tensor.New[float32](hidden, vocab),
		Bias:   make([]float32, vocab),
	}
	tensor.FillRand(m.SrcEmb, seed+11, 2)
	tensor.FillRand(m.TgtEmb, seed+17, 2)
	tensor.FillRand(m.W, seed+23, 2)
	return m
}

func (m *BagLM) VocabSize() int { return m.Vocab }

func (m *BagLM) Encode(tensor.Int) (nest.Node, error) {
	return nest.Record{}, nil
}

func (m *BagLM) Decode(in model.StepInput, _ nest.Node) (tensor.Float, nest.Node, error) {
	n, err := checkInput(in)
	if err != nil {
		return tensor.Float{}, nil, err
	}
	out := tensor.New[float32](n, m.Vocab)
	h := make([]float32, m.Hidden)
	for r := range n {
		bagOf(h, m.SrcEmb, in.Source.Row(r), m.Vocab)
		last := in.Target.Row(r)[in.Target.Dim(1)-1]
		tensor.Add(h, m.TgtEmb.Row(wrap(int(last), m.Vocab)))
		tensor.VecMat(out.Row(r), h, m.W, m.Bias)
	}
	return out, nil, nil
}

// RecurrentLM is a stateful scorer with a tanh recurrence. Its state is a
// record {"hidden": [n, Hidden], "cache": {"steps": [n, 1]}} so that callers
// exercise nested state handling.
type RecurrentLM struct {
	Vocab  int
	Hidden int

	SrcEmb tensor.Float // [Vocab, Hidden]
	TgtEmb tensor.Float // [Vocab, Hidden]
	W      tensor.Float // [Hidden, Vocab]
	Bias   []float32    // [Vocab]
	Decay  float32
}

// NewRecurrentLM builds a model with weights derived from seed.
func NewRecurrentLM(vocab, hidden int, seed int64) *RecurrentLM {
	m := &RecurrentLM{
		Vocab:  vocab,
		Hidden: hidden,
		SrcEmb: tensor.New[float32](vocab, hidden),
		TgtEmb: tensor.New[float32](vocab, hidden),
		W:      tensor.New[float32](hidden, vocab),
		Bias:   make([]float32, vocab),
		Decay:  0.5,
	}
	tensor.FillRand(m.SrcEmb, seed+31, 2)
	tensor.FillRand(m.TgtEmb, seed+37, 2)
	tensor.FillRand(m.W, seed+41, 2)
	return m
}

func (m *RecurrentLM) VocabSize() int { return m.Vocab }

func (m *RecurrentLM) Encode(src tensor.Int) (nest.Node, error) {
	if src.Rank() != 2 {
		return nil, fmt.Errorf("toy: source must be [batch, length], got shape %v", src.Shape)
	}
	b := src.Dim(0)
	hidden := tensor.New[float32](b, m.Hidden)
	for r := range b {
		h := hidden.Row(r)
		bagOf(h, m.SrcEmb, src.Row(r), m.Vocab)
		tensor.Tanh(h)
	}
	return nest.Record{
		"hidden": nest.NewLeaf(hidden),
		"cache": nest.Record{
			"steps": nest.NewLeaf(tensor.New[float32](b, 1)),
		},
	}, nil
}

func (m *RecurrentLM) Decode(in model.StepInput, state nest.Node) (tensor.Float, nest.Node, error) {
	n, err := checkInput(in)
	if err != nil {
		return tensor.Float{}, nil, err
	}
	prev, ok := nest.Get(state, "hidden")
	if !ok {
		return tensor.Float{}, nil, fmt.Errorf("toy: recurrent state has no hidden leaf")
	}
	steps, ok := nest.Get(state, "cache", "steps")
	if !ok {
		return tensor.Float{}, nil, fmt.Errorf("toy: recurrent state has no cache/steps leaf")
	}
	if prev.Rank() != 2 || prev.Dim(0) != n || prev.Dim(1) != m.Hidden {
		return tensor.Float{}, nil, fmt.Errorf("toy: hidden state shape %v, want [%d %d]", prev.Shape, n, m.Hidden)
	}

	out := tensor.New[float32](n, m.Vocab)
	hidden := tensor.New[float32](n, m.Hidden)
	nextSteps := tensor.New[float32](n, 1)
	for r := range n {
		h := hidden.Row(r)
		last := in.Target.Row(r)[in.Target.Dim(1)-1]
		emb := m.TgtEmb.Row(wrap(int(last), m.Vocab))
		p := prev.Row(r)
		for i := range h {
			h[i] = m.Decay*p[i] + emb[i]
		}
		tensor.Tanh(h)
		tensor.VecMat(out.Row(r), h, m.W, m.Bias)
		nextSteps.Data[r] = steps.Data[r] + 1
	}
	next := nest.Record{
		"hidden": nest.NewLeaf(hidden),
		"cache": nest.Record{
			"steps": nest.NewLeaf(nextSteps),
		},
	}
	return out, next, nil
}

func checkInput(in model.StepInput) (int, error) {
	if in.Source.Rank() != 2 || in.Target.Rank() != 2 {
		return 0, fmt.Errorf("toy: want rank-2 source and target, got %v and %v", in.Source.Shape, in.Target.Shape)
	}
	if in.Source.Dim(0) != in.Target.Dim(0) {
		return 0, fmt.Errorf("toy: source has %d rows, target has %d", in.Source.Dim(0), in.Target.Dim(0))
	}
	if in.Target.Dim(1) == 0 {
		return 0, fmt.Errorf("toy: empty target prefix")
	}
	return in.Target.Dim(0), nil
}

// wrap reduces a token id into [0, vocab).
func wrap(tok, vocab int) int {
	tok %= vocab
	if tok < 0 {
		tok += vocab
	}
	return tok
}

// bagOf writes the mean embedding of toks into h.
func bagOf(h []float32, emb tensor.Float, toks []int32, vocab int) {
	clear(h)
	if len(toks) == 0 {
		return
	}
	for _, tok := range toks {
		tensor.Add(h, emb.Row(wrap(int(tok), vocab)))
	}
	tensor.Scale(h, 1/float32(len(toks)))
}
