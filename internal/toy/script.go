package toy

import (
	"math"

	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// Script is a stateless scorer that deterministically emits Tokens, one per
// step, followed by EOS forever. Every other token gets a -Inf logit.
type Script struct {
	Vocab  int
	Tokens []int32
	EOS    int32
}

func (s Script) VocabSize() int { return s.Vocab }

func (s Script) Encode(tensor.Int) (nest.Node, error) {
	return nest.Record{}, nil
}

func (s Script) Decode(in model.StepInput, _ nest.Node) (tensor.Float, nest.Node, error) {
	n, err := checkInput(in)
	if err != nil {
		return tensor.Float{}, nil, err
	}
	// The prefix includes the begin token, so its length minus one is the
	// number of tokens emitted so far.
	pos := in.Target.Dim(1) - 1
	next := s.EOS
	if pos < len(s.Tokens) {
		next = s.Tokens[pos]
	}
	out := tensor.Full(float32(math.Inf(-1)), n, s.Vocab)
	for r := range n {
		out.Row(r)[next] = 0
	}
	return out, nil, nil
}

// Fixed is a stateless scorer that returns the same logits for every
// hypothesis at every step.
type Fixed struct {
	Logits []float32
}

func (f Fixed) VocabSize() int { return len(f.Logits) }

func (f Fixed) Encode(tensor.Int) (nest.Node, error) {
	return nest.Record{}, nil
}

func (f Fixed) Decode(in model.StepInput, _ nest.Node) (tensor.Float, nest.Node, error) {
	n := in.Target.Dim(0)
	out := tensor.New[float32](n, len(f.Logits))
	for r := range n {
		copy(out.Row(r), f.Logits)
	}
	return out, nil, nil
}
