package model

import (
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// StepInput is what a scorer sees at one decoding step.
type StepInput struct {
	// Source token ids, [n, srcLen].
	Source tensor.Int
	// Target holds every hypothesis generated so far including the begin
	// token, [n, t]. Stateful scorers usually only read the last column.
	Target tensor.Int
}

// Scorer is a sequence model that can be driven one token at a time.
type Scorer interface {
	// Encode computes the initial decoder state for a [batch, srcLen] source
	// batch. Every leaf of the returned state must have batch along its
	// leading axis. A stateless scorer returns an empty nest.Record.
	Encode(src tensor.Int) (nest.Node, error)
	// Decode scores the next token for every row of in.Target and returns
	// [n, vocab] logits together with the next state (leading axis n).
	// Stateless scorers are called with a nil state and may return nil.
	Decode(in StepInput, state nest.Node) (tensor.Float, nest.Node, error)
}

// Func adapts a stateless scoring function to Scorer.
type Func func(in StepInput) (tensor.Float, error)

func (f Func) Encode(tensor.Int) (nest.Node, error) {
	return nest.Record{}, nil
}

func (f Func) Decode(in StepInput, _ nest.Node) (tensor.Float, nest.Node, error) {
	logits, err := f(in)
	return logits, nil, err
}

// Vocab is implemented by scorers that know their output vocabulary size.
type Vocab interface {
	VocabSize() int
}
