// Package ensemble combines several scorers into a single step function
// whose output is the uniform average of the members' log-probabilities.
package ensemble

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/beam/internal/logits"
	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

var (
	// ErrEmptyEnsemble is returned when an ensemble has no members.
	ErrEmptyEnsemble = errors.New("ensemble: no models")
	// ErrInvalidModel is returned when a member is not a usable scorer.
	ErrInvalidModel = errors.New("ensemble: invalid model")
)

// Adapter wraps a fixed list of scorers behind one step function.
// It holds no per-call state and is safe for concurrent use as long as the
// wrapped scorers are.
type Adapter struct {
	models []model.Scorer
}

// New validates models and returns an Adapter over them.
func New(models []model.Scorer) (*Adapter, error) {
	if len(models) == 0 {
		return nil, ErrEmptyEnsemble
	}
	for i, m := range models {
		if m == nil {
			return nil, fmt.Errorf("%w: member %d is nil", ErrInvalidModel, i)
		}
	}
	return &Adapter{models: append([]model.Scorer(nil), models...)}, nil
}

// Len returns the number of members.
func (a *Adapter) Len() int { return len(a.models) }

// Encode runs every member's encoder over src, returning one state per
// member in member order.
func (a *Adapter) Encode(src tensor.Int) ([]nest.Node, error) {
	states := make([]nest.Node, len(a.models))
	for i, m := range a.models {
		s, err := m.Encode(src)
		if err != nil {
			return nil, fmt.Errorf("encode model %d: %w", i, err)
		}
		if s == nil {
			s = nest.Record{}
		}
		states[i] = s
	}
	return states, nil
}

// Step scores one decoding step. states[i] belongs to member i. It returns
// the [n, vocab] mean log-probability and the updated per-member states.
//
// Members whose state is empty are treated as stateless: Decode receives a
// nil state and their slot in the returned list stays an empty record.
// Members are evaluated concurrently; results are collected by member index
// and averaged in member order, so the output does not depend on scheduling.
func (a *Adapter) Step(in model.StepInput, states []nest.Node) (tensor.Float, []nest.Node, error) {
	if len(states) != len(a.models) {
		return tensor.Float{}, nil, fmt.Errorf("ensemble: %d states for %d models", len(states), len(a.models))
	}

	logProbs := make([]tensor.Float, len(a.models))
	next := make([]nest.Node, len(a.models))

	var g errgroup.Group
	for i, m := range a.models {
		g.Go(func() error {
			lp, s, err := decodeOne(m, in, states[i])
			if err != nil {
				return fmt.Errorf("decode model %d: %w", i, err)
			}
			logProbs[i] = lp
			next[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tensor.Float{}, nil, err
	}

	n := in.Target.Dim(0)
	vocab := logProbs[0].Dim(1)
	for i, lp := range logProbs {
		if lp.Rank() != 2 || lp.Dim(0) != n || lp.Dim(1) != vocab {
			return tensor.Float{}, nil, fmt.Errorf("ensemble: model %d returned logits of shape %v, want [%d %d]", i, lp.Shape, n, vocab)
		}
	}
	return mean(logProbs), next, nil
}

func decodeOne(m model.Scorer, in model.StepInput, state nest.Node) (lp tensor.Float, next nest.Node, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Decode: %v", rec)
		}
	}()

	stateless := nest.IsEmpty(state)
	if stateless {
		state = nil
	}
	raw, next, err := m.Decode(in, state)
	if err != nil {
		return tensor.Float{}, nil, err
	}
	if raw.Rank() != 2 {
		return tensor.Float{}, nil, fmt.Errorf("logits must be [n, vocab], got shape %v", raw.Shape)
	}
	if stateless || next == nil {
		next = nest.Record{}
	}
	return logits.LogSoftmaxRows(raw), next, nil
}

// mean averages equally shaped tensors element-wise, summing in member
// order.
func mean(ts []tensor.Float) tensor.Float {
	out := tensor.New[float32](ts[0].Shape...)
	for _, t := range ts {
		for i, v := range t.Data {
			out.Data[i] += v
		}
	}
	n := float32(len(ts))
	for i := range out.Data {
		out.Data[i] /= n
	}
	return out
}
