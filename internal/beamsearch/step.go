package beamsearch

import (
	"fmt"

	"github.com/samcharles93/beam/internal/logits"
	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// Decoder is the step function driven by Search. *ensemble.Adapter
// implements it.
type Decoder interface {
	// Encode returns one state tree per model for a [batch, srcLen] source.
	Encode(src tensor.Int) ([]nest.Node, error)
	// Step returns [n, vocab] log-probabilities for the next token of each
	// of the n target prefixes, and the updated per-model states.
	Step(in model.StepInput, states []nest.Node) (tensor.Float, []nest.Node, error)
}

// step grows every hypothesis in s by one token. t is the zero-based step
// number and src is the source already tiled to [batch*beam, srcLen].
func step(t int, dec Decoder, src tensor.Int, s State, cfg Config) (State, error) {
	b, k := s.Batch(), s.Beam()

	flatStates := nest.MapAll(s.Alive.States, tensor.Tensor[float32].MergeFirstTwo)
	stepLogProbs, nextStates, err := dec.Step(model.StepInput{
		Source: src,
		Target: s.Alive.Seqs.MergeFirstTwo(),
	}, flatStates)
	if err != nil {
		return State{}, fmt.Errorf("step %d: %w", t, err)
	}
	if stepLogProbs.Rank() != 2 || stepLogProbs.Dim(0) != b*k {
		return State{}, fmt.Errorf("step %d: log-probabilities have shape %v, want [%d vocab]", t, stepLogProbs.Shape, b*k)
	}
	vocab := stepLogProbs.Dim(1)
	if vocab < 2 {
		return State{}, fmt.Errorf("step %d: vocabulary of %d tokens cannot fill %d candidates", t, vocab, 2*k)
	}
	if err := checkLeadingDim(nextStates, b*k); err != nil {
		return State{}, fmt.Errorf("step %d: %w", t, err)
	}
	nextStates = nest.MapAll(nextStates, func(x tensor.Float) tensor.Float { return x.SplitFirst(b, k) })

	// Length-normalized score of every (beam, token) extension, flattened
	// per batch element to [b, k*vocab].
	lp := float32(LengthPenalty(t+1, cfg.Alpha))
	cand := tensor.New[float32](b, k*vocab)
	for i := range b {
		out := cand.Row(i)
		cum := s.Alive.LogProbs.Row(i)
		for j := range k {
			row := stepLogProbs.Row(i*k + j)
			base := out[j*vocab : (j+1)*vocab]
			for v, x := range row {
				base[v] = (cum[j] + x) / lp
			}
		}
	}

	// Twice the beam survives the first cut so that k non-EOS candidates
	// remain even if up to k of the best ones just ended.
	topScores, topIdx := logits.BatchedTopK(cand, 2*k)
	origin := tensor.New[int32](b, 2*k)
	symbols := tensor.New[int32](b, 2*k)
	flags := tensor.New[bool](b, 2*k)
	for i, idx := range topIdx.Data {
		origin.Data[i] = idx / int32(vocab)
		symbols.Data[i] = idx % int32(vocab)
		flags.Data[i] = symbols.Data[i] == cfg.EOSID
	}
	candSeqs := tensor.Concat(2, tensor.Gather2D(s.Alive.Seqs, origin), symbols.ExpandDims(2))

	alive := growAlive(topScores, origin, flags, candSeqs, nextStates, k, lp)
	finished := growFinished(s.Finished, topScores, flags, candSeqs, k, cfg.PadID)
	return State{Alive: alive, Finished: finished}, nil
}

// growAlive keeps the k best candidates that did not just emit EOS. Sequences
// and model states are taken from the beam each survivor extends.
func growAlive(topScores tensor.Float, origin tensor.Int, flags tensor.Bool, candSeqs tensor.Int, states []nest.Node, k int, lp float32) Alive {
	masked := tensor.New[float32](topScores.Shape...)
	for i, v := range topScores.Data {
		if flags.Data[i] {
			v += minScore
		}
		masked.Data[i] = v
	}
	scores, sel := logits.BatchedTopK(masked, k)

	// Candidate sequences already carry their origin beam's prefix, so they
	// are gathered by candidate position. States were produced per old beam
	// and must be gathered by origin beam.
	stateOrigin := tensor.Gather2D(origin, sel)
	logProbs := tensor.New[float32](scores.Shape...)
	for i, v := range scores.Data {
		logProbs.Data[i] = v * lp
	}
	return Alive{
		Seqs:     tensor.Gather2D(candSeqs, sel),
		LogProbs: logProbs,
		Scores:   scores,
		States:   nest.MapAll(states, func(x tensor.Float) tensor.Float { return tensor.Gather2D(x, stateOrigin) }),
	}
}

// growFinished merges the candidates that just emitted EOS into the finished
// pool and keeps the k best. Previous entries are padded by one token so all
// sequences share the new length.
func growFinished(prev Finished, topScores tensor.Float, flags tensor.Bool, candSeqs tensor.Int, k int, pad int32) Finished {
	b := prev.Scores.Dim(0)
	masked := tensor.New[float32](topScores.Shape...)
	for i, v := range topScores.Data {
		if !flags.Data[i] {
			v += minScore
		}
		masked.Data[i] = v
	}

	prevSeqs := tensor.Concat(2, prev.Seqs, tensor.Full(pad, b, k, 1))
	allSeqs := tensor.Concat(1, prevSeqs, candSeqs)
	allFlags := tensor.Concat(1, prev.Flags, flags)
	allScores := tensor.Concat(1, prev.Scores, masked)

	scores, sel := logits.BatchedTopK(allScores, k)
	return Finished{
		Flags:  tensor.Gather2D(allFlags, sel),
		Seqs:   tensor.Gather2D(allSeqs, sel),
		Scores: scores,
	}
}

// checkLeadingDim verifies that every state leaf has n rows, so a model that
// returns a malformed state fails with an error instead of a reshape panic.
func checkLeadingDim(states []nest.Node, n int) error {
	for m, st := range states {
		paths, leaves := nest.Leaves(st)
		for i, leaf := range leaves {
			if leaf.Rank() == 0 || leaf.Dim(0) != n {
				return fmt.Errorf("model %d state %q has shape %v, want leading dimension %d", m, paths[i], leaf.Shape, n)
			}
		}
	}
	return nil
}
