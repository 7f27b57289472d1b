package beamsearch

import (
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// minScore stands in for -Inf wherever a slot must never win a comparison
// against a real hypothesis but arithmetic on it must stay finite.
const minScore float32 = -1e9

// deadLogProb marks an alive hypothesis that can only have been reached
// through a suppressed or impossible candidate.
const deadLogProb = minScore / 2

// Alive is the set of hypotheses still being extended. All fields are
// aligned on the same [batch, beam] index pair.
type Alive struct {
	Seqs     tensor.Int   // [batch, beam, t]
	LogProbs tensor.Float // [batch, beam], cumulative
	Scores   tensor.Float // [batch, beam], length normalized
	// States holds one tree per ensemble member; every leaf is
	// [batch, beam, ...].
	States []nest.Node
}

// Finished holds the best completed hypotheses seen so far.
type Finished struct {
	Flags  tensor.Bool  // [batch, beam], false for filler slots
	Seqs   tensor.Int   // [batch, beam, t], right padded
	Scores tensor.Float // [batch, beam]
}

// State is the complete search state. Each step derives a new State and
// never writes into the previous one.
type State struct {
	Alive    Alive
	Finished Finished
}

// Batch returns the number of batch elements.
func (s State) Batch() int { return s.Alive.LogProbs.Dim(0) }

// Beam returns the beam size.
func (s State) Beam() int { return s.Alive.LogProbs.Dim(1) }

// Len returns the current alive sequence length, begin token included.
func (s State) Len() int { return s.Alive.Seqs.Dim(2) }

// initialState builds the step-0 state: every alive slot holds the begin
// token, only the first has a usable log-probability, and the finished pool
// is all filler.
func initialState(batch int, cfg Config, states []nest.Node) State {
	k := cfg.BeamSize
	logProbs := tensor.New[float32](batch, k)
	for b := range batch {
		row := logProbs.Row(b)
		for j := 1; j < k; j++ {
			row[j] = minScore
		}
	}
	return State{
		Alive: Alive{
			Seqs:     tensor.Full(cfg.BOSID, batch, k, 1),
			LogProbs: logProbs,
			Scores:   tensor.New[float32](batch, k),
			States:   states,
		},
		Finished: Finished{
			Flags:  tensor.New[bool](batch, k),
			Seqs:   tensor.Full(cfg.PadID, batch, k, 1),
			Scores: tensor.Full(minScore, batch, k),
		},
	}
}
