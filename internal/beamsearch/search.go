// Package beamsearch implements batched beam-search decoding over an
// ensemble step function, with GNMT-style length normalization and early
// stopping.
package beamsearch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samcharles93/beam/internal/logger"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/tensor"
)

// Hypothesis is one decoded sequence.
type Hypothesis struct {
	// Tokens excludes the begin token and everything from the first EOS on.
	Tokens []int32
	Score  float32
	// Finished is false when the hypothesis comes from the alive pool, or
	// is a filler slot of the finished pool that never received a
	// completed sequence.
	Finished bool
}

// Result is the output of Search.
type Result struct {
	// Hypotheses holds up to TopBeams entries per batch element, best first.
	Hypotheses [][]Hypothesis
	// Steps is the number of decoding steps run.
	Steps int
	// EarlyStop reports whether the loop ended before the step budget.
	EarlyStop bool
}

// StepInfo describes the search state after one step.
type StepInfo struct {
	Step int
	// Len is the alive sequence length, begin token included.
	Len int
	// Done is the number of batch elements that can no longer improve.
	Done int
	// BestAlive is the highest alive log-probability across the batch.
	BestAlive float32
	// WorstFinished is the lowest finished score across the batch.
	WorstFinished float32
	Elapsed       time.Duration
}

// Option configures a Search call.
type Option func(*options)

type options struct {
	observer func(StepInfo)
	log      logger.Logger
}

// WithObserver registers fn to be called after every step.
func WithObserver(fn func(StepInfo)) Option {
	return func(o *options) { o.observer = fn }
}

// WithLogger overrides the logger taken from the context.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Search decodes src, a [batch, srcLen] tensor of token ids, with dec.
//
// The source is encoded once, then every model state and the source are
// tiled to the beam. Decoding runs for at most srcLen+DecodeLength steps and
// stops earlier once no batch element can improve: its lowest finished score
// beats the best alive log-probability normalized by the largest possible
// length penalty, or its alive pool holds only suppressed hypotheses.
func Search(ctx context.Context, dec Decoder, src tensor.Int, cfg Config, opts ...Option) (*Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.FromContext(ctx)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dec == nil {
		return nil, errors.New("beamsearch: nil decoder")
	}
	if src.Rank() != 2 {
		return nil, fmt.Errorf("beamsearch: source must be [batch, length], got shape %v", src.Shape)
	}
	batch, srcLen := src.Dim(0), src.Dim(1)
	if batch == 0 {
		return nil, ErrEmptyBatch
	}

	states, err := dec.Encode(src)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if err := checkLeadingDim(states, batch); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	k := cfg.BeamSize
	states = nest.MapAll(states, func(x tensor.Float) tensor.Float { return tensor.Tile(x, k) })
	tiledSrc := tensor.Tile(src, k).MergeFirstTwo()

	maxSteps := srcLen + cfg.DecodeLength
	bound := float32(LengthPenalty(maxSteps, cfg.Alpha))
	o.log.Debug("beam search started",
		"batch", batch, "source_len", srcLen, "beam_size", k, "max_steps", maxSteps, "models", len(states))

	start := time.Now()
	s := initialState(batch, cfg, states)
	steps := 0
	early := false
	for steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err = step(steps, dec, tiledSrc, s, cfg)
		if err != nil {
			return nil, err
		}
		steps++

		done := doneCount(s, bound)
		if o.observer != nil || steps%10 == 0 {
			info := stepInfo(s, steps, done, time.Since(start))
			if o.observer != nil {
				o.observer(info)
			}
			o.log.Debug("beam step", "step", info.Step, "len", info.Len, "done", done,
				"best_alive", info.BestAlive, "worst_finished", info.WorstFinished)
		}
		if done == batch {
			early = steps < maxSteps
			break
		}
	}

	res := &Result{
		Hypotheses: collect(s, cfg),
		Steps:      steps,
		EarlyStop:  early,
	}
	o.log.Debug("beam search finished", "steps", steps, "early_stop", early, "elapsed", time.Since(start))
	return res, nil
}

// doneCount returns how many batch elements have met the stopping rule.
func doneCount(s State, bound float32) int {
	n := 0
	for b := range s.Batch() {
		if elementDone(s, b, bound) {
			n++
		}
	}
	return n
}

func elementDone(s State, b int, bound float32) bool {
	best := s.Alive.LogProbs.At(b, 0)
	if best <= deadLogProb {
		return true
	}
	return slices.Min(s.Finished.Scores.Row(b)) > best/bound
}

func stepInfo(s State, steps, done int, elapsed time.Duration) StepInfo {
	return StepInfo{
		Step:          steps,
		Len:           s.Len(),
		Done:          done,
		BestAlive:     slices.Max(s.Alive.LogProbs.Data),
		WorstFinished: slices.Min(s.Finished.Scores.Data),
		Elapsed:       elapsed,
	}
}

// collect picks the output pool per batch element: the finished pool when it
// holds at least one completed sequence, otherwise the alive pool.
func collect(s State, cfg Config) [][]Hypothesis {
	out := make([][]Hypothesis, s.Batch())
	for b := range s.Batch() {
		fromFinished := slices.Contains(s.Finished.Flags.Row(b), true)
		seqs, scores := s.Alive.Seqs, s.Alive.Scores
		if fromFinished {
			seqs, scores = s.Finished.Seqs, s.Finished.Scores
		}
		hyps := make([]Hypothesis, cfg.TopBeams)
		for j := range hyps {
			h := Hypothesis{Tokens: []int32{}, Score: scores.At(b, j)}
			if fromFinished {
				h.Finished = s.Finished.Flags.At(b, j)
			}
			// Filler slots of the finished pool hold only pad.
			if !fromFinished || h.Finished {
				h.Tokens = trim(seqs.Row(b)[j*seqs.Dim(2):(j+1)*seqs.Dim(2)], cfg)
			}
			hyps[j] = h
		}
		out[b] = hyps
	}
	return out
}

// trim drops the begin token and cuts at the first EOS, which also removes
// the right padding of finished sequences. Pad ids before the EOS were
// generated and are kept.
func trim(seq []int32, cfg Config) []int32 {
	if len(seq) > 0 {
		seq = seq[1:]
	}
	if i := slices.Index(seq, cfg.EOSID); i >= 0 {
		seq = seq[:i]
	}
	out := make([]int32, len(seq))
	copy(out, seq)
	return out
}
