package inference

import (
	"context"
	"errors"
	"time"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/params"
	"github.com/samcharles93/beam/internal/vocab"
)

// ErrInvalidInput marks errors caused by the request rather than the
// models.
var ErrInvalidInput = errors.New("inference: invalid input")

// ProgressFunc receives the search state after every step.
type ProgressFunc func(beamsearch.StepInfo)

type Engine interface {
	Decode(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error)
	Params() params.Params
	Config() beamsearch.Config
	Vocab() *vocab.Vocab
}

// Request is one batch to decode. Exactly one of Source and Text is set.
// Zero override fields keep the engine defaults.
type Request struct {
	// Source holds token ids, used as given.
	Source [][]int32
	// Text holds whitespace tokenized sentences; each is terminated with
	// the end token before decoding.
	Text []string

	BeamSize     int
	TopBeams     int
	DecodeLength *int
	Alpha        *float64
}

type Hypothesis struct {
	Tokens   []int32
	Text     string
	Score    float32
	Finished bool
}

type Result struct {
	// Hypotheses holds, per source sentence, the best hypotheses first.
	Hypotheses [][]Hypothesis
	EarlyStop  bool
	Stats      Stats
}

type Stats struct {
	Steps           int
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}
