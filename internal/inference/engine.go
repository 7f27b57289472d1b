package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/ensemble"
	"github.com/samcharles93/beam/internal/logger"
	"github.com/samcharles93/beam/internal/metrics"
	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/params"
	"github.com/samcharles93/beam/internal/tensor"
	"github.com/samcharles93/beam/internal/vocab"
)

// EngineImpl decodes with a fixed ensemble. It keeps no per-request state
// and may be shared between goroutines.
type EngineImpl struct {
	ens    *ensemble.Adapter
	vocab  *vocab.Vocab
	params params.Params
	cfg    beamsearch.Config
}

// NewEngine checks that every model agrees with the vocabulary and resolves
// p against it.
func NewEngine(models []model.Scorer, v *vocab.Vocab, p params.Params) (*EngineImpl, error) {
	if v == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	ens, err := ensemble.New(models)
	if err != nil {
		return nil, err
	}
	for i, m := range models {
		if sized, ok := m.(model.Vocab); ok && sized.VocabSize() != v.Len() {
			return nil, fmt.Errorf("model %d has %d output tokens, vocabulary has %d", i, sized.VocabSize(), v.Len())
		}
	}
	cfg, err := p.Config(v)
	if err != nil {
		return nil, err
	}
	return &EngineImpl{ens: ens, vocab: v, params: p, cfg: cfg}, nil
}

func (e *EngineImpl) Params() params.Params     { return e.params }
func (e *EngineImpl) Config() beamsearch.Config { return e.cfg }
func (e *EngineImpl) Vocab() *vocab.Vocab       { return e.vocab }

// Models returns the ensemble size.
func (e *EngineImpl) Models() int { return e.ens.Len() }

func (e *EngineImpl) Decode(ctx context.Context, req *Request, progress ProgressFunc) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, err := e.requestConfig(req)
	if err != nil {
		return nil, err
	}
	rows, err := e.sourceRows(req)
	if err != nil {
		return nil, err
	}
	src := padRows(rows, cfg.PadID)

	log := logger.FromContext(ctx)
	opts := []beamsearch.Option{beamsearch.WithLogger(log)}
	if progress != nil {
		opts = append(opts, beamsearch.WithObserver(progress))
	}

	start := time.Now()
	res, err := safeSearch(ctx, e.ens, src, cfg, opts)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordSearch(metrics.Search{Err: err})
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := &Result{
		Hypotheses: make([][]Hypothesis, len(res.Hypotheses)),
		EarlyStop:  res.EarlyStop,
		Stats:      Stats{Steps: res.Steps, Duration: duration},
	}
	var finished, alive int
	for b, hyps := range res.Hypotheses {
		out.Hypotheses[b] = make([]Hypothesis, len(hyps))
		for j, h := range hyps {
			out.Hypotheses[b][j] = Hypothesis{
				Tokens:   h.Tokens,
				Text:     strings.Join(e.vocab.Decode(h.Tokens), " "),
				Score:    h.Score,
				Finished: h.Finished,
			}
			out.Stats.TokensGenerated += len(h.Tokens)
			if h.Finished {
				finished++
			} else {
				alive++
			}
		}
	}
	if duration > 0 {
		out.Stats.TPS = float64(out.Stats.TokensGenerated) / duration.Seconds()
	}

	metrics.RecordSearch(metrics.Search{
		Batch:     src.Dim(0),
		SourceLen: src.Dim(1),
		Steps:     res.Steps,
		EarlyStop: res.EarlyStop,
		Finished:  finished,
		Alive:     alive,
		Duration:  duration,
	})
	log.Info("decode finished",
		"batch", src.Dim(0), "source_len", src.Dim(1), "beam_size", cfg.BeamSize,
		"steps", res.Steps, "early_stop", res.EarlyStop, "duration", duration)
	return out, nil
}

// requestConfig applies the request overrides to the engine defaults.
func (e *EngineImpl) requestConfig(req *Request) (beamsearch.Config, error) {
	cfg := e.cfg
	if req.BeamSize != 0 {
		cfg.BeamSize = req.BeamSize
		if req.TopBeams == 0 && cfg.TopBeams > cfg.BeamSize {
			cfg.TopBeams = cfg.BeamSize
		}
	}
	if req.TopBeams != 0 {
		cfg.TopBeams = req.TopBeams
	}
	if req.DecodeLength != nil {
		cfg.DecodeLength = *req.DecodeLength
	}
	if req.Alpha != nil {
		cfg.Alpha = *req.Alpha
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return cfg, nil
}

// sourceRows turns the request into id rows, checking every id against the
// vocabulary.
func (e *EngineImpl) sourceRows(req *Request) ([][]int32, error) {
	switch {
	case len(req.Source) > 0 && len(req.Text) > 0:
		return nil, fmt.Errorf("%w: source and text are mutually exclusive", ErrInvalidInput)
	case len(req.Source) > 0:
		n := int32(e.vocab.Len())
		for i, row := range req.Source {
			for _, id := range row {
				if id < 0 || id >= n {
					return nil, fmt.Errorf("%w: sentence %d: token id %d outside vocabulary of %d", ErrInvalidInput, i, id, n)
				}
			}
		}
		return req.Source, nil
	case len(req.Text) > 0:
		rows := make([][]int32, len(req.Text))
		for i, line := range req.Text {
			ids, err := e.vocab.Encode(strings.Fields(line), e.params.UNK)
			if err != nil {
				return nil, fmt.Errorf("%w: sentence %d: %w", ErrInvalidInput, i, err)
			}
			rows[i] = append(ids, e.cfg.EOSID)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
}

// padRows packs rows into a [batch, maxLen] tensor, right padded with pad.
func padRows(rows [][]int32, pad int32) tensor.Int {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	src := tensor.Full(pad, len(rows), width)
	for i, r := range rows {
		copy(src.Row(i), r)
	}
	return src
}

func safeSearch(ctx context.Context, dec beamsearch.Decoder, src tensor.Int, cfg beamsearch.Config, opts []beamsearch.Option) (res *beamsearch.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Search: %v", rec)
		}
	}()
	return beamsearch.Search(ctx, dec, src, cfg, opts...)
}
