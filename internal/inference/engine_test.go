package inference

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/logger"
	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/nest"
	"github.com/samcharles93/beam/internal/params"
	"github.com/samcharles93/beam/internal/tensor"
	"github.com/samcharles93/beam/internal/toy"
	"github.com/samcharles93/beam/internal/vocab"
)

func quietCtx() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

func testVocab(t *testing.T) *vocab.Vocab {
	t.Helper()
	v, err := vocab.New([]string{"<pad>", "<eos>", "<unk>", "a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestDecodeScriptedText(t *testing.T) {
	v := testVocab(t)
	p := params.Default()
	p.BeamSize = 2
	eng, err := NewEngine([]model.Scorer{toy.Script{Vocab: v.Len(), Tokens: []int32{5, 4, 3}, EOS: 1}}, v, p)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	var steps int
	res, err := eng.Decode(quietCtx(), &Request{Text: []string{"a b", "zzz"}}, func(beamsearch.StepInfo) { steps++ })
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Hypotheses) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(res.Hypotheses))
	}
	for i, hyps := range res.Hypotheses {
		if len(hyps) != 1 {
			t.Fatalf("sentence %d: expected 1 hypothesis, got %d", i, len(hyps))
		}
		got := hyps[0]
		if got.Text != "c b a" || !got.Finished {
			t.Fatalf("sentence %d: got %+v", i, got)
		}
		if diff := cmp.Diff([]int32{5, 4, 3}, got.Tokens); diff != "" {
			t.Fatalf("sentence %d tokens (-want +got):\n%s", i, diff)
		}
	}
	if steps != res.Stats.Steps || steps == 0 {
		t.Fatalf("progress saw %d steps, result reports %d", steps, res.Stats.Steps)
	}
	if res.Stats.TokensGenerated != 6 {
		t.Fatalf("tokens generated = %d", res.Stats.TokensGenerated)
	}
}

func TestDecodeRejectsBadRequests(t *testing.T) {
	v := testVocab(t)
	eng, err := NewEngine([]model.Scorer{toy.NewBagLM(v.Len(), 4, 1)}, v, params.Default())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cases := map[string]*Request{
		"empty":           {},
		"both inputs":     {Source: [][]int32{{3}}, Text: []string{"a"}},
		"id out of range": {Source: [][]int32{{3, 42}}},
		"top beams":       {Source: [][]int32{{3}}, BeamSize: 2, TopBeams: 3},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := eng.Decode(quietCtx(), req, nil); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if _, err := eng.Decode(quietCtx(), nil, nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}

func TestDecodeOverridesShrinkTopBeams(t *testing.T) {
	v := testVocab(t)
	p := params.Default()
	p.BeamSize, p.TopBeams = 4, 4
	eng, err := NewEngine([]model.Scorer{toy.NewBagLM(v.Len(), 4, 2)}, v, p)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	alpha, length := 1.0, 3
	res, err := eng.Decode(quietCtx(), &Request{Source: [][]int32{{3, 4}, {5}}, BeamSize: 2, Alpha: &alpha, DecodeLength: &length}, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, hyps := range res.Hypotheses {
		if len(hyps) != 2 {
			t.Fatalf("sentence %d: expected top beams clamped to 2, got %d", i, len(hyps))
		}
	}
}

func TestDecodeZeroDecodeLength(t *testing.T) {
	v := testVocab(t)
	eng, err := NewEngine([]model.Scorer{toy.Script{Vocab: v.Len(), Tokens: []int32{3, 4, 5, 3, 4, 5}, EOS: 1}}, v, params.Default())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	src := [][]int32{{3, 4}}

	res, err := eng.Decode(quietCtx(), &Request{Source: src}, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Stats.Steps != 7 || !res.Hypotheses[0][0].Finished {
		t.Fatalf("default budget: steps=%d hyp=%+v", res.Stats.Steps, res.Hypotheses[0][0])
	}

	zero := 0
	res, err = eng.Decode(quietCtx(), &Request{Source: src, DecodeLength: &zero}, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := res.Hypotheses[0][0]
	if res.Stats.Steps != 2 || got.Finished {
		t.Fatalf("zero decode length: steps=%d hyp=%+v", res.Stats.Steps, got)
	}
	if diff := cmp.Diff([]int32{3, 4}, got.Tokens); diff != "" {
		t.Fatalf("tokens (-want +got):\n%s", diff)
	}
}

type panicEncoder struct{ toy.Fixed }

func (panicEncoder) Encode(tensor.Int) (nest.Node, error) { panic("encoder exploded") }

func TestDecodeConvertsPanicToError(t *testing.T) {
	v := testVocab(t)
	eng, err := NewEngine([]model.Scorer{panicEncoder{toy.Fixed{Logits: make([]float32, v.Len())}}}, v, params.Default())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	_, err = eng.Decode(quietCtx(), &Request{Source: [][]int32{{3}}}, nil)
	if err == nil || !strings.Contains(err.Error(), "panic in Search") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewEngineChecksVocabSize(t *testing.T) {
	v := testVocab(t)
	if _, err := NewEngine([]model.Scorer{toy.NewBagLM(v.Len()+1, 4, 1)}, v, params.Default()); err == nil {
		t.Fatal("expected vocabulary size mismatch")
	}
	if _, err := NewEngine(nil, v, params.Default()); err == nil {
		t.Fatal("expected error for empty ensemble")
	}
}

func TestPadRows(t *testing.T) {
	got := padRows([][]int32{{3, 4, 5}, {6}, {}}, 0)
	want := tensor.FromData([]int32{3, 4, 5, 6, 0, 0, 0, 0, 0}, 3, 3)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("padded source (-want +got):\n%s", diff)
	}
}

func TestParseModelSpec(t *testing.T) {
	m, err := ParseModelSpec("recurrent:hidden=8,seed=3", 10)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, ok := m.(*toy.RecurrentLM)
	if !ok || rec.VocabSize() != 10 {
		t.Fatalf("unexpected model %T", m)
	}
	u, err := ParseModelSpec("uniform", 10)
	if err != nil {
		t.Fatalf("parse uniform: %v", err)
	}
	in := model.StepInput{Source: tensor.New[int32](3, 2), Target: tensor.New[int32](3, 1)}
	logits, _, err := u.Decode(in, nil)
	if err != nil {
		t.Fatalf("uniform decode: %v", err)
	}
	if diff := cmp.Diff([]int{3, 10}, logits.Shape); diff != "" {
		t.Fatalf("uniform logits shape (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"transformer", "bag:hidden=0", "bag:depth=2", "bag:seed"} {
		if _, err := ParseModelSpec(bad, 10); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLoaderDefaults(t *testing.T) {
	res, err := Loader{VocabSize: 12, Overrides: "beam_size=3", Models: []string{"bag", "recurrent:seed=2"}}.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Vocab.Len() != 12 || res.Params.BeamSize != 3 || res.Engine.Models() != 2 {
		t.Fatalf("unexpected load result: vocab=%d params=%+v models=%d", res.Vocab.Len(), res.Params, res.Engine.Models())
	}
	if res.Engine.Config().EOSID != 1 {
		t.Fatalf("eos id = %d", res.Engine.Config().EOSID)
	}
}
