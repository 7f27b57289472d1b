package inference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/beam/internal/model"
	"github.com/samcharles93/beam/internal/params"
	"github.com/samcharles93/beam/internal/tensor"
	"github.com/samcharles93/beam/internal/toy"
	"github.com/samcharles93/beam/internal/vocab"
)

// Loader assembles an engine from files and flags.
type Loader struct {
	// VocabPath is the target vocabulary file. When empty a synthetic
	// vocabulary of VocabSize tokens is used.
	VocabPath string
	VocabSize int
	// ParamsDir and ModelName locate params.json and <model>.json saved
	// alongside a model.
	ParamsDir string
	ModelName string
	// Base is the starting parameter set; nil means
	// params.Default.
	Base *params.Params
	// Overrides is a "key=value,..." list applied last.
	Overrides string
	// Models lists ensemble members as "kind[:key=value,...]", for example
	// "bag:hidden=32,seed=7" or "recurrent".
	Models []string
}

type LoadResult struct {
	Engine *EngineImpl
	Vocab  *vocab.Vocab
	Params params.Params
}

func (l Loader) Load() (*LoadResult, error) {
	v, err := l.loadVocab()
	if err != nil {
		return nil, err
	}

	p := params.Default()
	if l.Base != nil {
		p = *l.Base
	}
	if l.ParamsDir != "" {
		name := l.ModelName
		if name == "" {
			name = "model"
		}
		if p, err = params.Import(l.ParamsDir, name, p); err != nil {
			return nil, fmt.Errorf("import params: %w", err)
		}
	}
	if err := p.Parse(l.Overrides); err != nil {
		return nil, err
	}

	specs := l.Models
	if len(specs) == 0 {
		specs = []string{"bag"}
	}
	models := make([]model.Scorer, len(specs))
	for i, spec := range specs {
		m, err := ParseModelSpec(spec, v.Len())
		if err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		models[i] = m
	}

	eng, err := NewEngine(models, v, p)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Engine: eng, Vocab: v, Params: p}, nil
}

func (l Loader) loadVocab() (*vocab.Vocab, error) {
	if strings.TrimSpace(l.VocabPath) != "" {
		return vocab.Load(l.VocabPath)
	}
	n := l.VocabSize
	if n == 0 {
		n = 32
	}
	return vocab.Synthetic(n)
}

// ParseModelSpec builds a toy scorer from "kind[:key=value,...]". Kinds are
// "bag", "recurrent" and "uniform"; keys are "hidden" and "seed".
func ParseModelSpec(spec string, vocabSize int) (model.Scorer, error) {
	kind, args, _ := strings.Cut(strings.TrimSpace(spec), ":")
	hidden, seed := 16, int64(1)
	for kv := range strings.SplitSeq(args, ",") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("model spec %q: malformed option %q", spec, kv)
		}
		var err error
		switch strings.TrimSpace(key) {
		case "hidden":
			hidden, err = strconv.Atoi(strings.TrimSpace(value))
			if err == nil && hidden < 1 {
				err = fmt.Errorf("must be positive")
			}
		case "seed":
			seed, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		default:
			return nil, fmt.Errorf("model spec %q: unknown option %q", spec, key)
		}
		if err != nil {
			return nil, fmt.Errorf("model spec %q: %s: %w", spec, key, err)
		}
	}

	switch kind {
	case "bag":
		return toy.NewBagLM(vocabSize, hidden, seed), nil
	case "recurrent", "rnn":
		return toy.NewRecurrentLM(vocabSize, hidden, seed), nil
	case "uniform":
		return uniform(vocabSize), nil
	default:
		return nil, fmt.Errorf("model spec %q: unknown kind %q (want bag, recurrent or uniform)", spec, kind)
	}
}

// uniform scores every token equally. Mixed into an ensemble it flattens
// the other members' distributions.
func uniform(vocabSize int) model.Func {
	return func(in model.StepInput) (tensor.Float, error) {
		return tensor.New[float32](in.Target.Dim(0), vocabSize), nil
	}
}
