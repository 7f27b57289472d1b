package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/beam/internal/inference"
)

var (
	configFile     string
	modelDir       string
	vocabPath      string
	vocabSize      int64
	modelName      string
	paramOverrides string
	modelSpecs     []string
	logLevel       string
	logFormat      string
	debug          bool
)

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-dir",
			Aliases:     []string{"dir"},
			Usage:       "directory holding the vocabulary and params.json",
			Sources:     cli.EnvVars(envBeamModelDir),
			Destination: &modelDir,
		},
		&cli.StringFlag{
			Name:        "vocab",
			Aliases:     []string{"v"},
			Usage:       "vocabulary file, one token per line",
			Destination: &vocabPath,
		},
		&cli.Int64Flag{
			Name:        "vocab-size",
			Usage:       "size of the synthetic vocabulary used when no vocabulary file is given",
			Value:       32,
			Destination: &vocabSize,
		},
		&cli.StringFlag{
			Name:        "model-name",
			Usage:       "model name for <model-dir>/<name>.json and params.json",
			Value:       "model",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "params",
			Aliases:     []string{"hparams"},
			Usage:       `hyper-parameter overrides, e.g. "beam_size=8,decode_alpha=1.0"`,
			Destination: &paramOverrides,
		},
		&cli.StringSliceFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       `ensemble member "kind[:hidden=N,seed=N]" (bag, recurrent, uniform); repeat for an ensemble`,
			Destination: &modelSpecs,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// newLoader builds an engine loader from the engine flags. A model
// directory fills in the vocabulary and params location when they were not
// given explicitly.
func newLoader() (inference.Loader, error) {
	l := inference.Loader{
		VocabPath: vocabPath,
		VocabSize: int(vocabSize),
		ModelName: modelName,
		Overrides: paramOverrides,
		Models:    modelSpecs,
	}
	if modelDir == "" {
		return l, nil
	}
	if l.VocabPath == "" {
		path, err := discoverVocab(modelDir)
		if err != nil {
			return l, err
		}
		l.VocabPath = path
	}
	l.ParamsDir = modelDir
	return l, nil
}
