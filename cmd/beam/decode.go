package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/beam/internal/inference"
	"github.com/samcharles93/beam/internal/logger"
)

// decodeOptions are the per-run settings of the decode command.
type decodeOptions struct {
	batchSize int
	ids       bool
	format    outputFormat
	override  inference.Request
}

func decodeCmd() *cli.Command {
	var (
		input        string
		output       string
		format       string
		batchSize    int64
		ids          bool
		interactive  bool
		beamSize     int64
		topBeams     int64
		alpha        float64
		decodeLength int64
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Decode sentences from a file, stdin or an interactive prompt",
		Flags: append(engineFlags(),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       `source sentences, one per line ("-" for stdin)`,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write hypotheses to this file instead of stdout",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (text, ids, json)",
				Value:       string(formatText),
				Destination: &format,
			},
			&cli.Int64Flag{
				Name:        "batch-size",
				Aliases:     []string{"b"},
				Usage:       "sentences decoded together",
				Value:       32,
				Destination: &batchSize,
			},
			&cli.BoolFlag{
				Name:        "ids",
				Usage:       "input lines are space separated token ids",
				Destination: &ids,
			},
			&cli.BoolFlag{
				Name:        "interactive",
				Aliases:     []string{"I"},
				Usage:       "read sentences from an interactive prompt",
				Destination: &interactive,
			},
			&cli.Int64Flag{
				Name:        "beam-size",
				Aliases:     []string{"k"},
				Usage:       "override beam_size for this run",
				Destination: &beamSize,
			},
			&cli.Int64Flag{
				Name:        "top-beams",
				Usage:       "override top_beams for this run",
				Destination: &topBeams,
			},
			&cli.Float64Flag{
				Name:        "alpha",
				Usage:       "override decode_alpha for this run",
				Destination: &alpha,
			},
			&cli.Int64Flag{
				Name:        "decode-length",
				Usage:       "override decode_length for this run",
				Destination: &decodeLength,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig)

			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if batchSize < 1 {
				return cli.Exit("error: --batch-size must be positive", 1)
			}
			opts := decodeOptions{
				batchSize: int(batchSize),
				ids:       ids,
				format:    outFormat,
				override: inference.Request{
					BeamSize: int(beamSize),
					TopBeams: int(topBeams),
				},
			}
			if cmd.IsSet("alpha") {
				opts.override.Alpha = &alpha
			}
			if cmd.IsSet("decode-length") {
				n := int(decodeLength)
				opts.override.DecodeLength = &n
			}

			loader, err := newLoader()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loaded, err := loader.Load()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load engine: %v", err), 1)
			}

			if interactive || (input == "" && stdinIsTTY()) {
				err := withOutput(output, func(out io.Writer) error {
					return runInteractive(ctx, loaded.Engine, newPromptReader("> ", os.Stdin, os.Stderr), out, opts)
				})
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				return nil
			}

			var in io.Reader = os.Stdin
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: open input: %v", err), 1)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			start := time.Now()
			var stats streamStats
			err = withOutput(output, func(out io.Writer) error {
				var err error
				stats, err = decodeStream(ctx, loaded.Engine, in, out, opts)
				return err
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			elapsed := time.Since(start)
			log.Info("decode complete",
				"sentences", stats.sentences, "batches", stats.batches,
				"steps", stats.steps, "tokens", stats.tokens, "duration", elapsed)
			return nil
		},
	}
}

// withOutput runs fn against stdout, or against the file at path when one is
// given. Closing the file is part of writing it, so its error is returned.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, fn)
}

func writeAndClose(w io.WriteCloser, fn func(io.Writer) error) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", cerr))
		}
	}()
	return fn(w)
}

type streamStats struct {
	sentences int
	batches   int
	steps     int
	tokens    int
}

// decodeStream decodes in in batches of opts.batchSize lines and writes the
// hypotheses to out in input order.
func decodeStream(ctx context.Context, eng inference.Engine, in io.Reader, out io.Writer, opts decodeOptions) (streamStats, error) {
	var stats streamStats
	rw := newResultWriter(out, opts.format)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	batch := make([]string, 0, opts.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := decodeLines(ctx, eng, batch, opts)
		if err != nil {
			return fmt.Errorf("sentences %d-%d: %w", stats.sentences+1, stats.sentences+len(batch), err)
		}
		if err := rw.Write(batch, res); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		stats.sentences += len(batch)
		stats.batches++
		stats.steps += res.Stats.Steps
		stats.tokens += res.Stats.TokensGenerated
		batch = batch[:0]
		return nil
	}

	for sc.Scan() {
		batch = append(batch, sc.Text())
		if len(batch) == opts.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, flush()
}

func decodeLines(ctx context.Context, eng inference.Engine, lines []string, opts decodeOptions) (*inference.Result, error) {
	req := opts.override
	if opts.ids {
		req.Source = make([][]int32, len(lines))
		for i, line := range lines {
			ids, err := parseIDs(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", inference.ErrInvalidInput, i+1, err)
			}
			req.Source[i] = ids
		}
	} else {
		req.Text = lines
	}
	return eng.Decode(ctx, &req, nil)
}

type lineReader interface {
	ReadLine() (string, error)
}

// runInteractive decodes one sentence per prompt line until EOF. Bad input
// is reported and the prompt continues.
func runInteractive(ctx context.Context, eng inference.Engine, r lineReader, out io.Writer, opts decodeOptions) error {
	rw := newResultWriter(out, opts.format)
	for {
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":q", ":quit", "exit":
			return nil
		}
		res, err := decodeLines(ctx, eng, []string{line}, opts)
		if errors.Is(err, inference.ErrInvalidInput) {
			logger.FromContext(ctx).Warn("invalid input", "error", err)
			continue
		}
		if err != nil {
			return err
		}
		if err := rw.Write([]string{line}, res); err != nil {
			return err
		}
	}
}
