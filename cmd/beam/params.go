package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/params"
)

func paramsCmd() *cli.Command {
	var (
		exportDir string
		asJSON    bool
	)

	return &cli.Command{
		Name:  "params",
		Usage: "Print or export the effective decoding hyper-parameters",
		Flags: append(engineFlags(),
			&cli.StringFlag{
				Name:        "export",
				Usage:       "write params.json and <model-name>.json to this directory",
				Destination: &exportDir,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyEngineConfig(cmd, fileConfig)
			loader, err := newLoader()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loaded, err := loader.Load()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load engine: %v", err), 1)
			}

			if exportDir != "" {
				if err := exportParams(exportDir, modelName, loaded.Params); err != nil {
					return cli.Exit(fmt.Sprintf("error: export params: %v", err), 1)
				}
				_, _ = fmt.Fprintf(os.Stderr, "params: wrote %s and %s.json to %s\n", params.FileName, modelName, exportDir)
				return nil
			}
			if asJSON {
				b, err := json.MarshalIndent(loaded.Params, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(os.Stdout, "%s\n", b)
				return err
			}
			return printParams(os.Stdout, loaded.Params, loaded.Engine.Config())
		},
	}
}

// exportParams writes both files params.Import looks for, so an exported
// directory can be passed straight back as --model-dir.
func exportParams(dir, model string, p params.Params) error {
	if err := params.Export(dir, params.FileName, p); err != nil {
		return err
	}
	return params.Export(dir, model+".json", p)
}

func printParams(w io.Writer, p params.Params, cfg beamsearch.Config) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"beam_size", fmt.Sprint(p.BeamSize)},
		{"top_beams", fmt.Sprint(p.TopBeams)},
		{"decode_alpha", fmt.Sprint(p.DecodeAlpha)},
		{"decode_length", fmt.Sprint(p.DecodeLength)},
		{"pad", fmt.Sprintf("%s (%d)", p.Pad, cfg.PadID)},
		{"bos", fmt.Sprintf("%s (%d)", p.BOS, cfg.BOSID)},
		{"eos", fmt.Sprintf("%s (%d)", p.EOS, cfg.EOSID)},
		{"unk", p.UNK},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}
