// Package params holds the decoding hyper-parameters as they appear on the
// command line, in config files and in exported params.json files, and
// resolves them into a beamsearch.Config.
package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/vocab"
)

// FileName is the name under which Export writes the shared parameters.
const FileName = "params.json"

// ErrUnknownParam is returned by Set for a key Params does not have.
var ErrUnknownParam = errors.New("params: unknown parameter")

// Params are the decoding hyper-parameters. Special tokens are named by their
// vocabulary entry rather than their id.
type Params struct {
	BeamSize     int     `json:"beam_size"`
	TopBeams     int     `json:"top_beams"`
	DecodeAlpha  float64 `json:"decode_alpha"`
	DecodeLength int     `json:"decode_length"`

	Pad string `json:"pad"`
	BOS string `json:"bos"`
	EOS string `json:"eos"`
	UNK string `json:"unk"`
}

// Default returns the usual translation settings. The begin token doubles as
// the end token, as in most NMT vocabularies.
func Default() Params {
	return Params{
		BeamSize:     4,
		TopBeams:     1,
		DecodeAlpha:  0.6,
		DecodeLength: 50,
		Pad:          "<pad>",
		BOS:          "<eos>",
		EOS:          "<eos>",
		UNK:          "<unk>",
	}
}

// Keys lists the settable parameter names in a stable order.
func Keys() []string {
	return []string{"beam_size", "top_beams", "decode_alpha", "decode_length", "pad", "bos", "eos", "unk"}
}

// Set assigns one parameter from its string form.
func (p *Params) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var err error
	switch strings.TrimSpace(key) {
	case "beam_size":
		p.BeamSize, err = strconv.Atoi(value)
	case "top_beams":
		p.TopBeams, err = strconv.Atoi(value)
	case "decode_alpha":
		p.DecodeAlpha, err = strconv.ParseFloat(value, 64)
	case "decode_length":
		p.DecodeLength, err = strconv.Atoi(value)
	case "pad":
		p.Pad = value
	case "bos":
		p.BOS = value
	case "eos":
		p.EOS = value
	case "unk":
		p.UNK = value
	default:
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownParam, key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("params: %s=%q: %w", key, value, err)
	}
	return nil
}

// Parse applies a comma separated list of key=value assignments, such as
// "beam_size=8,decode_alpha=1.0". Later assignments win.
func (p *Params) Parse(s string) error {
	for item := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			return fmt.Errorf("params: malformed assignment %q", item)
		}
		if err := p.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Merge overlays the fields present in the JSON object raw onto a copy of
// base. Fields raw does not mention keep their base values.
func Merge(base Params, raw []byte) (Params, error) {
	var keys map[string]any
	if err := json.Unmarshal(raw, &keys); err != nil {
		return base, fmt.Errorf("params: %w", err)
	}
	for k := range keys {
		if !slices.Contains(Keys(), k) {
			return base, fmt.Errorf("%w %q", ErrUnknownParam, k)
		}
	}
	out := base
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("params: %w", err)
	}
	return out, nil
}

// Export writes p as a single line of JSON to dir/name, creating dir.
func Export(dir, name string, p Params) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644)
}

// Import restores parameters saved next to a model: params.json followed by
// <model>.json, each merged over p. When either file is missing p is
// returned unchanged.
func Import(dir, model string, p Params) (Params, error) {
	files := []string{filepath.Join(dir, FileName), filepath.Join(dir, model+".json")}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return p, nil
			}
			return p, fmt.Errorf("params: %w", err)
		}
	}
	out := p
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return p, fmt.Errorf("params: %w", err)
		}
		out, err = Merge(out, data)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f, err)
		}
	}
	return out, nil
}

// Config resolves p against the target vocabulary.
func (p Params) Config(v *vocab.Vocab) (beamsearch.Config, error) {
	ids := make([]int32, 3)
	for i, tok := range []string{p.Pad, p.BOS, p.EOS} {
		id, err := v.ID(tok)
		if err != nil {
			return beamsearch.Config{}, fmt.Errorf("params: resolve special token: %w", err)
		}
		ids[i] = id
	}
	cfg := beamsearch.Config{
		BeamSize:     p.BeamSize,
		TopBeams:     p.TopBeams,
		Alpha:        p.DecodeAlpha,
		DecodeLength: p.DecodeLength,
		PadID:        ids[0],
		BOSID:        ids[1],
		EOSID:        ids[2],
	}
	return cfg, cfg.Validate()
}
