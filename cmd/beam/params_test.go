package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samcharles93/beam/internal/beamsearch"
	"github.com/samcharles93/beam/internal/params"
)

func TestExportParamsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := params.Default()
	p.BeamSize, p.DecodeAlpha = 8, 1.2
	if err := exportParams(dir, "ende", p); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := params.Import(dir, "ende", params.Default())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("params (-want +got):\n%s", diff)
	}
}

func TestPrintParams(t *testing.T) {
	var b strings.Builder
	cfg := beamsearch.DefaultConfig()
	if err := printParams(&b, params.Default(), cfg); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := b.String()
	for _, want := range []string{"beam_size      4\n", "decode_alpha   0.6\n", "eos            <eos> (1)\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
