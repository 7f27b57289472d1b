package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v3"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil || !cmp.Equal(cfg, Config{}) {
		t.Fatalf("missing file: got %+v, %v", cfg, err)
	}

	path := filepath.Join(dir, "config.yaml")
	data := `model_dir: /models/ende
vocab_size: 64
params: beam_size=8
models: [bag, "recurrent:seed=3"]
log_level: debug
server_address: 0.0.0.0:9000
read_timeout: 5s
max_concurrent: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	size, timeout, concurrent := int64(64), 5*time.Second, int64(2)
	want := Config{
		ModelDir:      "/models/ende",
		VocabSize:     &size,
		Params:        "beam_size=8",
		Models:        []string{"bag", "recurrent:seed=3"},
		LogLevel:      "debug",
		ServerAddress: "0.0.0.0:9000",
		ReadTimeout:   &timeout,
		MaxConcurrent: &concurrent,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("vocab_size: [1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

// runWith parses args against the engine flags and applies cfg the way
// the commands do.
func runWith(t *testing.T, cfg Config, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "test",
		Flags: engineFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyEngineConfig(c, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestApplyEngineConfigFlagsWin(t *testing.T) {
	size := int64(64)
	cfg := Config{
		Vocab:     "/cfg/vocab.txt",
		VocabSize: &size,
		Params:    "beam_size=8",
		Models:    []string{"recurrent"},
	}

	runWith(t, cfg, "--params", "beam_size=2")
	if vocabPath != "/cfg/vocab.txt" || vocabSize != 64 {
		t.Fatalf("config defaults not applied: vocab=%q size=%d", vocabPath, vocabSize)
	}
	if paramOverrides != "beam_size=2" {
		t.Fatalf("flag should win over config, got %q", paramOverrides)
	}
	if diff := cmp.Diff([]string{"recurrent"}, modelSpecs); diff != "" {
		t.Fatalf("models (-want +got):\n%s", diff)
	}

	modelSpecs = nil
	runWith(t, cfg, "--vocab-size", "16", "--model", "bag", "--model", "bag:seed=2")
	if vocabSize != 16 {
		t.Fatalf("flag should win over config, got %d", vocabSize)
	}
	if diff := cmp.Diff([]string{"bag", "bag:seed=2"}, modelSpecs); diff != "" {
		t.Fatalf("models (-want +got):\n%s", diff)
	}
}
