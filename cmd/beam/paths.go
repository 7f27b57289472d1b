package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	envBeamConfig   = "BEAM_CONFIG"
	envBeamModelDir = "BEAM_MODEL_DIR"
)

// vocabNames are tried in order before falling back to a *.vocab scan.
var vocabNames = []string{"vocab.txt", "vocab"}

// discoverVocab finds the vocabulary file in a model directory: vocab.txt,
// vocab, or the only *.vocab file.
func discoverVocab(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("model directory is empty")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !st.IsDir() {
		return "", fmt.Errorf("model path is not a directory: %s", dir)
	}

	for _, name := range vocabNames {
		path := filepath.Join(dir, name)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, nil
		}
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".vocab") {
			continue
		}
		found = append(found, filepath.Join(dir, e.Name()))
	}
	sort.Strings(found)
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no vocabulary found in %s (want vocab.txt or a single *.vocab file)", dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple vocabularies in %s: %s; set --vocab", dir, strings.Join(displayNames(dir, found), ", "))
	}
}

func displayNames(dir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil || rel == "." {
			rel = filepath.Base(p)
		}
		out[i] = rel
	}
	return out
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "beam", "config.yaml")
}

func isTTY(f *os.File) bool {
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = func() bool { return isTTY(os.Stdin) }
