// Package vocab maps tokens to ids for a vocabulary file with one token per
// line; the line number is the id.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnknownToken is returned when a token is missing and no unknown token
// is available to stand in for it.
var ErrUnknownToken = errors.New("vocab: unknown token")

type Vocab struct {
	tokens []string
	ids    map[string]int32
}

// New builds a vocabulary from tokens in id order. Duplicates are rejected
// because they would make ids ambiguous.
func New(tokens []string) (*Vocab, error) {
	if len(tokens) == 0 {
		return nil, errors.New("vocab: empty vocabulary")
	}
	v := &Vocab{
		tokens: append([]string(nil), tokens...),
		ids:    make(map[string]int32, len(tokens)),
	}
	for i, tok := range tokens {
		if prev, ok := v.ids[tok]; ok {
			return nil, fmt.Errorf("vocab: token %q appears at lines %d and %d", tok, prev+1, i+1)
		}
		v.ids[tok] = int32(i)
	}
	return v, nil
}

// Read parses one token per line. Trailing whitespace is trimmed and blank
// lines are rejected.
func Read(r io.Reader) (*Vocab, error) {
	var tokens []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), " \t\r")
		if tok == "" {
			return nil, fmt.Errorf("vocab: blank line %d", len(tokens)+1)
		}
		tokens = append(tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read: %w", err)
	}
	return New(tokens)
}

// Load reads a vocabulary file.
func Load(path string) (*Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Synthetic returns an n-token vocabulary of "<pad>", "<eos>", "<unk>"
// followed by "t3", "t4" and so on, for running toy models without a
// vocabulary file.
func Synthetic(n int) (*Vocab, error) {
	if n < 4 {
		return nil, fmt.Errorf("vocab: synthetic vocabulary needs at least 4 tokens, got %d", n)
	}
	tokens := []string{"<pad>", "<eos>", "<unk>"}
	for i := len(tokens); i < n; i++ {
		tokens = append(tokens, fmt.Sprintf("t%d", i))
	}
	return New(tokens)
}

func (v *Vocab) Len() int { return len(v.tokens) }

// VocabSize is Len under the name model.Vocab uses.
func (v *Vocab) VocabSize() int { return len(v.tokens) }

func (v *Vocab) Lookup(tok string) (int32, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// ID is Lookup for tokens that must exist.
func (v *Vocab) ID(tok string) (int32, error) {
	id, ok := v.ids[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownToken, tok)
	}
	return id, nil
}

// Token returns the token for id, or "" if id is out of range.
func (v *Vocab) Token(id int32) string {
	if id < 0 || int(id) >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}

// Encode maps words to ids, substituting unk for words not in the
// vocabulary. An empty unk disables substitution.
func (v *Vocab) Encode(words []string, unk string) ([]int32, error) {
	unkID, hasUnk := int32(-1), false
	if unk != "" {
		unkID, hasUnk = v.Lookup(unk)
	}
	ids := make([]int32, len(words))
	for i, w := range words {
		id, ok := v.ids[w]
		switch {
		case ok:
			ids[i] = id
		case hasUnk:
			ids[i] = unkID
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, w)
		}
	}
	return ids, nil
}

// Decode maps ids back to tokens. Out-of-range ids render as "<id>".
func (v *Vocab) Decode(ids []int32) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if tok := v.Token(id); tok != "" {
			out[i] = tok
		} else {
			out[i] = fmt.Sprintf("<%d>", id)
		}
	}
	return out
}
