package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/beam/internal/inference"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatIDs  outputFormat = "ids"
	formatJSON outputFormat = "json"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatText, formatIDs, formatJSON:
		return f, nil
	case "":
		return formatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, ids or json)", s)
	}
}

// resultWriter writes decoded sentences in input order. With a single
// hypothesis per sentence the text and ids formats print one line per
// sentence, so output lines up with input lines.
type resultWriter struct {
	w      *bufio.Writer
	format outputFormat
	next   int
}

type jsonLine struct {
	Sentence   int              `json:"sentence"`
	Source     string           `json:"source"`
	Hypotheses []jsonHypothesis `json:"hypotheses"`
}

type jsonHypothesis struct {
	Tokens   []int32 `json:"tokens"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	Finished bool    `json:"finished"`
}

func newResultWriter(w io.Writer, format outputFormat) *resultWriter {
	return &resultWriter{w: bufio.NewWriter(w), format: format}
}

// Write emits the hypotheses for one batch; sources are the input lines
// of that batch.
func (rw *resultWriter) Write(sources []string, res *inference.Result) error {
	for i, hyps := range res.Hypotheses {
		n := rw.next
		rw.next++
		switch rw.format {
		case formatJSON:
			line := jsonLine{Sentence: n, Source: sources[i], Hypotheses: make([]jsonHypothesis, len(hyps))}
			for j, h := range hyps {
				line.Hypotheses[j] = jsonHypothesis(h)
			}
			b, err := json.Marshal(line)
			if err != nil {
				return err
			}
			rw.w.Write(b)
			rw.w.WriteByte('\n')
		default:
			for j, h := range hyps {
				if len(hyps) > 1 {
					fmt.Fprintf(rw.w, "%d\t%d\t%.4f\t", n, j, h.Score)
				}
				if rw.format == formatIDs {
					rw.w.WriteString(joinIDs(h.Tokens))
				} else {
					rw.w.WriteString(h.Text)
				}
				rw.w.WriteByte('\n')
			}
		}
	}
	return rw.w.Flush()
}

func joinIDs(ids []int32) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return b.String()
}

// parseIDs reads a line of space separated token ids.
func parseIDs(line string) ([]int32, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty id line")
	}
	ids := make([]int32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		ids[i] = int32(v)
	}
	return ids, nil
}
