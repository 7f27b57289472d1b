package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/beam/internal/beamsearch"
)

// SSEStreamWriter reports search progress as server-sent events: one
// decode.step per search step, then decode.completed or decode.failed.
type SSEStreamWriter struct {
	w       io.Writer
	flusher func()
	id      string
	seq     int
	err     error
}

type streamEvent struct {
	Type           string          `json:"type"`
	ID             string          `json:"id"`
	SequenceNumber int             `json:"sequence_number"`
	Step           *stepEvent      `json:"step,omitempty"`
	Response       *DecodeResponse `json:"response,omitempty"`
	Error          *ResponseError  `json:"error,omitempty"`
}

type stepEvent struct {
	Step          int     `json:"step"`
	Length        int     `json:"length"`
	Done          int     `json:"done"`
	BestAlive     float32 `json:"best_alive"`
	WorstFinished float32 `json:"worst_finished"`
}

func NewSSEStreamWriter(c *echo.Context, id string) (*SSEStreamWriter, error) {
	res := c.Response()
	flusher, ok := res.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	return &SSEStreamWriter{
		w:       res,
		flusher: flusher.Flush,
		id:      id,
		seq:     1,
	}, nil
}

// Step is an inference.ProgressFunc. The first write error is kept and
// later events are dropped.
func (s *SSEStreamWriter) Step(si beamsearch.StepInfo) {
	s.send(streamEvent{
		Type: "decode.step",
		Step: &stepEvent{
			Step:          si.Step,
			Length:        si.Len,
			Done:          si.Done,
			BestAlive:     si.BestAlive,
			WorstFinished: si.WorstFinished,
		},
	})
}

func (s *SSEStreamWriter) Complete(resp DecodeResponse) error {
	s.send(streamEvent{Type: "decode.completed", Response: &resp})
	return s.err
}

func (s *SSEStreamWriter) Fail(e ResponseError) error {
	s.send(streamEvent{Type: "decode.failed", Error: &e})
	return s.err
}

func (s *SSEStreamWriter) send(ev streamEvent) {
	if s.err != nil {
		return
	}
	ev.ID = s.id
	ev.SequenceNumber = s.seq
	b, err := json.Marshal(ev)
	if err != nil {
		s.err = err
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		s.err = err
		return
	}
	s.flusher()
	s.seq++
}
