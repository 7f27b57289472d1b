package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/beam/internal/inference"
)

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func newDecodeID() string {
	return "decode_" + uuid.NewString()
}

func (r *DecodeRequest) engineRequest() *inference.Request {
	return &inference.Request{
		Source:       r.Source,
		Text:         r.Text,
		BeamSize:     r.BeamSize,
		TopBeams:     r.TopBeams,
		DecodeLength: r.DecodeLength,
		Alpha:        r.DecodeAlpha,
	}
}

// decodeResults converts engine hypotheses to the wire shape. Text is only
// filled for text requests; id requests get tokens alone.
func decodeResults(res *inference.Result, withText bool) []SentenceResult {
	out := make([]SentenceResult, len(res.Hypotheses))
	for i, hyps := range res.Hypotheses {
		items := make([]HypothesisItem, len(hyps))
		for j, h := range hyps {
			items[j] = HypothesisItem{
				Tokens:   h.Tokens,
				Score:    h.Score,
				Finished: h.Finished,
			}
			if withText {
				items[j].Text = h.Text
			}
		}
		out[i] = SentenceResult{Hypotheses: items}
	}
	return out
}

func decodeUsage(res *inference.Result) *DecodeUsage {
	return &DecodeUsage{
		Sentences:       len(res.Hypotheses),
		TokensGenerated: res.Stats.TokensGenerated,
		DurationMS:      float64(res.Stats.Duration.Microseconds()) / 1000,
		TokensPerSecond: res.Stats.TPS,
	}
}
