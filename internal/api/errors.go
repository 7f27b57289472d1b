package api

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid_request")

// invalidRequestError names the offending request field when there is one.
type invalidRequestError struct {
	param string
	msg   string
}

func (e invalidRequestError) Error() string {
	if e.param == "" {
		return e.msg
	}
	return e.param + ": " + e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, format string, args ...any) error {
	return invalidRequestError{param: param, msg: fmt.Sprintf(format, args...)}
}

func invalidParam(err error) string {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return ire.param
	}
	return ""
}

// validate catches what the engine would only report as a generic
// invalid input, so the error can name the field.
func (r *DecodeRequest) validate() error {
	switch {
	case len(r.Source) == 0 && len(r.Text) == 0:
		return newInvalidRequest("source", "one of source or text is required")
	case len(r.Source) > 0 && len(r.Text) > 0:
		return newInvalidRequest("text", "source and text are mutually exclusive")
	case r.BeamSize < 0:
		return newInvalidRequest("beam_size", "must be positive, got %d", r.BeamSize)
	case r.TopBeams < 0:
		return newInvalidRequest("top_beams", "must be positive, got %d", r.TopBeams)
	case r.DecodeLength != nil && *r.DecodeLength < 0:
		return newInvalidRequest("decode_length", "must not be negative, got %d", *r.DecodeLength)
	}
	for i, row := range r.Source {
		if len(row) == 0 {
			return newInvalidRequest("source", "sentence %d is empty", i)
		}
	}
	return nil
}
