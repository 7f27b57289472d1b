package beamsearch

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is wrapped by every configuration validation error.
	ErrInvalidConfig = errors.New("beamsearch: invalid config")
	// ErrEmptyBatch is returned for a source batch with no rows.
	ErrEmptyBatch = errors.New("beamsearch: empty source batch")
)

// Config holds the decoding hyper-parameters.
type Config struct {
	// BeamSize is the number of alive and finished hypotheses kept per
	// batch element.
	BeamSize int
	// TopBeams is how many hypotheses are returned per batch element.
	TopBeams int
	// Alpha is the length-penalty exponent.
	Alpha float64
	// DecodeLength is the number of tokens allowed beyond the source length.
	DecodeLength int

	PadID int32
	BOSID int32
	EOSID int32
}

// DefaultConfig returns the usual translation settings.
func DefaultConfig() Config {
	return Config{
		BeamSize:     4,
		TopBeams:     1,
		Alpha:        0.6,
		DecodeLength: 50,
		PadID:        0,
		BOSID:        1,
		EOSID:        1,
	}
}

// Validate checks the relationships between fields.
func (c Config) Validate() error {
	switch {
	case c.BeamSize < 1:
		return fmt.Errorf("%w: beam size %d must be at least 1", ErrInvalidConfig, c.BeamSize)
	case c.TopBeams < 1 || c.TopBeams > c.BeamSize:
		return fmt.Errorf("%w: top beams %d must be in [1, %d]", ErrInvalidConfig, c.TopBeams, c.BeamSize)
	case c.DecodeLength < 0:
		return fmt.Errorf("%w: decode length %d is negative", ErrInvalidConfig, c.DecodeLength)
	case math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0):
		return fmt.Errorf("%w: alpha %v is not finite", ErrInvalidConfig, c.Alpha)
	case c.Alpha < 0:
		// The stopping bound relies on the penalty growing with length.
		return fmt.Errorf("%w: alpha %v is negative", ErrInvalidConfig, c.Alpha)
	case c.PadID < 0 || c.BOSID < 0 || c.EOSID < 0:
		return fmt.Errorf("%w: special token ids must be non-negative (pad=%d bos=%d eos=%d)", ErrInvalidConfig, c.PadID, c.BOSID, c.EOSID)
	}
	return nil
}

// LengthPenalty is ((5 + n) / 6) ^ alpha, where n is the number of tokens
// generated so far. Step scores use n = t+1 at step t and the stopping bound
// uses n = the step budget, so both sides of the comparison share one
// convention.
func LengthPenalty(n int, alpha float64) float64 {
	return math.Pow((5+float64(n))/6, alpha)
}
