// Package pipeline - Runs split, select, metadata, count and merge as one survey.
package pipeline

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ErrInvalidArgument marks a run parameter that cannot be used.
var ErrInvalidArgument = errors.New("invalid argument")

// Params are the user-tunable values of a run.
type Params struct {
	// Number is the maximum count of tiles sampled per photograph.
	Number int
	// Seed makes the sampling reproducible.
	Seed int64
	// Confidence is the detector score threshold in [0, 1].
	Confidence float64
}

// NewParams coerces loosely typed values into Params.
//
// number may also be a slice or array, in which case its first element is
// used. Strings holding numbers are accepted for every value.
//
// Arguments:
//   - number: Tiles per photograph, at least 1.
//   - seed: Sampling seed.
//   - conf: Confidence threshold in [0, 1].
//
// Returns:
//   - Params: The coerced parameters.
//   - error: An error wrapping ErrInvalidArgument describing the bad value.
func NewParams(number, seed, conf any) (Params, error) {
	raw := number
	if rv := reflect.ValueOf(number); rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		if rv.Len() == 0 {
			return Params{}, errors.Wrapf(ErrInvalidArgument, "'number' must be int, got: %T -> %v", number, number)
		}
		raw = rv.Index(0).Interface()
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return Params{}, errors.Wrapf(ErrInvalidArgument, "'number' must be int, got: %T -> %v", number, number)
	}

	s, err := cast.ToInt64E(seed)
	if err != nil {
		return Params{}, errors.Wrapf(ErrInvalidArgument, "'seed' must be int, got: %T -> %v", seed, seed)
	}

	c, err := cast.ToFloat64E(conf)
	if err != nil {
		return Params{}, errors.Wrapf(ErrInvalidArgument, "'conf' must be a number, got: %T -> %v", conf, conf)
	}

	p := Params{Number: n, Seed: s, Confidence: c}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Number < 1 {
		return errors.Wrapf(ErrInvalidArgument, "'number' must be at least 1, got: %d", p.Number)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return errors.Wrapf(ErrInvalidArgument, "'conf' must be in [0,1], got: %v", p.Confidence)
	}
	return nil
}
