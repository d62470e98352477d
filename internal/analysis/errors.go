package analysis

import "errors"

var (
	// ErrInsufficientData means the input is too short (or too quiet) to
	// produce a meaningful estimate. Callers should present this as
	// "not enough data", never as a zero-valued result.
	ErrInsufficientData = errors.New("analysis: insufficient data")

	// ErrInvalidSampleRate means the derived sample interval is
	// non-positive or non-finite.
	ErrInvalidSampleRate = errors.New("analysis: invalid sample rate")

	// ErrMissingChannel means a required paired channel was not supplied.
	ErrMissingChannel = errors.New("analysis: required channel missing")
)
