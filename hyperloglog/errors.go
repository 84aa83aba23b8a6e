package hyperloglog

import "errors"

var (
	// ErrInvalidPrecision is returned by New when the requested precision
	// is outside the supported [MinPrecision, MaxPrecision] range.
	ErrInvalidPrecision = errors.New("hyperloglog: precision must be between 8 and 16")

	// ErrPrecisionMismatch is returned by Merge when the sketches do not
	// all share the same precision.
	ErrPrecisionMismatch = errors.New("hyperloglog: cannot merge sketches of different precisions")

	// ErrNoSketches is returned by Merge and MergeRedis when called with
	// no sketches.
	ErrNoSketches = errors.New("hyperloglog: merge requires at least one sketch")

	// ErrMalformed is returned by Deserialize and DeserializeRedis when a
	// buffer does not carry a recognizable header or its body is
	// truncated or corrupted. Decode errors wrap ErrMalformed with
	// detail, so callers should test with errors.Is.
	ErrMalformed = errors.New("hyperloglog: malformed sketch data")
)
