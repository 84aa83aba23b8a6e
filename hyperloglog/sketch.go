package hyperloglog

// Precision bounds for the generic Sketch. The range is a process-wide
// constant: the codec header encodes p-8 in four bits, and below 8 the
// estimator's variance makes the sketch pointless.
const (
	MinPrecision = 8
	MaxPrecision = 16
)

// Sketch is the general-purpose HyperLogLog variant. Its precision is
// fixed at construction and it behaves as an immutable value: Add returns
// a new Sketch and never mutates the receiver.
type Sketch struct {
	precision uint8
	hash      Hash32
	regs      registers
}

// New creates an empty Sketch with m = 2^precision registers and the
// default xxhash-based hash function. It returns ErrInvalidPrecision if
// precision is outside [MinPrecision, MaxPrecision].
func New(precision uint8) (*Sketch, error) {
	return NewWithHash(precision, nil)
}

// NewWithHash creates an empty Sketch that routes items through the given
// hash function. A nil hash selects XXHash32. Sketches are only merge- and
// comparison-compatible when built with the same hash function.
func NewWithHash(precision uint8, hash Hash32) (*Sketch, error) {
	if precision < MinPrecision || precision > MaxPrecision {
		return nil, ErrInvalidPrecision
	}
	if hash == nil {
		hash = XXHash32
	}
	return &Sketch{
		precision: precision,
		hash:      hash,
		regs:      make(registers),
	}, nil
}

// Add incorporates an item and returns the resulting Sketch. The receiver
// is unchanged; when the item does not raise any register (for example, a
// duplicate) the receiver itself is returned, so Add(x).Add(x) == Add(x).
func (s *Sketch) Add(data []byte) *Sketch {
	idx, rank := indexAndRank(s.precision, s.hash, data)

	next, changed := s.regs.updated(idx, rank)
	if !changed {
		return s
	}
	return &Sketch{precision: s.precision, hash: s.hash, regs: next}
}

// AddString is a convenience wrapper around Add for string items.
func (s *Sketch) AddString(data string) *Sketch {
	return s.Add([]byte(data))
}

// Merge combines any number of sketches into a new Sketch whose registers
// hold the per-index maximum, i.e. the sketch of the union of the input
// streams. All inputs must share the same precision or Merge returns
// ErrPrecisionMismatch; with no inputs it returns ErrNoSketches. The
// inputs are not modified.
func Merge(sketches ...*Sketch) (*Sketch, error) {
	if len(sketches) == 0 {
		return nil, ErrNoSketches
	}

	precision := sketches[0].precision
	maps := make([]registers, len(sketches))
	for i, s := range sketches {
		if s.precision != precision {
			return nil, ErrPrecisionMismatch
		}
		maps[i] = s.regs
	}

	return &Sketch{
		precision: precision,
		hash:      sketches[0].hash,
		regs:      mergeRegisters(maps),
	}, nil
}

// Cardinality returns the estimated number of distinct items added so far.
func (s *Sketch) Cardinality() uint64 {
	return estimateCardinality(s.precision, s.regs)
}

// Precision returns the sketch's precision p.
func (s *Sketch) Precision() uint8 {
	return s.precision
}

// RegisterCount returns the number of populated (non-zero) registers.
func (s *Sketch) RegisterCount() int {
	return len(s.regs)
}

// Equal reports whether two sketches have the same precision and identical
// register contents. The hash function is not part of the comparison; it
// is the caller's responsibility not to mix hash functions in the first
// place.
func (s *Sketch) Equal(other *Sketch) bool {
	return s.precision == other.precision && s.regs.equal(other.regs)
}
