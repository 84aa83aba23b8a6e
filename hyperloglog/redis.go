package hyperloglog

// The Redis-compatible variant runs at a fixed precision of 14, giving
// 16,384 registers and a maximum rank of 51 (the 50 rank bits of the hash
// plus one, with 51 doubling as the all-zeros saturation sentinel).
const (
	redisPrecision = 14
	redisRegisters = 1 << redisPrecision
	redisMaxRank   = 51
)

// RedisSketch is a HyperLogLog that is byte-for-byte compatible with the
// Redis implementation: same hash function, same estimator, same wire
// format. Like Sketch it is an immutable value; Add and MergeRedis return
// new sketches.
type RedisSketch struct {
	regs registers
}

// NewRedis creates an empty Redis-compatible sketch.
func NewRedis() *RedisSketch {
	return &RedisSketch{regs: make(registers)}
}

// Add incorporates an item and returns the resulting sketch. The receiver
// is unchanged; when the item does not raise any register the receiver
// itself is returned.
func (s *RedisSketch) Add(data []byte) *RedisSketch {
	idx, rank := redisIndexAndRank(data)

	next, changed := s.regs.updated(idx, rank)
	if !changed {
		return s
	}
	return &RedisSketch{regs: next}
}

// AddString is a convenience wrapper around Add for string items.
func (s *RedisSketch) AddString(data string) *RedisSketch {
	return s.Add([]byte(data))
}

// MergeRedis combines any number of Redis-compatible sketches into a new
// sketch of the union of their streams. With no inputs it returns
// ErrNoSketches; precision is fixed, so no other failure is possible.
func MergeRedis(sketches ...*RedisSketch) (*RedisSketch, error) {
	if len(sketches) == 0 {
		return nil, ErrNoSketches
	}

	maps := make([]registers, len(sketches))
	for i, s := range sketches {
		maps[i] = s.regs
	}
	return &RedisSketch{regs: mergeRegisters(maps)}, nil
}

// Cardinality returns the estimated number of distinct items added so far.
func (s *RedisSketch) Cardinality() uint64 {
	return estimateCardinality(redisPrecision, s.regs)
}

// RegisterCount returns the number of populated (non-zero) registers.
func (s *RedisSketch) RegisterCount() int {
	return len(s.regs)
}

// Equal reports whether two sketches hold identical register contents.
func (s *RedisSketch) Equal(other *RedisSketch) bool {
	return s.regs.equal(other.regs)
}
