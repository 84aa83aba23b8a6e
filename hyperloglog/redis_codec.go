package hyperloglog

import "fmt"

// The Redis HyperLogLog wire format.
//
// Both encodings start with the 16-byte header:
//
//	+------+---+-----+--------------------+
//	| HYLL | E | N/U | Cached cardinality |
//	+------+---+-----+--------------------+
//
// Four magic bytes, one encoding byte (0 = dense, 1 = sparse), three
// unused bytes, and the 64-bit cached cardinality in little-endian with
// its most significant bit doubling as a "cache stale" flag. This encoder
// always writes a zero cardinality with the stale bit set (byte 15 =
// 0x80), leaving the consumer to recompute; the decoder ignores bytes 5-15
// entirely, since buffers produced by Redis itself carry a live cached
// value there.
//
// The sparse body is a stream of opcodes that reconstructs all 16,384
// register positions in order:
//
//	ZERO:  00xxxxxx                   a run of 1-64 zero registers
//	XZERO: 01xxxxxx yyyyyyyy          a run of 1-16384 zero registers
//	VAL:   1vvvvvxx                   1-4 registers holding value 1-32
//
// Run lengths and values are stored off-by-one (xxxxxx = len-1, vvvvv =
// value-1). VAL cannot represent a value above 32, so a sketch holding a
// larger rank must be encoded dense. The encoder also switches to dense
// beyond a populated-register threshold, where sparse stops being smaller;
// that cutoff is a size heuristic, not a correctness requirement.
//
// The dense body packs the 16,384 6-bit registers four-to-three-bytes:
//
//	byte 0: [reg1 low 2 bits][reg0 all 6 bits]
//	byte 1: [reg2 low 4 bits][reg1 high 4 bits]
//	byte 2: [reg3 all 6 bits][reg2 high 2 bits]
//
// This layout is the Redis one and must be reproduced bit-exactly; it is
// not a plain MSB-first concatenation.
const (
	redisHeaderSize = 16
	redisMagic      = "HYLL"

	redisEncDense  byte = 0
	redisEncSparse byte = 1

	redisDenseSize = redisRegisters * 6 / 8 // 12288

	redisSparseZeroMaxLen  = 64
	redisSparseXZeroMaxLen = redisRegisters
	redisSparseValMaxValue = 32
	redisSparseValMaxRun   = 4

	// Past this many populated registers the sparse body stops paying
	// for itself and the sketch is encoded dense directly.
	redisSparseMaxRegisters = 2000
)

func redisHeader(enc byte) []byte {
	h := make([]byte, redisHeaderSize)
	copy(h, redisMagic)
	h[4] = enc
	h[15] = 0x80 // cache invalidated
	return h
}

// Serialize encodes the sketch in the Redis wire format, preferring the
// sparse encoding when the sketch qualifies for it.
func (s *RedisSketch) Serialize() []byte {
	if len(s.regs) > redisSparseMaxRegisters {
		return s.serializeDense()
	}
	for _, v := range s.regs {
		if v > redisSparseValMaxValue {
			return s.serializeDense()
		}
	}
	return s.serializeSparse()
}

func (s *RedisSketch) serializeSparse() []byte {
	out := redisHeader(redisEncSparse)

	// Walk the register space in order, coalescing zero runs into
	// ZERO/XZERO opcodes and runs of identical values into VAL opcodes
	// of up to four registers each. Trailing zeros are encoded too: the
	// opcode stream always covers all 16,384 positions, exactly as a
	// sketch created by Redis does.
	idx := 0
	for idx < redisRegisters {
		val := s.regs[uint16(idx)]

		run := 1
		for idx+run < redisRegisters && s.regs[uint16(idx+run)] == val {
			run++
		}
		idx += run

		if val == 0 {
			for run > redisSparseZeroMaxLen {
				n := run
				if n > redisSparseXZeroMaxLen {
					n = redisSparseXZeroMaxLen
				}
				out = append(out, 0x40|byte((n-1)>>8), byte(n-1))
				run -= n
			}
			if run > 0 {
				out = append(out, byte(run-1))
			}
			continue
		}

		for run > 0 {
			n := run
			if n > redisSparseValMaxRun {
				n = redisSparseValMaxRun
			}
			out = append(out, 0x80|(val-1)<<2|byte(n-1))
			run -= n
		}
	}

	return out
}

func (s *RedisSketch) serializeDense() []byte {
	out := make([]byte, redisHeaderSize+redisDenseSize)
	copy(out, redisHeader(redisEncDense))

	body := out[redisHeaderSize:]
	for idx := 0; idx < redisRegisters; idx += 4 {
		r0 := s.regs[uint16(idx)]
		r1 := s.regs[uint16(idx+1)]
		r2 := s.regs[uint16(idx+2)]
		r3 := s.regs[uint16(idx+3)]

		o := idx / 4 * 3
		body[o] = r0 | r1<<6
		body[o+1] = r1>>2 | r2<<4
		body[o+2] = r2>>4 | r3<<2
	}

	return out
}

// DeserializeRedis decodes a Redis wire-format buffer into a RedisSketch.
// It returns an error wrapping ErrMalformed if the magic or encoding byte
// is unrecognized, or if the body is truncated or does not reconstruct
// exactly 16,384 register positions.
func DeserializeRedis(data []byte) (*RedisSketch, error) {
	if len(data) < redisHeaderSize {
		return nil, fmt.Errorf("%w: buffer shorter than header", ErrMalformed)
	}
	if string(data[:4]) != redisMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, data[:4])
	}

	body := data[redisHeaderSize:]
	switch data[4] {
	case redisEncSparse:
		return decodeRedisSparse(body)
	case redisEncDense:
		return decodeRedisDense(body)
	default:
		return nil, fmt.Errorf("%w: unknown encoding byte %#x", ErrMalformed, data[4])
	}
}

func decodeRedisSparse(body []byte) (*RedisSketch, error) {
	regs := make(registers)

	idx := 0
	pos := 0
	for pos < len(body) {
		op := body[pos]
		switch {
		case op&0xC0 == 0x00: // ZERO
			idx += int(op&0x3F) + 1
			pos++

		case op&0xC0 == 0x40: // XZERO
			if pos+1 >= len(body) {
				return nil, fmt.Errorf("%w: truncated XZERO opcode", ErrMalformed)
			}
			idx += (int(op&0x3F)<<8 | int(body[pos+1])) + 1
			pos += 2

		default: // VAL
			val := (op>>2)&0x1F + 1
			run := int(op&0x03) + 1
			if idx+run > redisRegisters {
				return nil, fmt.Errorf("%w: sparse opcodes overflow the register space", ErrMalformed)
			}
			for i := 0; i < run; i++ {
				regs[uint16(idx+i)] = val
			}
			idx += run
			pos++
		}

		if idx > redisRegisters {
			return nil, fmt.Errorf("%w: sparse opcodes overflow the register space", ErrMalformed)
		}
	}

	if idx != redisRegisters {
		return nil, fmt.Errorf("%w: sparse opcodes cover %d of %d registers", ErrMalformed, idx, redisRegisters)
	}
	return &RedisSketch{regs: regs}, nil
}

func decodeRedisDense(body []byte) (*RedisSketch, error) {
	if len(body) != redisDenseSize {
		return nil, fmt.Errorf("%w: dense body is %d bytes, want %d", ErrMalformed, len(body), redisDenseSize)
	}

	regs := make(registers)
	for idx := 0; idx < redisRegisters; idx += 4 {
		o := idx / 4 * 3
		b0, b1, b2 := body[o], body[o+1], body[o+2]

		store := func(i int, v uint8) {
			if v != 0 {
				regs[uint16(i)] = v
			}
		}
		store(idx, b0&0x3F)
		store(idx+1, b0>>6|(b1&0x0F)<<2)
		store(idx+2, b1>>4|(b2&0x03)<<4)
		store(idx+3, b2>>2)
	}
	return &RedisSketch{regs: regs}, nil
}
