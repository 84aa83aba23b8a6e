package hyperloglog

import (
	"encoding/binary"
	"math/bits"
)

// MurmurHash64A constants as used by the Redis HyperLogLog implementation.
// The murmur3 libraries in the ecosystem implement MurmurHash3, which is
// not byte-compatible with this Murmur2-family function, so it is
// implemented here directly.
const (
	murmurSeed  = 0xADC83B19
	murmurMult  = 0xC6A4A7935BD1E995
	murmurShift = 47
)

// murmurHash64A computes the 64-bit MurmurHash2 variant over data: 8-byte
// little-endian blocks, a per-remaining-byte tail, and a final avalanche
// mix, all modulo 2^64.
func murmurHash64A(data []byte, seed uint64) uint64 {
	h := seed ^ uint64(len(data))*murmurMult

	for len(data) >= 8 {
		k := binary.LittleEndian.Uint64(data)

		k *= murmurMult
		k ^= k >> murmurShift
		k *= murmurMult

		h ^= k
		h *= murmurMult

		data = data[8:]
	}

	switch len(data) {
	case 7:
		h ^= uint64(data[6]) << 48
		fallthrough
	case 6:
		h ^= uint64(data[5]) << 40
		fallthrough
	case 5:
		h ^= uint64(data[4]) << 32
		fallthrough
	case 4:
		h ^= uint64(data[3]) << 24
		fallthrough
	case 3:
		h ^= uint64(data[2]) << 16
		fallthrough
	case 2:
		h ^= uint64(data[1]) << 8
		fallthrough
	case 1:
		h ^= uint64(data[0])
		h *= murmurMult
	}

	h ^= h >> murmurShift
	h *= murmurMult
	h ^= h >> murmurShift

	return h
}

// redisIndexAndRank derives the (register index, rank) pair for an item
// under the Redis-compatible scheme: the high 14 bits of the Murmur hash
// select the register, and the rank is one plus the number of trailing
// zeros in the low 50 bits. When those 50 bits are all zero the rank is
// the saturation sentinel 51.
func redisIndexAndRank(data []byte) (uint16, uint8) {
	h := murmurHash64A(data, murmurSeed)

	idx := uint16(h >> (64 - redisPrecision))

	x := h & (1<<(64-redisPrecision) - 1)
	if x == 0 {
		return idx, redisMaxRank
	}
	return idx, uint8(bits.TrailingZeros64(x)) + 1
}
