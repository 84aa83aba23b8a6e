package hyperloglog

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/twmb/murmur3"
)

// Hash32 maps an item to a deterministic, uniformly distributed 32-bit
// hash. The generic Sketch accepts any Hash32 with good bit avalanche;
// sketches that are merged together must use the same function.
type Hash32 func(data []byte) uint32

// XXHash32 is the default Hash32: the low 32 bits of xxhash's 64-bit sum.
func XXHash32(data []byte) uint32 {
	return uint32(xxhash.Sum64(data))
}

// Murmur3Hash32 is an alternative Hash32 built on MurmurHash3's 32-bit
// variant. Useful when sketches must agree with another system that hashes
// items with murmur3.
func Murmur3Hash32(data []byte) uint32 {
	return murmur3.SeedSum32(0, data)
}

// rehashPrefix tags the re-hash of an item whose first hash carried no
// rank information, so the second hash is deterministic but distinct from
// the first.
const rehashPrefix byte = 0xA5

// indexAndRank derives the (register index, rank) pair for an item under
// the generic 32-bit hashing scheme.
//
// The top p bits of the hash select the register. The remaining 32-p bits
// are scanned from the most significant end for the first 1 bit; the rank
// is one plus the number of zeros skipped. If every remaining bit is zero
// the scan continues into a second hash of the prefixed item, and if that
// is also all zeros the rank saturates at (32-p)+32.
func indexAndRank(p uint8, hash Hash32, data []byte) (uint16, uint8) {
	h := hash(data)
	idx := uint16(h >> (32 - p))

	// Shift the index bits out so the remaining 32-p bits sit at the top
	// of the word, backed by zeros that a non-empty remainder can never
	// reach.
	rem := h << p
	if rem != 0 {
		return idx, uint8(bits.LeadingZeros32(rem)) + 1
	}

	wrapped := make([]byte, len(data)+1)
	wrapped[0] = rehashPrefix
	copy(wrapped[1:], data)

	zeros := 32 - p
	h2 := hash(wrapped)
	if h2 == 0 {
		return idx, zeros + 32
	}
	return idx, zeros + uint8(bits.LeadingZeros32(h2)) + 1
}
