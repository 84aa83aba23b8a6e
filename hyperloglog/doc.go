// Package hyperloglog implements the HyperLogLog algorithm for cardinality
// estimation, in two interoperable variants.
//
// The HyperLogLog (HLL) algorithm is a probabilistic data structure used to
// estimate the number of distinct elements in a multiset using a fixed,
// small amount of memory. It exploits a statistical property of uniformly
// distributed hash values: the probability of a hash exhibiting a run of k
// zero bits is 1/2^k, so the longest run observed across many hashes tells
// us roughly how many distinct items were seen. To reduce variance the hash
// space is partitioned into m = 2^p registers, each storing the maximum run
// length ("rank") observed for items routed to it, and the estimate is
// derived from the register multiset.
//
// Two sketch types are provided:
//
//   - Sketch is the general-purpose variant. Its precision p is chosen at
//     construction time in the range [8, 16], trading memory for accuracy
//     (standard error is about 1.04/sqrt(2^p)). Items are routed through a
//     32-bit hash, xxhash by default; the hash function is pluggable. Its
//     binary encoding is a compact internal format that auto-selects
//     between a sparse record list and a dense register array.
//
//   - RedisSketch is byte-for-byte compatible with the Redis HyperLogLog
//     implementation: fixed precision 14 (16,384 registers), MurmurHash64A
//     with the Redis seed, the same run-length sparse encoding and 6-bit
//     dense register packing, and the 16-byte "HYLL" header. A buffer
//     produced by Serialize can be loaded into Redis with RESTORE-style
//     tooling, and a value read from Redis can be decoded with
//     DeserializeRedis.
//
// Both variants share the register model and the improved estimator from
// Ertl's "New cardinality estimation algorithms for HyperLogLog sketches"
// (Algorithm 6), which corrects the bias of the classic harmonic-mean
// formula without empirical tables.
//
// # Value semantics
//
// Sketches are immutable values. Add and Merge return a new sketch and
// never modify the receiver, so a sketch held by one goroutine can be read
// freely while derived sketches are built elsewhere. The package contains
// no locks; callers that funnel concurrent updates into one logical sketch
// either serialize the updates themselves or build independent sketches and
// merge them.
//
// # Errors
//
// All failures are local and non-retryable: ErrInvalidPrecision at
// construction, ErrPrecisionMismatch and ErrNoSketches on merge, and
// ErrMalformed when decoding a buffer that is not a valid sketch. Add,
// Cardinality and Serialize cannot fail.
package hyperloglog
