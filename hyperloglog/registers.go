package hyperloglog

import "sort"

// registers is the sparse register model shared by both sketch variants:
// a map from register index to the maximum rank observed for that bucket.
// An index absent from the map is defined to hold 0, so a stored value is
// always >= 1. With p <= 16 every index fits in a uint16.
type registers map[uint16]uint8

// updated returns a register map where the register at idx holds at least
// val. If the stored value is already >= val the receiver is returned
// as-is with changed = false; otherwise a copy with the larger value is
// returned. This is the fundamental monotone, idempotent operation that
// Add is built on, and it is what makes sketches behave as immutable
// values: the receiver is never modified.
func (r registers) updated(idx uint16, val uint8) (regs registers, changed bool) {
	if cur, ok := r[idx]; ok && cur >= val {
		return r, false
	}

	next := make(registers, len(r)+1)
	for i, v := range r {
		next[i] = v
	}
	next[idx] = val
	return next, true
}

// clone returns an independent copy of the register map.
func (r registers) clone() registers {
	next := make(registers, len(r))
	for i, v := range r {
		next[i] = v
	}
	return next
}

// equal reports whether two register maps hold the same values at the same
// indexes. Absent entries count as 0, and updated never stores 0, so plain
// entry-wise comparison is sufficient.
func (r registers) equal(other registers) bool {
	if len(r) != len(other) {
		return false
	}
	for i, v := range r {
		if other[i] != v {
			return false
		}
	}
	return true
}

// histogram counts how many registers hold each rank. Only populated
// registers appear; a missing key means zero registers hold that rank.
func (r registers) histogram() map[uint8]int {
	histo := make(map[uint8]int, 16)
	for _, v := range r {
		histo[v]++
	}
	return histo
}

// mergeRegisters folds any number of register maps into a new map holding
// the per-index maximum. The union of HLL register sets is exactly this
// max, which makes the operation commutative, associative and idempotent.
//
// The inputs are processed largest-first: the biggest map is cloned as the
// accumulator and the smaller ones are folded into it, which minimizes the
// number of insertions performed. The accumulator is mutated only before
// it is returned, so the result is as immutable as any other sketch state.
func mergeRegisters(maps []registers) registers {
	ordered := make([]registers, len(maps))
	copy(ordered, maps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	acc := ordered[0].clone()
	for _, m := range ordered[1:] {
		for idx, val := range m {
			if cur, ok := acc[idx]; !ok || val > cur {
				acc[idx] = val
			}
		}
	}
	return acc
}
