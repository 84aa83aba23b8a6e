package hyperloglog

import "math"

// alphaInf is the limiting alpha constant from the Ertl paper: 0.5 / ln(2).
const alphaInf = 0.721347520444481703680

// estimateCardinality computes the Ertl improved estimator (Algorithm 6 in
// "New cardinality estimation algorithms for HyperLogLog sketches") over a
// register map, parameterized by the precision p.
//
// The algorithm operates on a histogram of register ranks rather than the
// raw registers. Registers equal to zero (absent from the map) contribute
// through the sigma term, registers saturated past q through the tau term,
// and everything in between through a halving fold from rank q down to 1.
// Unlike the original HyperLogLog formula this needs no empirical bias
// tables and no linear-counting switchover.
func estimateCardinality(p uint8, regs registers) uint64 {
	nonEmpty := len(regs)
	if nonEmpty == 0 {
		return 0
	}

	m := float64(uint64(1) << p)
	q := 64 - int(p)
	histo := regs.histogram()

	z := m * hllTau(1-float64(histo[uint8(q+1)])/m)
	for k := q; k >= 1; k-- {
		z += float64(histo[uint8(k)])
		z *= 0.5
	}
	z += m * hllSigma(1-float64(nonEmpty)/m)

	return uint64(math.Round(alphaInf * m * m / z))
}

// hllSigma is the sigma(x) helper from the Ertl paper. It accounts for the
// contribution of registers that are still zero.
//
// The series is evaluated until it reaches a floating-point fixed point:
// the loop stops exactly when an iteration produces no bit-level change in
// the accumulator. This termination rule, not a fixed iteration count, is
// what gives the estimator its expected error bound.
func hllSigma(x float64) float64 {
	if x == 1. {
		return math.Inf(1)
	}

	zPrime := 0.0
	y := 1.0
	z := x

	for {
		x *= x
		zPrime = z
		z += x * y
		y += y

		if zPrime == z {
			break
		}
	}

	return z
}

// hllTau is the tau(x) helper from the Ertl paper. It corrects for
// registers that have saturated beyond the maximum trackable rank. The
// same fixed-point termination rule as hllSigma applies; both series
// provably converge for x in [0, 1], typically in under 20 iterations.
func hllTau(x float64) float64 {
	if x == 0. || x == 1. {
		return 0.
	}

	zPrime := 0.0
	y := 1.0
	z := 1 - x

	for {
		x = math.Sqrt(x)
		zPrime = z
		y *= 0.5
		z -= (1 - x) * (1 - x) * y

		if zPrime == z {
			break
		}
	}

	return z / 3
}
