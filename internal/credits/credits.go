package credits

import "math"

// Millicredits is a fixed-point credit amount in thousandths of a credit.
// Every pricing constant is a multiple of 0.05 credits, so integer
// millicredits represent the whole rule chain exactly. Floats only appear
// at the rounding boundary.
type Millicredits int64

// FromFloat converts a credit amount expressed as a float (e.g. a report's
// precomputed cost from upstream JSON) into millicredits.
func FromFloat(credits float64) Millicredits {
	return Millicredits(math.Round(credits * 1000))
}

// Round rounds to 2 decimal places using half-up rounding (ties away from
// zero), never half-even. 1.005 credits (1005 millicredits) rounds to 1.01.
func (m Millicredits) Round() float64 {
	if m >= 0 {
		return float64((m+5)/10) / 100
	}
	return -float64((-m+5)/10) / 100
}
