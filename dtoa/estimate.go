package dtoa

import "math"

const (
	log10Of2 = 0.30102999566398119521373889472449

	// estimateSlack absorbs the fractional part of log10 of the mantissa plus
	// floating-point drift, so the estimate is never above the true position
	// and at most one below it.
	estimateSlack = 0.69
)

// EstimateExponent estimates k such that 10^(k-1) <= value < 10^k for a
// value whose highest set bit is bit (bitLen + binExp - 1). The result is the
// true k or k-1; the rational scaler checks and corrects it.
func EstimateExponent(bitLen, binExp int) int {
	return int(math.Ceil(float64(bitLen+binExp)*log10Of2 - estimateSlack))
}
