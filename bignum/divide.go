package bignum

import (
	"math/bits"

	"github.com/lattice-substrate/float-digits/dtoaerr"
)

// divisorTopBit is where NormalizeForDivision puts the highest set bit of the
// divisor's top word. A top word in [2^27, 2^28) keeps the quotient estimate
// in HeuristicDivide at most one below the true quotient, and leaves room for
// a dividend up to ten times the divisor without growing a word.
const divisorTopBit = 27

// NormalizeForDivision shifts dividend and divisor left by the same number of
// bits so that the divisor's top word has its highest bit at index 27. The
// ratio dividend/divisor is unchanged.
func NormalizeForDivision(dividend, divisor *Nat) error {
	if divisor.n == 0 {
		return dtoaerr.Assertion(dtoaerr.InvalidOperand, "NormalizeForDivision", "divisor is zero")
	}
	hi := bits.Len32(divisor.w[divisor.n-1]) - 1
	shift := uint((wordBits + divisorTopBit - hi) % wordBits)
	if shift == 0 {
		return nil
	}
	if err := divisor.Shl(divisor, shift); err != nil {
		return err
	}
	return dividend.Shl(dividend, shift)
}

// HeuristicDivide returns q = floor(dividend/divisor) and replaces dividend
// with the remainder. The quotient must fit in one word and the divisor must
// have been normalized with NormalizeForDivision.
//
// The quotient is first estimated from the top words as
// top(dividend)/(top(divisor)+1), which never overshoots. divisor*q is
// subtracted in a single pass, then one correction subtraction is applied if
// the remainder is still at least the divisor.
func HeuristicDivide(dividend, divisor *Nat) (uint32, error) {
	n := divisor.n
	if n == 0 {
		return 0, dtoaerr.Assertion(dtoaerr.InvalidOperand, "HeuristicDivide", "divisor is zero")
	}
	if dividend.n < n {
		return 0, nil
	}
	if dividend.n > n {
		return 0, dtoaerr.Assertion(dtoaerr.InvalidOperand, "HeuristicDivide",
			"dividend has %d words, divisor %d: quotient exceeds one word", dividend.n, n)
	}

	q := uint32(uint64(dividend.w[n-1]) / (uint64(divisor.w[n-1]) + 1))

	if q != 0 {
		// dividend -= divisor * q
		var borrow, carry uint64
		for i := 0; i < n; i++ {
			p := uint64(divisor.w[i])*uint64(q) + carry
			carry = p >> wordBits
			d := uint64(dividend.w[i]) - (p & wordMask) - borrow
			borrow = (d >> wordBits) & 1
			dividend.w[i] = uint32(d & wordMask)
		}
		dividend.trim()
	}

	if Compare(dividend, divisor) >= 0 {
		q++
		if err := dividend.Sub(dividend, divisor); err != nil {
			return 0, err
		}
		if Compare(dividend, divisor) >= 0 {
			return 0, dtoaerr.Assertion(dtoaerr.InvalidOperand, "HeuristicDivide",
				"quotient estimate off by more than one; divisor top word %#x not normalized",
				divisor.w[n-1])
		}
	}
	return q, nil
}
