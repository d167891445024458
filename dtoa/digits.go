package dtoa

import (
	"github.com/lattice-substrate/float-digits/bignum"
	"github.com/lattice-substrate/float-digits/dtoaerr"
)

// ratio holds num/den, an exact scaled copy of the value being converted.
type ratio struct {
	num bignum.Nat
	den bignum.Nat
}

// init sets num/den = mantissa * 2^exp / 10^(k-1), where k is the corrected
// decimal exponent estimate, so that 1 <= num/den < 10. It returns k.
func (r *ratio) init(d Decomposed) (int, error) {
	r.num.SetUint64(d.Mantissa)
	r.den.SetWord(1)
	if d.BinaryExponent >= 0 {
		if err := r.num.Shl(&r.num, uint(d.BinaryExponent)); err != nil {
			return 0, err
		}
	} else {
		if err := r.den.Shl(&r.den, uint(-d.BinaryExponent)); err != nil {
			return 0, err
		}
	}

	k := EstimateExponent(d.MantissaBitLength, d.BinaryExponent)
	if k != 0 {
		var p bignum.Nat
		if k > 0 {
			if err := p.Pow10(k); err != nil {
				return 0, err
			}
			if err := r.den.Mul(&r.den, &p); err != nil {
				return 0, err
			}
		} else {
			if err := p.Pow10(-k); err != nil {
				return 0, err
			}
			if err := r.num.Mul(&r.num, &p); err != nil {
				return 0, err
			}
		}
	}

	// num/den is now value/10^k. The estimate is never high, so a ratio of
	// at least one means k was one low and the ratio already has its leading
	// digit in the units place.
	if bignum.Compare(&r.num, &r.den) >= 0 {
		k++
	} else if err := r.num.MulWord(&r.num, 10); err != nil {
		return 0, err
	}
	return k, nil
}

// generate appends count digits of num/den to dst, rounding the last one
// half-to-even, and returns the decimal exponent adjusted for a carry out of
// the first digit. Digits past the end of a terminating expansion are '0'.
func (r *ratio) generate(dst []byte, dec, count int) ([]byte, int, error) {
	if err := bignum.NormalizeForDivision(&r.num, &r.den); err != nil {
		return dst, dec, err
	}

	start := len(dst)
	var digit uint32
	for produced := 0; ; produced++ {
		q, err := bignum.HeuristicDivide(&r.num, &r.den)
		if err != nil {
			return dst, dec, err
		}
		if q > 9 {
			return dst, dec, dtoaerr.Assertion(dtoaerr.InternalError, "generate",
				"digit %d out of range at position %d", q, produced)
		}
		digit = q
		if r.num.IsZero() || produced+1 == count {
			break
		}
		dst = append(dst, byte('0'+digit))
		if err := r.num.MulWord(&r.num, 10); err != nil {
			return dst, dec, err
		}
	}

	// Compare the remainder with one half: 2*num against den.
	if err := r.num.MulWord(&r.num, 2); err != nil {
		return dst, dec, err
	}
	c := bignum.Compare(&r.num, &r.den)
	if c < 0 || (c == 0 && digit&1 == 0) {
		dst = append(dst, byte('0'+digit))
	} else {
		dst, dec = roundUp(dst, start, digit, dec)
	}

	for len(dst)-start < count {
		dst = append(dst, '0')
	}
	return dst, dec, nil
}

// roundUp appends digit+1 to the digits in dst[start:]. A 9 carries into the
// committed digits: trailing nines are dropped (the caller pads them back as
// zeros) and the first non-nine is incremented. If every digit was a nine the
// result is a single '1' and dec moves up by one.
func roundUp(dst []byte, start int, digit uint32, dec int) ([]byte, int) {
	if digit < 9 {
		return append(dst, byte('0'+digit+1)), dec
	}
	for i := len(dst) - 1; i >= start; i-- {
		if dst[i] != '9' {
			dst[i]++
			return dst[:i+1], dec
		}
	}
	return append(dst[:start], '1'), dec + 1
}
