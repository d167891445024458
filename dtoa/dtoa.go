// Package dtoa converts IEEE 754 double-precision values into their exact
// decimal digits, decimal exponent and sign, to a requested number of
// significant digits with round-half-to-even rounding.
//
// The value is turned into an exact ratio of two fixed-capacity bignums,
// scaled by a power of ten so that its leading digit sits in the units place,
// and digits are then extracted one heuristic division at a time. The last
// requested digit is rounded against the exact remainder, so the output is
// correct for every finite double regardless of the binary/decimal base
// mismatch.
//
// Conversion is pure and allocation-light: every call owns its own bignum
// scratch values and the power-of-ten tables are immutable, so Convert is safe
// for concurrent use.
//
// The package produces digits only. Placing a decimal point, exponent
// notation or grouping is left to the caller.
package dtoa

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lattice-substrate/float-digits/dtoaerr"
)

const (
	// MinPrecision and MaxPrecision bound the number of significant digits.
	MinPrecision = 1
	MaxPrecision = 50

	// ScaleNaN and ScaleInf are the reserved Scale values for non-finite
	// inputs.
	ScaleNaN = math.MinInt32
	ScaleInf = math.MaxInt32
)

// ErrNotFinite is the cause reported when Ecvt is given NaN or Infinity.
var ErrNotFinite = errors.New("dtoa: value is not finite (NaN or Infinity)")

// Number is the decimal form of a double.
//
// For finite values, Digits holds exactly Precision ASCII digits d1 d2 ... dn
// and the value equals (-1)^Sign * d1.d2...dn * 10^Scale after rounding. For
// NaN and Infinity, Scale is ScaleNaN or ScaleInf and Digits is empty.
type Number struct {
	Precision int
	Scale     int
	Sign      int
	Digits    string
}

// IsNaN reports whether n encodes NaN.
func (n Number) IsNaN() bool {
	return n.Scale == ScaleNaN
}

// IsInf reports whether n encodes an infinity.
func (n Number) IsInf() bool {
	return n.Scale == ScaleInf
}

// IsZero reports whether n encodes a zero of either sign.
func (n Number) IsZero() bool {
	return !n.IsNaN() && !n.IsInf() && strings.Trim(n.Digits, "0") == ""
}

// Float64 reconstructs the double nearest to n. With Precision >= 17 this
// is the value n was converted from.
func (n Number) Float64() (float64, error) {
	switch {
	case n.IsNaN():
		return math.NaN(), nil
	case n.IsInf():
		if n.Sign != 0 {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}
	s := n.Digits + "e" + strconv.Itoa(n.Scale-len(n.Digits)+1)
	if n.Sign != 0 {
		s = "-" + s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, dtoaerr.Wrap(dtoaerr.InvalidInput, "Float64", fmt.Sprintf("digits %q do not form a double", n.Digits), err)
	}
	return f, nil
}

func (n Number) String() string {
	scale := strconv.Itoa(n.Scale)
	switch {
	case n.IsNaN():
		scale = "NaN"
	case n.IsInf():
		scale = "Inf"
	}
	return fmt.Sprintf("sign=%d scale=%s digits=%s", n.Sign, scale, n.Digits)
}

// Convert returns the first precision significant digits of f, correctly
// rounded half-to-even, together with its sign and decimal exponent.
//
// Special cases:
//   - NaN and ±Infinity return ScaleNaN/ScaleInf, the sign bit, and no digits.
//   - ±0 returns precision zeros with Scale 0 and the sign bit.
//
// Precision must lie in [MinPrecision, MaxPrecision].
func Convert(f float64, precision int) (Number, error) {
	if err := checkPrecision("Convert", precision); err != nil {
		return Number{}, err
	}

	n := Number{Precision: precision}
	d := Decompose(f)
	n.Sign = int(d.Sign)
	switch d.Class {
	case ClassNaN:
		n.Scale = ScaleNaN
		return n, nil
	case ClassInfinity:
		n.Scale = ScaleInf
		return n, nil
	}

	buf, dec, err := appendFinite(make([]byte, 0, precision), d, precision)
	if err != nil {
		return Number{}, err
	}
	n.Scale = dec
	n.Digits = string(buf)
	return n, nil
}

// Ecvt returns count significant digits of the finite value f, the decimal
// exponent dec of the first digit (f ≈ d1.d2... * 10^dec) and the sign bit.
// Non-finite values fail with ErrNotFinite.
func Ecvt(f float64, count int) (digits []byte, dec int, sign int, err error) {
	return AppendEcvt(nil, f, count)
}

// AppendEcvt is like Ecvt but appends the digits to dst.
func AppendEcvt(dst []byte, f float64, count int) ([]byte, int, int, error) {
	if err := checkPrecision("Ecvt", count); err != nil {
		return dst, 0, 0, err
	}
	d := Decompose(f)
	if !d.IsFinite() {
		return dst, 0, int(d.Sign), dtoaerr.Wrap(dtoaerr.InvalidInput, "Ecvt", "cannot convert "+d.Class.String(), ErrNotFinite)
	}
	out, dec, err := appendFinite(dst, d, count)
	return out, dec, int(d.Sign), err
}

func checkPrecision(op string, precision int) error {
	if precision < MinPrecision || precision > MaxPrecision {
		return dtoaerr.New(dtoaerr.PrecisionRange, op,
			fmt.Sprintf("precision %d outside [%d, %d]", precision, MinPrecision, MaxPrecision))
	}
	return nil
}

func appendFinite(dst []byte, d Decomposed, count int) ([]byte, int, error) {
	if d.Class == ClassZero {
		return appendZeros(dst, count), 0, nil
	}

	var r ratio
	k, err := r.init(d)
	if err != nil {
		return dst, 0, err
	}
	return r.generate(dst, k-1, count)
}

func appendZeros(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		dst = append(dst, '0')
	}
	return dst
}
