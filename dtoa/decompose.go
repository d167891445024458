package dtoa

import (
	"math"
	"math/bits"
)

const (
	fractionBits = 52
	fractionMask = 1<<fractionBits - 1
	exponentMask = 0x7FF

	// value = mantissa * 2^(biased - exponentBias) for normals.
	exponentBias = 1023 + fractionBits

	// Binary exponent shared by every subnormal.
	subnormalExponent = 1 - exponentBias
)

// Class is the IEEE 754 category of a binary64 value.
type Class uint8

const (
	ClassZero Class = iota
	ClassSubnormal
	ClassNormal
	ClassInfinity
	ClassNaN
)

func (c Class) String() string {
	switch c {
	case ClassZero:
		return "zero"
	case ClassSubnormal:
		return "subnormal"
	case ClassNormal:
		return "normal"
	case ClassInfinity:
		return "infinity"
	case ClassNaN:
		return "nan"
	default:
		return "unknown"
	}
}

// Decomposed is a binary64 value split into its exact integer parts. For
// finite classes, value = (-1)^Sign * Mantissa * 2^BinaryExponent.
type Decomposed struct {
	Sign              uint8
	Class             Class
	Mantissa          uint64 // raw fraction bits for Infinity/NaN
	BinaryExponent    int
	MantissaBitLength int // index+1 of the highest set mantissa bit
}

// IsFinite reports whether d is zero, subnormal or normal.
func (d Decomposed) IsFinite() bool {
	return d.Class != ClassInfinity && d.Class != ClassNaN
}

// Decompose extracts sign, mantissa, binary exponent and mantissa bit length
// from f. The implicit leading bit is added for normals only.
func Decompose(f float64) Decomposed {
	b := math.Float64bits(f)
	frac := b & fractionMask
	biased := int(b>>fractionBits) & exponentMask

	d := Decomposed{Sign: uint8(b >> 63)}
	switch biased {
	case exponentMask:
		d.Class = ClassInfinity
		if frac != 0 {
			d.Class = ClassNaN
		}
		d.Mantissa = frac
	case 0:
		d.Class = ClassSubnormal
		if frac == 0 {
			d.Class = ClassZero
		}
		d.Mantissa = frac
		d.BinaryExponent = subnormalExponent
		d.MantissaBitLength = bits.Len64(frac)
	default:
		d.Class = ClassNormal
		d.Mantissa = frac | 1<<fractionBits
		d.BinaryExponent = biased - exponentBias
		d.MantissaBitLength = fractionBits + 1
	}
	return d
}
