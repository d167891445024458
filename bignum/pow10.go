package bignum

import "github.com/lattice-substrate/float-digits/dtoaerr"

// MaxPow10 is the largest exponent whose table decomposition Pow10 supports:
// three low bits from pow10Small plus one bit per pow10Big entry. Results
// beyond Capacity still fail with CAPACITY_OVERFLOW.
const MaxPow10 = 1<<(3+len(pow10Big)) - 1

// 10^0 through 10^7, selected by the low three bits of the exponent.
var pow10Small = [8]uint32{
	1,
	10,
	100,
	1000,
	10000,
	100000,
	1000000,
	10000000,
}

// 10^8, 10^16, 10^32, 10^64, 10^128 and 10^256, selected by the remaining
// exponent bits.
var pow10Big = [...]Nat{
	{n: 1, w: [Capacity]uint32{100000000}},
	{n: 2, w: [Capacity]uint32{0x6fc10000, 0x002386f2}},
	{n: 4, w: [Capacity]uint32{0x00000000, 0x85acef81, 0x2d6d415b, 0x000004ee}},
	{n: 7, w: [Capacity]uint32{
		0x00000000, 0x00000000, 0xbf6a1f01, 0x6e38ed64, 0xdaa797ed, 0xe93ff9f4,
		0x00184f03,
	}},
	{n: 14, w: [Capacity]uint32{
		0x00000000, 0x00000000, 0x00000000, 0x00000000, 0x2e953e01, 0x03df9909,
		0x0f1538fd, 0x2374e42f, 0xd3cff5ec, 0xc404dc08, 0xbccdb0da, 0xa6337f19,
		0xe91f2603, 0x0000024e,
	}},
	{n: 27, w: [Capacity]uint32{
		0x00000000, 0x00000000, 0x00000000, 0x00000000, 0x00000000, 0x00000000,
		0x00000000, 0x00000000, 0x982e7c01, 0xbed3875b, 0xd8d99f72, 0x12152f87,
		0x6bde50c6, 0xcf4a6e70, 0xd595d80f, 0x26b2716e, 0xadc666b0, 0x1d153624,
		0x3c42d35a, 0x63ff540e, 0xcc5573c0, 0x65f9ef17, 0x55bc28f2, 0x80dcc7f7,
		0xf46eeddc, 0x5fdcefce, 0x000553f7,
	}},
}

// Pow10 sets z = 10^exp by binary exponentiation over base-8 digit chunks:
// the low three bits pick a single-word power, every further set bit
// multiplies in the matching table entry.
func (z *Nat) Pow10(exp int) error {
	if exp < 0 || exp > MaxPow10 {
		return dtoaerr.Assertion(dtoaerr.InvalidOperand, "Pow10",
			"exponent %d outside [0, %d]", exp, MaxPow10)
	}
	z.SetWord(pow10Small[exp&7])
	exp >>= 3
	for i := 0; exp != 0; i++ {
		if exp&1 != 0 {
			if err := z.Mul(z, &pow10Big[i]); err != nil {
				return err
			}
		}
		exp >>= 1
	}
	return nil
}
