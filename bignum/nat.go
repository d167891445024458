// Package bignum implements the fixed-capacity unsigned integer used by the
// float-to-decimal digit generator.
//
// A Nat holds up to Capacity 32-bit words, least significant first. It is a
// value type meant to live on the caller's stack: every conversion creates
// its own Nats, mutates them in place, and drops them when it returns. The
// word buffer is never shared, so the package is safe for concurrent use
// without synchronization.
//
// Only the operations the digit generator needs are provided. Every
// operation that writes words checks the capacity and reports a
// CAPACITY_OVERFLOW error instead of writing past the buffer.
package bignum

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/lattice-substrate/float-digits/dtoaerr"
)

const (
	// Capacity is the number of 32-bit words a Nat can hold (1280 bits,
	// above 10^385). The largest values the digit generator builds are
	// 2^1074 and 10^324 times a 53-bit mantissa, shifted once more for
	// division.
	Capacity = 40

	wordBits = 32
	wordMask = 1<<wordBits - 1
)

// Nat is a non-negative integer of at most Capacity words.
//
// Invariant: w[n-1] != 0 whenever n > 0. The zero value is the number 0.
type Nat struct {
	n int
	w [Capacity]uint32
}

// SetUint64 sets z to v and returns z.
func (z *Nat) SetUint64(v uint64) *Nat {
	z.n = 0
	if v == 0 {
		return z
	}
	z.w[0] = uint32(v & wordMask)
	z.n = 1
	if hi := uint32(v >> wordBits); hi != 0 {
		z.w[1] = hi
		z.n = 2
	}
	return z
}

// SetWord sets z to v and returns z.
func (z *Nat) SetWord(v uint32) *Nat {
	z.n = 0
	if v != 0 {
		z.w[0] = v
		z.n = 1
	}
	return z
}

// Set sets z to x and returns z.
func (z *Nat) Set(x *Nat) *Nat {
	z.n = x.n
	copy(z.w[:x.n], x.w[:x.n])
	return z
}

// IsZero reports whether z == 0.
func (z *Nat) IsZero() bool {
	return z.n == 0
}

// Len returns the number of significant words.
func (z *Nat) Len() int {
	return z.n
}

// Word returns word i, or 0 when i is beyond the significant words.
func (z *Nat) Word(i int) uint32 {
	if i < 0 || i >= z.n {
		return 0
	}
	return z.w[i]
}

// Words returns a copy of the significant words, least significant first.
func (z *Nat) Words() []uint32 {
	out := make([]uint32, z.n)
	copy(out, z.w[:z.n])
	return out
}

// BitLen returns the length of z in bits.
func (z *Nat) BitLen() int {
	if z.n == 0 {
		return 0
	}
	return (z.n-1)*wordBits + bits.Len32(z.w[z.n-1])
}

// String renders z in hexadecimal for diagnostics.
func (z *Nat) String() string {
	if z.n == 0 {
		return "0x0"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "0x%x", z.w[z.n-1])
	for i := z.n - 2; i >= 0; i-- {
		fmt.Fprintf(&sb, "%08x", z.w[i])
	}
	return sb.String()
}

func (z *Nat) trim() {
	for z.n > 0 && z.w[z.n-1] == 0 {
		z.n--
	}
}

func overflow(op string, words int) error {
	return dtoaerr.Assertion(dtoaerr.CapacityOverflow, op,
		"result needs %d words, capacity is %d", words, Capacity)
}

// Compare returns -1, 0 or +1 as x is less than, equal to, or greater than y.
// Lengths decide first since leading zero words are never stored.
func Compare(x, y *Nat) int {
	if x.n != y.n {
		if x.n > y.n {
			return 1
		}
		return -1
	}
	for i := x.n - 1; i >= 0; i-- {
		if x.w[i] != y.w[i] {
			if x.w[i] > y.w[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// CompareWord compares x with the single word v.
func CompareWord(x *Nat, v uint32) int {
	switch {
	case x.n == 0:
		if v == 0 {
			return 0
		}
		return -1
	case x.n > 1 || x.w[0] > v:
		return 1
	case x.w[0] < v:
		return -1
	default:
		return 0
	}
}

// MulWord sets z = x * v. z may alias x. On error z is left unspecified.
func (z *Nat) MulWord(x *Nat, v uint32) error {
	if x.n == 0 || v == 0 {
		z.n = 0
		return nil
	}
	n := x.n
	var carry uint64
	for i := 0; i < n; i++ {
		p := uint64(x.w[i])*uint64(v) + carry
		z.w[i] = uint32(p & wordMask)
		carry = p >> wordBits
	}
	z.n = n
	if carry != 0 {
		if n == Capacity {
			return overflow("MulWord", n+1)
		}
		z.w[n] = uint32(carry)
		z.n = n + 1
	}
	return nil
}

// Mul sets z = x * y using schoolbook multiplication. The product has
// len(x)+len(y) words, or one less when the top word comes out zero. z may
// alias x or y.
func (z *Nat) Mul(x, y *Nat) error {
	if x.n == 0 || y.n == 0 {
		z.n = 0
		return nil
	}
	small, large := x, y
	if small.n > large.n {
		small, large = large, small
	}

	var t [2 * Capacity]uint32
	for i := 0; i < small.n; i++ {
		m := uint64(small.w[i])
		if m == 0 {
			continue
		}
		var carry uint64
		for j := 0; j < large.n; j++ {
			p := uint64(t[i+j]) + m*uint64(large.w[j]) + carry
			t[i+j] = uint32(p & wordMask)
			carry = p >> wordBits
		}
		t[i+large.n] = uint32(carry)
	}

	n := small.n + large.n
	if t[n-1] == 0 {
		n--
	}
	if n > Capacity {
		return overflow("Mul", n)
	}
	copy(z.w[:n], t[:n])
	z.n = n
	return nil
}

// Sub sets z = x - y. x must be greater than or equal to y; anything else is
// an INVALID_OPERAND assertion failure. z may alias x or y.
func (z *Nat) Sub(x, y *Nat) error {
	if Compare(x, y) < 0 {
		return dtoaerr.Assertion(dtoaerr.InvalidOperand, "Sub",
			"minuend %s is less than subtrahend %s", x, y)
	}
	var borrow uint64
	for i := 0; i < x.n; i++ {
		d := uint64(x.w[i]) - uint64(y.Word(i)) - borrow
		z.w[i] = uint32(d & wordMask)
		borrow = (d >> wordBits) & 1
	}
	z.n = x.n
	z.trim()
	return nil
}

// Shl sets z = x << s. The shift is split into whole words and a sub-word
// bit shift whose carry bits spill into one extra word at most. z may alias x.
func (z *Nat) Shl(x *Nat, s uint) error {
	if x.n == 0 {
		z.n = 0
		return nil
	}
	words := int(s / wordBits)
	shift := s % wordBits
	n := x.n + words

	if shift == 0 {
		if n > Capacity {
			return overflow("Shl", n)
		}
		// High to low so that z may alias x.
		for i := x.n - 1; i >= 0; i-- {
			z.w[i+words] = x.w[i]
		}
	} else {
		top := x.w[x.n-1] >> (wordBits - shift)
		if top != 0 {
			n++
		}
		if n > Capacity {
			return overflow("Shl", n)
		}
		if top != 0 {
			z.w[x.n+words] = top
		}
		for i := x.n - 1; i > 0; i-- {
			z.w[i+words] = x.w[i]<<shift | x.w[i-1]>>(wordBits-shift)
		}
		z.w[words] = x.w[0] << shift
	}
	for i := 0; i < words; i++ {
		z.w[i] = 0
	}
	z.n = n
	return nil
}
