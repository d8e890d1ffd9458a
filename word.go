package fusiontree

import (
	"math/big"
	"math/bits"
	"strings"
)

// DefaultWordSize is the width, in bits, of words created by DefaultConfig.
const DefaultWordSize = 4000

// Word is a fixed-width binary word holding a nonnegative value modulo
// 2^Width(). All arithmetic wraps silently. Words are immutable: every
// operation returns a new Word and never touches its operands.
//
// Binary operations expect both operands to have the same width; the result
// always has the width of the receiver.
type Word struct {
	limbs []uint64 // little endian, bits at or above width are always zero
	width int
}

func limbCount(width int) int {
	return (width + 63) >> 6
}

func newZeroWord(width int) Word {
	if width < 0 {
		width = 0
	}
	return Word{limbs: make([]uint64, limbCount(width)), width: width}
}

// NewWord returns a word of the given width holding x (truncated to width bits).
func NewWord(width int, x uint64) Word {
	w := newZeroWord(width)
	if len(w.limbs) > 0 {
		w.limbs[0] = x
	}
	w.clamp()
	return w
}

// WordFromLimbs returns a word built from a raw little-endian bit pattern.
// Limbs beyond the width are ignored.
func WordFromLimbs(width int, limbs []uint64) Word {
	w := newZeroWord(width)
	copy(w.limbs, limbs)
	w.clamp()
	return w
}

// WordFromBig returns x modulo 2^width. Negative values are taken in two's
// complement.
func WordFromBig(width int, x *big.Int) Word {
	w := newZeroWord(width)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(w.width))
	v := new(big.Int).Mod(x, mod)
	for i, word := range v.Bits() {
		if i >= len(w.limbs) {
			break
		}
		w.limbs[i] = uint64(word)
	}
	return w
}

// Big returns the value of w as a big.Int.
func (w Word) Big() *big.Int {
	v := new(big.Int)
	for i := len(w.limbs) - 1; i >= 0; i-- {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(w.limbs[i]))
	}
	return v
}

// clamp zeroes the bits of the top limb that lie beyond the width.
func (w Word) clamp() {
	if r := w.width & 63; r != 0 && len(w.limbs) > 0 {
		w.limbs[len(w.limbs)-1] &= (uint64(1) << uint(r)) - 1
	}
}

func (w Word) limb(i int) uint64 {
	if i < 0 || i >= len(w.limbs) {
		return 0
	}
	return w.limbs[i]
}

// Width returns the number of bits of w.
func (w Word) Width() int {
	return w.width
}

// Limbs returns a copy of the little-endian 64-bit limbs of w.
func (w Word) Limbs() []uint64 {
	out := make([]uint64, len(w.limbs))
	copy(out, w.limbs)
	return out
}

// Bit reports whether bit i is set. Positions outside [0, Width()) are unset.
func (w Word) Bit(i int) bool {
	if i < 0 || i >= w.width {
		return false
	}
	return w.limbs[i>>6]>>(uint(i)&63)&1 == 1
}

// BitLen returns the number of bits needed to represent w; 0 for zero.
func (w Word) BitLen() int {
	for i := len(w.limbs) - 1; i >= 0; i-- {
		if w.limbs[i] != 0 {
			return i<<6 + bits.Len64(w.limbs[i])
		}
	}
	return 0
}

// IsZero reports whether all bits of w are clear.
func (w Word) IsZero() bool {
	for _, l := range w.limbs {
		if l != 0 {
			return false
		}
	}
	return true
}

// Int narrows w to an int, keeping only the low-order bits.
func (w Word) Int() int {
	return int(w.limb(0))
}

// Uint64 narrows w to its lowest 64 bits.
func (w Word) Uint64() uint64 {
	return w.limb(0)
}

// Not returns the bitwise complement of w.
func (w Word) Not() Word {
	res := newZeroWord(w.width)
	for i, l := range w.limbs {
		res.limbs[i] = ^l
	}
	res.clamp()
	return res
}

// Neg returns the two's complement negation of w, i.e. Not() + 1.
func (w Word) Neg() Word {
	return w.Not().Add(NewWord(w.width, 1))
}

// Cmp compares w and y as bit strings read most significant bit first and
// returns -1, 0 or +1.
func (w Word) Cmp(y Word) int {
	n := len(w.limbs)
	if len(y.limbs) > n {
		n = len(y.limbs)
	}
	for i := n - 1; i >= 0; i-- {
		a, b := w.limb(i), y.limb(i)
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}
	return 0
}

// Less reports w < y.
func (w Word) Less(y Word) bool { return w.Cmp(y) < 0 }

// LessEq reports w <= y.
func (w Word) LessEq(y Word) bool { return w.Cmp(y) <= 0 }

// Greater reports w > y.
func (w Word) Greater(y Word) bool { return w.Cmp(y) > 0 }

// GreaterEq reports w >= y.
func (w Word) GreaterEq(y Word) bool { return w.Cmp(y) >= 0 }

// Equal reports w == y.
func (w Word) Equal(y Word) bool { return w.Cmp(y) == 0 }

// NotEqual reports w != y.
func (w Word) NotEqual(y Word) bool { return w.Cmp(y) != 0 }

// Lsh returns w << n. Bits shifted beyond the width are lost.
func (w Word) Lsh(n int) Word {
	if n < 0 {
		return w.Rsh(-n)
	}
	res := newZeroWord(w.width)
	if n >= w.width {
		return res
	}
	q, r := n>>6, uint(n)&63
	for i := len(res.limbs) - 1; i >= q; i-- {
		v := w.limbs[i-q] << r
		if r != 0 && i-q-1 >= 0 {
			v |= w.limbs[i-q-1] >> (64 - r)
		}
		res.limbs[i] = v
	}
	res.clamp()
	return res
}

// Rsh returns w >> n. Vacated high bits are zero.
func (w Word) Rsh(n int) Word {
	if n < 0 {
		return w.Lsh(-n)
	}
	res := newZeroWord(w.width)
	if n >= w.width {
		return res
	}
	q, r := n>>6, uint(n)&63
	for i := 0; i+q < len(w.limbs); i++ {
		v := w.limbs[i+q] >> r
		if r != 0 && i+q+1 < len(w.limbs) {
			v |= w.limbs[i+q+1] << (64 - r)
		}
		res.limbs[i] = v
	}
	return res
}

// Or returns w | y.
func (w Word) Or(y Word) Word {
	res := newZeroWord(w.width)
	for i := range res.limbs {
		res.limbs[i] = w.limbs[i] | y.limb(i)
	}
	res.clamp()
	return res
}

// And returns w & y.
func (w Word) And(y Word) Word {
	res := newZeroWord(w.width)
	for i := range res.limbs {
		res.limbs[i] = w.limbs[i] & y.limb(i)
	}
	return res
}

// Xor returns w ^ y.
func (w Word) Xor(y Word) Word {
	res := newZeroWord(w.width)
	for i := range res.limbs {
		res.limbs[i] = w.limbs[i] ^ y.limb(i)
	}
	res.clamp()
	return res
}

// Add returns w + y mod 2^Width(), carrying from the lowest bit upwards.
func (w Word) Add(y Word) Word {
	res := newZeroWord(w.width)
	var carry uint64
	for i := range res.limbs {
		res.limbs[i], carry = bits.Add64(w.limbs[i], y.limb(i), carry)
	}
	res.clamp()
	return res
}

// Sub returns w - y mod 2^Width(), computed as w + (-y).
func (w Word) Sub(y Word) Word {
	return w.Add(y.Neg())
}

// Mul returns w * y mod 2^Width(). It adds w << i for every set bit i of y,
// so its cost grows with the number of set bits in the multiplier.
func (w Word) Mul(y Word) Word {
	res := newZeroWord(w.width)
	for li := range res.limbs {
		l := y.limb(li)
		for l != 0 {
			b := bits.TrailingZeros64(l)
			l &= l - 1
			addShifted(res.limbs, w.limbs, li<<6+b)
		}
	}
	res.clamp()
	return res
}

// addShifted adds src << n into acc in place, dropping the final carry.
func addShifted(acc, src []uint64, n int) {
	q, r := n>>6, uint(n)&63
	var carry uint64
	for i := q; i < len(acc); i++ {
		j := i - q
		var v uint64
		if j < len(src) {
			v = src[j] << r
		}
		if r != 0 && j-1 >= 0 && j-1 < len(src) {
			v |= src[j-1] >> (64 - r)
		}
		acc[i], carry = bits.Add64(acc[i], v, carry)
	}
}

// RenderOptions controls the debug rendering of words.
type RenderOptions struct {
	Bits      int    // number of low-order bits printed
	Group     int    // bits per group, 0 for no grouping
	Delimiter string // printed after every complete group
}

// DefaultRenderOptions prints 4000 bits in groups of 100.
var DefaultRenderOptions = RenderOptions{Bits: 4000, Group: 100, Delimiter: " "}

// Render prints the lowest opts.Bits bits of w, most significant first.
// This is a debugging aid, not a serialization format. Negative Bits render
// nothing and a non-positive Group disables grouping.
func (w Word) Render(opts RenderOptions) string {
	opts.Bits = max(opts.Bits, 0)
	var sb strings.Builder
	sb.Grow(opts.Bits + opts.Bits/max(opts.Group, 1)*len(opts.Delimiter))
	for i := opts.Bits - 1; i >= 0; i-- {
		if w.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		if opts.Group > 0 && (opts.Bits-i)%opts.Group == 0 {
			sb.WriteString(opts.Delimiter)
		}
	}
	return sb.String()
}

// String renders w with DefaultRenderOptions.
func (w Word) String() string {
	return w.Render(DefaultRenderOptions)
}
