package fusiontree

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// FusionTree is an immutable predecessor index over at most
// env.Capacity() keys. It is safe for concurrent use once built.
type FusionTree struct {
	env *Environment

	elements []Word // ascending
	sketches []Word // approximate sketch of elements[i]
	first    []int  // lowest rank holding elements[i]
	last     []int  // highest rank holding elements[i]

	importantBits     []int // ascending bit positions
	maskImportantBits Word
	m                 Word
	mIndices          []int // set bits of m, one per important bit
	sketchMask        Word  // the positions importantBits[i]+mIndices[i]
	sketchShift       int   // lowest position in sketchMask
	fieldWidth        int   // bits per packed sketch, separator excluded

	data                     Word // packed sketches, largest rank in the lowest slot
	repeatInt                Word // one bit at the bottom of each slot
	extractInterposedBits    Word // the separator bits
	extractInterposedBitsSum Word // low fieldWidth bits
}

// New builds a fusion tree over keys. The keys are copied; duplicates are
// allowed. Every key must have env's word size and fit in env's element size.
func New(keys []Word, env *Environment) (*FusionTree, error) {
	if env == nil {
		return nil, ErrNilEnvironment
	}
	if len(keys) > env.Capacity() {
		return nil, fmt.Errorf("%w: %d keys, capacity %d", ErrCapacityExceeded, len(keys), env.Capacity())
	}
	for i, k := range keys {
		if k.Width() != env.WordSize() {
			return nil, fmt.Errorf("%w: key %d has width %d, want %d", ErrWidthMismatch, i, k.Width(), env.WordSize())
		}
		if k.BitLen() > env.ElementSize() {
			return nil, fmt.Errorf("%w: key %d uses %d bits, limit %d", ErrKeyTooWide, i, k.BitLen(), env.ElementSize())
		}
	}
	ft := &FusionTree{env: env}
	ft.load(keys)
	ft.findImportantBits()
	ft.findM()
	ft.setParallelComparison()
	tracer().Debugf("fusion tree built: %d keys, %d important bits, field width %d",
		ft.Size(), len(ft.importantBits), ft.fieldWidth)
	return ft, nil
}

func (ft *FusionTree) load(keys []Word) {
	ft.elements = make([]Word, len(keys))
	copy(ft.elements, keys)
	slices.SortStableFunc(ft.elements, func(a, b Word) int { return a.Cmp(b) })
	n := len(ft.elements)
	ft.first, ft.last = make([]int, n), make([]int, n)
	for i := range ft.elements {
		ft.first[i] = i
		if i > 0 && ft.elements[i].Equal(ft.elements[i-1]) {
			ft.first[i] = ft.first[i-1]
		}
	}
	for i := n - 1; i >= 0; i-- {
		ft.last[i] = i
		if i+1 < n && ft.elements[i].Equal(ft.elements[i+1]) {
			ft.last[i] = ft.last[i+1]
		}
	}
}

// findImportantBits marks, for every key, the highest bit at which it leaves
// the trie of the keys ranked before it.
func (ft *FusionTree) findImportantBits() {
	env := ft.env
	ft.maskImportantBits = env.Word(0)
	for i := 1; i < ft.Size(); i++ {
		diff := -1
		for j := 0; j < i; j++ {
			d := env.FastFirstDiff(ft.elements[i], ft.elements[j])
			if j == 0 || d < diff {
				diff = d
			}
		}
		if diff < 0 {
			continue // duplicate of an earlier key
		}
		ft.maskImportantBits = ft.maskImportantBits.Or(env.shift1[diff])
	}
	for i := 0; i < env.WordSize(); i++ {
		if ft.maskImportantBits.Bit(i) {
			ft.importantBits = append(ft.importantBits, i)
		}
	}
	tracer().Debugf("important bits: %v", ft.importantBits)
}

// findM chooses one displacement m_i per important bit b_i so that all sums
// m_j+b_k are distinct modulo r^3, then lifts each m_i+b_i into its own
// interval of width r^3, the intervals ascending with i.
func (ft *FusionTree) findM() {
	env := ft.env
	r := len(ft.importantBits)
	ft.m, ft.sketchMask = env.Word(0), env.Word(0)
	if r == 0 {
		return
	}
	r3 := r * r * r
	tag := env.Word(0)
	ft.mIndices = make([]int, r)
	for i := 0; i < r; i++ {
		for j := 0; j < r3; j++ {
			if tag.Bit(j) {
				continue
			}
			ft.mIndices[i] = j
			for _, b1 := range ft.importantBits {
				for _, b2 := range ft.importantBits {
					tag = tag.Or(env.shift1[mod(j+b1-b2, r3)])
				}
			}
			break
		}
	}

	base := 0
	for i, b := range ft.importantBits {
		base = max(base, b-i*r3)
	}
	base = (base + r3 - 1) / r3 * r3
	for i, b := range ft.importantBits {
		lo := base + i*r3
		pos := lo + mod(ft.mIndices[i]+b-lo, r3)
		ft.mIndices[i] = pos - b
		ft.m = ft.m.Or(env.shift1[ft.mIndices[i]])
		ft.sketchMask = ft.sketchMask.Or(env.shift1[pos])
		if i == 0 {
			ft.sketchShift = pos
		}
	}
	tracer().Debugf("sketch displacements: %v", ft.mIndices)
}

// setParallelComparison packs every sketch into data, one slot per key, each
// slot a field of fieldWidth bits topped by a separator bit.
func (ft *FusionTree) setParallelComparison() {
	env := ft.env
	n, r := ft.Size(), len(ft.importantBits)
	ft.fieldWidth = max(r*r*r*r, bits.Len(uint(n)))
	slot := ft.fieldWidth + 1

	ft.sketches = make([]Word, n)
	for i, e := range ft.elements {
		ft.sketches[i] = ft.ApproximateSketch(e)
	}
	ft.data, ft.repeatInt, ft.extractInterposedBits = env.Word(0), env.Word(0), env.Word(0)
	for k := 0; k < n; k++ {
		separator := env.shift1[(k+1)*slot-1]
		ft.data = ft.data.Or(separator).Or(ft.sketches[n-1-k].Lsh(k * slot))
		ft.repeatInt = ft.repeatInt.Or(env.shift1[k*slot])
		ft.extractInterposedBits = ft.extractInterposedBits.Or(separator)
	}
	ft.extractInterposedBitsSum = env.lowMask(ft.fieldWidth)
}

// Size returns the number of stored keys.
func (ft *FusionTree) Size() int {
	return len(ft.elements)
}

// Pos returns the key of the given rank. rank must lie in [0, Size()).
func (ft *FusionTree) Pos(rank int) Word {
	return ft.elements[rank]
}

// Keys returns a copy of the stored keys in ascending order.
func (ft *FusionTree) Keys() []Word {
	return slices.Clone(ft.elements)
}

// Environment returns the environment the tree was built on.
func (ft *FusionTree) Environment() *Environment {
	return ft.env
}

// ApproximateSketch packs the bits of x found at the tree's important bits
// into a short field. Sketches preserve the order of stored keys; for other
// keys they only approximate it.
func (ft *FusionTree) ApproximateSketch(x Word) Word {
	if len(ft.importantBits) == 0 {
		return ft.env.Word(0)
	}
	return x.And(ft.maskImportantBits).Mul(ft.m).And(ft.sketchMask).Rsh(ft.sketchShift)
}

// FindSketchPredecessor returns the rank of the largest key whose sketch is
// not greater than the sketch of x, or -1.
func (ft *FusionTree) FindSketchPredecessor(x Word) int {
	n := ft.Size()
	if n == 0 {
		return -1
	}
	sketch := ft.ApproximateSketch(x)
	// a separator survives the subtraction iff its slot's sketch is >= sketch
	diff := ft.data.Sub(sketch.Mul(ft.repeatInt)).And(ft.extractInterposedBits)
	// summing the separators into the field above the top slot counts them
	diff = diff.Mul(ft.repeatInt).Rsh(n*(ft.fieldWidth+1) - 1).And(ft.extractInterposedBitsSum)
	rank := n - diff.Int() - 1
	if rank+1 < n && ft.sketches[rank+1].Equal(sketch) {
		rank++
	}
	return rank
}

// FindPredecessor returns the rank of the largest stored key not greater
// than x, or -1 if every key is greater than x. When that key is stored more
// than once, the highest of its ranks is returned. x must fit in the
// environment's element size.
func (ft *FusionTree) FindPredecessor(x Word) int {
	rank := ft.findPredecessor(x)
	if rank < 0 {
		return rank
	}
	return ft.last[rank]
}

// findPredecessor returns some rank holding the predecessor of x.
func (ft *FusionTree) findPredecessor(x Word) int {
	n := ft.Size()
	if n == 0 {
		return -1
	}
	env := ft.env
	idx1 := ft.FindSketchPredecessor(x)
	idx2 := idx1 + 1

	// the stored neighbour sharing the longer prefix with x decides the
	// branch point; -1 from FastFirstDiff means equality
	lca := -1
	if idx1 >= 0 {
		lca = env.FastFirstDiff(ft.elements[idx1], x)
		if lca < 0 {
			return idx1
		}
	}
	if idx2 < n {
		lca2 := env.FastFirstDiff(ft.elements[idx2], x)
		if lca2 < 0 {
			return idx2
		}
		if idx1 < 0 || lca2 < lca {
			lca = lca2
		}
	}

	if x.Bit(lca) {
		// no keys below x under the branch: look up prefix 0 111...1
		e := x.And(env.shiftNeg1[lca]).Or(env.shift1[lca].Sub(env.Word(1)))
		return ft.FindSketchPredecessor(e)
	}
	// no keys above x under the branch: look up prefix 1 000...0
	e := x.Or(env.shift1[lca]).And(env.shiftNeg0[lca])
	rank := ft.FindSketchPredecessor(e)
	if rank >= 0 && ft.elements[rank].Greater(x) {
		rank--
	}
	return rank
}

// FindSuccessor returns the rank of the smallest stored key not less than x,
// or -1 if every key is less than x. When that key is stored more than once,
// the lowest of its ranks is returned.
func (ft *FusionTree) FindSuccessor(x Word) int {
	rank := ft.findPredecessor(x)
	if rank >= 0 && ft.elements[rank].Equal(x) {
		return ft.first[rank]
	}
	if rank < 0 {
		rank = 0
	} else {
		rank = ft.last[rank] + 1
	}
	if rank < ft.Size() {
		return rank
	}
	return -1
}

// Contains reports whether x is stored in the tree.
func (ft *FusionTree) Contains(x Word) bool {
	rank := ft.findPredecessor(x)
	return rank >= 0 && ft.elements[rank].Equal(x)
}

// Render prints every stored key on its own line, in ascending order.
func (ft *FusionTree) Render(opts RenderOptions) string {
	var sb strings.Builder
	for _, e := range ft.elements {
		sb.WriteString(e.Render(opts))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String renders the tree with DefaultRenderOptions.
func (ft *FusionTree) String() string {
	return ft.Render(DefaultRenderOptions)
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}
