package fusiontree

import (
	"math"
)

// Config is the shape shared by an Environment and every tree built on it.
type Config struct {
	WordSize    int // bits per simulated machine word
	ElementSize int // bits per key, must be a perfect square
	Capacity    int // maximum number of keys per tree
}

// DefaultConfig returns the shape (4000, 3136, 5).
func DefaultConfig() Config {
	return Config{WordSize: DefaultWordSize, ElementSize: 3136, Capacity: 5}
}

// Validate checks the size constraints of the configuration. The returned
// error, if any, is a *ConfigError.
func (c Config) Validate() error {
	_, err := c.validate()
	return err
}

// NewEnvironment builds the environment described by c.
func (c Config) NewEnvironment() (*Environment, error) {
	return NewEnvironment(c.WordSize, c.ElementSize, c.Capacity)
}

func (c Config) validate() (int, error) {
	reject := func(reason string) (int, error) {
		return 0, &ConfigError{Config: c, Reason: reason}
	}
	if c.WordSize <= 0 || c.ElementSize <= 0 || c.Capacity <= 0 {
		return reject("sizes must be positive")
	}
	sq := isqrt(c.ElementSize)
	if sq*sq != c.ElementSize {
		return reject("element size is not a square")
	}
	c4, c5 := ipow(c.Capacity, 4), ipow(c.Capacity, 5)
	// a tree of Capacity keys has at most Capacity-1 important bits, and
	// its sketch positions stay below ElementSize + r^3 + r^4
	r3, r4 := ipow(c.Capacity-1, 3), ipow(c.Capacity-1, 4)
	if c5 > c.ElementSize {
		return reject("element size is too small for the capacity")
	}
	if c4+c5 > c.WordSize {
		return reject("word size is too small for the capacity")
	}
	if c.ElementSize+2*sq > c.WordSize || c.ElementSize+r3+r4 > c.WordSize {
		return reject("word size leaves no headroom above the element size")
	}
	return sq, nil
}

// Environment holds the masks and constants shared by fusion trees of one
// shape. It is immutable once built and may back any number of trees; it
// must stay reachable for as long as those trees are used, which the garbage
// collector guarantees through the trees' references.
type Environment struct {
	config          Config
	sqrtElementSize int

	// precomputed 1<<i, ^1<<i and ^0<<i
	shift1, shiftNeg1, shiftNeg0 []Word

	// used by FastMostSignificantBit
	clustersFirstBits Word
	perfectSketchM    Word

	// used by ClusterMostSignificantBit
	repeatInt      Word
	powersOfTwo    Word
	interposedBits Word
}

// DefaultEnvironment returns an environment built from DefaultConfig.
func DefaultEnvironment() (*Environment, error) {
	return DefaultConfig().NewEnvironment()
}

// NewEnvironment validates the shape and precomputes every table used by the
// bit tricks. Besides capacity^5 <= elementSize and capacity^4 + capacity^5 <=
// wordSize, the word must hold elementSize + 2*sqrt(elementSize) bits and
// elementSize + r^3 + r^4 bits for r = capacity-1. Invalid shapes yield a
// *ConfigError and no environment.
func NewEnvironment(wordSize, elementSize, capacity int) (*Environment, error) {
	cfg := Config{WordSize: wordSize, ElementSize: elementSize, Capacity: capacity}
	sq, err := cfg.validate()
	if err != nil {
		tracer().Errorf("rejecting environment: %v", err)
		return nil, err
	}
	env := &Environment{config: cfg, sqrtElementSize: sq}
	env.shift1 = make([]Word, wordSize)
	env.shiftNeg1 = make([]Word, wordSize)
	env.shiftNeg0 = make([]Word, wordSize)
	one, notOne, notZero := NewWord(wordSize, 1), NewWord(wordSize, 1).Not(), NewWord(wordSize, 0).Not()
	for i := 0; i < wordSize; i++ {
		env.shift1[i] = one.Lsh(i)
		env.shiftNeg1[i] = notOne.Lsh(i)
		env.shiftNeg0[i] = notZero.Lsh(i)
	}

	zero := NewWord(wordSize, 0)
	env.clustersFirstBits, env.perfectSketchM = zero, zero
	env.interposedBits, env.repeatInt, env.powersOfTwo = zero, zero, zero
	for i := 0; i < sq; i++ {
		// top bit of cluster i
		env.clustersFirstBits = env.clustersFirstBits.Or(env.shift1[sq-1+i*sq])
		// m_i chosen so that m_i + b_i = elementSize + i for the cluster tops
		env.perfectSketchM = env.perfectSketchM.Or(env.shift1[elementSize-(sq-1)-i*sq+i])
		env.interposedBits = env.interposedBits.Or(env.shift1[sq+i*(sq+1)])
		env.repeatInt = env.repeatInt.Or(env.shift1[i*(sq+1)])
		env.powersOfTwo = env.powersOfTwo.Or(env.shift1[sq-i-1+i*(sq+1)])
	}
	tracer().Debugf("environment ready: word=%d element=%d (sqrt %d) capacity=%d",
		wordSize, elementSize, sq, capacity)
	return env, nil
}

// Config returns the shape of env.
func (env *Environment) Config() Config { return env.config }

// WordSize returns the width of the words env operates on.
func (env *Environment) WordSize() int { return env.config.WordSize }

// ElementSize returns the maximum key width in bits.
func (env *Environment) ElementSize() int { return env.config.ElementSize }

// Capacity returns the maximum number of keys per tree.
func (env *Environment) Capacity() int { return env.config.Capacity }

// SqrtElementSize returns the cluster width used by the MSB search.
func (env *Environment) SqrtElementSize() int { return env.sqrtElementSize }

// Word returns x as a word of env's width.
func (env *Environment) Word(x uint64) Word {
	return NewWord(env.config.WordSize, x)
}

// lowMask returns a word with the lowest n bits set.
func (env *Environment) lowMask(n int) Word {
	if n >= env.config.WordSize {
		return env.shiftNeg0[0]
	}
	return env.shiftNeg0[n].Not()
}

// ClusterMostSignificantBit returns the index of the highest set bit of x, or
// -1 if x is zero. x must fit in SqrtElementSize() bits.
//
// x is replicated once per threshold 2^i, each copy preceded by a separator
// bit; subtracting the thresholds leaves a separator set exactly where
// 2^i <= x, and a second multiplication sums the surviving separators.
func (env *Environment) ClusterMostSignificantBit(x Word) int {
	sq := env.sqrtElementSize
	x = x.Mul(env.repeatInt)
	x = x.Or(env.interposedBits)
	x = x.Sub(env.powersOfTwo)
	x = x.And(env.interposedBits)
	x = x.Mul(env.repeatInt)
	x = x.Rsh(env.config.ElementSize + sq - 1)
	x = x.And(env.lowMask(sq + 1))
	return x.Int() - 1
}

// FastMostSignificantBit returns the index of the highest set bit of x, or -1
// if x is zero, using a constant number of word operations. x must fit in
// ElementSize() bits.
func (env *Environment) FastMostSignificantBit(x Word) int {
	sq := env.sqrtElementSize
	heads := x.And(env.clustersFirstBits)
	// the head of each cluster ends up set iff the rest of the cluster is nonzero
	rest := env.clustersFirstBits.Sub(x.Xor(heads))
	rest = rest.And(env.clustersFirstBits).Xor(env.clustersFirstBits)
	nonEmpty := rest.Or(heads)

	// perfect sketch of the cluster heads: one bit per cluster
	summary := nonEmpty.Mul(env.perfectSketchM).Rsh(env.config.ElementSize).And(env.lowMask(sq))
	cluster := env.ClusterMostSignificantBit(summary)
	if cluster < 0 {
		return -1
	}
	low := x.Rsh(cluster * sq).And(env.lowMask(sq))
	return cluster*sq + env.ClusterMostSignificantBit(low)
}

// FastFirstDiff returns the index of the highest bit in which x and y differ,
// or -1 if they are equal.
func (env *Environment) FastFirstDiff(x, y Word) int {
	return env.FastMostSignificantBit(x.Xor(y))
}

func isqrt(n int) int {
	s := int(math.Sqrt(float64(n)))
	for s > 0 && s*s > n {
		s--
	}
	for (s+1)*(s+1) <= n {
		s++
	}
	return s
}

// ipow returns b^e, saturating at math.MaxInt32.
func ipow(b, e int) int {
	r := 1
	for i := 0; i < e; i++ {
		if b != 0 && r > math.MaxInt32/b {
			return math.MaxInt32
		}
		r *= b
	}
	return r
}
