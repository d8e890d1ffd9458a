package fusiontree

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	. "github.com/smartystreets/goconvey/convey"
)

// smallConfig keeps exhaustive checks cheap: clusters of 16 bits.
var smallConfig = Config{WordSize: 400, ElementSize: 256, Capacity: 3}

func mustEnvironment(t testing.TB, cfg Config) *Environment {
	env, err := cfg.NewEnvironment()
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestEnvironmentConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fusiontree")
	defer teardown()

	Convey("The default configuration is accepted", t, func() {
		env, err := DefaultEnvironment()
		So(err, ShouldBeNil)
		So(env.Config(), ShouldResemble, DefaultConfig())
		So(env.SqrtElementSize(), ShouldEqual, 56)
		So(env.WordSize(), ShouldEqual, 4000)
		So(env.ElementSize(), ShouldEqual, 3136)
		So(env.Capacity(), ShouldEqual, 5)
		So(env.Word(9).Width(), ShouldEqual, 4000)
	})
	Convey("Invalid shapes yield a configuration error and no environment", t, func() {
		cases := []Config{
			{WordSize: 4000, ElementSize: 10, Capacity: 5},   // not a square
			{WordSize: 4000, ElementSize: 3136, Capacity: 6}, // capacity^5 > element size
			{WordSize: 3000, ElementSize: 3136, Capacity: 5}, // capacity^4+capacity^5 > word size
			{WordSize: 1050, ElementSize: 1024, Capacity: 2}, // no room above the clusters
			{WordSize: 3800, ElementSize: 3600, Capacity: 5}, // no room for the sketches
			{WordSize: 0, ElementSize: 3136, Capacity: 5},
			{WordSize: 4000, ElementSize: 3136, Capacity: 0},
		}
		for _, cfg := range cases {
			env, err := NewEnvironment(cfg.WordSize, cfg.ElementSize, cfg.Capacity)
			So(env, ShouldBeNil)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			var cerr *ConfigError
			So(errors.As(err, &cerr), ShouldBeTrue)
			So(cerr.Config, ShouldResemble, cfg)
			So(cfg.Validate(), ShouldNotBeNil)
		}
	})
	Convey("Headroom is sized for capacity-1 important bits", t, func() {
		cfg := Config{WordSize: 3750, ElementSize: 3136, Capacity: 5}
		So(cfg.Validate(), ShouldBeNil)
		env, err := cfg.NewEnvironment()
		So(err, ShouldBeNil)
		So(env.Config(), ShouldResemble, cfg)
	})
	Convey("The error names the violated constraint", t, func() {
		err := Config{WordSize: 4000, ElementSize: 10, Capacity: 5}.Validate()
		So(err.Error(), ShouldContainSubstring, "not a square")
	})
}

func TestMostSignificantBit(t *testing.T) {
	small := mustEnvironment(t, smallConfig)
	large := mustEnvironment(t, DefaultConfig())

	Convey("Cluster MSB is exact for every cluster value", t, func() {
		So(small.ClusterMostSignificantBit(small.Word(0)), ShouldEqual, -1)
		for x := uint64(1); x < 1<<16; x++ {
			if got := small.ClusterMostSignificantBit(small.Word(x)); got != bitLen64(x)-1 {
				So(got, ShouldEqual, bitLen64(x)-1)
			}
		}
	})
	Convey("Fast MSB of zero is -1", t, func() {
		So(small.FastMostSignificantBit(small.Word(0)), ShouldEqual, -1)
		So(large.FastMostSignificantBit(large.Word(0)), ShouldEqual, -1)
	})
	Convey("Fast MSB finds every single bit", t, func() {
		for p := 0; p < small.ElementSize(); p++ {
			So(small.FastMostSignificantBit(small.Word(1).Lsh(p)), ShouldEqual, p)
		}
		for p := 0; p < large.ElementSize(); p += 7 {
			So(large.FastMostSignificantBit(large.Word(1).Lsh(p)), ShouldEqual, p)
		}
		So(large.FastMostSignificantBit(large.Word(1).Lsh(3135)), ShouldEqual, 3135)
	})
	Convey("Fast MSB reports the highest of several bits", t, func() {
		rng := rand.New(rand.NewSource(3))
		for _, env := range []*Environment{small, large} {
			for i := 0; i < 200; i++ {
				x := randomWord(rng, env.WordSize(), 1+rng.Intn(env.ElementSize()))
				So(env.FastMostSignificantBit(x), ShouldEqual, x.BitLen()-1)
			}
		}
	})
	Convey("First diff is symmetric and -1 on equal words", t, func() {
		rng := rand.New(rand.NewSource(4))
		for i := 0; i < 100; i++ {
			x := randomWord(rng, large.WordSize(), large.ElementSize())
			y := randomWord(rng, large.WordSize(), large.ElementSize())
			So(large.FastFirstDiff(x, x), ShouldEqual, -1)
			So(large.FastFirstDiff(x, y), ShouldEqual, large.FastFirstDiff(y, x))
			So(large.FastFirstDiff(x, y), ShouldEqual, x.Xor(y).BitLen()-1)
		}
		So(large.FastFirstDiff(large.Word(8), large.Word(12)), ShouldEqual, 2)
	})
}

func bitLen64(x uint64) int {
	n := 0
	for ; x != 0; x >>= 1 {
		n++
	}
	return n
}
