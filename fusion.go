// Package fusiontree provides a fusion tree: a static, build-once index over a
// small set of fixed-width integer keys answering predecessor and successor
// queries with a constant number of word operations, independent of the key
// width.
//
// The word RAM is simulated by Word, a binary word of configurable width. An
// Environment holds the precomputed masks for one shape (word size, element
// size, capacity) and can be shared by many trees of that shape.
package fusiontree

import (
	"github.com/npillmayer/schuko/tracing"
)

// Index is the read-only query surface of a built tree.
type Index interface {
	Size() int

	Pos(rank int) Word

	FindPredecessor(x Word) int

	FindSuccessor(x Word) int

	Contains(x Word) bool

	MarshalBinary() ([]byte, error)
}

var _ Index = (*FusionTree)(nil)

func tracer() tracing.Trace {
	return tracing.Select("fusiontree")
}
