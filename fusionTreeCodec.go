package fusiontree

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// MarshalBinary encodes the environment shape and the stored keys into
// MessagePack and returns the result. The derived masks are not stored; they
// are rebuilt on decoding.
func (ft *FusionTree) MarshalBinary() (out []byte, err error) {
	if ft.env == nil {
		return nil, ErrNilEnvironment
	}
	var bh codec.MsgpackHandle
	enc := codec.NewEncoderBytes(&out, &bh)
	cfg := ft.env.Config()
	keys := make([][]uint64, len(ft.elements))
	for i, e := range ft.elements {
		keys[i] = e.limbs
	}
	for _, f := range []interface{}{cfg.WordSize, cfg.ElementSize, cfg.Capacity, keys} {
		if err = enc.Encode(f); err != nil {
			return nil, err
		}
	}
	return
}

// UnmarshalBinary decodes a tree generated by MarshalBinary. A new
// environment of the encoded shape is built for it.
func (ft *FusionTree) UnmarshalBinary(in []byte) error {
	return ft.decode(in, nil)
}

// UnmarshalWithEnvironment decodes a tree generated by MarshalBinary onto an
// existing environment, which must have the encoded shape.
func UnmarshalWithEnvironment(in []byte, env *Environment) (*FusionTree, error) {
	if env == nil {
		return nil, ErrNilEnvironment
	}
	ft := &FusionTree{}
	if err := ft.decode(in, env); err != nil {
		return nil, err
	}
	return ft, nil
}

func (ft *FusionTree) decode(in []byte, env *Environment) (err error) {
	var bh codec.MsgpackHandle
	dec := codec.NewDecoderBytes(in, &bh)
	var cfg Config
	for _, p := range []*int{&cfg.WordSize, &cfg.ElementSize, &cfg.Capacity} {
		if err = dec.Decode(p); err != nil {
			return err
		}
	}
	if env == nil {
		if env, err = cfg.NewEnvironment(); err != nil {
			return err
		}
	} else if env.Config() != cfg {
		return fmt.Errorf("%w: encoded %+v, environment %+v", ErrShapeMismatch, cfg, env.Config())
	}

	var keys [][]uint64
	if err = dec.Decode(&keys); err != nil {
		return err
	}
	limbs := limbCount(cfg.WordSize)
	words := make([]Word, len(keys))
	for i, k := range keys {
		if len(k) != limbs {
			return fmt.Errorf("%w: key %d has %d limbs, want %d", ErrCorruptEncoding, i, len(k), limbs)
		}
		words[i] = WordFromLimbs(cfg.WordSize, k)
	}
	decoded, err := New(words, env)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptEncoding, err)
	}
	*ft = *decoded
	return nil
}
