package fusiontree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("fusiontree: invalid environment configuration")
	// ErrNilEnvironment is returned when a tree is built without an environment.
	ErrNilEnvironment = errors.New("fusiontree: nil environment")
	// ErrCapacityExceeded is returned when more keys than the environment's
	// capacity are passed to New.
	ErrCapacityExceeded = errors.New("fusiontree: too many keys for environment capacity")
	// ErrWidthMismatch is returned for keys whose width differs from the
	// environment's word size.
	ErrWidthMismatch = errors.New("fusiontree: key width does not match word size")
	// ErrKeyTooWide is returned for keys using more than element size bits.
	ErrKeyTooWide = errors.New("fusiontree: key exceeds element size")
	// ErrShapeMismatch is returned when an encoded tree is decoded against an
	// environment of a different shape.
	ErrShapeMismatch = errors.New("fusiontree: environment shape mismatch")
	// ErrCorruptEncoding is returned for binary input that does not describe
	// a consistent tree.
	ErrCorruptEncoding = errors.New("fusiontree: corrupt encoding")
)

// ConfigError reports why an environment configuration was rejected.
type ConfigError struct {
	Config Config
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s (word=%d element=%d capacity=%d): %s", ErrInvalidConfig,
		e.Config.WordSize, e.Config.ElementSize, e.Config.Capacity, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidConfig) hold for every ConfigError.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
