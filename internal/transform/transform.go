// Package transform implements the prediction transforms and the
// portabilization stage: mapping a prediction
// residual through a reversible transform, then quantizing and
// byte-packing it into wire-ready integers.
package transform

import "errors"

// TransformID identifies a prediction transform on the wire.
type TransformID uint8

const (
	TransformDifference TransformID = iota
	TransformWrappedDifference
	TransformOctahedralDifference
	TransformOctahedralReflection
	TransformOctahedralOrthogonal
	// TransformOrthogonal (id 5) is reserved: neither the encoder nor
	// the decoder implements it, and both fail with ErrReserved on
	// encounter.
	TransformOrthogonal
)

// ErrReserved is returned for the orthogonal transform id, defined
// on the wire but never wired into any dispatch table.
var ErrReserved = errors.New("transform: orthogonal transform (id 5) is reserved, not implemented")

// PortabilizationID identifies a portabilization scheme on the wire.
type PortabilizationID uint8

const (
	PortabilizationQuantized PortabilizationID = iota
	PortabilizationOctahedralQuantized
	PortabilizationRaw
)
