// Package draco provides a pure Go implementation of a lossy/lossless
// compression codec for triangular meshes, interoperable with the
// Draco bitstream format (version 2.2).
//
// A mesh is a set of triangular faces plus per-vertex or per-corner
// attributes (position, normal, texture coordinate, color, and custom
// data). Connectivity is compressed with the Edgebreaker conquest and
// decompressed with its Spirale Reversi inverse; attribute values are
// quantized onto integer grids (custom, material and joint
// attributes are kept raw instead), then
// go through prediction, a reversible residual transform, and
// range-ANS entropy coding.
//
// Basic usage for encoding:
//
//	b := draco.NewBuilder()
//	b.SetFaces(faces)
//	b.AddAttribute(positions)
//	mesh, _ := b.Build()
//	err := draco.Encode(file, mesh, nil)
//
// Basic usage for decoding:
//
//	mesh, err := draco.Decode(file)
//	if err != nil {
//	    log.Fatal(err)
//	}
package draco

import (
	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/codestream"
	"github.com/dracogo/draco/internal/meshmodel"
	"github.com/dracogo/draco/internal/rans"
)

// Mesh is an ordered face list plus a topologically sorted attribute
// sequence.
type Mesh = meshmodel.Mesh

// Attribute is a named, typed array of fixed-width component vectors.
type Attribute = meshmodel.Attribute

// Builder accumulates faces and attributes, validates dependency
// invariants, and produces a Mesh.
type Builder = meshmodel.Builder

// Role names the semantic purpose of an attribute.
type Role = meshmodel.Role

// Domain selects per-vertex or per-corner attachment.
type Domain = meshmodel.Domain

// ComponentKind is the wire width of one attribute component.
type ComponentKind = meshmodel.ComponentKind

// BuildError reports a mesh construction violation.
type BuildError = meshmodel.BuildError

// InvalidTagError reports an unknown id byte in the stream.
type InvalidTagError = codestream.InvalidTagError

// FrequencyCountError reports an entropy frequency table whose counts
// are incompatible with the rANS precision.
type FrequencyCountError = rans.ErrFrequencyCount

// Metadata is the optional key/value block following the header.
type Metadata = codestream.Metadata

// MetadataEntry is one key/value pair of the metadata block.
type MetadataEntry = codestream.MetadataEntry

// Attribute roles.
const (
	RolePosition = meshmodel.RolePosition
	RoleNormal   = meshmodel.RoleNormal
	RoleColor    = meshmodel.RoleColor
	RoleTexCoord = meshmodel.RoleTexCoord
	RoleTangent  = meshmodel.RoleTangent
	RoleMaterial = meshmodel.RoleMaterial
	RoleJoint    = meshmodel.RoleJoint
	RoleWeight   = meshmodel.RoleWeight
	RoleCustom   = meshmodel.RoleCustom
)

// Attribute domains.
const (
	DomainPerVertex = meshmodel.DomainPerVertex
	DomainPerCorner = meshmodel.DomainPerCorner
)

// Component kinds.
const (
	KindU8  = meshmodel.KindU8
	KindU16 = meshmodel.KindU16
	KindU32 = meshmodel.KindU32
	KindU64 = meshmodel.KindU64
	KindF32 = meshmodel.KindF32
	KindF64 = meshmodel.KindF64
)

// Sentinel errors surfaced at the Encode/Decode boundary.
var (
	// ErrNotADracoFile is returned when the magic bytes are wrong.
	ErrNotADracoFile = codestream.ErrNotDraco
	// ErrNotEnoughData is returned when the stream is truncated.
	ErrNotEnoughData = bitio.ErrNotEnoughData
	// ErrUnsupportedMethod is returned for the sequential
	// connectivity coder, which this codec does not implement.
	ErrUnsupportedMethod = codestream.ErrUnsupportedMethod
	// ErrUnsupportedVersion is returned for streams with an unknown
	// major version.
	ErrUnsupportedVersion = codestream.ErrVersion
)

// NewBuilder returns an empty mesh builder.
func NewBuilder() *Builder { return meshmodel.NewBuilder() }

// NewAttribute allocates an attribute with valueCount zero vectors.
// The builder assigns its identity when the attribute is added.
func NewAttribute(role Role, domain Domain, kind ComponentKind, components int, parents []uint32, valueCount int) *Attribute {
	return meshmodel.NewAttribute(0, role, domain, kind, components, parents, valueCount)
}
