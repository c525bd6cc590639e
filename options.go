package draco

// GeometryType is the top-level header geometry byte.
type GeometryType uint8

const (
	// GeometryPointCloud marks a stream without connectivity. Only
	// accepted in headers; this codec encodes and decodes meshes.
	GeometryPointCloud GeometryType = 0
	// GeometryMesh marks a triangular mesh stream.
	GeometryMesh GeometryType = 1
)

// Method selects the connectivity coder.
type Method uint8

const (
	// MethodSequential is the uncompressed connectivity path. It is
	// defined for header interoperability but not implemented.
	MethodSequential Method = 0
	// MethodEdgebreaker is the Edgebreaker/Spirale Reversi path.
	MethodEdgebreaker Method = 1
)

// SymbolCoding selects the CLERS entropy coding.
type SymbolCoding uint8

const (
	// SymbolsCRLight is the C-heavy static prefix code (default).
	SymbolsCRLight SymbolCoding = 0
	// SymbolsBalanced spreads code lengths 1-3-3-3-4.
	SymbolsBalanced SymbolCoding = 1
	// SymbolsRANS learns a frequency table per component.
	SymbolsRANS SymbolCoding = 2
)

// NormalTransform selects the prediction transform applied to
// unit-normal attributes.
type NormalTransform uint8

const (
	// NormalOctahedralDifference rotates predictions into a canonical
	// quadrant of the octahedral chart grid (default).
	NormalOctahedralDifference NormalTransform = 0
	// NormalOctahedralOrthogonal canonicalizes the 3D vectors
	// themselves (z reflection plus an axis rotation) before
	// charting.
	NormalOctahedralOrthogonal NormalTransform = 1
)

// Options configures Encode. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// GeometryType is the header geometry byte. Only GeometryMesh is
	// encodable.
	GeometryType GeometryType

	// Method selects the connectivity coder. Only MethodEdgebreaker
	// is implemented.
	Method Method

	// IncludeMetadata toggles the header flag and metadata block.
	IncludeMetadata bool

	// Metadata is written when IncludeMetadata is set.
	Metadata Metadata

	// PositionQuantizationBits is the per-axis grid width for
	// position attributes (1-31).
	PositionQuantizationBits int

	// TexCoordQuantizationBits is the grid width for texture
	// coordinates (1-31).
	TexCoordQuantizationBits int

	// NormalQuantizationBits is the octahedral grid width for unit
	// normals (1-31).
	NormalQuantizationBits int

	// NormalTransform selects the octahedral transform variant for
	// unit-normal attributes.
	NormalTransform NormalTransform

	// SymbolEncoder selects the CLERS entropy coding.
	SymbolEncoder SymbolCoding

	// SplitAttributesIntoGroups partitions the values of each
	// quantized or octahedral attribute with at least 8 values into
	// two prediction groups of about equal size; raw-coded attributes
	// and smaller attributes keep a single group.
	SplitAttributesIntoGroups bool

	// MultiParallelogram averages parallelogram predictions across
	// every resolved face instead of using the first one, for
	// position attributes.
	MultiParallelogram bool
}

// DefaultOptions returns the default encoding configuration: a mesh
// encoded with edgebreaker connectivity, CR-light symbols, and 11/10/8
// quantization bits for positions, texture coordinates, and normals.
func DefaultOptions() *Options {
	return &Options{
		GeometryType:             GeometryMesh,
		Method:                   MethodEdgebreaker,
		PositionQuantizationBits: 11,
		TexCoordQuantizationBits: 10,
		NormalQuantizationBits:   8,
		SymbolEncoder:            SymbolsCRLight,
	}
}

// Config configures Decode.
type Config struct {
	// ConnectivityOnly stops after the connectivity block, returning
	// a mesh with faces but no attributes.
	ConnectivityOnly bool
}
