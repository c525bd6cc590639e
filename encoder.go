package draco

import (
	"errors"
	"fmt"
	"io"

	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/codestream"
	"github.com/dracogo/draco/internal/edgebreaker"
)

// ErrUnsupportedGeometry is returned when Options selects the
// point-cloud geometry type, which this codec does not encode.
var ErrUnsupportedGeometry = errors.New("draco: point-cloud encoding not supported")

// Encode compresses mesh into w. A nil opts uses DefaultOptions.
func Encode(w io.Writer, mesh *Mesh, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validateOptions(opts); err != nil {
		return err
	}
	pos := mesh.AttributeByRole(RolePosition)
	if pos == nil {
		return &BuildError{Reason: "mesh has no position attribute"}
	}

	bw := bitio.NewWriter(bitio.MSBFirst)
	flags := uint16(0)
	if opts.IncludeMetadata {
		flags |= codestream.FlagMetadata
	}
	codestream.WriteHeader(bw, codestream.Header{
		VersionMajor: codestream.VersionMajor,
		VersionMinor: codestream.VersionMinor,
		GeometryType: uint8(opts.GeometryType),
		Method:       uint8(opts.Method),
		Flags:        flags,
	})
	if opts.IncludeMetadata {
		codestream.WriteMetadata(bw, opts.Metadata)
	}

	res, err := edgebreaker.Encode(mesh.Faces, uint32(pos.NumValues()))
	if err != nil {
		return fmt.Errorf("encoding connectivity: %w", err)
	}
	if err := edgebreaker.WriteConnectivity(bw, res, edgebreaker.SymbolEncoderTag(opts.SymbolEncoder)); err != nil {
		return fmt.Errorf("encoding connectivity: %w", err)
	}

	attrOpts := codestream.AttributeOptions{
		PositionBits:       opts.PositionQuantizationBits,
		TexCoordBits:       opts.TexCoordQuantizationBits,
		NormalBits:         opts.NormalQuantizationBits,
		SplitGroups:        opts.SplitAttributesIntoGroups,
		MultiParallelogram: opts.MultiParallelogram,
		OrthogonalNormals:  opts.NormalTransform == NormalOctahedralOrthogonal,
	}
	if err := codestream.WriteAttributes(bw, mesh, res, attrOpts); err != nil {
		return err
	}

	_, err = w.Write(bw.Bytes())
	return err
}

func validateOptions(opts *Options) error {
	if opts.GeometryType != GeometryMesh {
		return ErrUnsupportedGeometry
	}
	if opts.Method != MethodEdgebreaker {
		return ErrUnsupportedMethod
	}
	for _, bits := range []int{opts.PositionQuantizationBits, opts.TexCoordQuantizationBits, opts.NormalQuantizationBits} {
		if bits < 1 || bits > 31 {
			return fmt.Errorf("draco: quantization bits %d outside [1, 31]", bits)
		}
	}
	if opts.SymbolEncoder > SymbolsRANS {
		return edgebreaker.ErrUnknownSymbolEncoder
	}
	if opts.NormalTransform > NormalOctahedralOrthogonal {
		return &InvalidTagError{Kind: "normal transform", ID: uint8(opts.NormalTransform)}
	}
	return nil
}
