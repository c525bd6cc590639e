package draco

import (
	"fmt"
	"io"

	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/codestream"
	"github.com/dracogo/draco/internal/edgebreaker"
)

// Decode reads a complete stream from r and reconstructs the mesh.
// The decoded mesh carries its own vertex numbering (the conquest
// discovery order recorded in the stream); faces and attribute values
// are mutually consistent under that numbering.
func Decode(r io.Reader) (*Mesh, error) {
	return DecodeWithConfig(r, nil)
}

// DecodeWithConfig decodes with explicit configuration. A nil cfg
// behaves like Decode.
func DecodeWithConfig(r io.Reader, cfg *Config) (*Mesh, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	br := bitio.NewReader(data, bitio.MSBFirst)

	h, err := readPrelude(br)
	if err != nil {
		return nil, err
	}
	if h.GeometryType != codestream.GeometryMesh {
		return nil, ErrUnsupportedGeometry
	}

	faces, numVertices, err := edgebreaker.ReadConnectivity(br)
	if err != nil {
		return nil, fmt.Errorf("decoding connectivity: %w", err)
	}
	mesh := &Mesh{Faces: faces}
	if cfg.ConnectivityOnly {
		return mesh, nil
	}

	attrs, err := codestream.ReadAttributes(br, faces, numVertices)
	if err != nil {
		return nil, err
	}
	mesh.Attributes = attrs
	return mesh, nil
}

// DecodeMetadata reads only the header and metadata block, without
// decoding connectivity or attributes. It returns a zero Metadata if
// the stream carries none.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	br := bitio.NewReader(data, bitio.MSBFirst)
	h, err := codestream.ReadHeader(br)
	if err != nil {
		return nil, err
	}
	if !h.HasMetadata() {
		return &Metadata{}, nil
	}
	m, err := codestream.ReadMetadata(br)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// readPrelude parses the header and consumes the metadata block if
// present, returning the header for method dispatch.
func readPrelude(br *bitio.Reader) (codestream.Header, error) {
	h, err := codestream.ReadHeader(br)
	if err != nil {
		return h, err
	}
	if h.Method == codestream.MethodSequential {
		return h, ErrUnsupportedMethod
	}
	if h.HasMetadata() {
		if _, err := codestream.ReadMetadata(br); err != nil {
			return h, err
		}
	}
	return h, nil
}
