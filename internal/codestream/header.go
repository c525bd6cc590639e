// Package codestream implements the self-describing wire format of
// the codec: the DRACO header, the optional metadata block, and the
// attribute block with its per-group prediction, transform, and
// portabilization records. Connectivity framing lives with the
// edgebreaker package; this package drives it.
package codestream

import (
	"errors"
	"fmt"

	"github.com/dracogo/draco/internal/bitio"
)

// Magic is the five-byte stream signature.
const Magic = "DRACO"

// Geometry type bytes at offset 7.
const (
	GeometryPointCloud uint8 = 0
	GeometryMesh       uint8 = 1
)

// Encoder method bytes at offset 8.
const (
	MethodSequential  uint8 = 0
	MethodEdgebreaker uint8 = 1
)

// FlagMetadata marks the presence of the metadata block in the
// 16-bit flag word.
const FlagMetadata uint16 = 0x8000

// Version emitted by this encoder. Decoding accepts any 2.x stream.
const (
	VersionMajor uint8 = 2
	VersionMinor uint8 = 2
)

// ErrNotDraco is returned when the magic bytes do not match.
var ErrNotDraco = errors.New("codestream: not a Draco stream")

// ErrVersion is returned for a stream whose major version this
// decoder does not understand.
var ErrVersion = errors.New("codestream: unsupported bitstream version")

// ErrUnsupportedMethod is returned when the stream selects the
// sequential connectivity coder, which this codec does not implement.
var ErrUnsupportedMethod = errors.New("codestream: sequential connectivity encoding not supported")

// InvalidTagError reports an unknown id byte for a tagged wire
// record (component kind, predictor, transform, portabilization).
type InvalidTagError struct {
	Kind string
	ID   uint8
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("codestream: invalid %s tag %d", e.Kind, e.ID)
}

// Header is the fixed-layout stream prelude.
type Header struct {
	VersionMajor uint8
	VersionMinor uint8
	GeometryType uint8
	Method       uint8
	Flags        uint16
}

// HasMetadata reports whether the metadata flag bit is set.
func (h Header) HasMetadata() bool { return h.Flags&FlagMetadata != 0 }

// WriteHeader emits the stream prelude.
func WriteHeader(w *bitio.Writer, h Header) {
	w.WriteBytes([]byte(Magic))
	w.WriteU8(h.VersionMajor)
	w.WriteU8(h.VersionMinor)
	w.WriteU8(h.GeometryType)
	w.WriteU8(h.Method)
	w.WriteU16(h.Flags)
}

// ReadHeader parses and validates the stream prelude.
func ReadHeader(r *bitio.Reader) (Header, error) {
	var h Header
	magic, err := r.ReadBytes(len(Magic))
	if err != nil {
		return h, err
	}
	if string(magic) != Magic {
		return h, ErrNotDraco
	}
	if h.VersionMajor, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.VersionMinor, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.VersionMajor != VersionMajor {
		return h, fmt.Errorf("%w: %d.%d", ErrVersion, h.VersionMajor, h.VersionMinor)
	}
	if h.GeometryType, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.GeometryType != GeometryPointCloud && h.GeometryType != GeometryMesh {
		return h, &InvalidTagError{Kind: "geometry type", ID: h.GeometryType}
	}
	if h.Method, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.Method != MethodSequential && h.Method != MethodEdgebreaker {
		return h, &InvalidTagError{Kind: "encoder method", ID: h.Method}
	}
	if h.Flags, err = r.ReadU16(); err != nil {
		return h, err
	}
	return h, nil
}

// MetadataEntry is one key/value pair of the optional metadata block.
type MetadataEntry struct {
	Key   string
	Value string
}

// Metadata is the optional block following the header. The body
// format belongs to the external metadata collaborator; this codec
// frames it as the caller's EncoderID (u32) followed by
// length-prefixed key/value strings.
type Metadata struct {
	EncoderID uint32
	Entries   []MetadataEntry
}

// maxMetadataString bounds a single metadata string against corrupt
// length prefixes.
const maxMetadataString = 1 << 20

// WriteMetadata emits the metadata block.
func WriteMetadata(w *bitio.Writer, m Metadata) {
	w.WriteU32(m.EncoderID)
	w.WriteLEB128(uint64(len(m.Entries)))
	for _, e := range m.Entries {
		w.WriteLEB128(uint64(len(e.Key)))
		w.WriteBytes([]byte(e.Key))
		w.WriteLEB128(uint64(len(e.Value)))
		w.WriteBytes([]byte(e.Value))
	}
}

// ReadMetadata parses the metadata block.
func ReadMetadata(r *bitio.Reader) (Metadata, error) {
	var m Metadata
	var err error
	if m.EncoderID, err = r.ReadU32(); err != nil {
		return m, err
	}
	count, err := r.ReadLEB128()
	if err != nil {
		return m, err
	}
	if count > maxMetadataString {
		return m, fmt.Errorf("codestream: metadata entry count %d out of range", count)
	}
	readString := func() (string, error) {
		n, err := r.ReadLEB128()
		if err != nil {
			return "", err
		}
		if n > maxMetadataString {
			return "", fmt.Errorf("codestream: metadata string length %d out of range", n)
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	for i := uint64(0); i < count; i++ {
		var e MetadataEntry
		if e.Key, err = readString(); err != nil {
			return m, err
		}
		if e.Value, err = readString(); err != nil {
			return m, err
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}
