// Package edgebreaker implements the Edgebreaker connectivity encoder
// and its Spirale Reversi inverse: a depth-first conquest over a
// corner table that emits a compact CLERS symbol stream describing
// face adjacency, and a reverse-order replay that rebuilds the face
// list from that stream alone.
//
// Open meshes are closed before the conquest by fanning every hole
// ring onto a synthetic vertex; the symbol that discovers such a
// vertex is H instead of C, so the decoder knows which faces to strip
// again. Handle merges on higher-genus meshes emit M with a merge
// record carrying the stacked-boundary position to re-split at.
package edgebreaker

import (
	"errors"

	"github.com/dracogo/draco/internal/corner"
)

// Symbol is one letter of the CLERS alphabet.
type Symbol uint8

const (
	SymC Symbol = iota
	SymL
	SymR
	SymE
	SymS
	SymM
	SymH
)

func (s Symbol) String() string {
	switch s {
	case SymC:
		return "C"
	case SymL:
		return "L"
	case SymR:
		return "R"
	case SymE:
		return "E"
	case SymS:
		return "S"
	case SymM:
		return "M"
	case SymH:
		return "H"
	default:
		return "?"
	}
}

// MergeRecord describes one M symbol: a conquest face whose tip
// vertex lay on a stacked boundary loop rather than the active one,
// joining a handle. The decoder re-splits the merged loop at the
// recorded walk distances.
type MergeRecord struct {
	// SymbolIndex is the M symbol's index in the component stream.
	SymbolIndex int
	// SplitIndex is the index of the S symbol whose deferred boundary
	// loop was consumed by this merge.
	SplitIndex int
	// Orientation is reserved; this encoder always writes 0.
	Orientation uint8
	// Depth is the consumed loop's position in the pending-boundary
	// stack, counted from the bottom.
	Depth int
	// GateDist is the number of boundary steps from the gate end to
	// the node whose successor must be split off, measured after the
	// merge.
	GateDist int
	// RingDist is the number of boundary steps from the merge vertex
	// to the detached loop's saved gate, measured on the detached
	// loop.
	RingDist int
}

// Component is one connected component's encoded connectivity.
type Component struct {
	Symbols []Symbol
	Merges  []MergeRecord
	// HoleRings lists, per H symbol in emission order, the length of
	// the hole ring that symbol's synthetic vertex closes.
	HoleRings []int
	// NumIDs counts vertex ids discovered in this component,
	// including the two seeds and any synthetic hole vertices.
	NumIDs uint32
}

// Result is the output of Encode. Vertex ids everywhere below are
// "wire ids": vertices renumbered into conquest-discovery order with
// synthetic hole vertices stripped back out.
type Result struct {
	Components []Component
	// Faces is the reconstructed face list exactly as the decoder
	// will produce it: conquest order, wire vertex ids.
	Faces []uint32
	// NumVertices is the wire vertex count.
	NumVertices uint32
	// SourceVertex maps a wire vertex id to the input vertex id its
	// attribute values come from (non-manifold splits resolve to
	// their parent).
	SourceVertex []uint32
	// SourceFace maps a conquest-order face index to the input face
	// index it reproduces.
	SourceFace []int32
	// Table is the corner table over Faces, shared with the
	// attribute pipeline.
	Table *corner.Table
}

var (
	// ErrDegenerateFace is returned for a face with a repeated vertex.
	ErrDegenerateFace = errors.New("edgebreaker: degenerate face (repeated vertex)")
	// ErrSymbolStream is returned when a symbol stream or its side
	// tables cannot describe a valid conquest.
	ErrSymbolStream = errors.New("edgebreaker: malformed symbol stream")
	// errConquest flags an internal conquest invariant violation.
	errConquest = errors.New("edgebreaker: conquest invariant violated")
)

func hasDegenerateFace(faces []uint32) bool {
	for i := 0; i+2 < len(faces); i += 3 {
		a, b, c := faces[i], faces[i+1], faces[i+2]
		if a == b || b == c || a == c {
			return true
		}
	}
	return false
}
