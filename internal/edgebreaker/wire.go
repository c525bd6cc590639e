package edgebreaker

import (
	"fmt"

	"github.com/dracogo/draco/internal/bitio"
)

// WriteConnectivity serializes the connectivity block: face count,
// component count, then per component the symbol payload and its side
// tables.
func WriteConnectivity(w *bitio.Writer, res *Result, tag SymbolEncoderTag) error {
	w.WriteMarker("CONN")
	w.WriteU32(uint32(len(res.Faces) / 3))
	w.WriteU32(uint32(len(res.Components)))
	for i := range res.Components {
		comp := &res.Components[i]
		w.WriteLEB128(uint64(len(comp.Symbols)))
		w.WriteLEB128(uint64(comp.NumIDs))
		if err := WriteSymbols(w, comp.Symbols, tag); err != nil {
			return fmt.Errorf("component %d symbols: %w", i, err)
		}
		w.WriteLEB128(uint64(len(comp.Merges)))
		for _, m := range comp.Merges {
			w.WriteLEB128(uint64(m.SymbolIndex))
			w.WriteLEB128(uint64(m.SplitIndex))
			w.WriteU8(m.Orientation)
			w.WriteLEB128(uint64(m.Depth))
			w.WriteLEB128(uint64(m.GateDist))
			w.WriteLEB128(uint64(m.RingDist))
		}
		w.WriteLEB128(uint64(len(comp.HoleRings)))
		for _, h := range comp.HoleRings {
			w.WriteLEB128(uint64(h))
		}
	}
	return nil
}

// ReadConnectivity parses the connectivity block and replays it into
// the decoded face list and wire vertex count.
func ReadConnectivity(r *bitio.Reader) ([]uint32, uint32, error) {
	if err := r.ReadMarker("CONN"); err != nil {
		return nil, 0, err
	}
	numFaces, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	numComponents, err := r.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	if numFaces == 0 {
		if numComponents != 0 {
			return nil, 0, fmt.Errorf("%w: components without faces", ErrSymbolStream)
		}
		return nil, 0, nil
	}
	if uint64(numComponents) > uint64(numFaces) {
		return nil, 0, fmt.Errorf("%w: %d components for %d faces", ErrSymbolStream, numComponents, numFaces)
	}

	components := make([]Component, numComponents)
	for i := range components {
		comp := &components[i]
		numSymbols, err := r.ReadLEB128()
		if err != nil {
			return nil, 0, err
		}
		// A component's closed conquest has at most one hole face per
		// real edge; 4x the face count comfortably bounds any valid
		// closure and keeps corrupt streams from allocating wildly.
		if numSymbols == 0 || numSymbols > uint64(numFaces)*4+4 {
			return nil, 0, fmt.Errorf("%w: component symbol count %d out of range", ErrSymbolStream, numSymbols)
		}
		numIDs, err := r.ReadLEB128()
		if err != nil {
			return nil, 0, err
		}
		if numIDs < 3 || numIDs > numSymbols+2 {
			return nil, 0, fmt.Errorf("%w: component vertex count %d out of range", ErrSymbolStream, numIDs)
		}
		comp.NumIDs = uint32(numIDs)
		comp.Symbols, err = ReadSymbols(r, int(numSymbols))
		if err != nil {
			return nil, 0, err
		}
		numMerges, err := r.ReadLEB128()
		if err != nil {
			return nil, 0, err
		}
		if numMerges > numSymbols {
			return nil, 0, fmt.Errorf("%w: merge table longer than symbol stream", ErrSymbolStream)
		}
		for j := uint64(0); j < numMerges; j++ {
			var m MergeRecord
			fields := []*int{&m.SymbolIndex, &m.SplitIndex}
			for k, dst := range fields {
				v, err := r.ReadLEB128()
				if err != nil {
					return nil, 0, err
				}
				if v >= numSymbols {
					return nil, 0, fmt.Errorf("%w: merge field %d out of range", ErrSymbolStream, k)
				}
				*dst = int(v)
			}
			if m.Orientation, err = r.ReadU8(); err != nil {
				return nil, 0, err
			}
			depth, err := r.ReadLEB128()
			if err != nil {
				return nil, 0, err
			}
			gateDist, err := r.ReadLEB128()
			if err != nil {
				return nil, 0, err
			}
			ringDist, err := r.ReadLEB128()
			if err != nil {
				return nil, 0, err
			}
			bound := numSymbols*3 + 4
			if depth > numSymbols || gateDist > bound || ringDist > bound {
				return nil, 0, fmt.Errorf("%w: merge walk out of range", ErrSymbolStream)
			}
			m.Depth, m.GateDist, m.RingDist = int(depth), int(gateDist), int(ringDist)
			comp.Merges = append(comp.Merges, m)
		}
		numHoles, err := r.ReadLEB128()
		if err != nil {
			return nil, 0, err
		}
		if numHoles > numSymbols {
			return nil, 0, fmt.Errorf("%w: hole table longer than symbol stream", ErrSymbolStream)
		}
		for j := uint64(0); j < numHoles; j++ {
			h, err := r.ReadLEB128()
			if err != nil {
				return nil, 0, err
			}
			if h < 3 || h > numSymbols {
				return nil, 0, fmt.Errorf("%w: hole ring length %d out of range", ErrSymbolStream, h)
			}
			comp.HoleRings = append(comp.HoleRings, int(h))
		}
	}

	faces, numVertices, err := Decode(components)
	if err != nil {
		return nil, 0, err
	}
	if len(faces)/3 != int(numFaces) {
		return nil, 0, fmt.Errorf("%w: replay produced %d faces, header says %d", ErrSymbolStream, len(faces)/3, numFaces)
	}
	return faces, numVertices, nil
}
