package edgebreaker

import (
	"errors"

	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/rans"
)

// SymbolEncoderTag selects the bit encoding used for a component's
// CLERS stream.
type SymbolEncoderTag uint8

const (
	SymbolCRLight SymbolEncoderTag = iota
	SymbolBalanced
	SymbolRANS
)

// ErrUnknownSymbolEncoder is returned for an unrecognized tag byte.
var ErrUnknownSymbolEncoder = errors.New("edgebreaker: unknown symbol encoder tag")

type bitCode struct {
	bits  uint64
	nbits int
}

// crLightCodes is the default prefix code, skewed hard toward C:
// C=0, R=10, L=1100, E=1101, S=1110; 1111 opens the rare M/H escape,
// disambiguated by one more bit.
var crLightCodes = map[Symbol]bitCode{
	SymC: {0x0, 1},
	SymR: {0x2, 2},
	SymL: {0xC, 4},
	SymE: {0xD, 4},
	SymS: {0xE, 4},
}

// balancedCodes distributes lengths 1-3-3-3-4 across the common
// symbols: C=0, R=100, L=101, E=110, S=1110, same 1111 escape.
var balancedCodes = map[Symbol]bitCode{
	SymC: {0x0, 1},
	SymR: {0x4, 3},
	SymL: {0x5, 3},
	SymE: {0x6, 3},
	SymS: {0xE, 4},
}

const (
	handleTagM = 0 // sub-bit following the 1111 escape
	handleTagH = 1
)

// WriteSymbols entropy-codes a component's CLERS stream with the
// given tag. The writer is byte-aligned afterwards.
func WriteSymbols(w *bitio.Writer, symbols []Symbol, tag SymbolEncoderTag) error {
	w.WriteU8(uint8(tag))
	switch tag {
	case SymbolCRLight, SymbolBalanced:
		codes := crLightCodes
		if tag == SymbolBalanced {
			codes = balancedCodes
		}
		for _, s := range symbols {
			if s == SymM || s == SymH {
				w.WriteBits(4, 0xF)
				if s == SymH {
					w.WriteBits(1, handleTagH)
				} else {
					w.WriteBits(1, handleTagM)
				}
				continue
			}
			c, ok := codes[s]
			if !ok {
				return ErrUnknownSymbolEncoder
			}
			w.WriteBits(c.nbits, c.bits)
		}
		w.Align()
		return nil
	case SymbolRANS:
		return writeSymbolsRANS(w, symbols)
	default:
		return ErrUnknownSymbolEncoder
	}
}

// ReadSymbols is the inverse of WriteSymbols given the expected
// symbol count (transmitted separately as the component's face
// count). The reader is byte-aligned afterwards.
func ReadSymbols(r *bitio.Reader, count int) ([]Symbol, error) {
	tagByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	tag := SymbolEncoderTag(tagByte)
	switch tag {
	case SymbolCRLight, SymbolBalanced:
		read := readOneCRLight
		if tag == SymbolBalanced {
			read = readOneBalanced
		}
		out := make([]Symbol, 0, count)
		for len(out) < count {
			s, err := read(r)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		r.Align()
		return out, nil
	case SymbolRANS:
		return readSymbolsRANS(r, count)
	default:
		return nil, ErrUnknownSymbolEncoder
	}
}

func readEscape(r *bitio.Reader) (Symbol, error) {
	tagBit, err := r.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if tagBit == handleTagH {
		return SymH, nil
	}
	return SymM, nil
}

func readOneCRLight(r *bitio.Reader) (Symbol, error) {
	b0, err := r.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if b0 == 0 {
		return SymC, nil
	}
	b1, err := r.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if b1 == 0 {
		return SymR, nil
	}
	b23, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	switch b23 {
	case 0:
		return SymL, nil
	case 1:
		return SymE, nil
	case 2:
		return SymS, nil
	default: // 1111 escape
		return readEscape(r)
	}
}

func readOneBalanced(r *bitio.Reader) (Symbol, error) {
	b0, err := r.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if b0 == 0 {
		return SymC, nil
	}
	b12, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	switch b12 {
	case 0:
		return SymR, nil
	case 1:
		return SymL, nil
	case 2:
		return SymE, nil
	}
	b3, err := r.ReadBits(1)
	if err != nil {
		return 0, err
	}
	if b3 == 0 {
		return SymS, nil
	}
	return readEscape(r)
}

var ransSymbolOrder = [7]Symbol{SymC, SymL, SymR, SymE, SymS, SymM, SymH}

func writeSymbolsRANS(w *bitio.Writer, symbols []Symbol) error {
	var counts [7]uint32
	for _, s := range symbols {
		counts[s]++
	}
	// The slot table needs counts in a fixed order; map through
	// ransSymbolOrder so the wire layout is independent of the Symbol
	// constants.
	ordered := make([]uint32, 7)
	idx := make(map[Symbol]int, 7)
	for i, s := range ransSymbolOrder {
		idx[s] = i
		ordered[i] = counts[s]
	}
	table, err := rans.NewFreqTable(ordered, rans.SymbolPrecision)
	if err != nil {
		return err
	}
	for _, c := range ordered {
		w.WriteLEB128(uint64(c))
	}
	enc := rans.NewEncoder(rans.SymbolPrecision)
	for i := len(symbols) - 1; i >= 0; i-- {
		enc.EncodeSymbol(idx[symbols[i]], table)
	}
	payload := enc.Finish()
	w.WriteLEB128(uint64(len(payload)))
	w.WriteBytes(payload)
	return nil
}

func readSymbolsRANS(r *bitio.Reader, count int) ([]Symbol, error) {
	ordered := make([]uint32, 7)
	for i := range ordered {
		c, err := r.ReadLEB128()
		if err != nil {
			return nil, err
		}
		ordered[i] = uint32(c)
	}
	table, err := rans.NewFreqTable(ordered, rans.SymbolPrecision)
	if err != nil {
		return nil, err
	}
	n, err := r.ReadLEB128()
	if err != nil {
		return nil, err
	}
	payload, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	dec, err := rans.NewDecoder(payload)
	if err != nil {
		return nil, err
	}
	out := make([]Symbol, count)
	for i := 0; i < count; i++ {
		s, err := dec.DecodeSymbol(table)
		if err != nil {
			return nil, err
		}
		if s < 0 || s >= len(ransSymbolOrder) {
			return nil, ErrUnknownSymbolEncoder
		}
		out[i] = ransSymbolOrder[s]
	}
	return out, nil
}
