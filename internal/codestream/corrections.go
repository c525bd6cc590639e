package codestream

import (
	"fmt"
	"math/bits"

	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/rans"
)

// Correction streams are coded as a bit-length tag per value plus the
// value's trailing bits: the tag alphabet is tiny (0..64) so the rANS
// slot table always fits, regardless of quantization width. The tag
// stream itself goes through one of the two rANS variants; the
// encoder picks tagged (run-length) when the stream is bursty enough
// for the run table to pay for itself.

const tagAlphabet = 65

// zigzag folds a signed correction into an unsigned code with small
// magnitudes staying small.
func zigzag(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }

// unzigzag is the inverse of zigzag.
func unzigzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

func bitLen(v uint64) int { return bits.Len64(v) }

// writeCorrections emits one range's correction values.
func writeCorrections(w *bitio.Writer, values []uint64) error {
	w.WriteMarker("CORR")
	tags := make([]int, len(values))
	var counts [tagAlphabet]uint32
	for i, v := range values {
		tags[i] = bitLen(v)
		counts[tags[i]]++
	}
	w.WriteLEB128(uint64(len(values)))
	if len(values) == 0 {
		return nil
	}

	runLengths, runSymbols := rans.Runs(tags)
	variant := rans.VariantDirect
	if len(runLengths)*2 < len(tags) {
		variant = rans.VariantTagged
	}
	w.WriteU8(uint8(variant))

	// The frequency table covers whichever symbol sequence goes
	// through the direct coder: the full tag stream, or just the
	// per-run symbols.
	symbols := tags
	if variant == rans.VariantTagged {
		symbols = runSymbols
	}
	var symCounts [tagAlphabet]uint32
	for _, s := range symbols {
		symCounts[s]++
	}
	table, err := rans.NewFreqTable(symCounts[:], rans.SymbolPrecision)
	if err != nil {
		return fmt.Errorf("correction frequency table: %w", err)
	}
	for _, c := range symCounts {
		w.WriteLEB128(uint64(c))
	}
	if variant == rans.VariantTagged {
		w.WriteLEB128(uint64(len(runLengths)))
		for _, n := range runLengths {
			w.WriteLEB128(uint64(n))
		}
	}
	payload := rans.EncodeDirect(symbols, table)
	w.WriteLEB128(uint64(len(payload)))
	w.WriteBytes(payload)

	// Trailing bits: a value of bit length L >= 2 stores its low L-1
	// bits (the leading 1 is implied by the tag).
	for _, v := range values {
		if l := bitLen(v); l >= 2 {
			w.WriteBits(l-1, v&((uint64(1)<<(l-1))-1))
		}
	}
	w.Align()
	return nil
}

// readCorrections parses one range's correction values; expected is
// the count the surrounding records promise, guarded against the
// stream's own claim.
func readCorrections(r *bitio.Reader, expected int) ([]uint64, error) {
	if err := r.ReadMarker("CORR"); err != nil {
		return nil, err
	}
	count, err := r.ReadLEB128()
	if err != nil {
		return nil, err
	}
	if count != uint64(expected) {
		return nil, fmt.Errorf("codestream: correction count %d, records promise %d", count, expected)
	}
	if count == 0 {
		return nil, nil
	}
	variantByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	variant := rans.Variant(variantByte)
	if variant != rans.VariantDirect && variant != rans.VariantTagged {
		return nil, &InvalidTagError{Kind: "correction variant", ID: variantByte}
	}

	var symCounts [tagAlphabet]uint32
	for i := range symCounts {
		c, err := r.ReadLEB128()
		if err != nil {
			return nil, err
		}
		symCounts[i] = uint32(c)
	}
	table, err := rans.NewFreqTable(symCounts[:], rans.SymbolPrecision)
	if err != nil {
		return nil, err
	}

	var runLengths []uint32
	numSymbols := int(count)
	if variant == rans.VariantTagged {
		numRuns, err := r.ReadLEB128()
		if err != nil {
			return nil, err
		}
		if numRuns > count {
			return nil, fmt.Errorf("codestream: run table longer than value stream")
		}
		runLengths = make([]uint32, numRuns)
		var total uint64
		for i := range runLengths {
			n, err := r.ReadLEB128()
			if err != nil {
				return nil, err
			}
			if n == 0 || n > count {
				return nil, fmt.Errorf("codestream: run length %d out of range", n)
			}
			runLengths[i] = uint32(n)
			total += n
		}
		if total != count {
			return nil, fmt.Errorf("codestream: run lengths sum to %d, want %d", total, count)
		}
		numSymbols = len(runLengths)
	}

	payloadLen, err := r.ReadLEB128()
	if err != nil {
		return nil, err
	}
	payload, err := r.ReadBytes(int(payloadLen))
	if err != nil {
		return nil, err
	}

	var tags []int
	if variant == rans.VariantTagged {
		tags, err = rans.DecodeTagged(runLengths, payload, table)
	} else {
		tags, err = rans.DecodeDirect(payload, table, numSymbols)
	}
	if err != nil {
		return nil, err
	}
	if len(tags) != int(count) {
		return nil, fmt.Errorf("codestream: decoded %d tags, want %d", len(tags), count)
	}

	values := make([]uint64, count)
	for i, tag := range tags {
		switch {
		case tag == 0:
			values[i] = 0
		case tag == 1:
			values[i] = 1
		case tag < tagAlphabet:
			low, err := r.ReadBits(tag - 1)
			if err != nil {
				return nil, err
			}
			values[i] = uint64(1)<<(tag-1) | low
		default:
			return nil, &InvalidTagError{Kind: "correction bit length", ID: uint8(tag)}
		}
	}
	r.Align()
	return values, nil
}
