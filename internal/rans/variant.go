package rans

import "fmt"

// Variant selects how a symbol sequence is laid out above the raw
// rANS coder: Direct codes one symbol per step;
// Tagged run-length-encodes repeated runs first, then entropy-codes
// only the run symbols, shrinking the coded alphabet traffic for
// bursty streams (long flat regions of an attribute correction
// stream, for instance).
type Variant uint8

const (
	VariantDirect Variant = iota
	VariantTagged
)

// EncodeDirect entropy-codes symbols one at a time and returns the
// byte stream.
func EncodeDirect(symbols []int, t *FreqTable) []byte {
	e := NewEncoder(t.Precision())
	for i := len(symbols) - 1; i >= 0; i-- {
		e.EncodeSymbol(symbols[i], t)
	}
	return e.Finish()
}

// DecodeDirect decodes exactly count symbols from data.
func DecodeDirect(data []byte, t *FreqTable, count int) ([]int, error) {
	d, err := NewDecoder(data)
	if err != nil {
		return nil, err
	}
	out := make([]int, count)
	for i := 0; i < count; i++ {
		sym, err := d.DecodeSymbol(t)
		if err != nil {
			return nil, fmt.Errorf("rans: direct decode at index %d: %w", i, err)
		}
		out[i] = sym
	}
	return out, nil
}

// run is one (symbol, repeat count) pair.
type run struct {
	sym   int
	count uint32
}

// Runs splits symbols into run lengths and per-run symbol values,
// the decomposition the tagged variant serializes. Callers that need
// the run symbols before committing to a frequency table (to count
// them) use this directly.
func Runs(symbols []int) (runLengths []uint32, runSymbols []int) {
	runs := runLengthEncode(symbols)
	runLengths = make([]uint32, len(runs))
	runSymbols = make([]int, len(runs))
	for i, r := range runs {
		runLengths[i] = r.count
		runSymbols[i] = r.sym
	}
	return runLengths, runSymbols
}

func runLengthEncode(symbols []int) []run {
	var runs []run
	for _, s := range symbols {
		if n := len(runs); n > 0 && runs[n-1].sym == s {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{sym: s, count: 1})
	}
	return runs
}

// EncodeTagged run-length-encodes symbols, entropy-codes only the
// per-run symbol values under t, and returns that payload plus the
// run lengths as plain uint32 values (the caller writes both through its own
// bit/byte writer; this package has no framing opinion beyond
// returning the two halves a caller assembles in wire order).
func EncodeTagged(symbols []int, t *FreqTable) (runLengths []uint32, symbolPayload []byte) {
	runLengths, runSymbols := Runs(symbols)
	return runLengths, EncodeDirect(runSymbols, t)
}

// DecodeTagged expands runLengths/symbolPayload back into the
// original symbol sequence.
func DecodeTagged(runLengths []uint32, symbolPayload []byte, t *FreqTable) ([]int, error) {
	runSymbols, err := DecodeDirect(symbolPayload, t, len(runLengths))
	if err != nil {
		return nil, fmt.Errorf("rans: tagged decode: %w", err)
	}
	var total uint32
	for _, n := range runLengths {
		total += n
	}
	out := make([]int, 0, total)
	for i, n := range runLengths {
		for j := uint32(0); j < n; j++ {
			out = append(out, runSymbols[i])
		}
	}
	return out, nil
}
