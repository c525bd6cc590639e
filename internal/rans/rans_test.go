package rans

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreqTable_RoundTrip(t *testing.T) {
	counts := []uint32{50, 30, 15, 5}
	ft, err := NewFreqTable(counts, SymbolPrecision)
	require.NoError(t, err)
	var sum uint32
	for _, f := range ft.Freq {
		sum += f
	}
	assert.Equal(t, uint32(1<<SymbolPrecision), sum)
}

func TestDirectRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := []uint32{40, 30, 20, 10}
	ft, err := NewFreqTable(counts, SymbolPrecision)
	require.NoError(t, err)

	symbols := make([]int, 500)
	for i := range symbols {
		symbols[i] = rng.Intn(4)
	}
	data := EncodeDirect(symbols, ft)
	decoded, err := DecodeDirect(data, ft, len(symbols))
	require.NoError(t, err)
	assert.Equal(t, symbols, decoded)
}

func TestTaggedRoundTrip(t *testing.T) {
	counts := []uint32{10, 10, 10}
	ft, err := NewFreqTable(counts, SymbolPrecision)
	require.NoError(t, err)

	symbols := []int{0, 0, 0, 1, 1, 2, 0, 0, 2, 2, 2, 2}
	runLengths, payload := EncodeTagged(symbols, ft)
	decoded, err := DecodeTagged(runLengths, payload, ft)
	require.NoError(t, err)
	assert.Equal(t, symbols, decoded)
}

func TestRabsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	bits := make([]int, 1000)
	for i := range bits {
		if rng.Float64() < 0.8 {
			bits[i] = 0
		} else {
			bits[i] = 1
		}
	}
	e := NewRabsEncoder()
	p0 := uint32(200) // out of 256
	for i := len(bits) - 1; i >= 0; i-- {
		e.EncodeBit(bits[i], p0)
	}
	data := e.Finish()

	d, err := NewRabsDecoder(data)
	require.NoError(t, err)
	for i := 0; i < len(bits); i++ {
		got, err := d.DecodeBit(p0)
		require.NoError(t, err)
		assert.Equal(t, bits[i], got, "bit %d", i)
	}
}

func TestFrequencyCountError(t *testing.T) {
	_, err := buildTable([]uint32{1, 1}, SymbolPrecision)
	require.Error(t, err)
	var fe *ErrFrequencyCount
	require.ErrorAs(t, err, &fe)
}

func TestDecodeUnderflow(t *testing.T) {
	counts := []uint32{2048, 2048}
	ft, err := NewFreqTable(counts, SymbolPrecision)
	require.NoError(t, err)
	data := EncodeDirect([]int{0, 1, 0, 1}, ft)
	_, err = DecodeDirect(data[:len(data)-1], ft, 4)
	require.Error(t, err)
}
