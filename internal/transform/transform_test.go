package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gviegas/scene/linear"
)

func TestDifferenceRoundTrip(t *testing.T) {
	residuals := [][]float64{{-1, 2, 0}, {3, -4, 1}, {0, 0, 0}}
	tr := NewDifference(residuals)
	for _, r := range residuals {
		c := tr.Forward(r)
		for _, v := range c {
			assert.GreaterOrEqual(t, v, 0.0)
		}
		back := tr.Inverse(c)
		assert.InDeltaSlice(t, r, back, 1e-9)
	}
}

func TestWrappedDifferenceWraps(t *testing.T) {
	tr := NewWrappedDifference(1.0)
	out := tr.Forward([]float64{0.9})
	assert.InDelta(t, -0.1, out[0], 1e-9)
}

func TestOctahedralChartRoundTrip(t *testing.T) {
	dirs := []linear.V3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
		{1, 1, 1}, {-1, -1, -1},
	}
	for _, d := range dirs {
		var n linear.V3
		n.Norm(&d)
		p := ToOctahedral(n)
		back := FromOctahedral(p)
		assert.InDelta(t, float64(n[0]), float64(back[0]), 1e-5)
		assert.InDelta(t, float64(n[1]), float64(back[1]), 1e-5)
		assert.InDelta(t, float64(n[2]), float64(back[2]), 1e-5)
	}
}

func TestOctahedralDifferenceRoundTrip(t *testing.T) {
	tr := NewOctahedralDifference()
	predicted := [2]float64{-0.5, 0.25}
	original := [2]float64{0.1, -0.9}
	correction, rot := tr.Forward(predicted, original)
	back := tr.Inverse(predicted, correction, rot)
	assert.InDelta(t, original[0], back[0], 1e-9)
	assert.InDelta(t, original[1], back[1], 1e-9)
}

func TestOctahedralReflectionRoundTrip(t *testing.T) {
	tr := NewOctahedralReflection()
	predicted := [2]float64{0.4, -0.7}
	original := [2]float64{-0.6, 0.3}
	correction, sym := tr.Forward(predicted, original)
	back := tr.Inverse(predicted, correction, sym)
	assert.InDelta(t, original[0], back[0], 1e-9)
	assert.InDelta(t, original[1], back[1], 1e-9)
}

func TestQuantizerFidelityBound(t *testing.T) {
	values := [][]float64{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {3, 4, 5}}
	q := FitQuantizer(values, 11)
	for _, v := range values {
		levels := q.Quantize(v)
		back := q.Dequantize(levels)
		for k := range v {
			assert.LessOrEqual(t, abs(back[k]-v[k]), q.Tolerance()+1e-9)
		}
	}
}

func TestQuantizerMetadataRoundTrip(t *testing.T) {
	values := [][]float64{{-1, -1}, {1, 1}}
	q := FitQuantizer(values, 8)
	min, rng, bits := q.Metadata()
	q2 := FromQuantizerMetadata(min, rng, bits)
	assert.Equal(t, q.Quantize(values[0]), q2.Quantize(values[0]))
}

func TestOctahedralQuantizerRoundTrip(t *testing.T) {
	q := NewOctahedralQuantizer(10)
	pts := [][2]float64{{-1, -1}, {1, 1}, {0, 0}, {0.5, -0.5}}
	for _, p := range pts {
		levels := q.Quantize(p)
		back := q.Dequantize(levels)
		assert.InDelta(t, p[0], back[0], 1.0/1023)
		assert.InDelta(t, p[1], back[1], 1.0/1023)
	}
}

func TestPackRawRoundTrip(t *testing.T) {
	cases := []struct {
		v       float64
		width   int
		isFloat bool
	}{
		{42, 1, false},
		{-100, 2, false},
		{3.5, 4, true},
		{-123456789, 8, false},
		{2.718281828, 8, true},
	}
	for _, c := range cases {
		b := PackRaw(c.v, c.width, c.isFloat)
		back := UnpackRaw(b, c.isFloat)
		assert.InDelta(t, c.v, back, 1e-6)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestOctOrthogonalDifferenceRoundTrip(t *testing.T) {
	tr := NewOctOrthogonalDifference(10)
	unit := func(x, y, z float32) linear.V3 {
		v := linear.V3{x, y, z}
		var n linear.V3
		n.Norm(&v)
		return n
	}
	pairs := []struct{ pred, orig linear.V3 }{
		{unit(1, 1, 1), unit(0.9, 1.1, 1)},
		{unit(1, -1, 1), unit(1.1, -0.9, 0.8)},
		{unit(-1, 1, -1), unit(-0.9, 1, -1.1)},
		{unit(-1, -1, 1), unit(-1, -1.2, 0.9)},
		{unit(0.2, 0.1, -1), unit(0.1, 0.2, -1)},
	}
	for i, p := range pairs {
		corr := tr.Forward(p.pred, p.orig)
		back := tr.Inverse(p.pred, corr)
		for k := 0; k < 3; k++ {
			assert.InDelta(t, float64(p.orig[k]), float64(back[k]), 0.02, "pair %d component %d", i, k)
		}
	}
}

func TestOctOrthogonalDifferenceZeroCorrection(t *testing.T) {
	tr := NewOctOrthogonalDifference(8)
	v := linear.V3{0.6, -0.48, 0.64}
	var n linear.V3
	n.Norm(&v)
	assert.Equal(t, [2]int64{0, 0}, tr.Forward(n, n))
}
