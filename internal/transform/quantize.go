package transform

import "math"

// Quantizer implements coordinate-wise quantization: subtract the
// per-component min, divide by a single scalar range (the
// axis-aligned bounding-box diagonal, so aspect ratio is preserved
// across components), then scale into [0, 2^bits - 1].
type Quantizer struct {
	min  []float64
	rng  float64
	bits int
}

// FitQuantizer computes a Quantizer's min vector and diagonal range
// from a value set.
func FitQuantizer(values [][]float64, bits int) *Quantizer {
	n := len(values[0])
	min := make([]float64, n)
	max := make([]float64, n)
	copy(min, values[0])
	copy(max, values[0])
	for _, v := range values[1:] {
		for k, c := range v {
			if c < min[k] {
				min[k] = c
			}
			if c > max[k] {
				max[k] = c
			}
		}
	}
	var sumSq float64
	for k := range min {
		d := max[k] - min[k]
		sumSq += d * d
	}
	rng := math.Sqrt(sumSq)
	if rng == 0 {
		rng = 1
	}
	return &Quantizer{min: min, rng: rng, bits: bits}
}

// FromQuantizerMetadata reconstructs a Quantizer from decoded
// metadata.
func FromQuantizerMetadata(min []float64, rng float64, bits int) *Quantizer {
	return &Quantizer{min: min, rng: rng, bits: bits}
}

// Metadata returns (min vector, scalar range, bit count), written
// once per attribute group.
func (q *Quantizer) Metadata() ([]float64, float64, int) { return q.min, q.rng, q.bits }

func (q *Quantizer) maxLevel() float64 { return float64((uint64(1) << uint(q.bits)) - 1) }

// Quantize maps a value vector to integer levels in [0, 2^bits - 1].
func (q *Quantizer) Quantize(v []float64) []uint32 {
	maxLevel := q.maxLevel()
	out := make([]uint32, len(v))
	for k, c := range v {
		t := (c - q.min[k]) / q.rng
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		out[k] = uint32(math.Round(t * maxLevel))
	}
	return out
}

// Dequantize maps integer levels back to the value space.
func (q *Quantizer) Dequantize(levels []uint32) []float64 {
	maxLevel := q.maxLevel()
	out := make([]float64, len(levels))
	for k, lvl := range levels {
		out[k] = q.min[k] + (float64(lvl)/maxLevel)*q.rng
	}
	return out
}

// Tolerance returns range/(2^bits - 1), the maximum per-axis
// quantization error.
func (q *Quantizer) Tolerance() float64 { return q.rng / q.maxLevel() }

// OctahedralQuantizer fits the 2D octahedral chart [-1,1]^2 into
// [0, 2^bits - 1]^2.
type OctahedralQuantizer struct {
	bits int
}

// NewOctahedralQuantizer returns an OctahedralQuantizer with the
// given bit count.
func NewOctahedralQuantizer(bits int) *OctahedralQuantizer {
	return &OctahedralQuantizer{bits: bits}
}

func (q *OctahedralQuantizer) maxLevel() float64 { return float64((uint64(1) << uint(q.bits)) - 1) }

// Quantize maps a chart point to integer levels.
func (q *OctahedralQuantizer) Quantize(p [2]float64) [2]uint32 {
	maxLevel := q.maxLevel()
	qv := func(x float64) uint32 {
		t := (x + 1) / 2
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		return uint32(math.Round(t * maxLevel))
	}
	return [2]uint32{qv(p[0]), qv(p[1])}
}

// Dequantize maps integer levels back to chart coordinates.
func (q *OctahedralQuantizer) Dequantize(levels [2]uint32) [2]float64 {
	maxLevel := q.maxLevel()
	dq := func(l uint32) float64 { return (float64(l)/maxLevel)*2 - 1 }
	return [2]float64{dq(levels[0]), dq(levels[1])}
}

// PackRaw writes values as native big-endian bit patterns at the
// given byte width (1, 2, 4, or 8), used for custom attributes that
// must survive a round trip bit-exactly. isFloat selects IEEE-754 bit patterns
// for width 4/8 instead of integer truncation.
func PackRaw(v float64, width int, isFloat bool) []byte {
	switch width {
	case 1:
		return []byte{byte(int64(v))}
	case 2:
		u := uint16(int64(v))
		return []byte{byte(u >> 8), byte(u)}
	case 4:
		var u uint32
		if isFloat {
			u = math.Float32bits(float32(v))
		} else {
			u = uint32(int64(v))
		}
		return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case 8:
		var u uint64
		if isFloat {
			u = math.Float64bits(v)
		} else {
			u = uint64(int64(v))
		}
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(u >> uint(56-8*i))
		}
		return out
	default:
		return nil
	}
}

// UnpackRaw is the inverse of PackRaw.
func UnpackRaw(b []byte, isFloat bool) float64 {
	switch len(b) {
	case 1:
		return float64(int8(b[0]))
	case 2:
		u := uint16(b[0])<<8 | uint16(b[1])
		return float64(int16(u))
	case 4:
		u := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		if isFloat {
			return float64(math.Float32frombits(u))
		}
		return float64(int32(u))
	case 8:
		var u uint64
		for i := 0; i < 8; i++ {
			u = u<<8 | uint64(b[i])
		}
		if isFloat {
			return math.Float64frombits(u)
		}
		return float64(int64(u))
	default:
		return 0
	}
}
