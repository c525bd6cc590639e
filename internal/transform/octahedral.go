package transform

import (
	"math"

	"github.com/gviegas/scene/linear"
)

// ToOctahedral maps a unit 3D vector into the octahedral chart square
// [-1, 1]^2, a bijection between the unit sphere (minus a
// measure-zero set) and the square.
func ToOctahedral(v linear.V3) [2]float64 {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	denom := math.Abs(x) + math.Abs(y) + math.Abs(z)
	if denom == 0 {
		return [2]float64{0, 0}
	}
	u, w := x/denom, y/denom
	if z < 0 {
		u, w = (1-math.Abs(w))*sign(u), (1-math.Abs(u))*sign(w)
	}
	return [2]float64{u, w}
}

// FromOctahedral is the inverse of ToOctahedral: it reconstructs a
// unit 3D vector from chart coordinates.
func FromOctahedral(p [2]float64) linear.V3 {
	u, w := p[0], p[1]
	x, y := u, w
	z := 1 - math.Abs(u) - math.Abs(w)
	if z < 0 {
		x = (1 - math.Abs(w)) * sign(u)
		y = (1 - math.Abs(u)) * sign(w)
	}
	out := linear.V3{float32(x), float32(y), float32(z)}
	var norm linear.V3
	norm.Norm(&out)
	return norm
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// rotate90 rotates p by k*90 degrees counter-clockwise about the
// chart origin (k taken mod 4).
func rotate90(p [2]float64, k int) [2]float64 {
	k = ((k % 4) + 4) % 4
	for i := 0; i < k; i++ {
		p = [2]float64{-p[1], p[0]}
	}
	return p
}

// canonicalRotation returns the rotation count in [0,4) that brings p
// into the quadrant where both components are >= 0.
func canonicalRotation(p [2]float64) int {
	switch {
	case p[0] >= 0 && p[1] >= 0:
		return 0
	case p[0] < 0 && p[1] >= 0:
		return 3 // rotating by 3 maps (x<0,y>=0) -> (x>=0,y>=0)
	case p[0] < 0 && p[1] < 0:
		return 2
	default:
		return 1
	}
}

// OctahedralDifferenceTransform rotates both the predicted and
// original chart points by the rotation that brings the predicted
// point into the canonical (+,+) quadrant, then differences in that
// rotated space. Forward returns the rotation count (0-3) with the
// correction, and Inverse takes it back to undo the rotation.
type OctahedralDifferenceTransform struct{}

// NewOctahedralDifference returns an OctahedralDifferenceTransform.
func NewOctahedralDifference() *OctahedralDifferenceTransform {
	return &OctahedralDifferenceTransform{}
}

// Forward returns the rotated correction and the rotation count used.
func (t *OctahedralDifferenceTransform) Forward(predicted, original [2]float64) (correction [2]float64, rotation uint8) {
	k := canonicalRotation(predicted)
	rp := rotate90(predicted, k)
	ro := rotate90(original, k)
	return [2]float64{ro[0] - rp[0], ro[1] - rp[1]}, uint8(k)
}

// Inverse reconstructs the original chart point from predicted,
// correction, and the stored rotation count.
func (t *OctahedralDifferenceTransform) Inverse(predicted, correction [2]float64, rotation uint8) [2]float64 {
	k := int(rotation)
	rp := rotate90(predicted, k)
	ro := [2]float64{rp[0] + correction[0], rp[1] + correction[1]}
	return rotate90(ro, -k)
}

// OctahedralReflectionTransform extends OctahedralDifferenceTransform
// with an additional axis-swap reflection, giving 8 symmetries (4
// rotations x swap-or-not) instead of 4, at the cost of a 3-bit
// per-step metadata value instead of 2.
type OctahedralReflectionTransform struct{}

// NewOctahedralReflection returns an OctahedralReflectionTransform.
func NewOctahedralReflection() *OctahedralReflectionTransform {
	return &OctahedralReflectionTransform{}
}

func reflectSwap(p [2]float64, swap bool) [2]float64 {
	if swap {
		return [2]float64{p[1], p[0]}
	}
	return p
}

// Forward returns the rotated/reflected correction and the 3-bit
// symmetry index used (bit 2 = swap, bits 0-1 = rotation).
func (t *OctahedralReflectionTransform) Forward(predicted, original [2]float64) (correction [2]float64, symmetry uint8) {
	best := predicted
	bestSwap := false
	if swapped := reflectSwap(predicted, true); betterCanonical(swapped, best) {
		best = swapped
		bestSwap = true
	}
	k := canonicalRotation(best)

	rp := rotate90(reflectSwap(predicted, bestSwap), k)
	ro := rotate90(reflectSwap(original, bestSwap), k)
	sym := uint8(k)
	if bestSwap {
		sym |= 0x4
	}
	return [2]float64{ro[0] - rp[0], ro[1] - rp[1]}, sym
}

// Inverse reconstructs the original chart point.
func (t *OctahedralReflectionTransform) Inverse(predicted, correction [2]float64, symmetry uint8) [2]float64 {
	swap := symmetry&0x4 != 0
	k := int(symmetry & 0x3)
	rp := rotate90(reflectSwap(predicted, swap), k)
	ro := [2]float64{rp[0] + correction[0], rp[1] + correction[1]}
	unrot := rotate90(ro, -k)
	return reflectSwap(unrot, swap)
}

// betterCanonical reports whether a is at least as close to the
// canonical (+,+) quadrant as b, by sum of negative parts.
func betterCanonical(a, b [2]float64) bool {
	penalty := func(p [2]float64) float64 {
		var pen float64
		if p[0] < 0 {
			pen -= p[0]
		}
		if p[1] < 0 {
			pen -= p[1]
		}
		return pen
	}
	return penalty(a) < penalty(b)
}

// rotate90Int rotates centered integer chart coordinates by k*90
// degrees counter-clockwise.
func rotate90Int(p [2]int64, k int) [2]int64 {
	k = ((k % 4) + 4) % 4
	for i := 0; i < k; i++ {
		p = [2]int64{-p[1], p[0]}
	}
	return p
}

// canonicalRotationInt mirrors canonicalRotation on centered integer
// coordinates.
func canonicalRotationInt(p [2]int64) int {
	switch {
	case p[0] >= 0 && p[1] >= 0:
		return 0
	case p[0] < 0 && p[1] >= 0:
		return 3
	case p[0] < 0 && p[1] < 0:
		return 2
	default:
		return 1
	}
}

// OctLevelDifference is the octahedral difference transform applied
// directly to quantization levels: both points are recentred to
// signed integer coordinates, rotated by the rotation that brings the
// predicted point into the canonical quadrant, and differenced there.
// Working on integers keeps the transform exactly invertible, and the
// rotation is derived from the predicted point alone so no per-step
// metadata is needed.
type OctLevelDifference struct {
	max int64 // 2^bits - 1
}

// NewOctLevelDifference returns the transform for a q-bit octahedral
// grid.
func NewOctLevelDifference(bits int) *OctLevelDifference {
	return &OctLevelDifference{max: int64((uint64(1) << uint(bits)) - 1)}
}

func (t *OctLevelDifference) center(l [2]uint32) [2]int64 {
	return [2]int64{2*int64(l[0]) - t.max, 2*int64(l[1]) - t.max}
}

func (t *OctLevelDifference) uncenter(d [2]int64) [2]uint32 {
	clamp := func(v int64) uint32 {
		v = (v + t.max) / 2
		if v < 0 {
			return 0
		}
		if v > t.max {
			return uint32(t.max)
		}
		return uint32(v)
	}
	return [2]uint32{clamp(d[0]), clamp(d[1])}
}

// Forward returns the correction mapping predicted to original.
func (t *OctLevelDifference) Forward(predicted, original [2]uint32) [2]int64 {
	k := canonicalRotationInt(t.center(predicted))
	rp := rotate90Int(t.center(predicted), k)
	ro := rotate90Int(t.center(original), k)
	return [2]int64{ro[0] - rp[0], ro[1] - rp[1]}
}

// Inverse reconstructs the original levels from the predicted levels
// and the correction.
func (t *OctLevelDifference) Inverse(predicted [2]uint32, correction [2]int64) [2]uint32 {
	k := canonicalRotationInt(t.center(predicted))
	rp := rotate90Int(t.center(predicted), k)
	ro := [2]int64{rp[0] + correction[0], rp[1] + correction[1]}
	return t.uncenter(rotate90Int(ro, -k))
}

// octOrthogonalFrame derives the axis transform that brings the
// predicted vector into the canonical region: z non-negative and
// (x, y) in the third quadrant. Both the reflection and the rotation
// depend only on the predicted vector, so no per-step metadata is
// needed.
func octOrthogonalFrame(pred linear.V3) (flipZ bool, quadrant int) {
	flipZ = pred[2] < 0
	switch {
	case pred[0] > 0 && pred[1] > 0:
		quadrant = 1 // rotate about z by pi
	case pred[0] > 0:
		quadrant = 4 // rotate about z by -pi/2
	case pred[1] > 0:
		quadrant = 2 // rotate about z by pi/2
	default:
		quadrant = 3 // already canonical
	}
	return flipZ, quadrant
}

// octOrthogonalApply reflects/rotates v into the frame.
func octOrthogonalApply(v linear.V3, flipZ bool, quadrant int) linear.V3 {
	if flipZ {
		v[2] = -v[2]
	}
	x, y := v[0], v[1]
	switch quadrant {
	case 1:
		v[0], v[1] = -x, -y
	case 2:
		v[0], v[1] = -y, x
	case 4:
		v[0], v[1] = y, -x
	}
	return v
}

// octOrthogonalInvert undoes octOrthogonalApply.
func octOrthogonalInvert(v linear.V3, flipZ bool, quadrant int) linear.V3 {
	x, y := v[0], v[1]
	switch quadrant {
	case 1:
		v[0], v[1] = -x, -y
	case 2:
		v[0], v[1] = y, -x
	case 4:
		v[0], v[1] = -y, x
	}
	if flipZ {
		v[2] = -v[2]
	}
	return v
}

// OctOrthogonalDifference is the orthogonal octahedral variant: the
// canonicalization happens on the 3D unit vectors themselves (a
// reflection across the z plane and an axis-aligned rotation about
// the z axis) before both are charted, quantized, and differenced on
// the transformed grid.
type OctOrthogonalDifference struct {
	oq *OctahedralQuantizer
}

// NewOctOrthogonalDifference returns the transform for a q-bit
// octahedral grid.
func NewOctOrthogonalDifference(bits int) *OctOrthogonalDifference {
	return &OctOrthogonalDifference{oq: NewOctahedralQuantizer(bits)}
}

func (t *OctOrthogonalDifference) levels(v linear.V3) [2]uint32 {
	return t.oq.Quantize(ToOctahedral(v))
}

// Forward returns the correction mapping predicted to original, in
// the transformed chart grid.
func (t *OctOrthogonalDifference) Forward(predicted, original linear.V3) [2]int64 {
	flipZ, quadrant := octOrthogonalFrame(predicted)
	pl := t.levels(octOrthogonalApply(predicted, flipZ, quadrant))
	ol := t.levels(octOrthogonalApply(original, flipZ, quadrant))
	return [2]int64{int64(ol[0]) - int64(pl[0]), int64(ol[1]) - int64(pl[1])}
}

// Inverse reconstructs the original unit vector from the predicted
// vector and the correction.
func (t *OctOrthogonalDifference) Inverse(predicted linear.V3, correction [2]int64) linear.V3 {
	flipZ, quadrant := octOrthogonalFrame(predicted)
	pl := t.levels(octOrthogonalApply(predicted, flipZ, quadrant))
	max := int64((uint64(1) << uint(t.oq.bits)) - 1)
	clamp := func(v int64) uint32 {
		if v < 0 {
			return 0
		}
		if v > max {
			return uint32(max)
		}
		return uint32(v)
	}
	ol := [2]uint32{
		clamp(int64(pl[0]) + correction[0]),
		clamp(int64(pl[1]) + correction[1]),
	}
	transformed := FromOctahedral(t.oq.Dequantize(ol))
	return octOrthogonalInvert(transformed, flipZ, quadrant)
}
