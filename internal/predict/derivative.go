package predict

import "github.com/gviegas/scene/linear"

// DerivativePredictor predicts a 2D texture coordinate from two
// already-processed UV values and the 3D positions of the enclosing
// triangle: it solves the affine map from the triangle's tangent
// plane to UV space using one already-resolved face, then
// extrapolates to the new vertex's position.
type DerivativePredictor struct {
	geom     Geometry // own attribute's (uv) corner adjacency
	posGeom  Geometry // position attribute's corner adjacency, same corner indexing
	posValue func(positionVertex uint32) []float64
}

// NewDerivative returns a derivative predictor. posValue must return
// the 3-component position for a position-attribute vertex id.
func NewDerivative(geom, posGeom Geometry, posValue func(uint32) []float64) *DerivativePredictor {
	return &DerivativePredictor{geom: geom, posGeom: posGeom, posValue: posValue}
}

func (p *DerivativePredictor) ID() ID { return IDDerivative }

func (p *DerivativePredictor) Unpredictable(i int) bool {
	return len(parallelogramFaces(p.geom, uint32(i))) == 0
}

func (p *DerivativePredictor) toPos(v uint32) *linear.V3 {
	c := p.geom.FirstCorner(v)
	posVertex := p.posGeom.VertexOf(c)
	vals := p.posValue(posVertex)
	return &linear.V3{float32(vals[0]), float32(vals[1]), float32(vals[2])}
}

func (p *DerivativePredictor) Predict(i int, values [][]float64) []float64 {
	faces := parallelogramFaces(p.geom, uint32(i))
	if len(faces) == 0 {
		return make([]float64, len(values[i]))
	}
	f := faces[0]

	pA, pB, pD, pI := p.toPos(f.a), p.toPos(f.b), p.toPos(f.d), p.toPos(uint32(i))
	var e1, e2, target linear.V3
	e1.Sub(pB, pA)
	e2.Sub(pD, pA)
	target.Sub(pI, pA)

	e11, e12, e22 := e1.Dot(&e1), e1.Dot(&e2), e2.Dot(&e2)
	det := float64(e11*e22 - e12*e12)
	if det < 1e-12 && det > -1e-12 {
		// Degenerate (near-collinear) triangle: fall back to plain
		// parallelogram prediction in UV space.
		return vecSub2(values[f.a], values[f.b], values[f.d])
	}
	t1, t2 := target.Dot(&e1), target.Dot(&e2)
	s := float64(t1*e22-t2*e12) / det
	t := float64(e11*t2-e12*t1) / det

	uvA, uvB, uvD := values[f.a], values[f.b], values[f.d]
	out := make([]float64, len(uvA))
	for k := range out {
		out[k] = uvA[k] + s*(uvB[k]-uvA[k]) + t*(uvD[k]-uvA[k])
	}
	return out
}
