// Package predict implements the attribute value predictors: delta,
// mesh-parallelogram, multi-parallelogram, and
// the derivative (texcoord) predictor. Each predicts a value-space
// vector for an attribute value index from already-processed
// neighbors plus the corner table; the codestream driver takes the
// residual from there.
package predict

// Geometry is the minimal corner-table surface a predictor needs.
// Both corner.Table (position) and attrcorner.Table (other
// attributes) implement it.
type Geometry interface {
	NumCorners() int
	VertexOf(c int32) uint32
	Opposite(c int32) int32
	FirstCorner(v uint32) int32
}

const sentinel = -1

// ID identifies a predictor on the wire.
type ID uint8

const (
	IDDelta ID = iota
	IDParallelogram
	IDMultiParallelogram
	IDDerivative
)

// Predictor produces a predicted vector for a value index, and
// reports which value indices cannot be predicted at all. For those
// indices Predict returns the zero vector. The codestream driver does
// not call Unpredictable: it codes such a value as a full residual
// against that zero prediction, with no separate raw path.
type Predictor interface {
	ID() ID
	// Unpredictable reports whether value index i has no usable
	// neighbor.
	Unpredictable(i int) bool
	// Predict returns the predicted vector for value index i. values
	// holds every value already decoded/encoded so far (index < i is
	// guaranteed valid; index >= i is not assumed as used).
	Predict(i int, values [][]float64) []float64
}

// face holds one candidate parallelogram: a, b share an edge with the
// value being predicted; d is the diagonal vertex of the face across
// that edge.
type face struct {
	a, b, d uint32
}

// parallelogramFaces returns every face (a,b,d), all with index < i,
// found by walking the corner ring of value index i in both swing
// directions. Because prediction runs in increasing value-index order
// and value indices were assigned during traversal, indices below i
// are guaranteed already processed.
func parallelogramFaces(geom Geometry, i uint32) []face {
	start := geom.FirstCorner(i)
	if start == sentinel {
		return nil
	}
	var faces []face
	seen := map[int32]bool{}
	queue := []int32{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] || geom.VertexOf(c) != i {
			continue
		}
		seen[c] = true
		a := geom.VertexOf(next(c))
		b := geom.VertexOf(previous(c))
		if a < i && b < i {
			if opp := geom.Opposite(c); opp != sentinel {
				d := geom.VertexOf(opp)
				if d < i {
					faces = append(faces, face{a: a, b: b, d: d})
				}
			}
		}
		for _, nc := range []int32{swingRight(geom, c), swingLeft(geom, c)} {
			if nc != sentinel && !seen[nc] {
				queue = append(queue, nc)
			}
		}
	}
	return faces
}

// swingRight rotates one corner around its vertex: the corner at the
// same vertex in the face across the right edge.
func swingRight(geom Geometry, c int32) int32 {
	oc := geom.Opposite(previous(c))
	if oc == sentinel {
		return sentinel
	}
	return previous(oc)
}

// swingLeft is the opposite rotation.
func swingLeft(geom Geometry, c int32) int32 {
	oc := geom.Opposite(next(c))
	if oc == sentinel {
		return sentinel
	}
	return next(oc)
}

func next(c int32) int32 {
	if c%3 == 2 {
		return c - 2
	}
	return c + 1
}

func previous(c int32) int32 {
	if c%3 == 0 {
		return c + 2
	}
	return c - 1
}

func vecSub2(a, b, c []float64) []float64 {
	out := make([]float64, len(a))
	for k := range out {
		out[k] = a[k] + b[k] - c[k]
	}
	return out
}
