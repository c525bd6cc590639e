package predict

// DeltaPredictor predicts a value as the immediately preceding value
// in encoded order. A value index is unpredictable when it is the
// first of its sequence or when its predecessor does not share a
// face with it.
type DeltaPredictor struct {
	geom Geometry
}

// NewDelta returns a delta predictor backed by geom.
func NewDelta(geom Geometry) *DeltaPredictor { return &DeltaPredictor{geom: geom} }

func (p *DeltaPredictor) ID() ID { return IDDelta }

func (p *DeltaPredictor) Unpredictable(i int) bool {
	if i == 0 {
		return true
	}
	return !p.adjacent(uint32(i), uint32(i-1))
}

func (p *DeltaPredictor) Predict(i int, values [][]float64) []float64 {
	if p.Unpredictable(i) {
		return make([]float64, len(values[i]))
	}
	prev := values[i-1]
	out := make([]float64, len(prev))
	copy(out, prev)
	return out
}

// adjacent reports whether vertices a and b share a face, by walking
// a's corner ring.
func (p *DeltaPredictor) adjacent(a, b uint32) bool {
	start := p.geom.FirstCorner(a)
	if start == sentinel {
		return false
	}
	seen := map[int32]bool{}
	queue := []int32{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] || p.geom.VertexOf(c) != a {
			continue
		}
		seen[c] = true
		if p.geom.VertexOf(next(c)) == b || p.geom.VertexOf(previous(c)) == b {
			return true
		}
		for _, nc := range []int32{swingRight(p.geom, c), swingLeft(p.geom, c)} {
			if nc != sentinel && !seen[nc] {
				queue = append(queue, nc)
			}
		}
	}
	return false
}
