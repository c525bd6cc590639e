package predict

// ParallelogramPredictor predicts v as a + b - d where (a, v, b, d)
// form a parallelogram: a and b share an edge with v, and d is the
// diagonal vertex of the face across that edge, all already
// processed. Unpredictable for the first C-symbol vertices of each
// component, i.e. whenever no such face exists yet.
type ParallelogramPredictor struct {
	geom Geometry
}

// NewParallelogram returns a mesh-parallelogram predictor backed by
// geom.
func NewParallelogram(geom Geometry) *ParallelogramPredictor {
	return &ParallelogramPredictor{geom: geom}
}

func (p *ParallelogramPredictor) ID() ID { return IDParallelogram }

func (p *ParallelogramPredictor) Unpredictable(i int) bool {
	return len(parallelogramFaces(p.geom, uint32(i))) == 0
}

func (p *ParallelogramPredictor) Predict(i int, values [][]float64) []float64 {
	faces := parallelogramFaces(p.geom, uint32(i))
	if len(faces) == 0 {
		return make([]float64, len(values[i]))
	}
	f := faces[0]
	return vecSub2(values[f.a], values[f.b], values[f.d])
}
