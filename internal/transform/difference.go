package transform

// DifferenceTransform shifts every residual by a single global
// min-offset vector, computed once over the whole correction stream,
// so every transformed value is representable without a sign. The
// offset is written once as metadata; the decoder adds it back.
type DifferenceTransform struct {
	min []float64
}

// NewDifference returns a DifferenceTransform with its min-offset
// fit from residuals.
func NewDifference(residuals [][]float64) *DifferenceTransform {
	t := &DifferenceTransform{}
	t.Fit(residuals)
	return t
}

// Fit computes the per-component minimum across residuals.
func (t *DifferenceTransform) Fit(residuals [][]float64) {
	if len(residuals) == 0 {
		t.min = nil
		return
	}
	n := len(residuals[0])
	min := make([]float64, n)
	copy(min, residuals[0])
	for _, r := range residuals[1:] {
		for k, v := range r {
			if v < min[k] {
				min[k] = v
			}
		}
	}
	t.min = min
}

// Metadata returns the global min-offset vector, written once on the
// wire.
func (t *DifferenceTransform) Metadata() []float64 { return t.min }

// FromMetadata reconstructs a DifferenceTransform from a decoded
// min-offset vector.
func FromMetadata(min []float64) *DifferenceTransform { return &DifferenceTransform{min: min} }

// Forward maps a residual to its transformed (non-negative-shifted)
// correction.
func (t *DifferenceTransform) Forward(residual []float64) []float64 {
	out := make([]float64, len(residual))
	for k, v := range residual {
		out[k] = v - t.min[k]
	}
	return out
}

// Inverse maps a correction back to the original residual.
func (t *DifferenceTransform) Inverse(correction []float64) []float64 {
	out := make([]float64, len(correction))
	for k, v := range correction {
		out[k] = v + t.min[k]
	}
	return out
}

// WrappedDifferenceTransform wraps a residual into a signed window of
// the given modulus, used for modular attribute domains (e.g.
// texture coordinates where 0.0 and 1.0 are the same point).
type WrappedDifferenceTransform struct {
	modulus float64
}

// NewWrappedDifference returns a WrappedDifferenceTransform with the
// given modulus (the attribute's value range).
func NewWrappedDifference(modulus float64) *WrappedDifferenceTransform {
	return &WrappedDifferenceTransform{modulus: modulus}
}

// Forward wraps every component of residual into (-modulus/2,
// modulus/2].
func (t *WrappedDifferenceTransform) Forward(residual []float64) []float64 {
	out := make([]float64, len(residual))
	for k, v := range residual {
		out[k] = wrapToRange(v, t.modulus)
	}
	return out
}

// Inverse is the identity: the wrapped correction IS the value to add
// back to the prediction; the caller re-wraps the reconstructed
// original into the valid attribute domain if needed.
func (t *WrappedDifferenceTransform) Inverse(wrapped []float64) []float64 {
	out := make([]float64, len(wrapped))
	copy(out, wrapped)
	return out
}

func wrapToRange(v, modulus float64) float64 {
	if modulus <= 0 {
		return v
	}
	half := modulus / 2
	for v > half {
		v -= modulus
	}
	for v <= -half {
		v += modulus
	}
	return v
}
