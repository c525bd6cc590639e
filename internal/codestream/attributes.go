package codestream

import (
	"fmt"
	"math"

	"github.com/gviegas/scene/linear"

	"github.com/dracogo/draco/internal/attrcorner"
	"github.com/dracogo/draco/internal/bitio"
	"github.com/dracogo/draco/internal/corner"
	"github.com/dracogo/draco/internal/edgebreaker"
	"github.com/dracogo/draco/internal/meshmodel"
	"github.com/dracogo/draco/internal/predict"
	"github.com/dracogo/draco/internal/rans"
	"github.com/dracogo/draco/internal/transform"
)

// AttributeOptions carries the per-role encode choices down from the
// driver configuration.
type AttributeOptions struct {
	PositionBits       int
	TexCoordBits       int
	NormalBits         int
	SplitGroups        bool
	MultiParallelogram bool
	// OrthogonalNormals selects the orthogonal octahedral transform
	// (canonicalization on the 3D vectors) for unit-normal attributes
	// instead of the chart-grid rotation.
	OrthogonalNormals bool
}

func (o AttributeOptions) bitsFor(role meshmodel.Role) int {
	switch role {
	case meshmodel.RolePosition:
		return o.PositionBits
	case meshmodel.RoleTexCoord:
		return o.TexCoordBits
	case meshmodel.RoleNormal:
		return o.NormalBits
	default:
		return o.PositionBits
	}
}

// usesRaw reports whether role's values are identity-preserving
// (integer ids and custom payloads) and bypass the lossy pipeline.
func usesRaw(role meshmodel.Role) bool {
	switch role {
	case meshmodel.RoleCustom, meshmodel.RoleMaterial, meshmodel.RoleJoint:
		return true
	default:
		return false
	}
}

// usesOctahedral reports whether role's values live on the unit
// sphere and go through the octahedral chart.
func usesOctahedral(role meshmodel.Role, components int) bool {
	return role == meshmodel.RoleNormal && components == 3
}

// group is one decoded (predictor, transform, portabilization) tuple.
type group struct {
	predictorID predict.ID
	predParents []uint16

	transformID transform.TransformID
	diffMin     []int64 // Difference: per-component min offset
	modulus     uint64  // WrappedDifference: wrap window

	portaID transform.PortabilizationID
	qMin    []float64 // Quantized: per-component min
	qRange  float64   // Quantized: bounding-box diagonal
	qBits   int       // Quantized/OctahedralQuantized: level width
}

// attrCodec holds the state shared between the per-attribute encode
// and decode paths.
type attrCodec struct {
	table         *corner.Table
	mesh          *meshmodel.Mesh // encode side only
	decodedFloats map[uint32][][]float64 // attribute id -> wire-order values
	decodedAttrs  map[uint32]*meshmodel.Attribute
}

func clampLevel(f float64, max int64) uint32 {
	v := int64(math.Round(f))
	if v < 0 {
		return 0
	}
	if v > max {
		return uint32(max)
	}
	return uint32(v)
}

func roundVec(v []float64) []int64 {
	out := make([]int64, len(v))
	for i, f := range v {
		out[i] = int64(math.Round(f))
	}
	return out
}

// newPredictor instantiates the predictor a group names, over the
// attribute's own geometry.
func (c *attrCodec) newPredictor(g *group, geom predict.Geometry) (predict.Predictor, error) {
	switch g.predictorID {
	case predict.IDDelta:
		return predict.NewDelta(geom), nil
	case predict.IDParallelogram:
		return predict.NewParallelogram(geom), nil
	case predict.IDMultiParallelogram:
		return predict.NewMultiParallelogram(geom), nil
	case predict.IDDerivative:
		if len(g.predParents) != 1 {
			return nil, &InvalidTagError{Kind: "predictor parent count", ID: uint8(len(g.predParents))}
		}
		posID := uint32(g.predParents[0])
		posVals, ok := c.decodedFloats[posID]
		if !ok {
			return nil, fmt.Errorf("codestream: derivative predictor parent %d not yet decoded", posID)
		}
		return predict.NewDerivative(geom, c.table, func(v uint32) []float64 {
			if int(v) >= len(posVals) {
				return []float64{0, 0, 0}
			}
			return posVals[v]
		}), nil
	default:
		return nil, &InvalidTagError{Kind: "predictor", ID: uint8(g.predictorID)}
	}
}

// WriteAttributes serializes every attribute of mesh against the
// connectivity result res.
func WriteAttributes(w *bitio.Writer, mesh *meshmodel.Mesh, res *edgebreaker.Result, opts AttributeOptions) error {
	if len(mesh.Attributes) > 255 {
		return fmt.Errorf("codestream: %d attributes exceed the u8 count", len(mesh.Attributes))
	}
	origCorner, err := sourceCorners(mesh, res)
	if err != nil {
		return err
	}
	c := &attrCodec{table: res.Table, mesh: mesh, decodedFloats: map[uint32][][]float64{}}

	w.WriteU8(uint8(len(mesh.Attributes)))
	for _, a := range mesh.Attributes {
		if err := c.encodeAttribute(w, a, mesh, res, origCorner, opts); err != nil {
			return fmt.Errorf("encoding attribute %d (%s): %w", a.ID, a.Role, err)
		}
	}
	return nil
}

// sourceCorners maps each decoded corner to the input corner whose
// per-corner attribute values it carries.
func sourceCorners(mesh *meshmodel.Mesh, res *edgebreaker.Result) ([]int32, error) {
	out := make([]int32, len(res.Faces))
	for c := 0; c < len(res.Faces); c++ {
		sf := res.SourceFace[c/3]
		src := res.SourceVertex[res.Faces[c]]
		found := int32(-1)
		for j := int32(0); j < 3; j++ {
			if mesh.Faces[3*sf+j] == src {
				found = 3*sf + j
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("codestream: conquest corner %d has no source corner", c)
		}
		out[c] = found
	}
	return out, nil
}

// valueIndex resolves a per-vertex or per-corner index through the
// attribute's optional dedup map.
func valueIndex(a *meshmodel.Attribute, i uint32) (int, error) {
	idx := int(i)
	if a.VertexToValue != nil {
		if idx >= len(a.VertexToValue) {
			return 0, fmt.Errorf("codestream: index %d outside dedup map", i)
		}
		idx = int(a.VertexToValue[idx])
	}
	if idx >= len(a.Values) {
		return 0, fmt.Errorf("codestream: value index %d outside attribute (%d values)", idx, len(a.Values))
	}
	return idx, nil
}

func (c *attrCodec) encodeAttribute(w *bitio.Writer, a *meshmodel.Attribute, mesh *meshmodel.Mesh, res *edgebreaker.Result, origCorner []int32, opts AttributeOptions) error {
	// Gather the wire-order value list and the geometry prediction
	// runs over.
	var geom predict.Geometry
	var values [][]float64
	var at *attrcorner.Table
	switch a.Domain {
	case meshmodel.DomainPerVertex:
		geom = res.Table
		values = make([][]float64, res.NumVertices)
		for v := uint32(0); v < res.NumVertices; v++ {
			idx, err := valueIndex(a, res.SourceVertex[v])
			if err != nil {
				return err
			}
			values[v] = a.Values[idx]
		}
	case meshmodel.DomainPerCorner:
		eq := func(x, y int32) bool {
			xi, errX := valueIndex(a, uint32(origCorner[x]))
			yi, errY := valueIndex(a, uint32(origCorner[y]))
			if errX != nil || errY != nil {
				return false
			}
			vx, vy := a.Values[xi], a.Values[yi]
			for k := range vx {
				if vx[k] != vy[k] {
					return false
				}
			}
			return true
		}
		at = attrcorner.Build(res.Table, eq)
		geom = at
		values = make([][]float64, at.NumVertices())
		for av := uint32(0); av < at.NumVertices(); av++ {
			idx, err := valueIndex(a, uint32(origCorner[at.FirstCorner(av)]))
			if err != nil {
				return err
			}
			values[av] = a.Values[idx]
		}
	default:
		return &InvalidTagError{Kind: "attribute domain", ID: uint8(a.Domain)}
	}

	w.WriteMarker("ATTR")
	w.WriteU16(uint16(a.ID))
	w.WriteU8(uint8(a.Role))
	w.WriteU8(uint8(a.Domain))
	w.WriteU64(uint64(len(values)))
	w.WriteU8(uint8(a.Kind))
	w.WriteU8(uint8(a.Components))
	w.WriteU8(uint8(len(a.Parents)))
	for _, p := range a.Parents {
		w.WriteU16(uint16(p))
	}
	if at != nil {
		c.writeSeams(w, at)
	}
	return c.encodeValues(w, a, geom, values, opts)
}

// writeSeams codes the per-corner seam bitmap with the binary RABS
// coder: seams are sparse, so a learned zero-probability beats a flat
// bit dump. Bits are pushed in reverse so the decoder reads forward.
func (c *attrCodec) writeSeams(w *bitio.Writer, at *attrcorner.Table) {
	seams := at.EdgeSeams()
	zeros := 0
	for _, s := range seams {
		if !s {
			zeros++
		}
	}
	p0 := uint32(128)
	if len(seams) > 0 {
		p0 = uint32((zeros*256 + len(seams)/2) / len(seams))
	}
	if p0 < 1 {
		p0 = 1
	}
	if p0 > 255 {
		p0 = 255
	}
	enc := rans.NewRabsEncoder()
	for i := len(seams) - 1; i >= 0; i-- {
		bit := 0
		if seams[i] {
			bit = 1
		}
		enc.EncodeBit(bit, p0)
	}
	payload := enc.Finish()
	w.WriteU8(uint8(p0))
	w.WriteLEB128(uint64(len(payload)))
	w.WriteBytes(payload)
}

// readSeams is the decode counterpart of writeSeams.
func readSeams(r *bitio.Reader, numCorners int) ([]bool, error) {
	p0Byte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if p0Byte == 0 {
		return nil, &InvalidTagError{Kind: "seam probability", ID: p0Byte}
	}
	n, err := r.ReadLEB128()
	if err != nil {
		return nil, err
	}
	payload, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	dec, err := rans.NewRabsDecoder(payload)
	if err != nil {
		return nil, err
	}
	seams := make([]bool, numCorners)
	for k := range seams {
		bit, err := dec.DecodeBit(uint32(p0Byte))
		if err != nil {
			return nil, err
		}
		seams[k] = bit == 1
	}
	return seams, nil
}

// rangeSpec is one contiguous run of value indices owned by a group.
type rangeSpec struct {
	start, end int
}

func splitRanges(count int, split bool) []rangeSpec {
	if count == 0 {
		return nil
	}
	if split && count >= 8 {
		half := count / 2
		return []rangeSpec{{0, half}, {half, count}}
	}
	return []rangeSpec{{0, count}}
}

// encGroup pairs a group record with its value range and the
// corrections computed for it.
type encGroup struct {
	g     group
	r     rangeSpec
	corrs []uint64
	raw   []byte
}

func writeGroupRecord(w *bitio.Writer, g *group) {
	w.WriteU8(uint8(g.predictorID))
	w.WriteU8(uint8(len(g.predParents)))
	for _, p := range g.predParents {
		w.WriteU16(p)
	}
	w.WriteU8(uint8(g.transformID))
	switch g.transformID {
	case transform.TransformDifference:
		for _, m := range g.diffMin {
			w.WriteLEB128(zigzag(m))
		}
	case transform.TransformWrappedDifference:
		w.WriteLEB128(g.modulus)
	}
	w.WriteU8(uint8(g.portaID))
	switch g.portaID {
	case transform.PortabilizationQuantized:
		for _, m := range g.qMin {
			w.WriteU64(math.Float64bits(m))
		}
		w.WriteU64(math.Float64bits(g.qRange))
		w.WriteU8(uint8(g.qBits))
	case transform.PortabilizationOctahedralQuantized:
		w.WriteU8(uint8(g.qBits))
	}
}

func readGroupRecord(r *bitio.Reader, components int) (*group, error) {
	g := &group{}
	pid, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if pid > uint8(predict.IDDerivative) {
		return nil, &InvalidTagError{Kind: "predictor", ID: pid}
	}
	g.predictorID = predict.ID(pid)
	numParents, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if numParents > 8 {
		return nil, &InvalidTagError{Kind: "predictor parent count", ID: numParents}
	}
	for i := uint8(0); i < numParents; i++ {
		p, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		g.predParents = append(g.predParents, p)
	}

	tid, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	g.transformID = transform.TransformID(tid)
	switch g.transformID {
	case transform.TransformDifference:
		for k := 0; k < components; k++ {
			u, err := r.ReadLEB128()
			if err != nil {
				return nil, err
			}
			g.diffMin = append(g.diffMin, unzigzag(u))
		}
	case transform.TransformWrappedDifference:
		if g.modulus, err = r.ReadLEB128(); err != nil {
			return nil, err
		}
		if g.modulus == 0 || g.modulus > 1<<31 {
			return nil, &InvalidTagError{Kind: "wrap modulus", ID: 0}
		}
	case transform.TransformOctahedralDifference, transform.TransformOctahedralOrthogonal:
		// No metadata: the canonicalization derives from the
		// predicted point alone.
	case transform.TransformOrthogonal:
		return nil, transform.ErrReserved
	default:
		return nil, &InvalidTagError{Kind: "transform", ID: tid}
	}

	poid, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	g.portaID = transform.PortabilizationID(poid)
	switch g.portaID {
	case transform.PortabilizationQuantized:
		for k := 0; k < components; k++ {
			u, err := r.ReadU64()
			if err != nil {
				return nil, err
			}
			g.qMin = append(g.qMin, math.Float64frombits(u))
		}
		u, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		g.qRange = math.Float64frombits(u)
		qb, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if qb == 0 || qb > 31 {
			return nil, &InvalidTagError{Kind: "quantization bits", ID: qb}
		}
		g.qBits = int(qb)
	case transform.PortabilizationOctahedralQuantized:
		qb, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if qb == 0 || qb > 31 {
			return nil, &InvalidTagError{Kind: "quantization bits", ID: qb}
		}
		g.qBits = int(qb)
	case transform.PortabilizationRaw:
		// No metadata.
	default:
		return nil, &InvalidTagError{Kind: "portabilization", ID: poid}
	}
	return g, nil
}

func (c *attrCodec) encodeValues(w *bitio.Writer, a *meshmodel.Attribute, geom predict.Geometry, values [][]float64, opts AttributeOptions) error {
	var groups []encGroup
	var err error
	switch {
	case usesRaw(a.Role):
		groups, err = c.encodeRawGroups(a, values)
	case usesOctahedral(a.Role, a.Components):
		groups, err = c.encodeOctahedralGroups(a, geom, values, opts)
	default:
		groups, err = c.encodeQuantizedGroups(a, geom, values, opts)
	}
	if err != nil {
		return err
	}

	w.WriteU8(uint8(len(groups)))
	for i := range groups {
		writeGroupRecord(w, &groups[i].g)
	}
	for i := range groups {
		eg := &groups[i]
		w.WriteU8(uint8(i))
		w.WriteU64(uint64(eg.r.end - eg.r.start))
		if eg.g.portaID == transform.PortabilizationRaw {
			w.WriteMarker("RAWV")
			w.WriteBytes(eg.raw)
			continue
		}
		if err := writeCorrections(w, eg.corrs); err != nil {
			return err
		}
	}
	return nil
}

func (c *attrCodec) encodeRawGroups(a *meshmodel.Attribute, values [][]float64) ([]encGroup, error) {
	width := a.Kind.ByteWidth()
	if width == 0 {
		return nil, &InvalidTagError{Kind: "component kind", ID: uint8(a.Kind)}
	}
	isFloat := a.Kind == meshmodel.KindF32 || a.Kind == meshmodel.KindF64
	eg := encGroup{
		g: group{
			predictorID: predict.IDDelta,
			transformID: transform.TransformDifference,
			diffMin:     make([]int64, a.Components),
			portaID:     transform.PortabilizationRaw,
		},
		r: rangeSpec{0, len(values)},
	}
	for _, v := range values {
		for _, comp := range v {
			eg.raw = append(eg.raw, transform.PackRaw(comp, width, isFloat)...)
		}
	}
	c.decodedFloats[a.ID] = values
	if len(values) == 0 {
		return nil, nil
	}
	return []encGroup{eg}, nil
}

func (c *attrCodec) encodeOctahedralGroups(a *meshmodel.Attribute, geom predict.Geometry, values [][]float64, opts AttributeOptions) ([]encGroup, error) {
	q := opts.NormalBits
	oq := transform.NewOctahedralQuantizer(q)
	maxLevel := int64((uint64(1) << uint(q)) - 1)
	tid := transform.TransformOctahedralDifference
	if opts.OrthogonalNormals {
		tid = transform.TransformOctahedralOrthogonal
	}

	units := make([]linear.V3, len(values))
	levels := make([][2]uint32, len(values))
	levelFloats := make([][]float64, len(values))
	decoded := make([][]float64, len(values))
	for i, v := range values {
		n := linear.V3{float32(v[0]), float32(v[1]), float32(v[2])}
		units[i].Norm(&n)
		levels[i] = oq.Quantize(transform.ToOctahedral(units[i]))
		levelFloats[i] = []float64{float64(levels[i][0]), float64(levels[i][1])}
		rec := transform.FromOctahedral(oq.Dequantize(levels[i]))
		decoded[i] = []float64{float64(rec[0]), float64(rec[1]), float64(rec[2])}
	}

	octT := transform.NewOctLevelDifference(q)
	ooT := transform.NewOctOrthogonalDifference(q)
	predictor := predict.NewDelta(geom)
	var groups []encGroup
	for _, rs := range splitRanges(len(values), opts.SplitGroups) {
		eg := encGroup{
			g: group{
				predictorID: predict.IDDelta,
				transformID: tid,
				portaID:     transform.PortabilizationOctahedralQuantized,
				qBits:       q,
			},
			r: rs,
		}
		for i := rs.start; i < rs.end; i++ {
			predF := predictor.Predict(i, levelFloats)
			predL := [2]uint32{clampLevel(predF[0], maxLevel), clampLevel(predF[1], maxLevel)}
			if tid == transform.TransformOctahedralOrthogonal {
				// The orthogonal variant canonicalizes in 3D, so its
				// reconstruction is not grid-exact; mirror the
				// decoder's reconstruction into the prediction chain
				// and the output values so both sides stay in step.
				pred3D := transform.FromOctahedral(oq.Dequantize(predL))
				corr := ooT.Forward(pred3D, units[i])
				rec := ooT.Inverse(pred3D, corr)
				lv := oq.Quantize(transform.ToOctahedral(rec))
				levels[i] = lv
				levelFloats[i][0] = float64(lv[0])
				levelFloats[i][1] = float64(lv[1])
				decoded[i] = []float64{float64(rec[0]), float64(rec[1]), float64(rec[2])}
				eg.corrs = append(eg.corrs, zigzag(corr[0]), zigzag(corr[1]))
				continue
			}
			corr := octT.Forward(predL, levels[i])
			eg.corrs = append(eg.corrs, zigzag(corr[0]), zigzag(corr[1]))
		}
		groups = append(groups, eg)
	}
	c.decodedFloats[a.ID] = decoded
	return groups, nil
}

// positionParent finds the already-encoded position attribute among
// a's parents, for the derivative predictor.
func (c *attrCodec) positionParent(a *meshmodel.Attribute, mesh *meshmodel.Mesh) (uint32, bool) {
	for _, pid := range a.Parents {
		p := mesh.AttributeByID(pid)
		if p == nil || p.Role != meshmodel.RolePosition || p.Components != 3 {
			continue
		}
		if _, ok := c.decodedFloats[pid]; ok {
			return pid, true
		}
	}
	return 0, false
}

func (c *attrCodec) encodeQuantizedGroups(a *meshmodel.Attribute, geom predict.Geometry, values [][]float64, opts AttributeOptions) ([]encGroup, error) {
	if len(values) == 0 {
		c.decodedFloats[a.ID] = values
		return nil, nil
	}
	q := opts.bitsFor(a.Role)
	quant := transform.FitQuantizer(values, q)
	qMin, qRange, _ := quant.Metadata()

	levels := make([][]uint32, len(values))
	levelFloats := make([][]float64, len(values))
	decoded := make([][]float64, len(values))
	for i, v := range values {
		levels[i] = quant.Quantize(v)
		lf := make([]float64, len(levels[i]))
		for k, l := range levels[i] {
			lf[k] = float64(l)
		}
		levelFloats[i] = lf
		decoded[i] = quant.Dequantize(levels[i])
	}

	g := group{
		portaID: transform.PortabilizationQuantized,
		qMin:    qMin,
		qRange:  qRange,
		qBits:   q,
	}
	var predictor predict.Predictor
	switch {
	case a.Role == meshmodel.RolePosition && opts.MultiParallelogram:
		g.predictorID = predict.IDMultiParallelogram
		predictor = predict.NewMultiParallelogram(geom)
	case a.Role == meshmodel.RolePosition:
		g.predictorID = predict.IDParallelogram
		predictor = predict.NewParallelogram(geom)
	case a.Role == meshmodel.RoleTexCoord && a.Components == 2:
		if posID, ok := c.positionParent(a, c.mesh); ok {
			g.predictorID = predict.IDDerivative
			g.predParents = []uint16{uint16(posID)}
			posVals := c.decodedFloats[posID]
			predictor = predict.NewDerivative(geom, c.table, func(v uint32) []float64 {
				if int(v) >= len(posVals) {
					return []float64{0, 0, 0}
				}
				return posVals[v]
			})
		} else {
			g.predictorID = predict.IDDelta
			predictor = predict.NewDelta(geom)
		}
	default:
		g.predictorID = predict.IDDelta
		predictor = predict.NewDelta(geom)
	}

	wrapped := a.Role == meshmodel.RoleTexCoord
	if wrapped {
		g.transformID = transform.TransformWrappedDifference
		g.modulus = uint64(1) << uint(q)
	} else {
		g.transformID = transform.TransformDifference
	}
	wrapT := transform.NewWrappedDifference(float64(uint64(1) << uint(q)))

	var groups []encGroup
	for _, rs := range splitRanges(len(values), opts.SplitGroups) {
		eg := encGroup{g: g, r: rs}
		residuals := make([][]int64, 0, rs.end-rs.start)
		for i := rs.start; i < rs.end; i++ {
			pred := roundVec(predictor.Predict(i, levelFloats))
			res := make([]int64, a.Components)
			for k := 0; k < a.Components; k++ {
				res[k] = int64(levels[i][k]) - pred[k]
			}
			residuals = append(residuals, res)
		}
		if wrapped {
			for _, res := range residuals {
				rf := make([]float64, len(res))
				for k, v := range res {
					rf[k] = float64(v)
				}
				wrappedRes := wrapT.Forward(rf)
				for _, v := range wrappedRes {
					eg.corrs = append(eg.corrs, zigzag(int64(v)))
				}
			}
		} else {
			min := make([]int64, a.Components)
			for k := range min {
				min[k] = residuals[0][k]
			}
			for _, res := range residuals {
				for k, v := range res {
					if v < min[k] {
						min[k] = v
					}
				}
			}
			eg.g.diffMin = min
			for _, res := range residuals {
				for k, v := range res {
					eg.corrs = append(eg.corrs, uint64(v-min[k]))
				}
			}
		}
		groups = append(groups, eg)
	}
	c.decodedFloats[a.ID] = decoded
	return groups, nil
}

func modLevel(v int64, m uint64) int64 {
	r := v % int64(m)
	if r < 0 {
		r += int64(m)
	}
	return r
}

// ReadAttributes parses the attribute block over the decoded
// connectivity and returns the attributes in stream order.
func ReadAttributes(r *bitio.Reader, faces []uint32, numVertices uint32) ([]*meshmodel.Attribute, error) {
	var table *corner.Table
	if len(faces) > 0 {
		var err error
		table, err = corner.New(faces, numVertices)
		if err != nil {
			return nil, fmt.Errorf("codestream: rebuilding corner table: %w", err)
		}
	}
	c := &attrCodec{
		table:         table,
		decodedFloats: map[uint32][][]float64{},
		decodedAttrs:  map[uint32]*meshmodel.Attribute{},
	}

	count, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	attrs := make([]*meshmodel.Attribute, 0, count)
	for i := uint8(0); i < count; i++ {
		a, err := c.decodeAttribute(r, numVertices)
		if err != nil {
			return nil, fmt.Errorf("decoding attribute %d: %w", i, err)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func (c *attrCodec) decodeAttribute(r *bitio.Reader, numVertices uint32) (*meshmodel.Attribute, error) {
	if err := r.ReadMarker("ATTR"); err != nil {
		return nil, err
	}
	id16, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	id := uint32(id16)
	if _, dup := c.decodedAttrs[id]; dup {
		return nil, fmt.Errorf("codestream: duplicate attribute id %d", id)
	}
	roleByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if roleByte > uint8(meshmodel.RoleCustom) {
		return nil, &InvalidTagError{Kind: "attribute role", ID: roleByte}
	}
	role := meshmodel.Role(roleByte)
	domainByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if domainByte > uint8(meshmodel.DomainPerCorner) {
		return nil, &InvalidTagError{Kind: "attribute domain", ID: domainByte}
	}
	domain := meshmodel.Domain(domainByte)
	count64, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	kindByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if kindByte > uint8(meshmodel.KindF64) {
		return nil, &InvalidTagError{Kind: "component kind", ID: kindByte}
	}
	kind := meshmodel.ComponentKind(kindByte)
	compByte, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if compByte < 1 || compByte > 4 {
		return nil, &InvalidTagError{Kind: "component count", ID: compByte}
	}
	components := int(compByte)
	numParents, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if numParents > 16 {
		return nil, &InvalidTagError{Kind: "parent count", ID: numParents}
	}
	parents := make([]uint32, 0, numParents)
	for j := uint8(0); j < numParents; j++ {
		p, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		if _, ok := c.decodedAttrs[uint32(p)]; !ok {
			return nil, fmt.Errorf("codestream: attribute %d references undeclared parent %d", id, p)
		}
		parents = append(parents, uint32(p))
	}

	// Resolve the geometry the wire value order is defined over.
	var geom predict.Geometry
	var at *attrcorner.Table
	switch domain {
	case meshmodel.DomainPerVertex:
		if count64 != uint64(numVertices) {
			return nil, fmt.Errorf("codestream: per-vertex attribute %d has %d values for %d vertices", id, count64, numVertices)
		}
		geom = c.table
	case meshmodel.DomainPerCorner:
		if c.table == nil {
			return nil, fmt.Errorf("codestream: per-corner attribute %d without connectivity", id)
		}
		seams, err := readSeams(r, c.table.NumCorners())
		if err != nil {
			return nil, err
		}
		at, err = attrcorner.BuildFromSeams(c.table, seams)
		if err != nil {
			return nil, err
		}
		if count64 != uint64(at.NumVertices()) {
			return nil, fmt.Errorf("codestream: per-corner attribute %d has %d values for %d seam vertices", id, count64, at.NumVertices())
		}
		geom = at
	}
	count := int(count64)

	numGroups, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if numGroups != 0 {
			return nil, fmt.Errorf("codestream: empty attribute %d with %d groups", id, numGroups)
		}
	} else if numGroups < 1 || numGroups > 16 {
		return nil, &InvalidTagError{Kind: "group count", ID: numGroups}
	}
	groups := make([]*group, 0, numGroups)
	for j := uint8(0); j < numGroups; j++ {
		g, err := readGroupRecord(r, components)
		if err != nil {
			return nil, err
		}
		if j > 0 && g.portaID != groups[0].portaID {
			return nil, &InvalidTagError{Kind: "mixed portabilization", ID: uint8(g.portaID)}
		}
		groups = append(groups, g)
	}

	values, err := c.decodeRanges(r, groups, geom, count, components, kind)
	if err != nil {
		return nil, err
	}

	a := &meshmodel.Attribute{
		ID:         id,
		Role:       role,
		Domain:     domain,
		Kind:       kind,
		Components: components,
		Parents:    parents,
	}
	switch domain {
	case meshmodel.DomainPerVertex:
		a.Values = values
	case meshmodel.DomainPerCorner:
		a.Values = make([][]float64, c.table.NumCorners())
		for cr := 0; cr < c.table.NumCorners(); cr++ {
			a.Values[cr] = values[at.VertexOf(int32(cr))]
		}
	}
	c.decodedFloats[id] = values
	c.decodedAttrs[id] = a
	return a, nil
}

func (c *attrCodec) decodeRanges(r *bitio.Reader, groups []*group, geom predict.Geometry, count, components int, kind meshmodel.ComponentKind) ([][]float64, error) {
	values := make([][]float64, count)
	if count == 0 {
		return values, nil
	}
	portaID := groups[0].portaID

	// Level workspace shared across ranges so later groups can
	// predict from earlier ones.
	levelComps := components
	if portaID == transform.PortabilizationOctahedralQuantized {
		if components != 3 {
			return nil, &InvalidTagError{Kind: "octahedral component count", ID: uint8(components)}
		}
		levelComps = 2
	}
	levels := make([][]float64, count)
	for i := range levels {
		levels[i] = make([]float64, levelComps)
	}

	consumed := 0
	for consumed < count {
		gid, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if int(gid) >= len(groups) {
			return nil, &InvalidTagError{Kind: "range group id", ID: gid}
		}
		g := groups[gid]
		length64, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		length := int(length64)
		if length < 1 || consumed+length > count {
			return nil, fmt.Errorf("codestream: range length %d exceeds remaining %d values", length, count-consumed)
		}

		switch portaID {
		case transform.PortabilizationRaw:
			if err := decodeRawRange(r, values, consumed, length, components, kind); err != nil {
				return nil, err
			}
		case transform.PortabilizationQuantized:
			if err := c.decodeQuantizedRange(r, g, geom, levels, values, consumed, length, components); err != nil {
				return nil, err
			}
		case transform.PortabilizationOctahedralQuantized:
			if err := c.decodeOctahedralRange(r, g, geom, levels, values, consumed, length); err != nil {
				return nil, err
			}
		}
		consumed += length
	}
	return values, nil
}

func decodeRawRange(r *bitio.Reader, values [][]float64, start, length, components int, kind meshmodel.ComponentKind) error {
	if err := r.ReadMarker("RAWV"); err != nil {
		return err
	}
	width := kind.ByteWidth()
	if width == 0 {
		return &InvalidTagError{Kind: "component kind", ID: uint8(kind)}
	}
	isFloat := kind == meshmodel.KindF32 || kind == meshmodel.KindF64
	raw, err := r.ReadBytes(length * components * width)
	if err != nil {
		return err
	}
	pos := 0
	for i := start; i < start+length; i++ {
		v := make([]float64, components)
		for k := 0; k < components; k++ {
			v[k] = transform.UnpackRaw(raw[pos:pos+width], isFloat)
			pos += width
		}
		values[i] = v
	}
	return nil
}

func (c *attrCodec) decodeQuantizedRange(r *bitio.Reader, g *group, geom predict.Geometry, levels, values [][]float64, start, length, components int) error {
	if g.transformID != transform.TransformDifference && g.transformID != transform.TransformWrappedDifference {
		return &InvalidTagError{Kind: "quantized transform", ID: uint8(g.transformID)}
	}
	predictor, err := c.newPredictor(g, geom)
	if err != nil {
		return err
	}
	corrs, err := readCorrections(r, length*components)
	if err != nil {
		return err
	}
	quant := transform.FromQuantizerMetadata(g.qMin, g.qRange, g.qBits)
	maxLevel := int64((uint64(1) << uint(g.qBits)) - 1)
	pos := 0
	for i := start; i < start+length; i++ {
		pred := roundVec(predictor.Predict(i, levels))
		lv := make([]uint32, components)
		for k := 0; k < components; k++ {
			var lvl int64
			if g.transformID == transform.TransformWrappedDifference {
				lvl = modLevel(pred[k]+unzigzag(corrs[pos]), g.modulus)
			} else {
				lvl = int64(corrs[pos]) + g.diffMin[k] + pred[k]
			}
			pos++
			levels[i][k] = float64(lvl)
			if lvl < 0 {
				lvl = 0
			}
			if lvl > maxLevel {
				lvl = maxLevel
			}
			lv[k] = uint32(lvl)
		}
		values[i] = quant.Dequantize(lv)
	}
	return nil
}

func (c *attrCodec) decodeOctahedralRange(r *bitio.Reader, g *group, geom predict.Geometry, levels, values [][]float64, start, length int) error {
	if g.transformID != transform.TransformOctahedralDifference && g.transformID != transform.TransformOctahedralOrthogonal {
		return &InvalidTagError{Kind: "octahedral transform", ID: uint8(g.transformID)}
	}
	predictor, err := c.newPredictor(g, geom)
	if err != nil {
		return err
	}
	corrs, err := readCorrections(r, length*2)
	if err != nil {
		return err
	}
	oq := transform.NewOctahedralQuantizer(g.qBits)
	octT := transform.NewOctLevelDifference(g.qBits)
	ooT := transform.NewOctOrthogonalDifference(g.qBits)
	maxLevel := int64((uint64(1) << uint(g.qBits)) - 1)
	pos := 0
	for i := start; i < start+length; i++ {
		predF := predictor.Predict(i, levels)
		predL := [2]uint32{clampLevel(predF[0], maxLevel), clampLevel(predF[1], maxLevel)}
		corr := [2]int64{unzigzag(corrs[pos]), unzigzag(corrs[pos+1])}
		pos += 2
		if g.transformID == transform.TransformOctahedralOrthogonal {
			pred3D := transform.FromOctahedral(oq.Dequantize(predL))
			rec := ooT.Inverse(pred3D, corr)
			lv := oq.Quantize(transform.ToOctahedral(rec))
			levels[i][0] = float64(lv[0])
			levels[i][1] = float64(lv[1])
			values[i] = []float64{float64(rec[0]), float64(rec[1]), float64(rec[2])}
			continue
		}
		orig := octT.Inverse(predL, corr)
		levels[i][0] = float64(orig[0])
		levels[i][1] = float64(orig[1])
		unit := transform.FromOctahedral(oq.Dequantize(orig))
		values[i] = []float64{float64(unit[0]), float64(unit[1]), float64(unit[2])}
	}
	return nil
}
