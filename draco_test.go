package draco

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMesh(t *testing.T, faces []uint32, positions [][]float64) (*Mesh, uint32) {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.SetFaces(faces))
	pos := NewAttribute(RolePosition, DomainPerVertex, KindF32, 3, nil, len(positions))
	for i, p := range positions {
		copy(pos.Values[i], p)
	}
	posID := b.AddAttribute(pos)
	mesh, err := b.Build()
	require.NoError(t, err)
	return mesh, posID
}

// matchVertices maps every decoded vertex to the nearest original
// position, requiring the match to be unique within tol.
func matchVertices(t *testing.T, orig, decoded [][]float64, tol float64) []int {
	t.Helper()
	mapping := make([]int, len(decoded))
	used := make([]bool, len(orig))
	for i, d := range decoded {
		best, bestDist := -1, math.Inf(1)
		for j, o := range orig {
			var dist float64
			for k := range o {
				dv := d[k] - o[k]
				dist += dv * dv
			}
			dist = math.Sqrt(dist)
			if dist < bestDist {
				best, bestDist = j, dist
			}
		}
		require.GreaterOrEqual(t, tol, bestDist, "decoded vertex %d has no original within tolerance", i)
		require.False(t, used[best], "original vertex %d matched twice", best)
		used[best] = true
		mapping[i] = best
	}
	return mapping
}

func encodeDecode(t *testing.T, mesh *Mesh, opts *Options) *Mesh {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, opts))
	decoded, err := Decode(&buf)
	require.NoError(t, err)
	return decoded
}

func TestEncodeSingleTriangleHeader(t *testing.T) {
	mesh, _ := buildMesh(t, []uint32{0, 1, 2}, [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, nil))
	data := buf.Bytes()

	want := []byte{'D', 'R', 'A', 'C', 'O', 2, 2, 1, 1, 0x00, 0x00}
	require.GreaterOrEqual(t, len(data), len(want)+8)
	assert.Equal(t, want, data[:len(want)])
	// Connectivity block head: face count 1, one connected component.
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 1}, data[11:19])
}

func TestRoundTripSingleTriangle(t *testing.T) {
	positions := [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh, _ := buildMesh(t, []uint32{0, 1, 2}, positions)
	decoded := encodeDecode(t, mesh, nil)

	require.Equal(t, 1, decoded.NumFaces())
	pos := decoded.AttributeByRole(RolePosition)
	require.NotNil(t, pos)
	require.Equal(t, 3, pos.NumValues())

	// Quantization tolerance: the unit-cube diagonal (an upper bound on
	// this triangle's bbox diagonal, sqrt 2) over the 11-bit grid.
	tol := math.Sqrt(3) / float64((1<<11)-1)
	mapping := matchVertices(t, positions, pos.Values, tol)
	var tri [3]int
	for k := 0; k < 3; k++ {
		tri[k] = mapping[decoded.Faces[k]]
	}
	assert.ElementsMatch(t, []int{0, 1, 2}, tri[:])
}

func tetraMesh(t *testing.T) (*Mesh, [][]float64, uint32) {
	positions := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	}
	faces := []uint32{
		0, 1, 2,
		0, 3, 1,
		1, 3, 2,
		2, 3, 0,
	}
	mesh, posID := buildMesh(t, faces, positions)
	return mesh, positions, posID
}

func TestRoundTripTetrahedronWithUVSeam(t *testing.T) {
	positions := [][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	}
	faces := []uint32{
		0, 1, 2,
		0, 3, 1,
		1, 3, 2,
		2, 3, 0,
	}
	b := NewBuilder()
	require.NoError(t, b.SetFaces(faces))
	pos := NewAttribute(RolePosition, DomainPerVertex, KindF32, 3, nil, 4)
	for i, p := range positions {
		copy(pos.Values[i], p)
	}
	posID := b.AddAttribute(pos)

	// Six distinct UV values: vertices 0 and 1 are uniform, vertices 2
	// and 3 are split by a seam running along edges (0,2), (2,3), and
	// (1,3).
	uvTable := [][]float64{
		{0.1, 0.1}, {0.9, 0.1}, {0.5, 0.9},
		{0.5, 0.0}, {0.2, 0.6}, {0.8, 0.6},
	}
	valueID := []int{
		0, 1, 2,
		0, 4, 1,
		1, 5, 2,
		3, 4, 0,
	}
	uv := NewAttribute(RoleTexCoord, DomainPerCorner, KindF32, 2, []uint32{posID}, 12)
	for c, vid := range valueID {
		copy(uv.Values[c], uvTable[vid])
	}
	uv.Dedup()
	require.Equal(t, 6, uv.NumValues())
	b.AddAttribute(uv)
	mesh, err := b.Build()
	require.NoError(t, err)

	decoded := encodeDecode(t, mesh, nil)
	require.Equal(t, 4, decoded.NumFaces())
	decUV := decoded.AttributeByRole(RoleTexCoord)
	require.NotNil(t, decUV)
	require.Equal(t, 12, decUV.NumValues())

	posTol := math.Sqrt(3) / float64((1<<11)-1)
	decPos := decoded.AttributeByRole(RolePosition)
	mapping := matchVertices(t, positions, decPos.Values, posTol)

	// Each decoded corner's UV must match the original corner carrying
	// the same vertex triple, within the 10-bit grid tolerance.
	var du, dv float64
	for _, v := range uvTable {
		du = math.Max(du, v[0])
		dv = math.Max(dv, v[1])
	}
	uvTol := 2 * math.Sqrt(du*du+dv*dv) / float64((1<<10)-1)
	for df := 0; df < 4; df++ {
		var tri [3]int
		for k := 0; k < 3; k++ {
			tri[k] = mapping[decoded.Faces[3*df+k]]
		}
		matched := false
		for sf := 0; sf < 4 && !matched; sf++ {
			for rot := 0; rot < 3 && !matched; rot++ {
				ok := true
				for k := 0; k < 3; k++ {
					if int(faces[3*sf+(rot+k)%3]) != tri[k] {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				matched = true
				for k := 0; k < 3; k++ {
					want := uvTable[valueID[3*sf+(rot+k)%3]]
					got := decUV.Values[3*df+k]
					for c := 0; c < 2; c++ {
						assert.InDelta(t, want[c], got[c], uvTol, "face %d corner %d component %d", df, k, c)
					}
				}
			}
		}
		require.True(t, matched, "decoded face %d not found in source", df)
	}
}

// uvSphere builds a 482-vertex closed sphere: 15 rings of 32 sectors
// plus two poles.
func uvSphere() (faces []uint32, positions [][]float64) {
	const rings, sectors = 15, 32
	positions = append(positions, []float64{0, 0, 1})
	for r := 1; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings+1)
		for s := 0; s < sectors; s++ {
			theta := 2 * math.Pi * float64(s) / float64(sectors)
			positions = append(positions, []float64{
				math.Sin(phi) * math.Cos(theta),
				math.Sin(phi) * math.Sin(theta),
				math.Cos(phi),
			})
		}
	}
	positions = append(positions, []float64{0, 0, -1})
	top := uint32(0)
	bottom := uint32(len(positions) - 1)
	v := func(r, s int) uint32 { return uint32(1 + r*sectors + s%sectors) }

	for s := 0; s < sectors; s++ {
		faces = append(faces, top, v(0, s), v(0, s+1))
	}
	for r := 0; r < rings-1; r++ {
		for s := 0; s < sectors; s++ {
			faces = append(faces,
				v(r, s), v(r+1, s), v(r+1, s+1),
				v(r, s), v(r+1, s+1), v(r, s+1),
			)
		}
	}
	for s := 0; s < sectors; s++ {
		faces = append(faces, bottom, v(rings-1, s+1), v(rings-1, s))
	}
	return faces, positions
}

func TestRoundTripSphere(t *testing.T) {
	faces, positions := uvSphere()
	require.Len(t, positions, 482)
	mesh, _ := buildMesh(t, faces, positions)
	decoded := encodeDecode(t, mesh, nil)

	require.Equal(t, len(faces)/3, decoded.NumFaces())
	decPos := decoded.AttributeByRole(RolePosition)
	require.Equal(t, 482, decPos.NumValues())

	bboxDiag := 2 * math.Sqrt(3)
	tol := bboxDiag / float64((1<<11)-1)
	mapping := matchVertices(t, positions, decPos.Values, 2*tol)

	var sumSq float64
	for i, d := range decPos.Values {
		o := positions[mapping[i]]
		for k := range o {
			dv := d[k] - o[k]
			sumSq += dv * dv
		}
	}
	assert.Less(t, math.Sqrt(sumSq), 0.01*bboxDiag)
}

func TestRoundTripNormals(t *testing.T) {
	faces, positions := uvSphere()
	b := NewBuilder()
	require.NoError(t, b.SetFaces(faces))
	pos := NewAttribute(RolePosition, DomainPerVertex, KindF32, 3, nil, len(positions))
	for i, p := range positions {
		copy(pos.Values[i], p)
	}
	posID := b.AddAttribute(pos)
	// Unit-sphere positions double as their own normals.
	nrm := NewAttribute(RoleNormal, DomainPerVertex, KindF32, 3, []uint32{posID}, len(positions))
	for i, p := range positions {
		copy(nrm.Values[i], p)
	}
	b.AddAttribute(nrm)
	mesh, err := b.Build()
	require.NoError(t, err)

	decoded := encodeDecode(t, mesh, nil)
	decPos := decoded.AttributeByRole(RolePosition)
	decNrm := decoded.AttributeByRole(RoleNormal)
	require.NotNil(t, decNrm)

	tol := 2 * math.Sqrt(3) / float64((1<<11)-1)
	mapping := matchVertices(t, positions, decPos.Values, 2*tol)
	for i, n := range decNrm.Values {
		want := positions[mapping[i]]
		dot := n[0]*want[0] + n[1]*want[1] + n[2]*want[2]
		assert.Greater(t, dot, 0.98, "normal %d deviates too far", i)
	}
}

func TestRoundTripLosslessCustomAttribute(t *testing.T) {
	mesh, positions, posID := tetraMesh(t)
	_ = positions
	b := NewBuilder()
	require.NoError(t, b.SetFaces(mesh.Faces))
	pos := mesh.AttributeByRole(RolePosition)
	b.AddAttribute(pos)
	custom := NewAttribute(RoleCustom, DomainPerVertex, KindU32, 2, []uint32{posID}, 4)
	wantVals := [][]float64{{7, 1}, {42, 2}, {1 << 20, 3}, {99999, 4}}
	for i, v := range wantVals {
		copy(custom.Values[i], v)
	}
	b.AddAttribute(custom)
	rebuilt, err := b.Build()
	require.NoError(t, err)

	decoded := encodeDecode(t, rebuilt, nil)
	decPos := decoded.AttributeByRole(RolePosition)
	decCustom := decoded.AttributeByRole(RoleCustom)
	require.NotNil(t, decCustom)

	tol := math.Sqrt(3) / float64((1<<11)-1)
	mapping := matchVertices(t, pos.Values, decPos.Values, tol)
	for i, got := range decCustom.Values {
		assert.Equal(t, wantVals[mapping[i]], got, "custom value %d must survive bit-exactly", i)
	}
}

func TestRoundTripAllSymbolEncoders(t *testing.T) {
	faces, positions := uvSphere()
	mesh, _ := buildMesh(t, faces, positions)
	for _, enc := range []SymbolCoding{SymbolsCRLight, SymbolsBalanced, SymbolsRANS} {
		opts := DefaultOptions()
		opts.SymbolEncoder = enc
		decoded := encodeDecode(t, mesh, opts)
		assert.Equal(t, len(faces)/3, decoded.NumFaces(), "encoder %d", enc)
	}
}

func TestRoundTripSplitGroups(t *testing.T) {
	faces, positions := uvSphere()
	mesh, _ := buildMesh(t, faces, positions)
	opts := DefaultOptions()
	opts.SplitAttributesIntoGroups = true
	opts.MultiParallelogram = true
	decoded := encodeDecode(t, mesh, opts)

	decPos := decoded.AttributeByRole(RolePosition)
	tol := 2 * math.Sqrt(3) / float64((1<<11)-1)
	matchVertices(t, positions, decPos.Values, 2*tol)
}

func TestMetadataRoundTrip(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	opts := DefaultOptions()
	opts.IncludeMetadata = true
	opts.Metadata = Metadata{
		EncoderID: 7,
		Entries: []MetadataEntry{
			{Key: "generator", Value: "draco-go"},
			{Key: "units", Value: "meters"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, opts))
	data := buf.Bytes()

	meta, err := DecodeMetadata(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), meta.EncoderID)
	assert.Equal(t, opts.Metadata.Entries, meta.Entries)

	decoded, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.NumFaces())
}

func TestConnectivityOnlyDecode(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, nil))
	decoded, err := DecodeWithConfig(&buf, &Config{ConnectivityOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.NumFaces())
	assert.Empty(t, decoded.Attributes)
}

func TestDecodeRejectsNotDraco(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("NOTADRACOFILE")))
	assert.ErrorIs(t, err, ErrNotADracoFile)
}

func TestDecodeRejectsSequentialMethod(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, nil))
	data := buf.Bytes()
	data[8] = 0 // encoder method byte: sequential
	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, nil))
	data := buf.Bytes()
	data[5] = 9 // major version
	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEncodeRejectsBadOptions(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	var buf bytes.Buffer

	opts := DefaultOptions()
	opts.Method = MethodSequential
	assert.ErrorIs(t, Encode(&buf, mesh, opts), ErrUnsupportedMethod)

	opts = DefaultOptions()
	opts.GeometryType = GeometryPointCloud
	assert.ErrorIs(t, Encode(&buf, mesh, opts), ErrUnsupportedGeometry)

	opts = DefaultOptions()
	opts.PositionQuantizationBits = 0
	assert.Error(t, Encode(&buf, mesh, opts))
}

func TestDecodeTruncatedNeverPanics(t *testing.T) {
	mesh, _, _ := tetraMesh(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mesh, nil))
	full := buf.Bytes()
	for n := 0; n < len(full); n++ {
		_, err := Decode(bytes.NewReader(full[:n]))
		assert.Error(t, err, "prefix of %d bytes must not decode", n)
	}
	// Short prefixes inside the fixed header surface the stream
	// truncation error specifically.
	for n := 0; n < 11 && n < len(full); n++ {
		if n >= 5 {
			_, err := Decode(bytes.NewReader(full[:n]))
			assert.ErrorIs(t, err, ErrNotEnoughData, "prefix %d", n)
		}
	}
}

func TestRoundTripNormalsOrthogonalTransform(t *testing.T) {
	faces, positions := uvSphere()
	b := NewBuilder()
	require.NoError(t, b.SetFaces(faces))
	pos := NewAttribute(RolePosition, DomainPerVertex, KindF32, 3, nil, len(positions))
	for i, p := range positions {
		copy(pos.Values[i], p)
	}
	posID := b.AddAttribute(pos)
	nrm := NewAttribute(RoleNormal, DomainPerVertex, KindF32, 3, []uint32{posID}, len(positions))
	for i, p := range positions {
		copy(nrm.Values[i], p)
	}
	b.AddAttribute(nrm)
	mesh, err := b.Build()
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.NormalTransform = NormalOctahedralOrthogonal
	decoded := encodeDecode(t, mesh, opts)
	decPos := decoded.AttributeByRole(RolePosition)
	decNrm := decoded.AttributeByRole(RoleNormal)
	require.NotNil(t, decNrm)

	tol := 2 * math.Sqrt(3) / float64((1<<11)-1)
	mapping := matchVertices(t, positions, decPos.Values, 2*tol)
	for i, n := range decNrm.Values {
		want := positions[mapping[i]]
		dot := n[0]*want[0] + n[1]*want[1] + n[2]*want[2]
		assert.Greater(t, dot, 0.98, "normal %d deviates too far", i)
	}
}
