package meshmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleBuilder() *Builder {
	b := NewBuilder()
	_ = b.SetFaces([]uint32{0, 1, 2})
	pos := NewAttribute(0, RolePosition, DomainPerVertex, KindF32, 3, nil, 3)
	pos.Values[0] = []float64{0, 0, 0}
	pos.Values[1] = []float64{1, 0, 0}
	pos.Values[2] = []float64{0, 1, 0}
	b.AddAttribute(pos)
	return b
}

func TestBuilder_SingleTriangle(t *testing.T) {
	b := triangleBuilder()
	mesh, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, mesh.NumFaces())
	assert.Equal(t, 3, mesh.NumVertices())
	assert.Equal(t, RolePosition, mesh.Attributes[0].Role)
}

func TestBuilder_TexCoordRequiresPosition(t *testing.T) {
	b := NewBuilder()
	_ = b.SetFaces([]uint32{0, 1, 2})
	uv := NewAttribute(0, RoleTexCoord, DomainPerCorner, KindF32, 2, nil, 3)
	b.AddAttribute(uv)
	_, err := b.Build()
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
}

func TestBuilder_SortsParentsBeforeChildren(t *testing.T) {
	b := triangleBuilder()
	posID := uint32(0)
	uv := NewAttribute(0, RoleTexCoord, DomainPerCorner, KindF32, 2, []uint32{posID}, 3)
	b.AddAttribute(uv)
	mesh, err := b.Build()
	require.NoError(t, err)
	require.Len(t, mesh.Attributes, 2)
	assert.Equal(t, RolePosition, mesh.Attributes[0].Role)
	assert.Equal(t, RoleTexCoord, mesh.Attributes[1].Role)
}

func TestBuilder_PerCornerSizeMismatch(t *testing.T) {
	b := triangleBuilder()
	uv := NewAttribute(0, RoleTexCoord, DomainPerCorner, KindF32, 2, []uint32{0}, 2)
	b.AddAttribute(uv)
	_, err := b.Build()
	require.Error(t, err)
}

func TestAttributeDedup(t *testing.T) {
	a := NewAttribute(0, RoleTexCoord, DomainPerCorner, KindF32, 2, nil, 4)
	a.Values[0] = []float64{0.5, 0.5}
	a.Values[1] = []float64{0.25, 0.75}
	a.Values[2] = []float64{0.5, 0.5}
	a.Values[3] = []float64{0.25, 0.75}

	a.Dedup()
	require.Len(t, a.Values, 2)
	require.Equal(t, []uint32{0, 1, 0, 1}, a.VertexToValue)

	// Idempotent.
	a.Dedup()
	assert.Len(t, a.Values, 2)
}

func TestAttributeDedupAllDistinct(t *testing.T) {
	a := NewAttribute(0, RoleColor, DomainPerVertex, KindF32, 1, nil, 3)
	for i := range a.Values {
		a.Values[i][0] = float64(i)
	}
	a.Dedup()
	assert.Len(t, a.Values, 3)
	assert.Nil(t, a.VertexToValue)
}
