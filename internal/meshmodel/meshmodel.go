// Package meshmodel defines the mesh and attribute data model: the
// ordered face list and attribute sequence, the attribute dependency
// graph, and the builder that sorts, validates, and owns them.
package meshmodel

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// Role names the semantic purpose of an attribute.
type Role uint8

const (
	RolePosition Role = iota
	RoleNormal
	RoleColor
	RoleTexCoord
	RoleTangent
	RoleMaterial
	RoleJoint
	RoleWeight
	RoleCustom
)

// String renders a Role for error messages and debug markers.
func (r Role) String() string {
	switch r {
	case RolePosition:
		return "position"
	case RoleNormal:
		return "normal"
	case RoleColor:
		return "color"
	case RoleTexCoord:
		return "texcoord"
	case RoleTangent:
		return "tangent"
	case RoleMaterial:
		return "material"
	case RoleJoint:
		return "joint"
	case RoleWeight:
		return "weight"
	default:
		return "custom"
	}
}

// Domain selects whether an attribute value is attached to a position
// vertex or to a corner.
type Domain uint8

const (
	DomainPerVertex Domain = iota
	DomainPerCorner
)

// ComponentKind is the wire width of one attribute component.
type ComponentKind uint8

const (
	KindU8 ComponentKind = iota
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
)

// ByteWidth returns the size in bytes of one component of this kind.
func (k ComponentKind) ByteWidth() int {
	switch k {
	case KindU8:
		return 1
	case KindU16:
		return 2
	case KindU32, KindF32:
		return 4
	case KindU64, KindF64:
		return 8
	default:
		return 0
	}
}

// BuildError reports a violation of an attribute dependency or size
// invariant detected while constructing a Mesh.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string { return "meshmodel: build: " + e.Reason }

// roleDependencies lists, for each role, the roles that must appear
// among an attribute's parents. Position has no dependency: it is the
// root of the graph. Every role listed here depends transitively on
// position; roles without an entry have no required parent;
// connectivity (the face list) is always present and is not
// modeled as a graph node.
var roleDependencies = map[Role][]Role{
	RoleTexCoord: {RolePosition},
	RoleNormal:   {RolePosition},
	RoleColor:    {RolePosition},
	RoleTangent:  {RolePosition, RoleNormal},
	RoleJoint:    {RolePosition},
	RoleWeight:   {RolePosition},
	RoleMaterial: {RolePosition},
}

// Attribute is a named, typed array of fixed-width component vectors,
// attached either per-vertex or per-corner. Values are kept as
// float64 vectors internally regardless of wire ComponentKind: the
// Kind/Components pair only governs serialization width
// (quantization bit count for lossy roles, raw byte width for
// Kind-preserving custom attributes). This keeps prediction and
// transform math uniform across integer and floating attributes.
type Attribute struct {
	ID         uint32
	Role       Role
	Domain     Domain
	Kind       ComponentKind
	Components int
	Parents    []uint32

	Values [][]float64 // len(Values) == value count, len(Values[i]) == Components

	// VertexToValue optionally maps a per-vertex index to a
	// deduplicated value-table index, when unique-value dedup
	// applies. Nil when absent (identity mapping).
	VertexToValue []uint32
}

// NewAttribute allocates an attribute with valueCount zero vectors of
// the given component count.
func NewAttribute(id uint32, role Role, domain Domain, kind ComponentKind, components int, parents []uint32, valueCount int) *Attribute {
	values := make([][]float64, valueCount)
	for i := range values {
		values[i] = make([]float64, components)
	}
	return &Attribute{
		ID:         id,
		Role:       role,
		Domain:     domain,
		Kind:       kind,
		Components: components,
		Parents:    append([]uint32(nil), parents...),
		Values:     values,
	}
}

// NumValues returns the number of value vectors.
func (a *Attribute) NumValues() int { return len(a.Values) }

// Mesh is an ordered face list plus a topologically sorted attribute
// sequence: a child attribute's parents always precede it.
type Mesh struct {
	Faces      []uint32 // flat triples of position-vertex indices, length 3*NumFaces
	Attributes []*Attribute
}

// NumFaces returns the number of triangular faces.
func (m *Mesh) NumFaces() int { return len(m.Faces) / 3 }

// NumVertices returns the position attribute's value count, or 0 if
// no position attribute is present.
func (m *Mesh) NumVertices() int {
	if pos := m.AttributeByRole(RolePosition); pos != nil {
		return pos.NumValues()
	}
	return 0
}

// AttributeByRole returns the first attribute with the given role, or
// nil.
func (m *Mesh) AttributeByRole(role Role) *Attribute {
	for _, a := range m.Attributes {
		if a.Role == role {
			return a
		}
	}
	return nil
}

// AttributeByID returns the attribute with the given identity, or
// nil.
func (m *Mesh) AttributeByID(id uint32) *Attribute {
	for _, a := range m.Attributes {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Builder accumulates faces and attributes, validates the minimum
// dependency rule, and topologically sorts attributes so each
// precedes its children before producing a Mesh.
type Builder struct {
	faces []uint32
	atts  []*Attribute
	next  uint32
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// SetFaces replaces the face list. faces must have a length that is a
// multiple of 3.
func (b *Builder) SetFaces(faces []uint32) error {
	if len(faces)%3 != 0 {
		return &BuildError{Reason: "face list length not a multiple of 3"}
	}
	b.faces = append([]uint32(nil), faces...)
	return nil
}

// AddAttribute appends attribute a, assigns it a fresh identity, and
// returns that identity. The caller sets Parents to previously
// returned identities.
func (b *Builder) AddAttribute(a *Attribute) uint32 {
	id := b.next
	b.next++
	a.ID = id
	b.atts = append(b.atts, a)
	return id
}

// Build validates size and dependency invariants, topologically sorts
// the attribute sequence by parent identity, and returns the Mesh.
func (b *Builder) Build() (*Mesh, error) {
	if len(b.faces) == 0 {
		return nil, &BuildError{Reason: "no faces"}
	}
	numFaces := len(b.faces) / 3
	byID := make(map[uint32]*Attribute, len(b.atts))
	for _, a := range b.atts {
		byID[a.ID] = a
	}

	for _, a := range b.atts {
		if err := validateSize(a, b.NumPositionVertices(), numFaces); err != nil {
			return nil, err
		}
		for _, p := range a.Parents {
			if _, ok := byID[p]; !ok {
				return nil, &BuildError{Reason: fmt.Sprintf("attribute %d: unknown parent id %d", a.ID, p)}
			}
		}
		if err := validateDependency(a, byID); err != nil {
			return nil, err
		}
	}

	order, err := topoSort(b.atts)
	if err != nil {
		return nil, err
	}

	sorted := make([]*Attribute, 0, len(b.atts))
	for _, id := range order {
		sorted = append(sorted, byID[id])
	}

	return &Mesh{Faces: append([]uint32(nil), b.faces...), Attributes: sorted}, nil
}

// NumPositionVertices returns the position attribute's current value
// count, or 0 if none has been added yet.
func (b *Builder) NumPositionVertices() int {
	for _, a := range b.atts {
		if a.Role == RolePosition {
			return a.NumValues()
		}
	}
	return 0
}

func validateSize(a *Attribute, numPositionVertices, numFaces int) error {
	// With a dedup map the map carries the per-corner/per-vertex
	// indexing and the value table holds only unique vectors.
	indexed := a.NumValues()
	if a.VertexToValue != nil {
		indexed = len(a.VertexToValue)
		for _, vi := range a.VertexToValue {
			if int(vi) >= a.NumValues() {
				return &BuildError{Reason: fmt.Sprintf("attribute %d: dedup map references value %d of %d", a.ID, vi, a.NumValues())}
			}
		}
	}
	switch a.Domain {
	case DomainPerCorner:
		if indexed != 3*numFaces {
			return &BuildError{Reason: fmt.Sprintf("attribute %d: per-corner value count %d != 3*numFaces %d", a.ID, indexed, 3*numFaces)}
		}
	case DomainPerVertex:
		if a.Role == RolePosition {
			return nil
		}
		if numPositionVertices != 0 && len(a.Parents) == 0 {
			// A per-vertex attribute with no declared parent is only
			// valid for the position attribute itself; everything
			// else must reference at least one parent for the
			// dependency graph to be meaningful.
			return &BuildError{Reason: fmt.Sprintf("attribute %d: per-vertex non-position attribute has no parents", a.ID)}
		}
	}
	return nil
}

func validateDependency(a *Attribute, byID map[uint32]*Attribute) error {
	required, ok := roleDependencies[a.Role]
	if !ok {
		return nil
	}
	for _, reqRole := range required {
		found := false
		for _, pid := range a.Parents {
			parent, ok := byID[pid]
			if !ok {
				return &BuildError{Reason: fmt.Sprintf("attribute %d: unknown parent id %d", a.ID, pid)}
			}
			if parent.Role == reqRole {
				found = true
				break
			}
		}
		if !found {
			return &BuildError{Reason: fmt.Sprintf("attribute %d (%s): missing required parent role %s", a.ID, a.Role, reqRole)}
		}
	}
	return nil
}

// topoSort orders attribute identities so each parent precedes its
// children, using a directed lvlath graph and dfs.TopologicalSort.
func topoSort(atts []*Attribute) ([]uint32, error) {
	g := core.NewGraph(core.WithDirected(true))
	for _, a := range atts {
		if err := g.AddVertex(vertexID(a.ID)); err != nil {
			return nil, fmt.Errorf("meshmodel: attribute graph: %w", err)
		}
	}
	for _, a := range atts {
		for _, p := range a.Parents {
			if _, err := g.AddEdge(vertexID(p), vertexID(a.ID), 0); err != nil {
				return nil, fmt.Errorf("meshmodel: attribute graph: %w", err)
			}
		}
	}
	order, err := dfs.TopologicalSort(g)
	if err != nil {
		return nil, fmt.Errorf("meshmodel: attribute dependency cycle: %w", err)
	}
	out := make([]uint32, 0, len(order))
	for _, v := range order {
		id, convErr := strconv.ParseUint(v, 10, 32)
		if convErr != nil {
			return nil, errors.New("meshmodel: internal: non-numeric vertex id")
		}
		out = append(out, uint32(id))
	}
	return out, nil
}

func vertexID(id uint32) string { return strconv.FormatUint(uint64(id), 10) }

// Dedup compacts bit-identical value vectors into a unique value
// table and fills VertexToValue with the index map. Values are keyed
// on their raw little-endian component encoding, so only exact
// duplicates merge. A second call is a no-op.
func (a *Attribute) Dedup() {
	if a.VertexToValue != nil {
		return
	}
	index := make(map[string]uint32, len(a.Values))
	unique := make([][]float64, 0, len(a.Values))
	mapping := make([]uint32, len(a.Values))
	key := make([]byte, 8*a.Components)
	for i, v := range a.Values {
		for k, comp := range v {
			bits := math.Float64bits(comp)
			for b := 0; b < 8; b++ {
				key[8*k+b] = byte(bits >> (8 * b))
			}
		}
		s := string(key)
		id, ok := index[s]
		if !ok {
			id = uint32(len(unique))
			index[s] = id
			unique = append(unique, v)
		}
		mapping[i] = id
	}
	if len(unique) == len(a.Values) {
		return
	}
	a.Values = unique
	a.VertexToValue = mapping
}
