// Package attrcorner implements the attribute corner table: a quotient
// of a position corner table cut along attribute seams, giving each
// non-connectivity attribute its own per-corner vertex numbering.
package attrcorner

import (
	"errors"

	"github.com/dracogo/draco/internal/corner"
)

// ValueEqual reports whether the attribute values attached to corners
// a and b are bit-identical. The caller supplies this since only it
// knows the attribute's raw value buffer and component width.
type ValueEqual func(a, b int32) bool

// ErrSeamLength is returned by BuildFromSeams when the seam bitmap
// does not cover every corner.
var ErrSeamLength = errors.New("attrcorner: seam bitmap length mismatch")

// Table is the attribute corner table for one non-connectivity
// attribute, built on top of a position corner.Table.
type Table struct {
	pos *corner.Table

	edgeSeam   []bool // per corner, true if the edge opposite it is a seam
	vertexSeam []bool // per position vertex, true if any incident edge is a seam

	attrVertexOf    []uint32 // per corner -> attribute vertex id
	numAttrVertices uint32
	firstCorner     []int32 // per attribute vertex -> first corner assigned to it
}

// Build constructs the attribute corner table for pos using eq to
// compare per-corner attribute values: an edge is a seam when it is a
// boundary or when the values on either of its endpoints disagree
// across it. Vertex id allocation is then driven purely by the seam
// flags, so a decoder holding only the serialized bitmap (see
// EdgeSeams and BuildFromSeams) allocates the identical numbering.
func Build(pos *corner.Table, eq ValueEqual) *Table {
	t := &Table{pos: pos}
	t.computeSeams(eq)
	t.rebuildVertices()
	return t
}

// BuildFromSeams constructs the table from an explicit per-corner
// seam bitmap, the decoder-side counterpart of Build.
func BuildFromSeams(pos *corner.Table, edgeSeam []bool) (*Table, error) {
	if len(edgeSeam) != pos.NumCorners() {
		return nil, ErrSeamLength
	}
	t := &Table{pos: pos, edgeSeam: append([]bool(nil), edgeSeam...)}
	for c := int32(0); int(c) < pos.NumCorners(); c++ {
		if pos.Opposite(c) == corner.Sentinel && !t.edgeSeam[c] {
			return nil, errors.New("attrcorner: boundary edge not marked as seam")
		}
	}
	t.markVertexSeams()
	t.rebuildVertices()
	return t, nil
}

func (t *Table) computeSeams(eq ValueEqual) {
	n := t.pos.NumCorners()
	t.edgeSeam = make([]bool, n)

	for c := int32(0); int(c) < n; c++ {
		oc := t.pos.Opposite(c)
		if oc == corner.Sentinel {
			t.edgeSeam[c] = true
			continue
		}
		if !eq(corner.Next(c), corner.Previous(oc)) || !eq(corner.Previous(c), corner.Next(oc)) {
			t.edgeSeam[c] = true
		}
	}
	t.markVertexSeams()
}

func (t *Table) markVertexSeams() {
	t.vertexSeam = make([]bool, t.pos.NumVertices())
	for c := int32(0); int(c) < len(t.edgeSeam); c++ {
		if !t.edgeSeam[c] {
			continue
		}
		t.vertexSeam[t.pos.VertexOf(corner.Next(c))] = true
		t.vertexSeam[t.pos.VertexOf(corner.Previous(c))] = true
	}
}

// EdgeSeams returns the per-corner seam bitmap, the only state beyond
// the position connectivity a decoder needs to rebuild this table.
func (t *Table) EdgeSeams() []bool { return t.edgeSeam }

// IsEdgeOnSeam reports whether the edge opposite corner c is a seam.
func (t *Table) IsEdgeOnSeam(c int32) bool { return t.edgeSeam[c] }

// IsVertexOnSeam reports whether position vertex v touches a seam.
func (t *Table) IsVertexOnSeam(v uint32) bool { return t.vertexSeam[v] }

// Opposite mirrors the position table's Opposite but returns Sentinel
// across a seam edge.
func (t *Table) Opposite(c int32) int32 {
	if t.edgeSeam[c] {
		return corner.Sentinel
	}
	return t.pos.Opposite(c)
}

// VertexOf returns the attribute-vertex id attached to corner c.
func (t *Table) VertexOf(c int32) uint32 { return t.attrVertexOf[c] }

// NumVertices returns the number of attribute-vertex ids, equal to the
// number of distinct position vertices plus the number of seam splits.
func (t *Table) NumVertices() uint32 { return t.numAttrVertices }

// NumCorners returns 3*numFaces, delegating to the underlying
// position corner table.
func (t *Table) NumCorners() int { return t.pos.NumCorners() }

// FirstCorner returns the first corner encountered while assigning
// attribute-vertex id v, suitable as a representative corner for
// geometric adjacency lookups (predictors only need one such corner
// per value index).
func (t *Table) FirstCorner(v uint32) int32 {
	if int(v) >= len(t.firstCorner) {
		return corner.Sentinel
	}
	return t.firstCorner[v]
}

func (t *Table) rebuildVertices() {
	n := int32(t.pos.NumCorners())
	t.attrVertexOf = make([]uint32, n)
	t.firstCorner = nil

	var next uint32
	numPosVertices := t.pos.NumVertices()
	for v := uint32(0); v < numPosVertices; v++ {
		ring := t.pos.Ring(v)
		if len(ring) == 0 {
			continue
		}
		start := t.canonicalStart(ring)
		t.assignRing(start, &next)
	}
	t.numAttrVertices = next
}

// canonicalStart finds a corner immediately following a seam crossing
// in v's ring by swinging left (at the position-table level, crossing
// seams freely) until doing so again would cross one, or until the
// walk runs off a boundary or back to where it started. A vertex
// whose ring crosses no seam at all falls through to ring[0]
// harmlessly, since assignRing then allocates a single id for the
// whole ring regardless of where it starts.
func (t *Table) canonicalStart(ring []int32) int32 {
	cur := ring[0]
	for i := 0; i < len(ring)+1; i++ {
		if t.edgeSeam[corner.Next(cur)] {
			return cur
		}
		prev := t.pos.SwingLeft(cur)
		if prev == corner.Sentinel || prev == ring[0] {
			return cur
		}
		cur = prev
	}
	return cur
}

// assignRing walks the position ring starting at start, via plain
// position SwingRight (which crosses seams), allocating a fresh
// attribute-vertex id each time the walk crosses a seam edge.
func (t *Table) assignRing(start int32, next *uint32) {
	id := *next
	*next++
	t.attrVertexOf[start] = id
	t.firstCorner = append(t.firstCorner, start)

	cur := start
	numCorners := t.pos.NumCorners()
	for i := 0; i < numCorners+1; i++ {
		crossed := corner.Previous(cur)
		nxt := t.pos.SwingRight(cur)
		if nxt == corner.Sentinel || nxt == start {
			return
		}
		if t.edgeSeam[crossed] {
			id = *next
			*next++
			t.firstCorner = append(t.firstCorner, nxt)
		}
		t.attrVertexOf[nxt] = id
		cur = nxt
	}
}
