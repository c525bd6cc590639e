package edgebreaker

import (
	"fmt"

	"github.com/dracogo/draco/internal/corner"
)

// hole is one boundary ring of the (non-manifold-split) input mesh,
// listed as directed boundary edges in ring order.
type hole struct {
	edges [][2]uint32
}

// findHoles walks every boundary edge of t into rings. After the
// non-manifold split each vertex has at most one outgoing boundary
// edge, so the rings are simple cycles. Each ring starts at its
// smallest source vertex and rings are ordered by that vertex, so the
// closure is deterministic.
func findHoles(t *corner.Table) ([]hole, error) {
	outgoing := make(map[uint32][2]uint32)
	var sources []uint32
	for c := int32(0); int(c) < t.NumCorners(); c++ {
		if t.Opposite(c) != corner.Sentinel {
			continue
		}
		src := t.VertexOf(corner.Next(c))
		dst := t.VertexOf(corner.Previous(c))
		if _, dup := outgoing[src]; dup {
			return nil, fmt.Errorf("%w: two boundary edges leave vertex %d", errConquest, src)
		}
		outgoing[src] = [2]uint32{src, dst}
		sources = append(sources, src)
	}
	sortU32(sources)

	var holes []hole
	seen := make(map[uint32]bool, len(outgoing))
	for _, src := range sources {
		if seen[src] {
			continue
		}
		var h hole
		cur := src
		for i := 0; i <= len(outgoing); i++ {
			e, ok := outgoing[cur]
			if !ok || seen[cur] {
				return nil, fmt.Errorf("%w: open boundary walk at vertex %d", errConquest, cur)
			}
			seen[cur] = true
			h.edges = append(h.edges, e)
			cur = e[1]
			if cur == src {
				break
			}
		}
		if cur != src {
			return nil, fmt.Errorf("%w: boundary ring does not close", errConquest)
		}
		holes = append(holes, h)
	}
	return holes, nil
}

func sortU32(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// closeHoles fans every hole ring onto a fresh synthetic vertex: a
// boundary edge x→y gains the virtual face (y, x, D), keeping the
// orientation consistent so the closed mesh has no boundary at all.
func closeHoles(faces []uint32, numVertices uint32, holes []hole) (closed []uint32, ringLens []int) {
	closed = append([]uint32(nil), faces...)
	ringLens = make([]int, len(holes))
	for i, h := range holes {
		dummy := numVertices + uint32(i)
		ringLens[i] = len(h.edges)
		for _, e := range h.edges {
			closed = append(closed, e[1], e[0], dummy)
		}
	}
	return closed, ringLens
}

// encStackEntry is one deferred boundary loop: the gate to resume at,
// the corner to conquer next, and the S symbol that deferred it.
type encStackEntry struct {
	gate   *node
	active int32
	symIdx int
}

// conquestFace is one face in conquest order, in discovery ids, plus
// the closed-space face index it came from.
type conquestFace struct {
	v      [3]uint32
	closed int32
}

// Encode runs the Edgebreaker conquest over faces (triangle list, 3
// vertex ids per face) and returns the CLERS stream per connected
// component together with the reconstructed, conquest-ordered face
// list the decoder will reproduce.
func Encode(faces []uint32, numVertices uint32) (*Result, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("edgebreaker: face list length %d not a multiple of 3", len(faces))
	}
	if hasDegenerateFace(faces) {
		return nil, ErrDegenerateFace
	}
	for _, v := range faces {
		if v >= numVertices {
			return nil, fmt.Errorf("edgebreaker: face references vertex %d of %d", v, numVertices)
		}
	}
	if len(faces) == 0 {
		return &Result{}, nil
	}

	split, err := corner.New(faces, numVertices)
	if err != nil {
		return nil, err
	}
	holes, err := findHoles(split)
	if err != nil {
		return nil, err
	}
	dummyStart := split.NumVertices()
	closedFaces, ringLens := closeHoles(split.Faces(), dummyStart, holes)
	closedV := dummyStart + uint32(len(holes))

	ct, err := corner.New(closedFaces, closedV)
	if err != nil {
		return nil, err
	}
	numRealFaces := len(faces) / 3

	e := &conquest{
		ct:           ct,
		split:        split,
		dummyStart:   dummyStart,
		ringLens:     ringLens,
		visitedFace:  make([]bool, ct.NumFaces()),
		visitedVert:  make([]bool, closedV),
		oldToNew:     make([]uint32, closedV),
		nodesOf:      make(map[uint32][]*node),
		numRealFaces: numRealFaces,
	}
	for i := range e.oldToNew {
		e.oldToNew[i] = ^uint32(0)
	}

	var components []Component
	for f := 0; f < numRealFaces; f++ {
		if e.visitedFace[f] {
			continue
		}
		comp, err := e.conquerComponent(int32(f))
		if err != nil {
			return nil, err
		}
		components = append(components, comp)
	}
	for f := range e.visitedFace {
		if !e.visitedFace[f] {
			return nil, fmt.Errorf("%w: face %d unreached", errConquest, f)
		}
	}

	return e.assemble(components)
}

type conquest struct {
	ct         *corner.Table
	split      *corner.Table
	dummyStart uint32
	ringLens   []int

	visitedFace []bool
	visitedVert []bool
	oldToNew    []uint32
	newToOld    []uint32
	nodesOf     map[uint32][]*node

	faces        []conquestFace
	numRealFaces int
}

func (e *conquest) assign(v uint32) uint32 {
	id := uint32(len(e.newToOld))
	e.oldToNew[v] = id
	e.newToOld = append(e.newToOld, v)
	e.visitedVert[v] = true
	return id
}

func (e *conquest) addNode(n *node) {
	e.nodesOf[n.vid] = append(e.nodesOf[n.vid], n)
}

func (e *conquest) dropNode(n *node) {
	list := e.nodesOf[n.vid]
	for i, cand := range list {
		if cand == n {
			list[i] = list[len(list)-1]
			e.nodesOf[n.vid] = list[:len(list)-1]
			return
		}
	}
}

// emit records one conquered face in discovery-id space.
func (e *conquest) emit(a, b, v uint32, closedFace int32) {
	e.faces = append(e.faces, conquestFace{
		v:      [3]uint32{e.oldToNew[a], e.oldToNew[b], e.oldToNew[v]},
		closed: closedFace,
	})
}

func (e *conquest) conquerComponent(startFace int32) (Component, error) {
	ct := e.ct
	base := uint32(len(e.newToOld))
	start := 3 * startFace
	a0 := ct.VertexOf(corner.Next(start))
	b0 := ct.VertexOf(corner.Previous(start))
	e.assign(a0)
	e.assign(b0)

	gs := &node{vid: a0}
	ge := &node{vid: b0}
	newPair(gs, ge)
	e.addNode(gs)
	e.addNode(ge)

	comp := Component{}
	gate := gs
	active := start
	var stack []encStackEntry
	limit := ct.NumCorners() + 2

	for iter := 0; iter <= ct.NumFaces()+1; iter++ {
		fc := corner.FaceOf(active)
		if e.visitedFace[fc] {
			return comp, fmt.Errorf("%w: gate faces conquered face %d", errConquest, fc)
		}
		v := ct.VertexOf(active)
		a := ct.VertexOf(corner.Next(active))
		b := ct.VertexOf(corner.Previous(active))
		if gate.vid != a || gate.next.vid != b {
			return comp, fmt.Errorf("%w: gate edge (%d,%d) does not match face edge (%d,%d)", errConquest, gate.vid, gate.next.vid, a, b)
		}
		e.visitedFace[fc] = true

		if !e.visitedVert[v] {
			sym := SymC
			if v >= e.dummyStart {
				sym = SymH
				comp.HoleRings = append(comp.HoleRings, e.ringLens[v-e.dummyStart])
			}
			e.assign(v)
			vn := &node{vid: v}
			insertAfter(gate, vn)
			e.addNode(vn)
			comp.Symbols = append(comp.Symbols, sym)
			e.emit(a, b, v, fc)
			active = ct.Opposite(corner.Previous(active))
			continue
		}

		leftCorner := ct.Opposite(corner.Next(active))
		rightCorner := ct.Opposite(corner.Previous(active))
		leftVisited := e.visitedFace[corner.FaceOf(leftCorner)]
		rightVisited := e.visitedFace[corner.FaceOf(rightCorner)]

		switch {
		case leftVisited && rightVisited:
			x := gate.next.next
			if x.next != gate || x.vid != v {
				return comp, fmt.Errorf("%w: E loop is not the face triangle", errConquest)
			}
			comp.Symbols = append(comp.Symbols, SymE)
			e.emit(a, b, v, fc)
			geNode := gate.next
			e.dropNode(gate)
			e.dropNode(geNode)
			e.dropNode(x)
			if len(stack) == 0 {
				comp.NumIDs = uint32(len(e.newToOld)) - base
				return comp, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			gate = top.gate
			active = top.active

		case rightVisited: // left unconquered: turn left
			vn := gate.prev
			if vn.vid != v {
				return comp, fmt.Errorf("%w: L vertex %d not before gate (found %d)", errConquest, v, vn.vid)
			}
			comp.Symbols = append(comp.Symbols, SymL)
			e.emit(a, b, v, fc)
			old := gate
			gate = vn
			remove(old)
			e.dropNode(old)
			active = leftCorner

		case leftVisited: // right unconquered: turn right
			vn := gate.next.next
			if vn.vid != v {
				return comp, fmt.Errorf("%w: R vertex %d not after gate (found %d)", errConquest, v, vn.vid)
			}
			comp.Symbols = append(comp.Symbols, SymR)
			e.emit(a, b, v, fc)
			geNode := gate.next
			remove(geNode)
			e.dropNode(geNode)
			active = rightCorner

		default: // both sides unconquered: split or merge
			vn, err := e.locateTip(active, v, limit)
			if err != nil {
				return comp, err
			}
			geNode := gate.next
			symIdx := len(comp.Symbols)

			if onLoop(gate, vn, limit) {
				comp.Symbols = append(comp.Symbols, SymS)
				e.emit(a, b, v, fc)
				vA := &node{vid: v}
				spliceAt(gate, geNode, vn, vA)
				e.addNode(vA)
				stack = append(stack, encStackEntry{gate: gate, active: rightCorner, symIdx: symIdx})
				gate = vn
				active = leftCorner
				continue
			}

			depth := -1
			for j, entry := range stack {
				if onLoop(entry.gate, vn, limit) {
					depth = j
					break
				}
			}
			if depth < 0 {
				return comp, fmt.Errorf("%w: merge vertex %d on no pending loop", errConquest, v)
			}
			ringDist := distTo(vn, stack[depth].gate, limit)
			if ringDist < 0 {
				return comp, fmt.Errorf("%w: merge loop walk failed", errConquest)
			}
			comp.Symbols = append(comp.Symbols, SymM)
			e.emit(a, b, v, fc)
			vA := &node{vid: v}
			spliceAt(gate, geNode, vn, vA)
			e.addNode(vA)
			gateDist := distTo(geNode, gate, limit)
			if gateDist < 0 {
				return comp, fmt.Errorf("%w: merge gate walk failed", errConquest)
			}
			comp.Merges = append(comp.Merges, MergeRecord{
				SymbolIndex: symIdx,
				SplitIndex:  stack[depth].symIdx,
				Depth:       depth,
				GateDist:    gateDist,
				RingDist:    ringDist,
			})
			stack = append(stack[:depth], stack[depth+1:]...)
			gate = vn
			active = leftCorner
		}
	}
	return comp, fmt.Errorf("%w: conquest did not terminate", errConquest)
}

// locateTip finds the boundary node of vertex v whose outgoing
// boundary edge borders the unconquered fan containing corner c: it
// swings right through unconquered faces until the crossed edge has a
// conquered far side.
func (e *conquest) locateTip(c int32, v uint32, limit int) (*node, error) {
	ct := e.ct
	cur := c
	var y uint32
	found := false
	for i := 0; i < limit; i++ {
		rc := ct.Opposite(corner.Previous(cur))
		if e.visitedFace[corner.FaceOf(rc)] {
			y = ct.VertexOf(corner.Next(cur))
			found = true
			break
		}
		cur = corner.Previous(rc)
	}
	if !found {
		return nil, fmt.Errorf("%w: no conquered face around split vertex %d", errConquest, v)
	}
	for _, n := range e.nodesOf[v] {
		if n.next != nil && n.next.vid == y {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: no boundary node for split vertex %d with edge to %d", errConquest, v, y)
}

// spliceAt performs the S/M boundary surgery: the gate edge gs→ge is
// conquered, vertex tip vn splits into vn and the fresh vA, and the
// loop rewires to ...gs→vA→(old vn.next)... and ...vn→ge... .
func spliceAt(gs, ge, vn, vA *node) {
	y := vn.next
	gs.next = vA
	vA.prev = gs
	vA.next = y
	y.prev = vA
	vn.next = ge
	ge.prev = vn
}

// distTo counts next-steps from n to target, or -1 if target is not
// reached within limit.
func distTo(n, target *node, limit int) int {
	cur := n
	for i := 0; i <= limit; i++ {
		if cur == target {
			return i
		}
		cur = cur.next
	}
	return -1
}

// assemble strips the synthetic hole vertices back out and maps the
// conquest down to wire ids.
func (e *conquest) assemble(components []Component) (*Result, error) {
	totalIDs := len(e.newToOld)
	isDummyNew := make([]bool, totalIDs)
	for id, old := range e.newToOld {
		if old >= e.dummyStart {
			isDummyNew[id] = true
		}
	}
	wireOf := make([]uint32, totalIDs)
	var skipped uint32
	for id := 0; id < totalIDs; id++ {
		if isDummyNew[id] {
			skipped++
			continue
		}
		wireOf[id] = uint32(id) - skipped
	}
	numWire := uint32(totalIDs) - skipped

	res := &Result{
		Components:   components,
		NumVertices:  numWire,
		SourceVertex: make([]uint32, 0, numWire),
	}
	for id, old := range e.newToOld {
		if isDummyNew[id] {
			continue
		}
		src, _ := e.split.ParentVertex(old)
		res.SourceVertex = append(res.SourceVertex, src)
	}

	for _, f := range e.faces {
		if isDummyNew[f.v[0]] || isDummyNew[f.v[1]] || isDummyNew[f.v[2]] {
			continue
		}
		res.Faces = append(res.Faces, wireOf[f.v[0]], wireOf[f.v[1]], wireOf[f.v[2]])
		res.SourceFace = append(res.SourceFace, f.closed)
	}
	if len(res.Faces)/3 != e.numRealFaces {
		return nil, fmt.Errorf("%w: %d real faces survived closure, want %d", errConquest, len(res.Faces)/3, e.numRealFaces)
	}

	table, err := corner.New(res.Faces, numWire)
	if err != nil {
		return nil, err
	}
	res.Table = table
	return res, nil
}
