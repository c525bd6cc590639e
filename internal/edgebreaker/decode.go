package edgebreaker

import "fmt"

// slotArena tracks vertex identities during reverse replay. A slot is
// created whenever a boundary node appears whose vertex is not yet
// pinned down; S and M surgery later discovers that two slots are the
// same vertex and unions them. Ids attach to a slot's root when the
// replay reaches the symbol that first discovered the vertex.
type slotArena struct {
	parent []int
	id     []int64 // -1 until assigned
	dummy  []bool
}

func (s *slotArena) alloc() int {
	s.parent = append(s.parent, len(s.parent))
	s.id = append(s.id, -1)
	s.dummy = append(s.dummy, false)
	return len(s.parent) - 1
}

func (s *slotArena) find(i int) int {
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return i
}

func (s *slotArena) union(a, b int) error {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return nil
	}
	if s.id[ra] >= 0 && s.id[rb] >= 0 {
		return fmt.Errorf("%w: merging two already-numbered vertices", ErrSymbolStream)
	}
	if s.id[rb] >= 0 {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
	return nil
}

func (s *slotArena) assign(i int, id int64, dummy bool) error {
	r := s.find(i)
	if s.id[r] >= 0 {
		return fmt.Errorf("%w: vertex numbered twice", ErrSymbolStream)
	}
	s.id[r] = id
	s.dummy[r] = dummy
	return nil
}

// Decode is the Spirale Reversi inverse of Encode: it replays each
// component's CLERS stream in reverse, growing the conquest boundary
// backwards from the final E to the seed gate, then strips the faces
// incident to synthetic hole vertices. The returned face list is
// bit-identical to Result.Faces of the matching Encode call.
func Decode(components []Component) ([]uint32, uint32, error) {
	var all []uint32
	var base uint32
	var dummies []uint32
	var total uint32

	for ci := range components {
		comp := &components[ci]
		faces, compDummies, err := replayComponent(comp, base)
		if err != nil {
			return nil, 0, fmt.Errorf("component %d: %w", ci, err)
		}
		all = append(all, faces...)
		dummies = append(dummies, compDummies...)
		base += comp.NumIDs
	}
	total = base

	// Strip hole-closure faces and compact the id space.
	isDummy := make([]bool, total)
	for _, d := range dummies {
		isDummy[d] = true
	}
	wireOf := make([]uint32, total)
	var skipped uint32
	for id := uint32(0); id < total; id++ {
		if isDummy[id] {
			skipped++
			continue
		}
		wireOf[id] = id - skipped
	}

	var out []uint32
	for i := 0; i+2 < len(all); i += 3 {
		a, b, v := all[i], all[i+1], all[i+2]
		if isDummy[a] || isDummy[b] || isDummy[v] {
			continue
		}
		out = append(out, wireOf[a], wireOf[b], wireOf[v])
	}
	return out, total - skipped, nil
}

func replayComponent(comp *Component, base uint32) (faces []uint32, dummies []uint32, err error) {
	n := len(comp.Symbols)
	if n == 0 || comp.NumIDs < 3 {
		return nil, nil, fmt.Errorf("%w: component too small", ErrSymbolStream)
	}
	merges := make(map[int]MergeRecord, len(comp.Merges))
	for _, m := range comp.Merges {
		if m.SymbolIndex < 0 || m.SymbolIndex >= n || comp.Symbols[m.SymbolIndex] != SymM {
			return nil, nil, fmt.Errorf("%w: merge record at non-M symbol", ErrSymbolStream)
		}
		if m.SplitIndex < 0 || m.SplitIndex >= n || comp.Symbols[m.SplitIndex] != SymS {
			return nil, nil, fmt.Errorf("%w: merge record references non-S symbol", ErrSymbolStream)
		}
		merges[m.SymbolIndex] = m
	}

	arena := &slotArena{}
	limit := 3*n + 4
	var gate *node
	var stack []*node
	nextDown := int64(base) + int64(comp.NumIDs) - 1
	holeCount := 0
	slotFaces := make([][3]int, 0, n)

	fresh := func() *node { return &node{slot: arena.alloc()} }

	for i := n - 1; i >= 0; i-- {
		sym := comp.Symbols[i]
		if gate == nil && sym != SymE {
			return nil, nil, fmt.Errorf("%w: component does not end in E", ErrSymbolStream)
		}
		switch sym {
		case SymE:
			if gate != nil {
				stack = append(stack, gate)
			}
			n1, n2, n3 := fresh(), fresh(), fresh()
			n1.next, n1.prev = n2, n3
			n2.next, n2.prev = n3, n1
			n3.next, n3.prev = n1, n2
			slotFaces = append(slotFaces, [3]int{n1.slot, n2.slot, n3.slot})
			gate = n1

		case SymC, SymH:
			vn := gate.next
			bn := vn.next
			if vn == gate || bn == gate {
				return nil, nil, fmt.Errorf("%w: boundary too short for %s", ErrSymbolStream, sym)
			}
			slotFaces = append(slotFaces, [3]int{gate.slot, bn.slot, vn.slot})
			if err := arena.assign(vn.slot, nextDown, sym == SymH); err != nil {
				return nil, nil, err
			}
			nextDown--
			if sym == SymH {
				holeCount++
			}
			remove(vn)

		case SymR:
			vn := gate.next
			bn := fresh()
			insertAfter(gate, bn)
			slotFaces = append(slotFaces, [3]int{gate.slot, bn.slot, vn.slot})

		case SymL:
			ge := gate.next
			an := fresh()
			insertAfter(gate, an)
			slotFaces = append(slotFaces, [3]int{an.slot, ge.slot, gate.slot})
			gate = an

		case SymS:
			if len(stack) == 0 {
				return nil, nil, fmt.Errorf("%w: S with no pending boundary", ErrSymbolStream)
			}
			gs := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			vA := gs.next
			ge := gate.next
			if vA == gs || ge == gate {
				return nil, nil, fmt.Errorf("%w: boundary too short for S", ErrSymbolStream)
			}
			if err := arena.union(vA.slot, gate.slot); err != nil {
				return nil, nil, err
			}
			y := vA.next
			gate.next = y
			y.prev = gate
			gs.next = ge
			ge.prev = gs
			slotFaces = append(slotFaces, [3]int{gs.slot, ge.slot, gate.slot})
			gate = gs

		case SymM:
			rec, ok := merges[i]
			if !ok {
				return nil, nil, fmt.Errorf("%w: M symbol without merge record", ErrSymbolStream)
			}
			ge := gate.next
			if ge == gate {
				return nil, nil, fmt.Errorf("%w: boundary too short for M", ErrSymbolStream)
			}
			an := walk(ge, rec.GateDist, limit)
			if an == nil || an == gate {
				return nil, nil, fmt.Errorf("%w: merge gate walk out of range", ErrSymbolStream)
			}
			vA := an.next
			if vA == gate || vA == ge {
				return nil, nil, fmt.Errorf("%w: merge split point collides with gate", ErrSymbolStream)
			}
			if err := arena.union(vA.slot, gate.slot); err != nil {
				return nil, nil, err
			}
			y := vA.next
			gate.next = y
			y.prev = gate
			an.next = ge
			ge.prev = an
			sgs := walk(gate, rec.RingDist, limit)
			if sgs == nil {
				return nil, nil, fmt.Errorf("%w: merge ring walk out of range", ErrSymbolStream)
			}
			if rec.Depth < 0 || rec.Depth > len(stack) {
				return nil, nil, fmt.Errorf("%w: merge depth out of range", ErrSymbolStream)
			}
			stack = append(stack, nil)
			copy(stack[rec.Depth+1:], stack[rec.Depth:])
			stack[rec.Depth] = sgs
			slotFaces = append(slotFaces, [3]int{an.slot, ge.slot, gate.slot})
			gate = an

		default:
			return nil, nil, fmt.Errorf("%w: unknown symbol %d", ErrSymbolStream, sym)
		}
	}

	if gate == nil || len(stack) != 0 {
		return nil, nil, fmt.Errorf("%w: unbalanced S/E nesting", ErrSymbolStream)
	}
	if gate.next == gate || gate.next.next != gate {
		return nil, nil, fmt.Errorf("%w: seed boundary is not an edge", ErrSymbolStream)
	}
	if nextDown != int64(base)+1 {
		return nil, nil, fmt.Errorf("%w: vertex count mismatch (%d ids left)", ErrSymbolStream, nextDown-int64(base)-1)
	}
	if holeCount != len(comp.HoleRings) {
		return nil, nil, fmt.Errorf("%w: %d H symbols but %d hole rings", ErrSymbolStream, holeCount, len(comp.HoleRings))
	}
	if err := arena.assign(gate.slot, int64(base), false); err != nil {
		return nil, nil, err
	}
	if err := arena.assign(gate.next.slot, int64(base)+1, false); err != nil {
		return nil, nil, err
	}

	// Resolve slots to ids, restoring forward conquest order.
	faces = make([]uint32, 0, 3*len(slotFaces))
	for i := len(slotFaces) - 1; i >= 0; i-- {
		var ids [3]uint32
		for k, s := range slotFaces[i] {
			r := arena.find(s)
			if arena.id[r] < 0 {
				return nil, nil, fmt.Errorf("%w: unreferenced vertex slot", ErrSymbolStream)
			}
			ids[k] = uint32(arena.id[r])
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			return nil, nil, fmt.Errorf("%w: replay produced a degenerate face", ErrSymbolStream)
		}
		faces = append(faces, ids[0], ids[1], ids[2])
	}
	for r := range arena.id {
		if arena.parent[r] == r && arena.id[r] >= 0 && arena.dummy[r] {
			dummies = append(dummies, uint32(arena.id[r]))
		}
	}
	return faces, dummies, nil
}
