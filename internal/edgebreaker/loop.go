package edgebreaker

// node is one position on a boundary loop between the conquered and
// unconquered region. A vertex can own several nodes at once (a split
// boundary passes through it more than once); slot identifies the
// vertex, vid is only populated on the encoder side where concrete
// mesh vertex ids exist.
type node struct {
	prev, next *node
	vid        uint32 // encoder: mesh vertex id
	slot       int    // decoder: index into the slot arena
}

// insertAfter links n between p and p.next.
func insertAfter(p, n *node) {
	n.next = p.next
	n.prev = p
	p.next.prev = n
	p.next = n
}

// remove unlinks n from its loop.
func remove(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// newPair creates a degenerate two-node loop, the seed boundary of a
// component before its first face is conquered.
func newPair(a, b *node) {
	a.next, a.prev = b, b
	b.next, b.prev = a, a
}

// walk advances n by steps along next, or returns nil if the loop is
// shorter than the walk allows (limit bounds the traversal against
// corrupt side tables).
func walk(n *node, steps, limit int) *node {
	if steps > limit {
		return nil
	}
	for i := 0; i < steps; i++ {
		n = n.next
	}
	return n
}

// onLoop reports whether target lies on n's loop, scanning at most
// limit nodes.
func onLoop(n, target *node, limit int) bool {
	cur := n
	for i := 0; i < limit; i++ {
		if cur == target {
			return true
		}
		cur = cur.next
		if cur == n {
			return false
		}
	}
	return false
}
