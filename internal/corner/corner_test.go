package corner

import "testing"

func TestNextPreviousIdentities(t *testing.T) {
	for c := int32(0); c < 30; c++ {
		if got := Next(Next(Next(c))); got != c {
			t.Errorf("Next^3(%d) = %d, want %d", c, got, c)
		}
		if got := Previous(Next(c)); got != c {
			t.Errorf("Previous(Next(%d)) = %d, want %d", c, got, c)
		}
	}
}

func TestSingleTriangleAllBoundary(t *testing.T) {
	faces := []uint32{0, 1, 2}
	tab, err := New(faces, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tab.NumFaces() != 1 || tab.NumCorners() != 3 {
		t.Fatalf("unexpected sizes: faces=%d corners=%d", tab.NumFaces(), tab.NumCorners())
	}
	for c := int32(0); c < 3; c++ {
		if tab.Opposite(c) != Sentinel {
			t.Errorf("corner %d: Opposite = %d, want Sentinel", c, tab.Opposite(c))
		}
		if !tab.IsBoundaryCorner(c) {
			t.Errorf("corner %d: expected boundary", c)
		}
	}
}

func TestTetrahedronClosedManifold(t *testing.T) {
	faces := []uint32{
		0, 1, 2,
		0, 3, 1,
		1, 3, 2,
		2, 3, 0,
	}
	tab, err := New(faces, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tab.NumFaces() != 4 {
		t.Fatalf("NumFaces = %d, want 4", tab.NumFaces())
	}
	for c := int32(0); c < int32(tab.NumCorners()); c++ {
		oc := tab.Opposite(c)
		if oc == Sentinel {
			t.Errorf("corner %d: unexpected boundary in closed mesh", c)
			continue
		}
		if tab.Opposite(oc) != c {
			t.Errorf("Opposite not involutive at corner %d: Opposite(Opposite(c))=%d", c, tab.Opposite(oc))
		}
	}
}

func TestOpenFanLeftMostCorner(t *testing.T) {
	// Two triangles sharing edge (0,2); vertex 0 has an open boundary
	// fan consisting of exactly corners {0, 3}.
	faces := []uint32{
		0, 1, 2,
		0, 2, 3,
	}
	tab, err := New(faces, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lm := tab.LeftMostCorner(0)
	if lm != 3 {
		t.Errorf("LeftMostCorner(0) = %d, want 3", lm)
	}
	if tab.SwingLeft(lm) != Sentinel {
		t.Errorf("SwingLeft(LeftMostCorner) = %d, want Sentinel", tab.SwingLeft(lm))
	}
}

func TestDegenerateFaceRejected(t *testing.T) {
	faces := []uint32{0, 0, 1}
	if _, err := New(faces, 2); err != ErrDegenerateFace {
		t.Errorf("New = %v, want ErrDegenerateFace", err)
	}
}
