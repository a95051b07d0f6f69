package geo

import "testing"

func TestNewGridTiling(t *testing.T) {
	area := Area{Min: Point{0, 0}, Max: Point{20, 10}}
	g := NewGrid(area, 10)
	if len(g.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(g.Regions))
	}
	if g.Regions[0].ID != 0 || g.Regions[1].ID != 1 {
		t.Errorf("region ids not assigned in row-major order: %+v", g.Regions)
	}
}

func TestRegionDistManhattan(t *testing.T) {
	r1 := NewRegion(0, Point{0, 0}, 10)
	r2 := NewRegion(1, Point{10, 0}, 10)
	if got := r1.Dist(r2); got != 10 {
		t.Errorf("Dist = %v, want 10", got)
	}
}

func TestOverlappingByCenter(t *testing.T) {
	area := Area{Min: Point{0, 0}, Max: Point{30, 10}}
	g := NewGrid(area, 10)
	task := Area{Min: Point{5, 0}, Max: Point{25, 10}}
	regs := g.Overlapping(task)
	if len(regs) != 2 {
		t.Fatalf("got %d overlapping regions, want 2 (centers at x=5,15,25; 5 and 15 fall in [5,25))", len(regs))
	}
}

func TestNewRegionRejectsNonPositiveSide(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for non-positive side")
		}
	}()
	NewRegion(0, Point{}, 0)
}
