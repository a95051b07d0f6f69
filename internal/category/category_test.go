package category

import (
	"testing"

	"github.com/elektrokombinacija/crowdsense/internal/geo"
)

func TestInterDByMode(t *testing.T) {
	r1 := geo.NewRegion(0, geo.Point{0, 0}, 10)
	r2 := geo.NewRegion(1, geo.Point{10, 10}, 10)

	air := Aerial(0, nil, 5)
	land := Ground(1, nil, 5)

	if got, want := air.InterD(r1, r2), geo.Euclidean(r1.Center(), r2.Center()); got != want {
		t.Errorf("aerial InterD = %v, want %v", got, want)
	}
	if got, want := land.InterD(r1, r2), geo.Manhattan(r1.Center(), r2.Center()); got != want {
		t.Errorf("ground InterD = %v, want %v", got, want)
	}
}

func TestDissimilarityZeroForSameCategory(t *testing.T) {
	a := Ground(0, nil, 5)
	if got := a.Dissimilarity(a); got != 0 {
		t.Errorf("Dissimilarity(self) = %v, want 0", got)
	}
}

func TestDissimilarityBounded(t *testing.T) {
	a := Aerial(0, nil, 100)
	b := Ground(1, nil, 1)
	b.Properties = map[string]float64{"payload": 50}
	a.Properties = map[string]float64{"payload": 0}
	if got := a.Dissimilarity(b); got < 0 || got > 1 {
		t.Errorf("Dissimilarity = %v, want within [0,1]", got)
	}
}

func TestLocateLandSplitsXThenY(t *testing.T) {
	area := geo.Area{Min: geo.Point{0, 0}, Max: geo.Point{30, 30}}
	grid := geo.NewGrid(area, 10)
	r1, _ := grid.RegionAt(geo.Point{5, 5})
	r2, _ := grid.RegionAt(geo.Point{25, 25})
	land := Ground(0, nil, 1)
	// halfway along a 40-unit Manhattan path (20 x, 20 y) covers the x leg fully.
	mid := land.Locate(r1, r2, 0.5, grid)
	if mid.ID == r1.ID {
		t.Errorf("expected progress past the starting region at p=0.5")
	}
}
