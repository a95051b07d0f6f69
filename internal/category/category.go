// Package category defines agent categories: their motion mode, travel
// distance rules, and the dissimilarity metric the sense-map kernel uses.
package category

import (
	"math"

	"github.com/elektrokombinacija/crowdsense/internal/geo"
	"github.com/elektrokombinacija/crowdsense/internal/sensor"
)

// Mode is an agent category's motion mode.
type Mode int

const (
	Air Mode = iota
	Land
)

func (m Mode) String() string {
	if m == Air {
		return "air"
	}
	return "land"
}

// Category describes one class of agent: its sensors, motion mode, speed,
// and any physical properties used to compute dissimilarity against other
// categories. Concrete categories (Aerial, Ground, SmallGround) are plain
// values of this type constructed by the scenario builder — there is no
// runtime type switch over "kinds" of category.
type Category struct {
	ID          int
	Name        string
	Sensors     []sensor.Sensor
	Mode        Mode
	Speed       float64
	IntraFactor float64
	Properties  map[string]float64
}

// Aerial returns a fast, straight-line-moving category (the source's UAV).
func Aerial(id int, sensors []sensor.Sensor, speed float64) Category {
	return Category{ID: id, Name: "aerial", Sensors: sensors, Mode: Air, Speed: speed, IntraFactor: 1.0}
}

// Ground returns a Manhattan-moving category (the source's UV).
func Ground(id int, sensors []sensor.Sensor, speed float64) Category {
	return Category{ID: id, Name: "ground", Sensors: sensors, Mode: Land, Speed: speed, IntraFactor: 1.0}
}

// SmallGround returns a slower, more thorough Manhattan-moving category
// (the source's Worker(UV) — a larger in-region sampling factor).
func SmallGround(id int, sensors []sensor.Sensor, speed float64) Category {
	return Category{ID: id, Name: "small_ground", Sensors: sensors, Mode: Land, Speed: speed, IntraFactor: 2.0}
}

// InterD is the inter-region travel distance: Euclidean for air categories,
// Manhattan for land categories.
func (c Category) InterD(r1, r2 geo.Region) float64 {
	if c.Mode == Air {
		return geo.Euclidean(r1.Center(), r2.Center())
	}
	return geo.Manhattan(r1.Center(), r2.Center())
}

// IntraD is the in-region sampling travel distance.
func (c Category) IntraD(r geo.Region) float64 {
	factor := c.IntraFactor
	if factor == 0 {
		factor = 1
	}
	return 2 * r.Side * factor
}

// Locate returns the region containing the point (1-p)*r1 + p*r2 along this
// category's motion path between r1 and r2. Air categories move in a
// straight line; land categories move along an L-shaped Manhattan path,
// covering the x-leg then the y-leg in proportion to the total Manhattan
// distance travelled.
func (c Category) Locate(r1, r2 geo.Region, p float64, grid geo.Grid) geo.Region {
	c1, c2 := r1.Center(), r2.Center()
	var at geo.Point
	if c.Mode == Air {
		at = geo.Lerp(c1, c2, p)
	} else {
		total := geo.Manhattan(c1, c2)
		if total == 0 {
			at = c1
		} else {
			traveled := total * p
			dx := math.Abs(c2.X - c1.X)
			if traveled <= dx {
				xp := 0.0
				if dx > 0 {
					xp = traveled / dx
				}
				at = geo.Point{X: c1.X + (c2.X-c1.X)*xp, Y: c1.Y}
			} else {
				dy := math.Abs(c2.Y - c1.Y)
				yp := 0.0
				if dy > 0 {
					yp = (traveled - dx) / dy
				}
				at = geo.Point{X: c2.X, Y: c1.Y + (c2.Y-c1.Y)*yp}
			}
		}
	}
	if reg, ok := grid.RegionAt(at); ok {
		return reg
	}
	return r2
}

func dataDiff(a, b float64) float64 {
	return math.Abs(a - b)
}

// Dissimilarity is a normalized, bounded [0,1] distance between two
// categories, combining motion-mode mismatch, speed delta, and any
// differences in their physical property maps.
func (c Category) Dissimilarity(other Category) float64 {
	d := 0.0
	n := 1.0
	if c.Mode != other.Mode {
		d += 1
	}
	speedDelta := dataDiff(c.Speed, other.Speed)
	maxSpeed := math.Max(c.Speed, other.Speed)
	if maxSpeed > 0 {
		d += speedDelta / maxSpeed
	}
	n += 1

	keys := make(map[string]struct{})
	for k := range c.Properties {
		keys[k] = struct{}{}
	}
	for k := range other.Properties {
		keys[k] = struct{}{}
	}
	for k := range keys {
		d += dataDiff(c.Properties[k], other.Properties[k])
		n++
	}
	result := d / n
	if result > 1 {
		return 1
	}
	return result
}
