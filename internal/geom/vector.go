// Package geom holds the small amount of planar vector arithmetic the
// simulation needs on top of orb.Point.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var Zero = orb.Point{0, 0}

func Add(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

func Sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

func Scale(a orb.Point, f float64) orb.Point {
	return orb.Point{a[0] * f, a[1] * f}
}

func Mag(a orb.Point) float64 {
	return math.Hypot(a[0], a[1])
}

func Dist(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Unit returns a scaled to length 1, or the zero vector when a has no length.
func Unit(a orb.Point) orb.Point {
	m := Mag(a)
	if m == 0 || !IsFinite(a) {
		return Zero
	}
	return orb.Point{a[0] / m, a[1] / m}
}

func IsFinite(a orb.Point) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func IsZero(a orb.Point) bool {
	return a[0] == 0 && a[1] == 0
}

// Polar returns the point at the given radius and angle (radians) around center.
func Polar(center orb.Point, radius, angle float64) orb.Point {
	return orb.Point{center[0] + radius*math.Cos(angle), center[1] + radius*math.Sin(angle)}
}

// Lerp interpolates between a (t=0) and b (t=1).
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// Centroid averages the points; ok is false for an empty input.
func Centroid(points []orb.Point) (orb.Point, bool) {
	if len(points) == 0 {
		return orb.Point{}, false
	}
	var sum orb.Point
	for _, p := range points {
		sum = Add(sum, p)
	}
	return Scale(sum, 1/float64(len(points))), true
}
