package posemon

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D landmark position in normalized image coordinates, where
// X and Y are typically in the range [0, 1] relative to the frame width and
// height.  Values outside that range are accepted as the pose model can
// place landmarks beyond the frame edge.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// vec returns the point as a gonum vector
func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// JointTriplet is the ordered set of three landmarks used to measure the angle
// at a joint.  The angle is taken at Vertex between the vectors
// Vertex->Proximal and Vertex->Distal.
type JointTriplet struct {
	Proximal Point
	Vertex   Point
	Distal   Point
}

// Angle returns the interior angle of the triplet at its vertex in degrees
func (t JointTriplet) Angle() float64 {
	return Angle(t.Proximal, t.Vertex, t.Distal)
}

// Angle calculates the interior angle in degrees at vertex formed by the
// proximal and distal points.  The result is always in the range [0, 180].
//
// When vertex coincides with one of the other points the zero length vector
// has a direction of 0 radians (atan2(0,0) == 0), so a finite deterministic
// value is returned rather than an error.
func Angle(proximal, vertex, distal Point) float64 {

	toDistal := r2.Sub(distal.vec(), vertex.vec())
	toProximal := r2.Sub(proximal.vec(), vertex.vec())

	radians := math.Atan2(toDistal.Y, toDistal.X) - math.Atan2(toProximal.Y, toProximal.X)
	degrees := math.Abs(radians * 180.0 / math.Pi)

	// atan2 difference spans (-360, 360), fold the reflex side back
	if degrees > 180.0 {
		degrees = 360.0 - degrees
	}

	return degrees
}
