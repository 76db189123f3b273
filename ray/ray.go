package ray

import (
	"math"

	"glint/vmath/vec3"
)

// Span is a parametric interval along a ray.  Queries treat both ends as
// exclusive.
type Span struct {
	Lo, Hi float64
}

// Forward is the span (lo, +Inf).
func Forward(lo float64) Span {
	return Span{Lo: lo, Hi: math.Inf(1)}
}

func (s Span) Contains(t float64) bool {
	return s.Lo < t && t < s.Hi
}

func (s Span) IsNaN() bool {
	return math.IsNaN(s.Lo) || math.IsNaN(s.Hi)
}

// Ray is a half-line.  Direction does not need to be unit length; t values are
// measured in multiples of it.
type Ray struct {
	Origin    vec3.T
	Direction vec3.T
}

func (r Ray) At(t float64) vec3.T {
	return vec3.T{
		r.Origin[0] + t*r.Direction[0],
		r.Origin[1] + t*r.Direction[1],
		r.Origin[2] + t*r.Direction[2],
	}
}

// Degenerate reports whether the direction has zero length, in which case the
// ray cannot intersect anything.
func (r Ray) Degenerate() bool {
	return r.Direction.IsZero()
}
