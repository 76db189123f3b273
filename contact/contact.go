package contact

import (
	"glint/ray"
	"glint/vmath/vec3"
)

// Contact describes where a ray met a surface.  N is unit length and points
// away from the surface's interior.
type Contact struct {
	T float64
	R ray.Ray
	P vec3.T
	N vec3.T

	// MaterialIndex selects the surface material from the owning scene's
	// material list.
	MaterialIndex int
}
