// Package material defines how surfaces scatter light.
//
// Materials are immutable once built and are shared by index between every
// sphere that references them, so Reflect must not keep state between calls.
// The only mutable resource a call touches is the caller's random source.
package material

import (
	"math/rand"

	"glint/contact"
	"glint/ray"
	"glint/vmath/vec3"
)

// ReflectResult is the outcome of one scattering event: the ray to follow
// next, and the per-channel attenuation applied to whatever that ray gathers.
type ReflectResult struct {
	Ray   ray.Ray
	Color vec3.T
}

type Material interface {
	// Reflect scatters the incoming ray at the given contact.  The outgoing
	// ray always starts at the contact point.
	Reflect(in ray.Ray, hit contact.Contact, rng *rand.Rand) ReflectResult
}

// Diffuse is a matte surface.  Outgoing directions are the surface normal
// perturbed by a random unit vector, which concentrates them around the
// normal.
type Diffuse struct {
	Color vec3.T
}

func (d *Diffuse) Reflect(in ray.Ray, hit contact.Contact, rng *rand.Rand) ReflectResult {
	n := vec3.Normalize(hit.N)
	dir := vec3.Normalize(vec3.AddVV(vec3.UniformUnitDistribution(rng), n))
	if dir.IsZero() {
		// The sample landed exactly opposite the normal.
		dir = n
	}

	return ReflectResult{
		Ray: ray.Ray{
			Origin:    hit.P,
			Direction: dir,
		},
		Color: d.Color,
	}
}

// Specular is a perfect mirror.
type Specular struct {
	Color vec3.T
}

func (s *Specular) Reflect(in ray.Ray, hit contact.Contact, rng *rand.Rand) ReflectResult {
	return ReflectResult{
		Ray: ray.Ray{
			Origin:    hit.P,
			Direction: vec3.Reflect(in.Direction, vec3.Normalize(hit.N)),
		},
		Color: s.Color,
	}
}
