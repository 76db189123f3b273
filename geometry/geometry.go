package geometry

import (
	"math"

	"glint/builderr"
	"glint/contact"
	"glint/ray"
	"glint/vmath/vec3"
)

// Sphere is a solid ball in world space.
type Sphere struct {
	Center        vec3.T
	Radius        float64
	MaterialIndex int
}

// NewSphere validates and builds a sphere.  The material index is not checked
// here; the owning scene does that when the sphere is added.
func NewSphere(center vec3.T, radius float64, materialIndex int) (*Sphere, error) {
	if !center.IsFinite() {
		return nil, builderr.Newf(builderr.KindBadConfig, "sphere center %v is not finite", center)
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, builderr.Newf(builderr.KindBadRadius, "sphere radius %v must be positive and finite", radius)
	}
	if materialIndex < 0 {
		return nil, builderr.Newf(builderr.KindBadMaterial, "sphere material index %d is negative", materialIndex)
	}
	return &Sphere{
		Center:        center,
		Radius:        radius,
		MaterialIndex: materialIndex,
	}, nil
}

// Hit intersects r with the sphere, returning the nearest intersection whose
// parameter lies strictly inside span.
func (s *Sphere) Hit(r ray.Ray, span ray.Span) (contact.Contact, bool) {
	oc := vec3.SubVV(r.Origin, s.Center)
	a := r.Direction.NormSquared()
	if a == 0 {
		return contact.Contact{}, false
	}
	halfB := vec3.IProd(oc, r.Direction)
	c := oc.NormSquared() - s.Radius*s.Radius

	disc := halfB*halfB - a*c
	if disc < 0 {
		return contact.Contact{}, false
	}
	sqrtDisc := math.Sqrt(disc)

	t := (-halfB - sqrtDisc) / a
	if !span.Contains(t) {
		t = (-halfB + sqrtDisc) / a
		if !span.Contains(t) {
			return contact.Contact{}, false
		}
	}

	p := r.At(t)
	return contact.Contact{
		T:             t,
		R:             r,
		P:             p,
		N:             vec3.DivVS(vec3.SubVV(p, s.Center), s.Radius),
		MaterialIndex: s.MaterialIndex,
	}, true
}
