package scene

import (
	"glint/builderr"
	"glint/contact"
	"glint/geometry"
	"glint/material"
	"glint/ray"
)

// Scene is an ordered list of spheres plus the materials they reference.  It
// is assembled before rendering and only read afterwards, so concurrent
// queries need no locking.
type Scene struct {
	Materials []material.Material
	Spheres   []*geometry.Sphere
}

func New() *Scene {
	return &Scene{}
}

// AddMaterial registers a material and returns the index spheres use to refer
// to it.
func (s *Scene) AddMaterial(m material.Material) (int, error) {
	if m == nil {
		return 0, builderr.New(builderr.KindBadMaterial, "material is nil", nil)
	}
	s.Materials = append(s.Materials, m)
	return len(s.Materials) - 1, nil
}

// AddSphere appends a sphere.  Insertion order decides which sphere wins when
// two are hit at exactly the same distance.
func (s *Scene) AddSphere(sph *geometry.Sphere) (int, error) {
	if sph == nil {
		return 0, builderr.New(builderr.KindBadConfig, "sphere is nil", nil)
	}
	if sph.MaterialIndex < 0 || sph.MaterialIndex >= len(s.Materials) {
		return 0, builderr.Newf(builderr.KindBadMaterial, "sphere references material %d, but the scene has %d materials", sph.MaterialIndex, len(s.Materials))
	}
	s.Spheres = append(s.Spheres, sph)
	return len(s.Spheres) - 1, nil
}

func (s *Scene) Material(i int) material.Material {
	return s.Materials[i]
}

// ClosestHit finds the nearest sphere intersection with t strictly inside
// span.
func (s *Scene) ClosestHit(r ray.Ray, span ray.Span) (contact.Contact, bool) {
	best := contact.Contact{}
	found := false
	for _, sph := range s.Spheres {
		c, ok := sph.Hit(r, span)
		if !ok {
			continue
		}
		best = c
		found = true
		span.Hi = c.T
	}
	return best, found
}
